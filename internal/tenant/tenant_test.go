package tenant

import (
	"errors"
	"testing"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/domain/query"
)

func TestNewRouter_RequiresPrefix(t *testing.T) {
	_, err := NewRouter("")
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestRouter_Resolve(t *testing.T) {
	r, err := NewRouter("contentdex")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		scope   query.Scope
		current int64
		want    string
		wantErr bool
	}{
		{
			name:    "current tenant",
			scope:   query.Scope{Kind: query.ScopeCurrent},
			current: 7,
			want:    "contentdex-content-7",
		},
		{
			name:  "all tenants",
			scope: query.Scope{Kind: query.ScopeAll},
			want:  "contentdex-content-all",
		},
		{
			name:  "explicit list",
			scope: query.Scope{Kind: query.ScopeList, Tenants: []int64{1, 3}},
			want:  "contentdex-content-1,contentdex-content-3",
		},
		{
			name:    "empty list",
			scope:   query.Scope{Kind: query.ScopeList},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.scope, tt.current)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrConfiguration) {
					t.Fatalf("err = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("index = %q, want %q", got, tt.want)
			}
		})
	}
}

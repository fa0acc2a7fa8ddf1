package syncer

import (
	"context"
	"fmt"
	"testing"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/domain/document"
	"github.com/driftline/contentdex/internal/hooks"
	"github.com/driftline/contentdex/internal/tenant"
	"github.com/driftline/contentdex/internal/transport/elastic"
)

// mockEngine implements the consumer interface for tests.
type mockEngine struct {
	bulkFn        func(ctx context.Context, index string, actions []elastic.BulkAction) (*elastic.BulkResult, error)
	deleteDocFn   func(ctx context.Context, index, id string) error
	createIndexFn func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	deleteIndexFn func(ctx context.Context, name string) error

	bulkCalls    []string // index names, in call order
	deletedDocs  []string // "index/id"
	deletedIndex []string
}

func (m *mockEngine) Bulk(ctx context.Context, index string, actions []elastic.BulkAction) (*elastic.BulkResult, error) {
	m.bulkCalls = append(m.bulkCalls, index)
	if m.bulkFn != nil {
		return m.bulkFn(ctx, index, actions)
	}
	return okBulkResult(actions), nil
}

func (m *mockEngine) DeleteDocument(ctx context.Context, index, id string) error {
	m.deletedDocs = append(m.deletedDocs, index+"/"+id)
	if m.deleteDocFn != nil {
		return m.deleteDocFn(ctx, index, id)
	}
	return nil
}

func (m *mockEngine) CreateIndex(ctx context.Context, name string) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, name)
	}
	return nil
}

func (m *mockEngine) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockEngine) DeleteIndex(ctx context.Context, name string) error {
	m.deletedIndex = append(m.deletedIndex, name)
	if m.deleteIndexFn != nil {
		return m.deleteIndexFn(ctx, name)
	}
	return nil
}

// okBulkResult acknowledges every action with a 200.
func okBulkResult(actions []elastic.BulkAction) *elastic.BulkResult {
	res := &elastic.BulkResult{}
	for _, a := range actions {
		res.Items = append(res.Items, map[string]elastic.BulkItemDetail{
			a.Op: {ID: a.ID, Status: 200},
		})
	}
	return res
}

// mockPreparer implements the consumer interface for tests.
type mockPreparer struct {
	prepareFn func(ctx context.Context, id int64) (*document.Document, error)
	prepared  []int64
}

func (m *mockPreparer) Prepare(ctx context.Context, id int64) (*document.Document, error) {
	m.prepared = append(m.prepared, id)
	if m.prepareFn != nil {
		return m.prepareFn(ctx, id)
	}
	return &document.Document{ID: id, Type: "post", Status: "publish"}, nil
}

func notFoundPreparer(missing ...int64) *mockPreparer {
	return &mockPreparer{prepareFn: func(_ context.Context, id int64) (*document.Document, error) {
		for _, m := range missing {
			if id == m {
				return nil, fmt.Errorf("load entity %d: %w", id, domain.ErrEntityNotFound)
			}
		}
		return &document.Document{ID: id, Type: "post", Status: "publish"}, nil
	}}
}

func newTestManager(t *testing.T, reg *hooks.Registry) (*Manager, *mockEngine, *mockPreparer) {
	t.Helper()
	eng := &mockEngine{}
	prep := &mockPreparer{}
	if reg == nil {
		reg = hooks.NewRegistry()
	}
	router, err := tenant.NewRouter("test")
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return New(eng, prep, reg, router, Config{}, nil), eng, prep
}

// savedEvent is a privileged publish-save on tenant 1.
func savedEvent(id int64) Event {
	return Event{
		TenantID:   1,
		EntityID:   id,
		Type:       "post",
		Status:     "publish",
		Privileged: true,
	}
}

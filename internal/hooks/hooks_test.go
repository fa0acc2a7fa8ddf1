package hooks

import (
	"context"
	"testing"
)

func TestApply_Order(t *testing.T) {
	r := NewRegistry()
	r.Register("point", func(_ context.Context, v any) any {
		return v.(string) + "-first"
	})
	r.Register("point", func(_ context.Context, v any) any {
		return v.(string) + "-second"
	})

	out := r.Apply(context.Background(), "point", "base")
	if out != "base-first-second" {
		t.Errorf("chain output = %q, want base-first-second", out)
	}
}

func TestApply_EmptyChain(t *testing.T) {
	r := NewRegistry()
	out := r.Apply(context.Background(), "unregistered", 42)
	if out != 42 {
		t.Errorf("value = %v, want 42", out)
	}
}

func TestApply_NilRegistry(t *testing.T) {
	var r *Registry
	out := r.Apply(context.Background(), "point", "v")
	if out != "v" {
		t.Errorf("value = %v, want v", out)
	}
}

func TestApplyBool_TypeMismatchKeepsFallback(t *testing.T) {
	r := NewRegistry()
	r.Register("flag", func(_ context.Context, _ any) any {
		return "not a bool"
	})
	if got := r.ApplyBool(context.Background(), "flag", true); !got {
		t.Error("expected fallback true when filter returns a non-bool")
	}
}

func TestApplyStrings(t *testing.T) {
	r := NewRegistry()
	r.Register(PointMetaAllowList, func(_ context.Context, v any) any {
		return append(v.([]string), "_price")
	})
	got := r.ApplyStrings(context.Background(), PointMetaAllowList, []string{"_sku"})
	if len(got) != 2 || got[1] != "_price" {
		t.Errorf("allow list = %v, want [_sku _price]", got)
	}
}

package prepare

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/domain/entity"
	"github.com/driftline/contentdex/internal/hooks"
)

func newTestPreparer(src Source) *Preparer {
	return New(src, hooks.NewRegistry(), nil, true, nil)
}

func TestPrepare_NotFound(t *testing.T) {
	p := newTestPreparer(&mockSource{})
	_, err := p.Prepare(context.Background(), 99)
	if !errors.Is(err, domain.ErrEntityNotFound) {
		t.Fatalf("err = %v, want ErrEntityNotFound", err)
	}
}

func TestPrepare_DateTermsRoundTrip(t *testing.T) {
	src := &mockSource{entities: map[int64]entity.Entity{1: publishedArticle(1)}}
	doc, err := newTestPreparer(src).Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Date == nil || doc.DateTerms == nil {
		t.Fatal("expected date and date terms to be set")
	}

	// Re-derive every fragment directly from the creation timestamp; the
	// stored sub-object must match.
	ts, err := time.Parse(StoreLayout, *doc.Date)
	if err != nil {
		t.Fatalf("stored date unparsable: %v", err)
	}
	dt := doc.DateTerms
	_, wantWeek := ts.ISOWeek()
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"year", dt.Year, ts.Year()},
		{"month", dt.Month, int(ts.Month())},
		{"week", dt.Week, wantWeek},
		{"dayofyear", dt.DayOfYear, ts.YearDay() - 1},
		{"day", dt.Day, ts.Day()},
		{"dayofweek", dt.DayOfWeek, int(ts.Weekday())},
		{"hour", dt.Hour, ts.Hour()},
		{"minute", dt.Minute, ts.Minute()},
		{"second", dt.Second, ts.Second()},
		{"m", dt.YearMonth, ts.Year()*100 + int(ts.Month())},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if dt.DayOfWeekISO < 1 || dt.DayOfWeekISO > 7 {
		t.Errorf("dayofweek_iso = %d, want 1..7", dt.DayOfWeekISO)
	}
}

func TestPrepare_Idempotent(t *testing.T) {
	src := &mockSource{
		entities: map[int64]entity.Entity{1: publishedArticle(1)},
		meta:     map[int64]map[string][]string{1: {"color": {"red", "blue"}}},
	}
	p := newTestPreparer(src)

	first, err := p.Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("documents differ:\n%s\n%s", a, b)
	}
}

func TestPrepare_ZeroDateNormalizedAway(t *testing.T) {
	e := publishedArticle(1)
	e.Date = entity.ZeroDate
	e.Modified = "not a timestamp"
	src := &mockSource{entities: map[int64]entity.Entity{1: e}}

	doc, err := newTestPreparer(src).Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Date != nil {
		t.Errorf("zero date should normalize to nil, got %q", *doc.Date)
	}
	if doc.Modified != nil {
		t.Errorf("unparsable date should normalize to nil, got %q", *doc.Modified)
	}
	if doc.DateTerms != nil {
		t.Error("date terms should be absent without a creation date")
	}
}

func TestPrepare_InvalidDateKeptWhenHookDisablesIgnore(t *testing.T) {
	e := publishedArticle(1)
	e.Date = entity.ZeroDate
	src := &mockSource{entities: map[int64]entity.Entity{1: e}}

	reg := hooks.NewRegistry()
	reg.Register(hooks.PointIgnoreInvalidDates, func(_ context.Context, _ any) any {
		return false
	})
	p := New(src, reg, nil, true, nil)

	doc, err := p.Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Date == nil || *doc.Date != entity.ZeroDate {
		t.Error("expected zero date to be kept when ignore hook returns false")
	}
}

func TestPrepare_MetaPolicy(t *testing.T) {
	src := &mockSource{
		entities: map[int64]entity.Entity{1: publishedArticle(1)},
		meta: map[int64]map[string][]string{1: {
			"_sku":           {"AB-1"},
			"_hidden":        {"x"},
			"color":          {"red"},
			"session_tokens": {"secret"},
		}},
	}

	reg := hooks.NewRegistry()
	reg.Register(hooks.PointMetaAllowList, func(_ context.Context, v any) any {
		return append(v.([]string), "_sku")
	})
	p := New(src, reg, nil, true, nil)

	doc, err := p.Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := doc.Meta["_sku"]; !ok {
		t.Error("allow-listed protected key missing")
	}
	if _, ok := doc.Meta["_hidden"]; ok {
		t.Error("protected key outside allow list must be dropped")
	}
	if _, ok := doc.Meta["color"]; !ok {
		t.Error("public key missing")
	}
	if _, ok := doc.Meta["session_tokens"]; ok {
		t.Error("deny-listed key must be dropped")
	}
}

func TestPrepare_MetaForceIncludeOverridesBothLists(t *testing.T) {
	src := &mockSource{
		entities: map[int64]entity.Entity{1: publishedArticle(1)},
		meta: map[int64]map[string][]string{1: {
			"_secret":        {"v"},
			"session_tokens": {"v"},
		}},
	}

	reg := hooks.NewRegistry()
	reg.Register(hooks.PointMetaForceInclude, func(_ context.Context, v any) any {
		d := v.(hooks.MetaKeyDecision)
		d.Include = true
		return d
	})
	p := New(src, reg, nil, true, nil)

	doc, err := p.Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := doc.Meta["_secret"]; !ok {
		t.Error("force-include must override the protected-key allow list")
	}
	if _, ok := doc.Meta["session_tokens"]; !ok {
		t.Error("force-include must override the deny list")
	}
}

func TestPrepare_TermHierarchy(t *testing.T) {
	src := &mockSource{
		entities: map[int64]entity.Entity{1: publishedArticle(1)},
		taxonomies: map[string][]entity.Taxonomy{
			"article": {{Name: "category", Public: true, Hierarchical: true}},
		},
		terms: map[string][]entity.Term{
			"category": {{ID: 30, Slug: "leaf", Name: "Leaf", ParentID: 20, TaxTermID: 130}},
		},
		termsByID: map[int64]entity.Term{
			20: {ID: 20, Slug: "mid", Name: "Mid", ParentID: 10, TaxTermID: 120},
			10: {ID: 10, Slug: "root", Name: "Root", TaxTermID: 110},
		},
		orders: map[int64]int{130: 2},
	}

	doc, err := newTestPreparer(src).Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	terms := doc.Terms["category"]
	if len(terms) != 3 {
		t.Fatalf("term count = %d, want 3 (leaf + two ancestors)", len(terms))
	}
	if terms[0].ID != 30 || terms[1].ID != 20 || terms[2].ID != 10 {
		t.Errorf("term order = %d,%d,%d, want 30,20,10", terms[0].ID, terms[1].ID, terms[2].ID)
	}
	if terms[0].TermOrder != 2 {
		t.Errorf("leaf term_order = %d, want 2", terms[0].TermOrder)
	}
}

func TestPrepare_HierarchyDisabledByHook(t *testing.T) {
	src := &mockSource{
		entities: map[int64]entity.Entity{1: publishedArticle(1)},
		taxonomies: map[string][]entity.Taxonomy{
			"article": {{Name: "category", Public: true}},
		},
		terms: map[string][]entity.Term{
			"category": {{ID: 30, Slug: "leaf", Name: "Leaf", ParentID: 20, TaxTermID: 130}},
		},
	}

	reg := hooks.NewRegistry()
	reg.Register(hooks.PointTermHierarchy, func(_ context.Context, _ any) any {
		return false
	})
	p := New(src, reg, nil, true, nil)

	doc, err := p.Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(doc.Terms["category"]); got != 1 {
		t.Errorf("term count = %d, want only the assigned leaf", got)
	}
}

func TestPrepare_NonPublicTaxonomySkipped(t *testing.T) {
	src := &mockSource{
		entities: map[int64]entity.Entity{1: publishedArticle(1)},
		taxonomies: map[string][]entity.Taxonomy{
			"article": {
				{Name: "internal_flags"},
				{Name: "category", PubliclyQueryable: true},
			},
		},
		terms: map[string][]entity.Term{
			"internal_flags": {{ID: 1, Slug: "f", Name: "F", TaxTermID: 101}},
			"category":       {{ID: 2, Slug: "c", Name: "C", TaxTermID: 102}},
		},
	}

	doc, err := newTestPreparer(src).Prepare(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := doc.Terms["internal_flags"]; ok {
		t.Error("hidden taxonomy must not be indexed")
	}
	if _, ok := doc.Terms["category"]; !ok {
		t.Error("publicly queryable taxonomy missing")
	}
}

func TestPrepare_SuspendsListenerAroundBuild(t *testing.T) {
	src := &mockSource{entities: map[int64]entity.Entity{1: publishedArticle(1)}}

	var active, sawActive bool
	guard := suspendFunc(func() func() {
		active = true
		return func() { active = false }
	})
	reg := hooks.NewRegistry()
	reg.Register(hooks.PointIgnoreInvalidDates, func(_ context.Context, v any) any {
		sawActive = active
		return v
	})
	p := New(src, reg, guard, true, nil)

	if _, err := p.Prepare(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawActive {
		t.Error("listener must be suspended while the document is built")
	}
	if active {
		t.Error("listener must be resumed before Prepare returns")
	}
}

type suspendFunc func() func()

func (f suspendFunc) Suspend() func() { return f() }

func TestBuildMetaValue_TypeSniffing(t *testing.T) {
	tests := []struct {
		raw          string
		wantLong     bool
		wantDouble   bool
		wantBool     bool
		wantDate     string
		wantDatetime string
		wantTime     string
	}{
		{raw: "42", wantLong: true, wantDouble: true},
		{raw: "3.14", wantDouble: true},
		{raw: "true", wantBool: true},
		{raw: "plain text"},
		{raw: "2024-03-09 16:45:30", wantDate: "2024-03-09", wantDatetime: "2024-03-09 16:45:30", wantTime: "16:45:30"},
		{raw: "2024-03-09", wantDate: "2024-03-09", wantDatetime: "2024-03-09 00:00:00", wantTime: "00:00:00"},
		{raw: "16:45:30", wantTime: "16:45:30"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			mv := buildMetaValue(tt.raw)
			if mv.Value != tt.raw || mv.Raw != tt.raw {
				t.Errorf("value/raw = %q/%q, want %q", mv.Value, mv.Raw, tt.raw)
			}
			if (mv.Long != nil) != tt.wantLong {
				t.Errorf("long set = %v, want %v", mv.Long != nil, tt.wantLong)
			}
			if (mv.Double != nil) != tt.wantDouble {
				t.Errorf("double set = %v, want %v", mv.Double != nil, tt.wantDouble)
			}
			if (mv.Boolean != nil) != tt.wantBool {
				t.Errorf("boolean set = %v, want %v", mv.Boolean != nil, tt.wantBool)
			}
			if mv.Date != tt.wantDate {
				t.Errorf("date = %q, want %q", mv.Date, tt.wantDate)
			}
			if mv.Datetime != tt.wantDatetime {
				t.Errorf("datetime = %q, want %q", mv.Datetime, tt.wantDatetime)
			}
			if mv.Time != tt.wantTime {
				t.Errorf("time = %q, want %q", mv.Time, tt.wantTime)
			}
		})
	}
}

func TestExpandSerialized(t *testing.T) {
	got := expandSerialized(`["red","blue",3]`)
	if len(got) != 3 || got[0] != "red" || got[1] != "blue" || got[2] != "3" {
		t.Errorf("expanded = %v, want [red blue 3]", got)
	}

	opaque := expandSerialized(`[{"nested":true}]`)
	if len(opaque) != 1 || opaque[0] != `[{"nested":true}]` {
		t.Errorf("nested structures must stay opaque, got %v", opaque)
	}

	plain := expandSerialized("just a value")
	if len(plain) != 1 || plain[0] != "just a value" {
		t.Errorf("plain value mangled: %v", plain)
	}
}

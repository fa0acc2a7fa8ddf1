package prepare

import (
	"context"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/domain/entity"
)

// mockSource implements Source for tests.
type mockSource struct {
	entities   map[int64]entity.Entity
	meta       map[int64]map[string][]string
	taxonomies map[string][]entity.Taxonomy
	terms      map[string][]entity.Term // key: taxonomy name
	termsByID  map[int64]entity.Term
	orders     map[int64]int // key: tax term ID

	orderCalls int
}

func (m *mockSource) Entity(_ context.Context, id int64) (entity.Entity, error) {
	e, ok := m.entities[id]
	if !ok {
		return entity.Entity{}, domain.ErrEntityNotFound
	}
	return e, nil
}

func (m *mockSource) Meta(_ context.Context, id int64) (map[string][]string, error) {
	return m.meta[id], nil
}

func (m *mockSource) Taxonomies(_ context.Context, entityType string) ([]entity.Taxonomy, error) {
	return m.taxonomies[entityType], nil
}

func (m *mockSource) Terms(_ context.Context, _ int64, taxonomy string) ([]entity.Term, error) {
	return m.terms[taxonomy], nil
}

func (m *mockSource) TermByID(_ context.Context, _ string, termID int64) (entity.Term, error) {
	t, ok := m.termsByID[termID]
	if !ok {
		return entity.Term{}, domain.ErrEntityNotFound
	}
	return t, nil
}

func (m *mockSource) TermOrder(_ context.Context, taxTermID, _ int64) (int, error) {
	m.orderCalls++
	return m.orders[taxTermID], nil
}

func publishedArticle(id int64) entity.Entity {
	return entity.Entity{
		ID:          id,
		Type:        "article",
		Status:      "publish",
		AuthorID:    3,
		AuthorLogin: "editor",
		AuthorName:  "The Editor",
		Title:       "Launch notes",
		Content:     "Body text",
		Excerpt:     "Summary",
		Slug:        "launch-notes",
		Date:        "2024-03-09 16:45:30",
		DateGMT:     "2024-03-09 15:45:30",
		Modified:    "2024-03-10 08:00:00",
		ModifiedGMT: "2024-03-10 07:00:00",
	}
}

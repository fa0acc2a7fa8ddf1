package prepare

import (
	"context"

	"github.com/driftline/contentdex/internal/domain/entity"
)

// Source reads entities, meta, and terms from the host application's store.
// Implementations return domain.ErrEntityNotFound for vanished entities.
type Source interface {
	Entity(ctx context.Context, id int64) (entity.Entity, error)
	Meta(ctx context.Context, id int64) (map[string][]string, error)
	Taxonomies(ctx context.Context, entityType string) ([]entity.Taxonomy, error)
	Terms(ctx context.Context, id int64, taxonomy string) ([]entity.Term, error)
	TermByID(ctx context.Context, taxonomy string, termID int64) (entity.Term, error)
	TermOrder(ctx context.Context, taxTermID, entityID int64) (int, error)
}

// Suspender pauses the sync change listener while a document is being built,
// so meta reads and normalization side effects cannot re-queue the same
// entity. Suspend returns the resume func the preparer defers.
type Suspender interface {
	Suspend() (resume func())
}

// NopSuspender is used when no sync manager is attached.
type NopSuspender struct{}

// Suspend implements Suspender with no effect.
func (NopSuspender) Suspend() func() { return func() {} }

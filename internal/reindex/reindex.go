// Package reindex drives a full re-index as a sequence of discrete,
// resumable steps. Each step indexes one page of entities and persists its
// offset; a process timeout mid-run loses at most one page. Pause and cancel
// are cooperative flags checked between entities, not just between pages.
package reindex

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/repository/indexmeta"
)

// Indexer is the consumer interface over the sync manager's indexing
// primitives.
type Indexer interface {
	IndexEntity(ctx context.Context, tenantID, entityID int64) error
	OnTenantCreated(ctx context.Context, tenantID int64) error
}

// Lister enumerates indexable entity IDs from the host application's store,
// one page at a time, in a stable order.
type Lister interface {
	EntityIDs(ctx context.Context, tenantID int64, offset, limit int) (ids []int64, total int64, err error)
}

// Checkpoints persists run state between steps.
type Checkpoints interface {
	Save(ctx context.Context, m *indexmeta.Meta) error
	Load(ctx context.Context) (*indexmeta.Meta, error)
	Clear(ctx context.Context) error
	Flags(ctx context.Context) (paused, canceled bool, err error)
}

// Config holds the step tunables.
type Config struct {
	PageSize int
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 350
	}
}

// Orchestrator steps a full re-index across one or more tenants.
type Orchestrator struct {
	indexer Indexer
	lister  Lister
	store   Checkpoints
	cfg     Config
	log     *zap.Logger
}

// New creates an orchestrator.
func New(indexer Indexer, lister Lister, store Checkpoints, cfg Config, log *zap.Logger) *Orchestrator {
	cfg.ApplyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{indexer: indexer, lister: lister, store: store, cfg: cfg, log: log}
}

// Start begins a run over the given tenants. A run already in progress is an
// error; cancel it first.
func (o *Orchestrator) Start(ctx context.Context, method string, tenants []int64) error {
	if len(tenants) == 0 {
		return fmt.Errorf("%w: no tenants to reindex", domain.ErrConfiguration)
	}
	if _, err := o.store.Load(ctx); err == nil {
		return fmt.Errorf("%w: reindex already in progress", domain.ErrConfiguration)
	} else if !errors.Is(err, domain.ErrNoReindex) {
		return err
	}

	m := &indexmeta.Meta{
		Method:           method,
		CurrentTenant:    tenants[0],
		RemainingTenants: tenants[1:],
	}
	o.log.Info("reindex started",
		zap.String("method", method), zap.Int64s("tenants", tenants))
	return o.store.Save(ctx, m)
}

// Step indexes the next page of entities. It returns done=true when the run
// finished and state was cleared. Pause and cancel surface as
// ErrReindexPaused / ErrReindexCanceled. Failures inside a page leave the
// last-good offset untouched so a retry resumes cleanly.
func (o *Orchestrator) Step(ctx context.Context) (done bool, err error) {
	m, err := o.store.Load(ctx)
	if err != nil {
		return false, err
	}

	if err := o.checkFlags(ctx); err != nil {
		return false, err
	}

	if m.Offset == 0 {
		// Fresh tenant: make sure its index and mapping exist.
		if err := o.indexer.OnTenantCreated(ctx, m.CurrentTenant); err != nil {
			return false, err
		}
	}

	ids, total, err := o.lister.EntityIDs(ctx, m.CurrentTenant, m.Offset, o.cfg.PageSize)
	if err != nil {
		return false, err
	}
	m.FoundItems = total

	for _, id := range ids {
		// A pause request takes effect promptly, not after the whole page.
		if err := o.checkFlags(ctx); err != nil {
			return false, err
		}
		if err := o.indexer.IndexEntity(ctx, m.CurrentTenant, id); err != nil {
			return false, fmt.Errorf("reindex entity %d: %w", id, err)
		}
		m.Offset++
	}

	if len(ids) < o.cfg.PageSize || int64(m.Offset) >= total {
		return o.advanceTenant(ctx, m)
	}
	return false, o.store.Save(ctx, m)
}

// advanceTenant moves to the next tenant on the stack or finishes the run.
func (o *Orchestrator) advanceTenant(ctx context.Context, m *indexmeta.Meta) (bool, error) {
	o.log.Info("tenant reindex complete",
		zap.Int64("tenant", m.CurrentTenant), zap.Int("entities", m.Offset))

	if len(m.RemainingTenants) == 0 {
		return true, o.store.Clear(ctx)
	}
	m.CurrentTenant = m.RemainingTenants[0]
	m.RemainingTenants = m.RemainingTenants[1:]
	m.Offset = 0
	m.FoundItems = 0
	return false, o.store.Save(ctx, m)
}

func (o *Orchestrator) checkFlags(ctx context.Context) error {
	paused, canceled, err := o.store.Flags(ctx)
	if err != nil {
		return err
	}
	if canceled {
		if err := o.store.Clear(ctx); err != nil {
			return err
		}
		return domain.ErrReindexCanceled
	}
	if paused {
		return domain.ErrReindexPaused
	}
	return nil
}

// Status reports the current run state.
func (o *Orchestrator) Status(ctx context.Context) (*indexmeta.Meta, error) {
	return o.store.Load(ctx)
}

// Package syncer owns the write path: it watches entity lifecycle events,
// decides per event whether the index needs an upsert or a delete, batches
// upserts in a deduplicating queue, and flushes them through the engine's
// bulk endpoint.
package syncer

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/domain/document"
	"github.com/driftline/contentdex/internal/hooks"
	"github.com/driftline/contentdex/internal/metrics"
	"github.com/driftline/contentdex/internal/tenant"
	"github.com/driftline/contentdex/internal/transport/elastic"
)

// RevisionType is the entity type of host-application revisions. Revisions
// are never indexed and their deletion events are ignored.
const RevisionType = "revision"

// AutoDraftStatus is the placeholder status of an entity the host created
// but the author never saved.
const AutoDraftStatus = "auto-draft"

// Engine is the consumer interface over the search transport.
type Engine interface {
	Bulk(ctx context.Context, index string, actions []elastic.BulkAction) (*elastic.BulkResult, error)
	DeleteDocument(ctx context.Context, index, id string) error
	CreateIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DeleteIndex(ctx context.Context, name string) error
}

// Preparer builds the wire document for one entity.
type Preparer interface {
	Prepare(ctx context.Context, id int64) (*document.Document, error)
}

// Config holds the sync policy and batching tunables.
type Config struct {
	IndexableTypes    []string
	IndexableStatuses []string
	BulkSize          int
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if len(c.IndexableTypes) == 0 {
		c.IndexableTypes = []string{"post", "page"}
	}
	if len(c.IndexableStatuses) == 0 {
		c.IndexableStatuses = []string{"publish"}
	}
	if c.BulkSize <= 0 {
		c.BulkSize = 350
	}
}

// Event is one entity lifecycle notification from the host application.
type Event struct {
	TenantID int64
	EntityID int64
	Type     string
	Status   string
	// Privileged marks a caller allowed to trigger sync; Automation marks
	// import-style contexts exempt from the privilege check.
	Privileged bool
	Automation bool
	// Autosave marks an in-progress autosave, which never syncs.
	Autosave bool
}

// Action is the state machine's verdict for one event.
type Action int

const (
	// ActionNone means the event is ignored.
	ActionNone Action = iota
	// ActionEnqueue means the entity is queued for (re)indexing.
	ActionEnqueue
	// ActionDelete means the entity's document is removed immediately.
	ActionDelete
)

type queueKey struct {
	TenantID int64
	EntityID int64
}

// Manager tracks what needs (re)indexing or deletion and batches the work.
// Safe for concurrent use.
type Manager struct {
	engine Engine
	prep   Preparer
	hooks  *hooks.Registry
	router tenant.Router
	cfg    Config
	log    *zap.Logger

	mu        sync.Mutex
	order     []queueKey
	queued    map[queueKey]struct{}
	suspended int
}

// New creates a sync manager.
func New(engine Engine, prep Preparer, reg *hooks.Registry, router tenant.Router, cfg Config, log *zap.Logger) *Manager {
	cfg.ApplyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		engine: engine,
		prep:   prep,
		hooks:  reg,
		router: router,
		cfg:    cfg,
		log:    log,
		queued: make(map[queueKey]struct{}),
	}
}

// Suspend pauses enqueueing until the returned resume func runs. The document
// preparer wraps its build in this so meta normalization side effects cannot
// re-queue the entity it is currently building.
func (m *Manager) Suspend() func() {
	m.mu.Lock()
	m.suspended++
	m.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.suspended--
			m.mu.Unlock()
		})
	}
}

// IndexableTypes returns the effective indexable type set.
func (m *Manager) IndexableTypes(ctx context.Context) []string {
	return m.hooks.ApplyStrings(ctx, hooks.PointIndexableTypes, m.cfg.IndexableTypes)
}

// IndexableStatuses returns the effective indexable status set.
func (m *Manager) IndexableStatuses(ctx context.Context) []string {
	return m.hooks.ApplyStrings(ctx, hooks.PointIndexableStatuses, m.cfg.IndexableStatuses)
}

// Assess runs the save-event state machine without side effects.
func (m *Manager) Assess(ctx context.Context, ev Event) Action {
	if ev.Autosave || ev.Type == RevisionType {
		return ActionNone
	}
	if ev.Status == AutoDraftStatus {
		// Never visible, never indexed: nothing to remove either.
		return ActionNone
	}
	if !containsString(m.IndexableStatuses(ctx), ev.Status) {
		// Unpublished (drafted, trashed, ...): the document must go away.
		return ActionDelete
	}
	if !containsString(m.IndexableTypes(ctx), ev.Type) {
		return ActionNone
	}
	if !ev.Privileged && !ev.Automation {
		return ActionNone
	}
	return ActionEnqueue
}

// OnEntitySaved handles a save event: enqueue, delete, or ignore per the
// state machine.
func (m *Manager) OnEntitySaved(ctx context.Context, ev Event) error {
	switch m.Assess(ctx, ev) {
	case ActionEnqueue:
		m.enqueue(ctx, ev)
		return nil
	case ActionDelete:
		return m.deleteDocument(ctx, ev.TenantID, ev.EntityID)
	}
	return nil
}

// OnEntityMetaChanged handles a meta add/update/delete event. Meta changes on
// entities outside the indexable status set are no-ops: the document is not
// in the index, so there is nothing to refresh.
func (m *Manager) OnEntityMetaChanged(ctx context.Context, ev Event, key string) error {
	if ev.Autosave || ev.Type == RevisionType {
		return nil
	}
	if !containsString(m.IndexableStatuses(ctx), ev.Status) {
		m.log.Debug("meta change on non-indexable entity ignored",
			zap.Int64("entity", ev.EntityID), zap.String("key", key))
		return nil
	}
	if !containsString(m.IndexableTypes(ctx), ev.Type) {
		return nil
	}
	if !ev.Privileged && !ev.Automation {
		return nil
	}
	m.enqueue(ctx, ev)
	return nil
}

// OnEntityDeleted handles a permanent-delete event. Revisions are skipped.
func (m *Manager) OnEntityDeleted(ctx context.Context, ev Event) error {
	if ev.Type == RevisionType {
		return nil
	}
	if !ev.Privileged && !ev.Automation {
		return nil
	}
	m.dequeue(ev.TenantID, ev.EntityID)
	return m.deleteDocument(ctx, ev.TenantID, ev.EntityID)
}

// enqueue inserts the entity into the dedup queue unless suspended or vetoed
// by the kill-switch hook.
func (m *Manager) enqueue(ctx context.Context, ev Event) {
	decision := hooks.SyncDecision{EntityID: ev.EntityID, TenantID: ev.TenantID}
	if out, ok := m.hooks.Apply(ctx, hooks.PointSyncKillSwitch, decision).(hooks.SyncDecision); ok && out.Veto {
		m.log.Debug("enqueue vetoed", zap.Int64("entity", ev.EntityID))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.suspended > 0 {
		return
	}
	key := queueKey{TenantID: ev.TenantID, EntityID: ev.EntityID}
	if _, dup := m.queued[key]; dup {
		return
	}
	m.queued[key] = struct{}{}
	m.order = append(m.order, key)
	metrics.SyncQueueDepth.Set(float64(len(m.order)))
}

func (m *Manager) dequeue(tenantID, entityID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := queueKey{TenantID: tenantID, EntityID: entityID}
	if _, ok := m.queued[key]; !ok {
		return
	}
	delete(m.queued, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	metrics.SyncQueueDepth.Set(float64(len(m.order)))
}

// QueueLen reports the number of queued entries.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

func (m *Manager) deleteDocument(ctx context.Context, tenantID, entityID int64) error {
	index := m.router.IndexFor(tenantID)
	err := m.engine.DeleteDocument(ctx, index, strconv.FormatInt(entityID, 10))
	if errors.Is(err, domain.ErrEntityNotFound) {
		// Already gone; the desired state holds.
		return nil
	}
	if err != nil {
		return err
	}
	metrics.DocumentsDeletedTotal.Inc()
	return nil
}

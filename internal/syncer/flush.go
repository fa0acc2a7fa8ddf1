package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/hooks"
	"github.com/driftline/contentdex/internal/metrics"
	"github.com/driftline/contentdex/internal/transport/elastic"
)

// ItemFailure is one document the engine rejected during a flush.
type ItemFailure struct {
	TenantID int64
	EntityID int64
	Reason   string
}

// FlushReport summarizes one queue flush. Per-item failures are reported
// here, never retried automatically; the caller decides whether to
// re-trigger.
type FlushReport struct {
	Indexed  int
	Skipped  int
	Failures []ItemFailure
}

// Flush drains the queue through the bulk endpoint, one submission per
// tenant, preserving enqueue order within each tenant. Entities that
// vanished since enqueue are skipped. A transport failure leaves the
// affected tenant's entries queued so an explicit re-trigger retries them.
func (m *Manager) Flush(ctx context.Context) (*FlushReport, error) {
	batch := m.drain()
	if len(batch) == 0 {
		return &FlushReport{}, nil
	}

	report := &FlushReport{}
	var errs []error

	perTenant := make(map[int64][]int64)
	var tenants []int64
	for _, key := range batch {
		if _, seen := perTenant[key.TenantID]; !seen {
			tenants = append(tenants, key.TenantID)
		}
		perTenant[key.TenantID] = append(perTenant[key.TenantID], key.EntityID)
	}

	for _, tenantID := range tenants {
		if err := m.flushTenant(ctx, tenantID, perTenant[tenantID], report); err != nil {
			errs = append(errs, err)
		}
	}

	status := "ok"
	switch {
	case len(errs) > 0:
		status = "error"
	case len(report.Failures) > 0:
		status = "partial"
	}
	metrics.BulkFlushesTotal.WithLabelValues(status).Inc()

	return report, errors.Join(errs...)
}

func (m *Manager) flushTenant(ctx context.Context, tenantID int64, ids []int64, report *FlushReport) error {
	for start := 0; start < len(ids); start += m.cfg.BulkSize {
		end := start + m.cfg.BulkSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := m.flushPage(ctx, tenantID, ids[start:end], report); err != nil {
			// Communication failure: re-queue this page and everything after
			// it so a re-trigger picks them up.
			m.requeue(tenantID, ids[start:])
			return err
		}
	}
	return nil
}

func (m *Manager) flushPage(ctx context.Context, tenantID int64, ids []int64, report *FlushReport) error {
	actions := make([]elastic.BulkAction, 0, len(ids))
	for _, id := range ids {
		doc, err := m.prep.Prepare(ctx, id)
		if errors.Is(err, domain.ErrEntityNotFound) {
			// Deleted between enqueue and flush; nothing to index.
			report.Skipped++
			metrics.DocumentsIndexedTotal.WithLabelValues("skipped").Inc()
			continue
		}
		if err != nil {
			report.Failures = append(report.Failures, ItemFailure{
				TenantID: tenantID,
				EntityID: id,
				Reason:   err.Error(),
			})
			metrics.DocumentsIndexedTotal.WithLabelValues("failed").Inc()
			continue
		}
		actions = append(actions, elastic.BulkAction{
			Op:  "index",
			ID:  strconv.FormatInt(doc.ID, 10),
			Doc: doc,
		})
	}
	if len(actions) == 0 {
		return nil
	}

	res, err := m.engine.Bulk(ctx, m.router.IndexFor(tenantID), actions)
	if err != nil {
		return fmt.Errorf("flush tenant %d: %w", tenantID, err)
	}

	for _, item := range res.Items {
		for op, detail := range item {
			if detail.OK(op) {
				report.Indexed++
				metrics.DocumentsIndexedTotal.WithLabelValues("ok").Inc()
				continue
			}
			entityID, _ := strconv.ParseInt(detail.ID, 10, 64)
			report.Failures = append(report.Failures, ItemFailure{
				TenantID: tenantID,
				EntityID: entityID,
				Reason:   detail.Reason(),
			})
			metrics.DocumentsIndexedTotal.WithLabelValues("failed").Inc()
			m.log.Warn("bulk item rejected",
				zap.Int64("tenant", tenantID),
				zap.String("entity", detail.ID),
				zap.String("reason", detail.Reason()))
		}
	}
	return nil
}

// drain removes and returns all queued entries in enqueue order.
func (m *Manager) drain() []queueKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := m.order
	m.order = nil
	m.queued = make(map[queueKey]struct{})
	metrics.SyncQueueDepth.Set(0)
	return batch
}

func (m *Manager) requeue(tenantID int64, ids []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		key := queueKey{TenantID: tenantID, EntityID: id}
		if _, dup := m.queued[key]; dup {
			continue
		}
		m.queued[key] = struct{}{}
		m.order = append(m.order, key)
	}
	metrics.SyncQueueDepth.Set(float64(len(m.order)))
}

// IndexEntity prepares and indexes one entity immediately, bypassing the
// queue. This is the primitive the reindex orchestrator iterates. A vanished
// entity is not an error.
func (m *Manager) IndexEntity(ctx context.Context, tenantID, entityID int64) error {
	doc, err := m.prep.Prepare(ctx, entityID)
	if errors.Is(err, domain.ErrEntityNotFound) {
		metrics.DocumentsIndexedTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		return err
	}

	res, err := m.engine.Bulk(ctx, m.router.IndexFor(tenantID), []elastic.BulkAction{
		{Op: "index", ID: strconv.FormatInt(doc.ID, 10), Doc: doc},
	})
	if err != nil {
		return err
	}
	for _, item := range res.Items {
		for op, detail := range item {
			if !detail.OK(op) {
				metrics.DocumentsIndexedTotal.WithLabelValues("failed").Inc()
				return fmt.Errorf("index entity %d: %s", entityID, detail.Reason())
			}
		}
	}
	metrics.DocumentsIndexedTotal.WithLabelValues("ok").Inc()
	return nil
}

// OnTenantCreated builds the new tenant's index so the combined alias covers
// it from the start. The event may replay, so an index that already exists
// is left alone.
func (m *Manager) OnTenantCreated(ctx context.Context, tenantID int64) error {
	name := m.router.IndexFor(tenantID)
	exists, err := m.engine.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		m.log.Debug("tenant index already present", zap.String("index", name))
		return nil
	}
	return m.engine.CreateIndex(ctx, name)
}

// OnTenantDeleted drops the tenant's index unless the retain hook keeps it.
// Destructive and irreversible: only the explicit lifecycle event reaches
// here, never an inference.
func (m *Manager) OnTenantDeleted(ctx context.Context, tenantID int64) error {
	decision := hooks.TenantDecision{TenantID: tenantID}
	if out, ok := m.hooks.Apply(ctx, hooks.PointRetainTenantIndex, decision).(hooks.TenantDecision); ok && out.Retain {
		m.log.Info("tenant index retained by policy", zap.Int64("tenant", tenantID))
		return nil
	}
	return m.engine.DeleteIndex(ctx, m.router.IndexFor(tenantID))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Package hooks implements named, ordered filter chains. Each point is a list
// of pure transforms applied in registration order; a later transform sees the
// previous transform's output. The registry is built at composition time and
// read-mostly afterwards.
package hooks

import (
	"context"
	"sync"
)

// Fixed hook point names. Each point documents its payload type.
const (
	// PointMetaAllowList filters []string: protected (underscore-prefixed)
	// meta keys allowed into the document.
	PointMetaAllowList = "meta_allow_list"
	// PointMetaDenyList filters []string: public meta keys kept out of the
	// document.
	PointMetaDenyList = "meta_deny_list"
	// PointMetaForceInclude filters MetaKeyDecision: force a key in
	// regardless of the allow and deny lists.
	PointMetaForceInclude = "meta_force_include"
	// PointIndexableTypes filters []string.
	PointIndexableTypes = "indexable_types"
	// PointIndexableStatuses filters []string.
	PointIndexableStatuses = "indexable_statuses"
	// PointIndexableTaxonomies filters []string: taxonomy names widened into
	// the document beyond the public set.
	PointIndexableTaxonomies = "indexable_taxonomies"
	// PointSearchFields filters []string: the resolved free-text field list.
	PointSearchFields = "search_fields"
	// PointWeighting filters WeightingDecision: per-field boosts applied to
	// the free-text clause last in the format chain.
	PointWeighting = "weighting"
	// PointStickyEnabled filters bool.
	PointStickyEnabled = "sticky_enabled"
	// PointIgnoreInvalidDates filters bool.
	PointIgnoreInvalidDates = "ignore_invalid_dates"
	// PointTermHierarchy filters bool: include ancestor terms.
	PointTermHierarchy = "term_hierarchy"
	// PointSyncKillSwitch filters SyncDecision just before queue insertion.
	PointSyncKillSwitch = "sync_kill_switch"
	// PointRetainTenantIndex filters TenantDecision on tenant removal.
	PointRetainTenantIndex = "retain_tenant_index"
	// PointQueryIntegration filters bool: whether the read path may
	// intercept at all.
	PointQueryIntegration = "query_integration"
	// PointQueryScope filters query.Scope.
	PointQueryScope = "query_scope"
	// PointFormatRequest filters map[string]any: the compiled request,
	// applied before the type-specific chain.
	PointFormatRequest = "format_request"
	// PointResultRecord filters intercept.Record: each reshaped full-object
	// hit, exposed under the hit's own tenant context.
	PointResultRecord = "result_record"
)

// PointFormatRequestFor returns the content-type-specific post-format point,
// applied after PointFormatRequest.
func PointFormatRequestFor(entityType string) string {
	return "format_request:" + entityType
}

// MetaKeyDecision is the PointMetaForceInclude payload.
type MetaKeyDecision struct {
	EntityID int64
	Key      string
	Include  bool
}

// SyncDecision is the PointSyncKillSwitch payload. Veto true drops the
// enqueue silently.
type SyncDecision struct {
	EntityID int64
	TenantID int64
	Veto     bool
}

// TenantDecision is the PointRetainTenantIndex payload. Retain true keeps the
// tenant's index alive after the tenant is removed.
type TenantDecision struct {
	TenantID int64
	Retain   bool
}

// WeightingDecision is the PointWeighting payload: per-field boosts for the
// free-text clause, resolved for one entity type.
type WeightingDecision struct {
	EntityType string
	Boosts     map[string]float64
}

// Filter transforms a point's value. Implementations must return a value of
// the same shape they received.
type Filter func(ctx context.Context, v any) any

// Registry holds ordered filter chains per named point.
type Registry struct {
	mu     sync.RWMutex
	points map[string][]Filter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{points: make(map[string][]Filter)}
}

// Register appends a filter to the point's chain.
func (r *Registry) Register(point string, f Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points[point] = append(r.points[point], f)
}

// Apply runs the point's chain over v in registration order. A nil registry
// or an empty chain returns v unchanged.
func (r *Registry) Apply(ctx context.Context, point string, v any) any {
	if r == nil {
		return v
	}
	r.mu.RLock()
	chain := r.points[point]
	r.mu.RUnlock()
	for _, f := range chain {
		v = f(ctx, v)
	}
	return v
}

// ApplyBool runs a bool-valued point, keeping the fallback when a filter
// returns an unexpected type.
func (r *Registry) ApplyBool(ctx context.Context, point string, v bool) bool {
	if out, ok := r.Apply(ctx, point, v).(bool); ok {
		return out
	}
	return v
}

// ApplyStrings runs a []string-valued point.
func (r *Registry) ApplyStrings(ctx context.Context, point string, v []string) []string {
	if out, ok := r.Apply(ctx, point, v).([]string); ok {
		return out
	}
	return v
}

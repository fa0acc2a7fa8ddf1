// Package tenant routes queries and writes to per-tenant indices and scopes
// the "active tenant" explicitly instead of through mutable ambient state.
package tenant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/domain/query"
)

// Router resolves index names for tenants. One index per tenant plus a
// combined alias covering the whole network.
type Router struct {
	prefix string
}

// NewRouter creates a router. prefix names the deployment, e.g. "contentdex".
func NewRouter(prefix string) (Router, error) {
	if prefix == "" {
		return Router{}, fmt.Errorf("%w: index prefix is required", domain.ErrConfiguration)
	}
	return Router{prefix: prefix}, nil
}

// IndexFor returns the index name for one tenant.
func (r Router) IndexFor(tenantID int64) string {
	return fmt.Sprintf("%s-content-%d", r.prefix, tenantID)
}

// NetworkAlias returns the combined alias spanning all tenant indices.
func (r Router) NetworkAlias() string {
	return r.prefix + "-content-all"
}

// Resolve maps a query scope to the search index target. ScopeList produces
// a comma-joined index set, which the engine treats as a multi-index search.
func (r Router) Resolve(scope query.Scope, current int64) (string, error) {
	switch scope.Kind {
	case query.ScopeCurrent:
		return r.IndexFor(current), nil
	case query.ScopeAll:
		return r.NetworkAlias(), nil
	case query.ScopeList:
		if len(scope.Tenants) == 0 {
			return "", fmt.Errorf("%w: empty tenant list in scope", domain.ErrConfiguration)
		}
		names := make([]string, 0, len(scope.Tenants))
		for _, id := range scope.Tenants {
			names = append(names, r.IndexFor(id))
		}
		return strings.Join(names, ","), nil
	}
	return "", fmt.Errorf("%w: unknown scope kind %d", domain.ErrConfiguration, scope.Kind)
}

// TenantFromIndex recovers the tenant ID from a per-tenant index name, as
// reported in multi-index search hits. Returns false for the combined alias
// or foreign index names.
func (r Router) TenantFromIndex(index string) (int64, bool) {
	prefix := r.prefix + "-content-"
	if !strings.HasPrefix(index, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(index[len(prefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Switcher swaps the host application's active tenant while cross-tenant
// results are exposed to per-record hooks. Switch returns a restore func the
// caller must run (deferred) so the prior tenant comes back on every exit
// path.
type Switcher interface {
	Switch(tenantID int64) (restore func())
}

// NopSwitcher is the single-tenant Switcher.
type NopSwitcher struct{}

// Switch implements Switcher with no effect.
func (NopSwitcher) Switch(int64) func() { return func() {} }

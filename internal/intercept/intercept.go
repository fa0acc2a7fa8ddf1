// Package intercept owns the read path: it decides whether a content-listing
// request should be served from the search engine, executes it, and reshapes
// hits back into result records. Any transport failure produces a fallback
// signal so the caller runs the primary data-store path instead; a failed
// engine call must never masquerade as "legitimately zero results".
package intercept

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain/document"
	"github.com/driftline/contentdex/internal/domain/query"
	"github.com/driftline/contentdex/internal/formatter"
	"github.com/driftline/contentdex/internal/hooks"
	"github.com/driftline/contentdex/internal/metrics"
	"github.com/driftline/contentdex/internal/tenant"
	"github.com/driftline/contentdex/internal/transport/elastic"
)

// Searcher is the consumer interface over the search transport.
type Searcher interface {
	Search(ctx context.Context, indices string, body map[string]any) (*elastic.Response, error)
}

// QueryFormatter compiles query args into engine requests.
type QueryFormatter interface {
	Format(ctx context.Context, args *query.Args, qctx formatter.Context) formatter.Request
	ResolveTypes(ctx context.Context, args *query.Args, qctx formatter.Context) []string
}

// Config holds the read-path policy.
type Config struct {
	// Enabled is the baseline toggle; the query-integration hook can still
	// flip it per request.
	Enabled        bool
	IndexableTypes []string
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if len(c.IndexableTypes) == 0 {
		c.IndexableTypes = []string{"post", "page"}
	}
}

// Context carries per-request facts about the caller.
type Context struct {
	TenantID int64
	// Automation marks import-style internal contexts that must bypass the
	// engine entirely.
	Automation   bool
	Privileged   bool
	DefaultView  bool
	BypassSticky bool
	StickyIDs    []int64
}

// Outcome says how the request was handled.
type Outcome int

const (
	// OutcomeServed means the engine answered and results are populated.
	OutcomeServed Outcome = iota
	// OutcomeSkipped means the request was not eligible; run the primary
	// data-store path.
	OutcomeSkipped
	// OutcomeFallback means the engine failed; run the primary data-store
	// path and surface the soft failure.
	OutcomeFallback
)

// Record is one reshaped full-object hit. Provenance stays visible so
// downstream consumers can tell engine-served records apart when debugging.
type Record struct {
	Doc      document.Document
	TenantID int64
	Score    float64
	// FromIndex marks the record as search-engine-sourced.
	FromIndex bool
}

// IDParent is one hit in the ID+parent output shape.
type IDParent struct {
	ID     int64
	Parent int64
}

// Result is the read-path outcome. On OutcomeSkipped and OutcomeFallback the
// result carries no hits and the caller must run the original query.
type Result struct {
	Outcome   Outcome
	Records   []Record
	IDs       []int64
	IDParents []IDParent
	Total     int64
	PageCount int
	Aggs      json.RawMessage
	// Err holds the transport failure behind OutcomeFallback. It is a soft
	// signal for logging, never a reason to break the page render.
	Err error
}

// Interceptor is the read path.
type Interceptor struct {
	fmt      QueryFormatter
	searcher Searcher
	hooks    *hooks.Registry
	router   tenant.Router
	switcher tenant.Switcher
	cfg      Config
	log      *zap.Logger
}

// New creates an interceptor.
func New(f QueryFormatter, s Searcher, reg *hooks.Registry, router tenant.Router, sw tenant.Switcher, cfg Config, log *zap.Logger) *Interceptor {
	cfg.ApplyDefaults()
	if sw == nil {
		sw = tenant.NopSwitcher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Interceptor{
		fmt:      f,
		searcher: s,
		hooks:    reg,
		router:   router,
		switcher: sw,
		cfg:      cfg,
		log:      log,
	}
}

// MaybeIntercept serves the listing request from the engine when eligible.
func (i *Interceptor) MaybeIntercept(ctx context.Context, args *query.Args, ictx Context) *Result {
	if args == nil {
		args = &query.Args{}
	}

	fctx := formatter.Context{
		Privileged:   ictx.Privileged,
		DefaultView:  ictx.DefaultView,
		BypassSticky: ictx.BypassSticky,
		StickyIDs:    ictx.StickyIDs,
	}

	if !i.eligible(ctx, args, ictx, fctx) {
		metrics.QueriesTotal.WithLabelValues("skipped").Inc()
		return &Result{Outcome: OutcomeSkipped}
	}

	scope := i.resolveScope(ctx, args)
	indices, err := i.router.Resolve(scope, ictx.TenantID)
	if err != nil {
		i.log.Error("scope resolution failed", zap.Error(err))
		metrics.QueriesTotal.WithLabelValues("fallback").Inc()
		return &Result{Outcome: OutcomeFallback, Err: err}
	}

	req := i.fmt.Format(ctx, args, fctx)

	start := time.Now()
	res, err := i.searcher.Search(ctx, indices, req)
	metrics.QueryDuration.WithLabelValues(scopeLabel(scope)).Observe(time.Since(start).Seconds())
	if err != nil {
		i.log.Warn("engine search failed, falling back", zap.Error(err))
		metrics.QueriesTotal.WithLabelValues("fallback").Inc()
		return &Result{Outcome: OutcomeFallback, Err: err}
	}

	metrics.QueriesTotal.WithLabelValues("served").Inc()
	return i.reshape(ctx, args, ictx, req, res)
}

// eligible applies the gate: integration enabled, not an automation context,
// and the resolved type set intersects the indexable types.
func (i *Interceptor) eligible(ctx context.Context, args *query.Args, ictx Context, fctx formatter.Context) bool {
	if !i.hooks.ApplyBool(ctx, hooks.PointQueryIntegration, i.cfg.Enabled) {
		return false
	}
	if ictx.Automation {
		return false
	}

	types := i.fmt.ResolveTypes(ctx, args, fctx)
	if types == nil {
		// Unrestricted search spans all indexed types.
		return true
	}
	for _, t := range types {
		for _, idx := range i.cfg.IndexableTypes {
			if t == idx {
				return true
			}
		}
	}
	return false
}

func (i *Interceptor) resolveScope(ctx context.Context, args *query.Args) query.Scope {
	scope := args.Scope
	if out, ok := i.hooks.Apply(ctx, hooks.PointQueryScope, scope).(query.Scope); ok {
		scope = out
	}
	return scope
}

func scopeLabel(scope query.Scope) string {
	switch scope.Kind {
	case query.ScopeAll:
		return "all"
	case query.ScopeList:
		return "list"
	}
	return "current"
}

// reshape converts hits into the caller's requested output shape and fills
// the pagination bookkeeping.
func (i *Interceptor) reshape(ctx context.Context, args *query.Args, ictx Context, req formatter.Request, res *elastic.Response) *Result {
	out := &Result{
		Outcome: OutcomeServed,
		Total:   res.Hits.Total.Value,
		Aggs:    res.Aggregations,
	}
	if size, ok := req["size"].(int); ok && size > 0 {
		out.PageCount = int((out.Total + int64(size) - 1) / int64(size))
	}

	switch args.Fields {
	case query.FieldsIDs:
		out.IDs = make([]int64, 0, len(res.Hits.Hits))
		for _, hit := range res.Hits.Hits {
			if id, err := strconv.ParseInt(hit.ID, 10, 64); err == nil {
				out.IDs = append(out.IDs, id)
			}
		}
	case query.FieldsIDParent:
		out.IDParents = make([]IDParent, 0, len(res.Hits.Hits))
		for _, hit := range res.Hits.Hits {
			var doc document.Document
			if err := json.Unmarshal(hit.Source, &doc); err != nil {
				i.log.Warn("undecodable hit skipped", zap.String("id", hit.ID), zap.Error(err))
				continue
			}
			out.IDParents = append(out.IDParents, IDParent{ID: doc.ID, Parent: doc.Parent})
		}
	default:
		out.Records = make([]Record, 0, len(res.Hits.Hits))
		for _, hit := range res.Hits.Hits {
			rec, ok := i.buildRecord(hit)
			if !ok {
				continue
			}
			out.Records = append(out.Records, i.exposeRecord(ctx, rec, ictx.TenantID))
		}
	}
	return out
}

func (i *Interceptor) buildRecord(hit elastic.Hit) (Record, bool) {
	var doc document.Document
	if err := json.Unmarshal(hit.Source, &doc); err != nil {
		i.log.Warn("undecodable hit skipped", zap.String("id", hit.ID), zap.Error(err))
		return Record{}, false
	}
	applyHighlights(&doc, hit.Highlight)

	rec := Record{Doc: doc, Score: hit.Score, FromIndex: true}
	if tid, ok := i.router.TenantFromIndex(hit.Index); ok {
		rec.TenantID = tid
	}
	return rec, true
}

// exposeRecord runs the per-record hook under the hit's own tenant context.
// The switch is restored via defer so the prior tenant comes back even if a
// hook panics.
func (i *Interceptor) exposeRecord(ctx context.Context, rec Record, current int64) Record {
	if rec.TenantID != 0 && rec.TenantID != current {
		restore := i.switcher.Switch(rec.TenantID)
		defer restore()
	}
	if out, ok := i.hooks.Apply(ctx, hooks.PointResultRecord, rec).(Record); ok {
		return out
	}
	return rec
}

// Package formatter compiles a structured content query into the search
// engine's request body. Format is a pure function of its inputs plus the
// registered policy hooks; it never mutates the caller's args.
package formatter

import (
	"context"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain/query"
	"github.com/driftline/contentdex/internal/hooks"
)

// Request is the engine wire query body.
type Request = map[string]any

// Config holds the formatter's tunables.
type Config struct {
	DefaultPerPage  int
	MaxResultWindow int
	PrimaryType     string
	// DefaultStatuses are the publicly-queryable statuses; ProtectedStatuses
	// widen the default in privileged contexts.
	DefaultStatuses   []string
	ProtectedStatuses []string
	PhraseBoost       float64
	AndBoost          float64
	Fuzziness         int
	StickyWeight      float64
	SearchFields      []string
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.DefaultPerPage <= 0 {
		c.DefaultPerPage = 10
	}
	if c.MaxResultWindow <= 0 {
		c.MaxResultWindow = 10000
	}
	if c.PrimaryType == "" {
		c.PrimaryType = "post"
	}
	if len(c.DefaultStatuses) == 0 {
		c.DefaultStatuses = []string{"publish"}
	}
	if len(c.ProtectedStatuses) == 0 {
		c.ProtectedStatuses = []string{"private"}
	}
	if c.PhraseBoost <= 0 {
		c.PhraseBoost = 4
	}
	if c.AndBoost <= 0 {
		c.AndBoost = 2
	}
	if c.Fuzziness <= 0 {
		c.Fuzziness = 1
	}
	if c.StickyWeight <= 0 {
		c.StickyWeight = 10000
	}
	if len(c.SearchFields) == 0 {
		c.SearchFields = []string{"post_title", "post_excerpt", "post_content"}
	}
}

// Context carries per-request facts the args themselves do not.
type Context struct {
	// Privileged marks an authenticated administrative caller; protected
	// statuses join the default status set.
	Privileged bool
	// DefaultView marks the default listing view where sticky promotion
	// applies.
	DefaultView bool
	// BypassSticky disables sticky promotion for this request.
	BypassSticky bool
	StickyIDs    []int64
}

// Formatter compiles query args into engine requests.
type Formatter struct {
	cfg   Config
	hooks *hooks.Registry
	log   *zap.Logger
}

// New creates a formatter.
func New(cfg Config, reg *hooks.Registry, log *zap.Logger) *Formatter {
	cfg.ApplyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Formatter{cfg: cfg, hooks: reg, log: log}
}

// Format compiles args into the engine request body.
func (f *Formatter) Format(ctx context.Context, args *query.Args, qctx Context) Request {
	if args == nil {
		args = &query.Args{}
	}

	req := Request{}

	size := f.resolveSize(args)
	req["size"] = size
	req["from"] = f.resolveFrom(args, size)

	random := hasRandomOrder(args)
	if !random {
		req["sort"] = f.buildSort(args)
	}

	filters := f.buildFilters(ctx, args, qctx)
	var postFilter map[string]any
	if len(filters) > 0 {
		// Omitted entirely when empty: an empty filter object is not the
		// same wire contract as no filter.
		postFilter = map[string]any{"bool": map[string]any{"must": filters}}
		req["post_filter"] = postFilter
	}

	var q map[string]any
	if args.Search != "" {
		q = f.buildTextQuery(ctx, args)
	}
	if f.stickyApplies(ctx, args, qctx) {
		q = f.wrapSticky(q, qctx.StickyIDs)
	}
	if random {
		q = wrapRandom(q)
	}
	if q != nil {
		req["query"] = q
	}

	switch args.Fields {
	case query.FieldsIDs:
		req["_source"] = map[string]any{"includes": []string{"ID"}}
	case query.FieldsIDParent:
		req["_source"] = map[string]any{"includes": []string{"ID", "post_parent"}}
	case query.FieldsAll:
	}

	if len(args.Highlight) > 0 {
		req["highlight"] = buildHighlight(args.Highlight)
	}

	if len(args.Aggs) > 0 {
		req["aggs"] = buildAggs(args.Aggs, postFilter)
	}

	// Post-format chain: global hooks first, then type-specific ones, so a
	// later hook can adjust an earlier hook's output. Weighting runs last.
	req = f.applyFormatHooks(ctx, req, args, qctx)
	f.applyWeighting(ctx, req, f.weightingType(ctx, args, qctx))

	return req
}

// ResolveTypes returns the effective content-type set: the explicit one, the
// primary type when nothing else is given, or unrestricted (nil) when a
// search term is present.
func (f *Formatter) ResolveTypes(_ context.Context, args *query.Args, _ Context) []string {
	if len(args.Types) > 0 {
		return args.Types
	}
	if args.Search != "" {
		return nil
	}
	return []string{f.cfg.PrimaryType}
}

// ResolveStatuses returns the effective status set: the explicit one, or the
// publicly-queryable defaults, widened with protected statuses for
// privileged callers.
func (f *Formatter) ResolveStatuses(_ context.Context, args *query.Args, qctx Context) []string {
	if len(args.Statuses) > 0 {
		return args.Statuses
	}
	statuses := make([]string, len(f.cfg.DefaultStatuses))
	copy(statuses, f.cfg.DefaultStatuses)
	if qctx.Privileged {
		statuses = append(statuses, f.cfg.ProtectedStatuses...)
	}
	return statuses
}

func (f *Formatter) resolveSize(args *query.Args) int {
	switch {
	case args.PerPage == query.PerPageAll:
		// The unbounded sentinel is capped: exceeding the engine's result
		// window returns a 500, which is worse than truncating.
		return f.cfg.MaxResultWindow
	case args.PerPage <= 0:
		return f.cfg.DefaultPerPage
	case args.PerPage > f.cfg.MaxResultWindow:
		return f.cfg.MaxResultWindow
	}
	return args.PerPage
}

func (f *Formatter) resolveFrom(args *query.Args, size int) int {
	if args.Offset > 0 {
		return args.Offset
	}
	if args.Page > 1 {
		return (args.Page - 1) * size
	}
	return 0
}

func (f *Formatter) stickyApplies(ctx context.Context, args *query.Args, qctx Context) bool {
	if len(qctx.StickyIDs) == 0 || !qctx.DefaultView || qctx.BypassSticky {
		return false
	}
	_ = args
	return f.hooks.ApplyBool(ctx, hooks.PointStickyEnabled, true)
}

// wrapSticky boosts sticky documents without changing which documents match:
// the filter tree stays untouched, only rank moves.
func (f *Formatter) wrapSticky(q map[string]any, ids []int64) map[string]any {
	if q == nil {
		q = map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{
		"function_score": map[string]any{
			"query": q,
			"functions": []any{
				map[string]any{
					"filter": map[string]any{"terms": map[string]any{"_id": ids}},
					"weight": f.cfg.StickyWeight,
				},
			},
			"score_mode": "sum",
			"boost_mode": "sum",
		},
	}
}

// wrapRandom replaces deterministic scoring with a uniform random score over
// the already-built query. Filters are preserved.
func wrapRandom(q map[string]any) map[string]any {
	if q == nil {
		q = map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{
		"function_score": map[string]any{
			"query":      q,
			"functions":  []any{map[string]any{"random_score": map[string]any{}}},
			"boost_mode": "replace",
		},
	}
}

func hasRandomOrder(args *query.Args) bool {
	for _, o := range args.OrderBy {
		if o.Field == "rand" {
			return true
		}
	}
	return false
}

func buildHighlight(fields []string) map[string]any {
	hl := map[string]any{
		"pre_tags":  []string{"<mark>"},
		"post_tags": []string{"</mark>"},
		"fields":    map[string]any{},
	}
	fm := hl["fields"].(map[string]any)
	for _, field := range fields {
		fm[field] = map[string]any{}
	}
	return hl
}

// buildAggs nests each filtered aggregation under the post filter so facet
// counts reflect it; opting out attaches the aggregation unfiltered.
func buildAggs(aggs []query.Agg, postFilter map[string]any) map[string]any {
	out := make(map[string]any, len(aggs))
	for _, agg := range aggs {
		if agg.UseFilter && postFilter != nil {
			out[agg.Name] = map[string]any{
				"filter": postFilter,
				"aggs":   map[string]any{agg.Name: agg.Body},
			}
			continue
		}
		out[agg.Name] = agg.Body
	}
	return out
}

// applyFormatHooks runs the type-specific chains over the resolved type set,
// so a request defaulted to the primary type still hits that type's chain. An
// unrestricted search resolves to no types and runs only the global chain.
func (f *Formatter) applyFormatHooks(ctx context.Context, req Request, args *query.Args, qctx Context) Request {
	if out, ok := f.hooks.Apply(ctx, hooks.PointFormatRequest, req).(Request); ok {
		req = out
	}
	for _, t := range f.ResolveTypes(ctx, args, qctx) {
		if out, ok := f.hooks.Apply(ctx, hooks.PointFormatRequestFor(t), req).(Request); ok {
			req = out
		}
	}
	return req
}

func (f *Formatter) weightingType(ctx context.Context, args *query.Args, qctx Context) string {
	types := f.ResolveTypes(ctx, args, qctx)
	if len(types) == 1 {
		return types[0]
	}
	return ""
}

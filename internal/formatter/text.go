package formatter

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftline/contentdex/internal/domain/query"
	"github.com/driftline/contentdex/internal/hooks"
)

// buildTextQuery builds the free-text clause: three parallel multi_match
// sub-queries OR-ed together — exact phrase, exact all-words, fuzzy.
func (f *Formatter) buildTextQuery(ctx context.Context, args *query.Args) map[string]any {
	fields := f.resolveSearchFields(ctx, args)

	return map[string]any{
		"bool": map[string]any{
			"should": []any{
				map[string]any{"multi_match": map[string]any{
					"query":  args.Search,
					"type":   "phrase",
					"fields": fields,
					"boost":  f.cfg.PhraseBoost,
				}},
				map[string]any{"multi_match": map[string]any{
					"query":     args.Search,
					"fields":    fields,
					"boost":     f.cfg.AndBoost,
					"operator":  "and",
					"fuzziness": 0,
				}},
				map[string]any{"multi_match": map[string]any{
					"query":     args.Search,
					"fields":    fields,
					"fuzziness": f.cfg.Fuzziness,
				}},
			},
		},
	}
}

// resolveSearchFields expands the caller's search-field override — dotted
// taxonomy/meta sub-paths and the author_name token — or falls back to the
// configured defaults. The search-fields hook sees the final list.
func (f *Formatter) resolveSearchFields(ctx context.Context, args *query.Args) []string {
	var fields []string
	if sf := args.SearchFields; sf != nil {
		fields = append(fields, sf.Fields...)
		for _, tax := range sf.Taxonomies {
			fields = append(fields, "terms."+tax+".name")
		}
		for _, key := range sf.Meta {
			fields = append(fields, "meta."+key+".value")
		}
		if sf.AuthorName {
			fields = append(fields, "post_author.login")
		}
	}
	if len(fields) == 0 {
		fields = append(fields, f.cfg.SearchFields...)
	}
	return f.hooks.ApplyStrings(ctx, hooks.PointSearchFields, fields)
}

// applyWeighting rewrites every multi_match field list in the compiled
// request with per-field boosts. It runs after the post-format hook chain so
// weighting always has the last word.
func (f *Formatter) applyWeighting(ctx context.Context, req Request, entityType string) {
	decision := hooks.WeightingDecision{EntityType: entityType, Boosts: map[string]float64{}}
	out, ok := f.hooks.Apply(ctx, hooks.PointWeighting, decision).(hooks.WeightingDecision)
	if !ok || len(out.Boosts) == 0 {
		return
	}
	rewriteMultiMatchFields(req, out.Boosts)
}

func rewriteMultiMatchFields(node any, boosts map[string]float64) {
	switch v := node.(type) {
	case map[string]any:
		if mm, ok := v["multi_match"].(map[string]any); ok {
			if fields, ok := mm["fields"].([]string); ok {
				mm["fields"] = boostFields(fields, boosts)
			}
		}
		for _, child := range v {
			rewriteMultiMatchFields(child, boosts)
		}
	case []any:
		for _, child := range v {
			rewriteMultiMatchFields(child, boosts)
		}
	}
}

func boostFields(fields []string, boosts map[string]float64) []string {
	out := make([]string, len(fields))
	for i, field := range fields {
		bare := field
		if idx := strings.IndexByte(bare, '^'); idx >= 0 {
			bare = bare[:idx]
		}
		if boost, ok := boosts[bare]; ok {
			out[i] = fmt.Sprintf("%s^%g", bare, boost)
			continue
		}
		out[i] = field
	}
	return out
}

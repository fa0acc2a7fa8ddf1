package formatter

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain/query"
)

// buildFilters assembles the post_filter must list in a fixed order so the
// compiled request is deterministic. Malformed sub-clauses are dropped, never
// replaced by something more permissive.
func (f *Formatter) buildFilters(ctx context.Context, args *query.Args, qctx Context) []any {
	var filters []any

	if args.Tax != nil {
		if tf := f.buildTaxFilter(args.Tax); tf != nil {
			filters = append(filters, tf)
		}
	}

	if args.ParentID != nil {
		filters = append(filters, map[string]any{
			"term": map[string]any{"post_parent": *args.ParentID},
		})
	}
	if len(args.IncludeIDs) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"ID": args.IncludeIDs},
		})
	}
	if len(args.ExcludeIDs) > 0 {
		filters = append(filters, mustNot(map[string]any{
			"terms": map[string]any{"ID": args.ExcludeIDs},
		}))
	}

	if args.AuthorID != 0 {
		filters = append(filters, map[string]any{
			"term": map[string]any{"post_author.id": args.AuthorID},
		})
	}
	if args.AuthorName != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"post_author.login.raw": args.AuthorName},
		})
	}

	if len(args.MimeTypes) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"post_mime_type": args.MimeTypes},
		})
	}
	if args.MimeTypePrefix != "" {
		// A bare "image" must match "image/png".
		filters = append(filters, map[string]any{
			"prefix": map[string]any{"post_mime_type": args.MimeTypePrefix},
		})
	}

	for _, lf := range legacyDateFilters(args) {
		filters = append(filters, lf)
	}
	if args.Date != nil {
		if df := f.buildDateFilter(args.Date); df != nil {
			filters = append(filters, df)
		}
	}

	if mq := effectiveMetaQuery(args); mq != nil {
		if mf := f.buildMetaFilter(mq); mf != nil {
			filters = append(filters, mf)
		}
	}

	// Constraint presence comes from the args, not from what compiled: a
	// malformed clause that was dropped still counts, so the defaults below
	// never widen a constrained request. An explicit status counts as a
	// constraint for the type default and vice versa.
	hasConstraints := args.HasFilters()

	// Explicit status/type always emit. Defaults emit only when something
	// constrains the request; with fully empty args the filter stays omitted
	// and downstream applies the default semantics.
	if len(args.Statuses) > 0 {
		filters = append(filters, termOrTerms("post_status", args.Statuses))
	} else if hasConstraints || args.Search != "" {
		filters = append(filters, termOrTerms("post_status", f.ResolveStatuses(ctx, args, qctx)))
	}

	if len(args.Types) > 0 {
		filters = append(filters, termOrTerms("post_type.raw", args.Types))
	} else if hasConstraints && args.Search == "" {
		// A search term leaves the type unrestricted.
		filters = append(filters, termOrTerms("post_type.raw", []string{f.cfg.PrimaryType}))
	}

	return filters
}

// effectiveMetaQuery folds the meta_key/meta_value shorthand into the
// structured meta query.
func effectiveMetaQuery(args *query.Args) *query.MetaQuery {
	if args.MetaKey == "" {
		return args.Meta
	}
	clause := &query.MetaClause{Key: args.MetaKey, Compare: query.CompareEquals}
	if args.MetaValue != "" {
		clause.Values = []string{args.MetaValue}
	} else {
		clause.Compare = query.CompareExists
	}
	node := query.MetaNode{Clause: clause}
	if args.Meta == nil {
		return &query.MetaQuery{Relation: query.RelationAnd, Nodes: []query.MetaNode{node}}
	}
	merged := &query.MetaQuery{
		Relation: query.RelationAnd,
		Nodes:    []query.MetaNode{node, {Group: args.Meta}},
	}
	return merged
}

func legacyDateFilters(args *query.Args) []any {
	var out []any
	if args.Year > 0 {
		out = append(out, map[string]any{"term": map[string]any{"date_terms.year": args.Year}})
	}
	if args.Month > 0 {
		out = append(out, map[string]any{"term": map[string]any{"date_terms.month": args.Month}})
	}
	if args.Day > 0 {
		out = append(out, map[string]any{"term": map[string]any{"date_terms.day": args.Day}})
	}
	return out
}

// buildTaxFilter translates a taxonomy clause tree. Each operator has a
// distinct filter shape; collapsing IN and AND is the classic subtle bug.
func (f *Formatter) buildTaxFilter(tq *query.TaxQuery) map[string]any {
	var clauses []any
	for _, node := range tq.Nodes {
		switch {
		case node.Clause != nil:
			if c := f.buildTaxClause(node.Clause); c != nil {
				clauses = append(clauses, c)
			}
		case node.Group != nil:
			if g := f.buildTaxFilter(node.Group); g != nil {
				clauses = append(clauses, g)
			}
		}
	}
	return combine(tq.Relation, clauses)
}

func (f *Formatter) buildTaxClause(c *query.TaxClause) map[string]any {
	if c.Taxonomy == "" {
		f.log.Warn("dropping taxonomy clause without a taxonomy")
		return nil
	}

	existsField := "terms." + c.Taxonomy + ".term_id"
	switch c.Operator {
	case query.TaxExists:
		return map[string]any{"exists": map[string]any{"field": existsField}}
	case query.TaxNotExists:
		return mustNot(map[string]any{"exists": map[string]any{"field": existsField}})
	}

	if len(c.Terms) == 0 {
		f.log.Warn("dropping empty taxonomy clause", zap.String("taxonomy", c.Taxonomy))
		return nil
	}

	path := taxFieldPath(c.Taxonomy, c.Field)
	values := taxValues(c.Field, c.Terms)

	switch c.Operator {
	case query.TaxNotIn:
		return mustNot(map[string]any{"terms": map[string]any{path: values}})
	case query.TaxAnd:
		// ALL terms required: one single-term conjunctive clause per term,
		// structurally different from the any-match terms filter.
		must := make([]any, 0, len(values))
		for _, v := range values {
			must = append(must, map[string]any{"terms": map[string]any{path: []any{v}}})
		}
		return map[string]any{"bool": map[string]any{"must": must}}
	default: // IN
		return map[string]any{"terms": map[string]any{path: values}}
	}
}

func taxFieldPath(taxonomy string, field query.TaxField) string {
	switch field {
	case query.TaxFieldSlug:
		return "terms." + taxonomy + ".slug"
	case query.TaxFieldName:
		return "terms." + taxonomy + ".name.raw"
	default:
		return "terms." + taxonomy + ".term_id"
	}
}

func taxValues(field query.TaxField, terms []string) []any {
	values := make([]any, 0, len(terms))
	for _, t := range terms {
		if field == query.TaxFieldTermID || field == "" {
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				values = append(values, n)
				continue
			}
		}
		values = append(values, t)
	}
	return values
}

// buildMetaFilter translates a meta clause tree.
func (f *Formatter) buildMetaFilter(mq *query.MetaQuery) map[string]any {
	var clauses []any
	for _, node := range mq.Nodes {
		switch {
		case node.Clause != nil:
			if c := f.buildMetaClause(node.Clause); c != nil {
				clauses = append(clauses, c)
			}
		case node.Group != nil:
			if g := f.buildMetaFilter(node.Group); g != nil {
				clauses = append(clauses, g)
			}
		}
	}
	return combine(mq.Relation, clauses)
}

func (f *Formatter) buildMetaClause(c *query.MetaClause) map[string]any {
	if c.Key == "" {
		f.log.Warn("dropping meta clause without a key")
		return nil
	}

	base := "meta." + c.Key
	compare := c.Compare
	if compare == "" {
		compare = query.CompareEquals
	}

	switch compare {
	case query.CompareExists:
		return map[string]any{"exists": map[string]any{"field": base}}
	case query.CompareNotExists:
		return mustNot(map[string]any{"exists": map[string]any{"field": base}})
	}

	if len(c.Values) == 0 {
		f.log.Warn("dropping meta clause without values", zap.String("key", c.Key))
		return nil
	}

	if compare.IsRange() {
		return f.metaRangeClause(base, compare, c)
	}

	switch compare {
	case query.CompareEquals, query.CompareIn:
		return map[string]any{"terms": map[string]any{base + ".raw": metaValues(c.Values)}}
	case query.CompareNotEquals, query.CompareNotIn:
		return mustNot(map[string]any{"terms": map[string]any{base + ".raw": metaValues(c.Values)}})
	case query.CompareLike:
		return map[string]any{"match": map[string]any{base + ".value": c.Values[0]}}
	case query.CompareNotLike:
		return mustNot(map[string]any{"match": map[string]any{base + ".value": c.Values[0]}})
	}

	f.log.Warn("dropping meta clause with unknown compare",
		zap.String("key", c.Key), zap.String("compare", string(compare)))
	return nil
}

// metaRangeClause compiles the ordered compare operators onto a range query.
func (f *Formatter) metaRangeClause(base string, compare query.CompareOp, c *query.MetaClause) map[string]any {
	switch compare {
	case query.CompareBetween, query.CompareNotBetween:
		if len(c.Values) < 2 {
			f.log.Warn("dropping bounded meta clause without two values",
				zap.String("key", c.Key), zap.String("compare", string(compare)))
			return nil
		}
		r := map[string]any{"range": map[string]any{metaRangePath(base, c.Values[0]): map[string]any{
			"gte": metaValue(c.Values[0]),
			"lte": metaValue(c.Values[1]),
		}}}
		if compare == query.CompareNotBetween {
			return mustNot(r)
		}
		return r
	default:
		op := map[query.CompareOp]string{
			query.CompareGT:  "gt",
			query.CompareGTE: "gte",
			query.CompareLT:  "lt",
			query.CompareLTE: "lte",
		}[compare]
		return map[string]any{"range": map[string]any{metaRangePath(base, c.Values[0]): map[string]any{
			op: metaValue(c.Values[0]),
		}}}
	}
}

// metaRangePath picks the numeric projection for numeric operands; string
// operands range over the raw keyword lexicographically.
func metaRangePath(base, sample string) string {
	if _, err := strconv.ParseFloat(sample, 64); err == nil {
		return base + ".long"
	}
	return base + ".raw"
}

func metaValues(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func metaValue(v string) any {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

// combine joins sibling clause filters with the group relation.
func combine(rel query.Relation, clauses []any) map[string]any {
	if len(clauses) == 0 {
		return nil
	}
	occur := "must"
	if rel == query.RelationOr {
		occur = "should"
	}
	return map[string]any{"bool": map[string]any{occur: clauses}}
}

func mustNot(clause map[string]any) map[string]any {
	return map[string]any{"bool": map[string]any{"must_not": []any{clause}}}
}

func termOrTerms(field string, values []string) map[string]any {
	if len(values) == 1 {
		return map[string]any{"term": map[string]any{field: values[0]}}
	}
	vs := make([]any, 0, len(values))
	for _, v := range values {
		vs = append(vs, v)
	}
	return map[string]any{"terms": map[string]any{field: vs}}
}

package formatter

import "github.com/driftline/contentdex/internal/domain/query"

// orderAliases maps caller orderby tokens to engine field paths. Tokens not
// listed pass through as literal field names so extensions can sort on
// custom fields.
var orderAliases = map[string]string{
	"relevance": "_score",
	"date":      "post_date",
	"modified":  "post_modified",
	"title":     "post_title.sortable",
	"name":      "post_name.sortable",
	"type":      "post_type.raw",
}

func (f *Formatter) buildSort(args *query.Args) []any {
	if len(args.OrderBy) == 0 {
		if args.Search != "" {
			return []any{map[string]any{"_score": map[string]any{"order": "desc"}}}
		}
		// Stable, deterministic default: newest first.
		return []any{map[string]any{"post_date": map[string]any{"order": "desc"}}}
	}

	sorts := make([]any, 0, len(args.OrderBy))
	for _, o := range args.OrderBy {
		if o.Field == "rand" {
			continue
		}
		field := mapOrderField(o.Field, args.MetaKey)
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		sorts = append(sorts, map[string]any{field: map[string]any{"order": dir}})
	}
	return sorts
}

func mapOrderField(token, metaKey string) string {
	switch token {
	case "meta_value":
		return "meta." + metaKey + ".value.sortable"
	case "meta_value_num":
		return "meta." + metaKey + ".long"
	}
	if mapped, ok := orderAliases[token]; ok {
		return mapped
	}
	return token
}

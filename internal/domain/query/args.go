// Package query defines the caller-facing structured query description and
// its taxonomy/meta/date clause trees. Args is immutable input: the formatter
// reads it and emits a fresh engine request, never mutating the caller's copy.
package query

// Relation combines sibling clauses within one clause group.
type Relation string

const (
	RelationAnd Relation = "AND"
	RelationOr  Relation = "OR"
)

// FieldsMode selects the requested output shape.
type FieldsMode int

const (
	// FieldsAll returns full result records.
	FieldsAll FieldsMode = iota
	// FieldsIDs returns a flat list of entity IDs.
	FieldsIDs
	// FieldsIDParent returns {id, parent} pairs.
	FieldsIDParent
)

// ScopeKind selects which tenant indices a query runs against.
type ScopeKind int

const (
	// ScopeCurrent targets the active tenant's index.
	ScopeCurrent ScopeKind = iota
	// ScopeAll targets the combined network alias.
	ScopeAll
	// ScopeList targets an explicit tenant list.
	ScopeList
)

// Scope is the resolved multi-tenant routing request.
type Scope struct {
	Kind    ScopeKind
	Tenants []int64
}

// Order is one sort token. Field is an orderby alias (relevance, date,
// modified, title, name, type, meta_value, meta_value_num, rand) or a literal
// engine field path.
type Order struct {
	Field string
	Desc  bool
}

// SearchFields overrides what the free-text clause searches against.
// Taxonomies expand to terms.<name>.name, Meta to meta.<key>.value, and
// AuthorName to the author login field.
type SearchFields struct {
	Fields     []string
	Taxonomies []string
	Meta       []string
	AuthorName bool
}

// Agg is one aggregation request. When UseFilter is set the aggregation is
// nested under the query's filter so facet counts reflect it.
type Agg struct {
	Name      string
	UseFilter bool
	Body      map[string]any
}

// Args is a generic structured content query.
type Args struct {
	Search string

	Types    []string
	Statuses []string

	Tax  *TaxQuery
	Meta *MetaQuery
	Date *DateQuery

	// MetaKey/MetaValue is the legacy shorthand folded into Meta.
	MetaKey   string
	MetaValue string

	// Year/Month/Day are the simple legacy date args.
	Year  int
	Month int
	Day   int

	OrderBy []Order

	// PerPage <= 0 means the default page size; PerPageAll requests the
	// unbounded sentinel, capped to the configured max result window.
	PerPage int
	Offset  int
	Page    int

	IncludeIDs []int64
	ExcludeIDs []int64

	ParentID   *int64
	AuthorID   int64
	AuthorName string

	// MimeTypes matches exactly; MimeTypePrefix matches "image" → "image/png".
	MimeTypes      []string
	MimeTypePrefix string

	Fields       FieldsMode
	SearchFields *SearchFields
	Highlight    []string

	Aggs []Agg

	Scope Scope
}

// PerPageAll is the "no pagination" sentinel for Args.PerPage.
const PerPageAll = -1

// HasFilters reports whether anything besides free text constrains the query.
// The formatter omits post_filter entirely when this is false and no
// type/status resolution applies.
func (a *Args) HasFilters() bool {
	return a.Tax != nil || a.Meta != nil || a.Date != nil ||
		a.MetaKey != "" || a.Year != 0 || a.Month != 0 || a.Day != 0 ||
		len(a.IncludeIDs) > 0 || len(a.ExcludeIDs) > 0 ||
		a.ParentID != nil || a.AuthorID != 0 || a.AuthorName != "" ||
		len(a.MimeTypes) > 0 || a.MimeTypePrefix != "" ||
		len(a.Types) > 0 || len(a.Statuses) > 0
}

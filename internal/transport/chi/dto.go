package chi

import (
	"encoding/json"
	"fmt"

	"github.com/driftline/contentdex/internal/domain/document"
	"github.com/driftline/contentdex/internal/domain/query"
	"github.com/driftline/contentdex/internal/intercept"
	"github.com/driftline/contentdex/internal/syncer"
)

// searchRequest is the POST /v1/search body: the structured query plus the
// per-request caller facts.
type searchRequest struct {
	Query   queryPayload   `json:"query"`
	Context contextPayload `json:"context"`
}

type contextPayload struct {
	TenantID     int64   `json:"tenant_id"`
	Automation   bool    `json:"automation,omitempty"`
	Privileged   bool    `json:"privileged,omitempty"`
	DefaultView  bool    `json:"default_view,omitempty"`
	BypassSticky bool    `json:"bypass_sticky,omitempty"`
	StickyIDs    []int64 `json:"sticky_ids,omitempty"`
}

func (p contextPayload) toContext() intercept.Context {
	return intercept.Context{
		TenantID:     p.TenantID,
		Automation:   p.Automation,
		Privileged:   p.Privileged,
		DefaultView:  p.DefaultView,
		BypassSticky: p.BypassSticky,
		StickyIDs:    p.StickyIDs,
	}
}

type orderPayload struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

type searchFieldsPayload struct {
	Fields     []string `json:"fields,omitempty"`
	Taxonomies []string `json:"taxonomies,omitempty"`
	Meta       []string `json:"meta,omitempty"`
	AuthorName bool     `json:"author_name,omitempty"`
}

type aggPayload struct {
	Name      string         `json:"name"`
	UseFilter bool           `json:"use_filter,omitempty"`
	Body      map[string]any `json:"body"`
}

type scopePayload struct {
	Kind    string  `json:"kind,omitempty"` // current, all, list
	Tenants []int64 `json:"tenants,omitempty"`
}

type taxClausePayload struct {
	Taxonomy string   `json:"taxonomy"`
	Field    string   `json:"field,omitempty"`
	Terms    []string `json:"terms,omitempty"`
	Operator string   `json:"operator,omitempty"`
}

type taxNodePayload struct {
	Clause *taxClausePayload `json:"clause,omitempty"`
	Group  *taxGroupPayload  `json:"group,omitempty"`
}

type taxGroupPayload struct {
	Relation string           `json:"relation,omitempty"`
	Nodes    []taxNodePayload `json:"nodes"`
}

type metaClausePayload struct {
	Key     string   `json:"key"`
	Values  []string `json:"values,omitempty"`
	Compare string   `json:"compare,omitempty"`
}

type metaNodePayload struct {
	Clause *metaClausePayload `json:"clause,omitempty"`
	Group  *metaGroupPayload  `json:"group,omitempty"`
}

type metaGroupPayload struct {
	Relation string            `json:"relation,omitempty"`
	Nodes    []metaNodePayload `json:"nodes"`
}

type dateClausePayload struct {
	Parts     map[string][]int `json:"parts,omitempty"`
	Compare   string           `json:"compare,omitempty"`
	Before    string           `json:"before,omitempty"`
	After     string           `json:"after,omitempty"`
	Inclusive bool             `json:"inclusive,omitempty"`
}

type dateNodePayload struct {
	Clause *dateClausePayload `json:"clause,omitempty"`
	Group  *dateGroupPayload  `json:"group,omitempty"`
}

type dateGroupPayload struct {
	Relation string            `json:"relation,omitempty"`
	Nodes    []dateNodePayload `json:"nodes"`
}

// queryPayload is the wire shape of a structured content query.
type queryPayload struct {
	Search string `json:"search,omitempty"`

	Types    []string `json:"types,omitempty"`
	Statuses []string `json:"statuses,omitempty"`

	Tax  *taxGroupPayload  `json:"tax,omitempty"`
	Meta *metaGroupPayload `json:"meta,omitempty"`
	Date *dateGroupPayload `json:"date,omitempty"`

	MetaKey   string `json:"meta_key,omitempty"`
	MetaValue string `json:"meta_value,omitempty"`

	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`

	OrderBy []orderPayload `json:"order_by,omitempty"`

	PerPage int `json:"per_page,omitempty"`
	Offset  int `json:"offset,omitempty"`
	Page    int `json:"page,omitempty"`

	IncludeIDs []int64 `json:"include_ids,omitempty"`
	ExcludeIDs []int64 `json:"exclude_ids,omitempty"`

	ParentID   *int64 `json:"parent_id,omitempty"`
	AuthorID   int64  `json:"author_id,omitempty"`
	AuthorName string `json:"author_name,omitempty"`

	MimeTypes      []string `json:"mime_types,omitempty"`
	MimeTypePrefix string   `json:"mime_type_prefix,omitempty"`

	Fields       string               `json:"fields,omitempty"` // all, ids, id_parent
	SearchFields *searchFieldsPayload `json:"search_fields,omitempty"`
	Highlight    []string             `json:"highlight,omitempty"`

	Aggs []aggPayload `json:"aggs,omitempty"`

	Scope *scopePayload `json:"scope,omitempty"`
}

func (p *queryPayload) toArgs() (*query.Args, error) {
	args := &query.Args{
		Search:         p.Search,
		Types:          p.Types,
		Statuses:       p.Statuses,
		MetaKey:        p.MetaKey,
		MetaValue:      p.MetaValue,
		Year:           p.Year,
		Month:          p.Month,
		Day:            p.Day,
		PerPage:        p.PerPage,
		Offset:         p.Offset,
		Page:           p.Page,
		IncludeIDs:     p.IncludeIDs,
		ExcludeIDs:     p.ExcludeIDs,
		ParentID:       p.ParentID,
		AuthorID:       p.AuthorID,
		AuthorName:     p.AuthorName,
		MimeTypes:      p.MimeTypes,
		MimeTypePrefix: p.MimeTypePrefix,
		Highlight:      p.Highlight,
	}

	args.Tax = taxGroupFromPayload(p.Tax)
	args.Meta = metaGroupFromPayload(p.Meta)
	args.Date = dateGroupFromPayload(p.Date)

	for _, o := range p.OrderBy {
		args.OrderBy = append(args.OrderBy, query.Order{Field: o.Field, Desc: o.Desc})
	}

	switch p.Fields {
	case "", "all":
		args.Fields = query.FieldsAll
	case "ids":
		args.Fields = query.FieldsIDs
	case "id_parent":
		args.Fields = query.FieldsIDParent
	default:
		return nil, fmt.Errorf("unknown fields mode %q", p.Fields)
	}

	if p.SearchFields != nil {
		args.SearchFields = &query.SearchFields{
			Fields:     p.SearchFields.Fields,
			Taxonomies: p.SearchFields.Taxonomies,
			Meta:       p.SearchFields.Meta,
			AuthorName: p.SearchFields.AuthorName,
		}
	}

	for _, a := range p.Aggs {
		args.Aggs = append(args.Aggs, query.Agg{Name: a.Name, UseFilter: a.UseFilter, Body: a.Body})
	}

	if p.Scope != nil {
		switch p.Scope.Kind {
		case "", "current":
			args.Scope = query.Scope{Kind: query.ScopeCurrent}
		case "all":
			args.Scope = query.Scope{Kind: query.ScopeAll}
		case "list":
			args.Scope = query.Scope{Kind: query.ScopeList, Tenants: p.Scope.Tenants}
		default:
			return nil, fmt.Errorf("unknown scope kind %q", p.Scope.Kind)
		}
	}

	return args, nil
}

func relationFromString(s string) query.Relation {
	if s == string(query.RelationOr) {
		return query.RelationOr
	}
	return query.RelationAnd
}

func taxGroupFromPayload(p *taxGroupPayload) *query.TaxQuery {
	if p == nil {
		return nil
	}
	q := &query.TaxQuery{Relation: relationFromString(p.Relation)}
	for _, n := range p.Nodes {
		node := query.TaxNode{Group: taxGroupFromPayload(n.Group)}
		if n.Clause != nil {
			field := query.TaxField(n.Clause.Field)
			if field == "" {
				field = query.TaxFieldTermID
			}
			op := query.TaxOperator(n.Clause.Operator)
			if op == "" {
				op = query.TaxIn
			}
			node.Clause = &query.TaxClause{
				Taxonomy: n.Clause.Taxonomy,
				Field:    field,
				Terms:    n.Clause.Terms,
				Operator: op,
			}
		}
		q.Nodes = append(q.Nodes, node)
	}
	return q
}

func metaGroupFromPayload(p *metaGroupPayload) *query.MetaQuery {
	if p == nil {
		return nil
	}
	q := &query.MetaQuery{Relation: relationFromString(p.Relation)}
	for _, n := range p.Nodes {
		node := query.MetaNode{Group: metaGroupFromPayload(n.Group)}
		if n.Clause != nil {
			op := query.CompareOp(n.Clause.Compare)
			if op == "" {
				op = query.CompareEquals
			}
			node.Clause = &query.MetaClause{
				Key:     n.Clause.Key,
				Values:  n.Clause.Values,
				Compare: op,
			}
		}
		q.Nodes = append(q.Nodes, node)
	}
	return q
}

func dateGroupFromPayload(p *dateGroupPayload) *query.DateQuery {
	if p == nil {
		return nil
	}
	q := &query.DateQuery{Relation: relationFromString(p.Relation)}
	for _, n := range p.Nodes {
		node := query.DateNode{Group: dateGroupFromPayload(n.Group)}
		if n.Clause != nil {
			op := query.CompareOp(n.Clause.Compare)
			if op == "" {
				op = query.CompareEquals
			}
			clause := &query.DateClause{
				Compare:   op,
				Before:    n.Clause.Before,
				After:     n.Clause.After,
				Inclusive: n.Clause.Inclusive,
			}
			if len(n.Clause.Parts) > 0 {
				clause.Parts = make(map[query.DateField][]int, len(n.Clause.Parts))
				for k, v := range n.Clause.Parts {
					clause.Parts[query.DateField(k)] = v
				}
			}
			node.Clause = clause
		}
		q.Nodes = append(q.Nodes, node)
	}
	return q
}

// recordPayload is one full-object hit in the search response.
type recordPayload struct {
	Document  document.Document `json:"document"`
	TenantID  int64             `json:"tenant_id"`
	Score     float64           `json:"score"`
	FromIndex bool              `json:"from_index"`
}

type idParentPayload struct {
	ID     int64 `json:"id"`
	Parent int64 `json:"parent"`
}

// searchResponse is the POST /v1/search result. On "skipped" and "fallback"
// outcomes the caller must run its primary data-store query instead.
type searchResponse struct {
	Outcome       string            `json:"outcome"` // served, skipped, fallback
	Total         int64             `json:"total"`
	PageCount     int               `json:"page_count"`
	Records       []recordPayload   `json:"records,omitempty"`
	IDs           []int64           `json:"ids,omitempty"`
	IDParents     []idParentPayload `json:"id_parents,omitempty"`
	Aggregations  json.RawMessage   `json:"aggregations,omitempty"`
	FallbackError string            `json:"fallback_error,omitempty"`
}

func searchResponseFromResult(res *intercept.Result) searchResponse {
	resp := searchResponse{
		Total:        res.Total,
		PageCount:    res.PageCount,
		IDs:          res.IDs,
		Aggregations: res.Aggs,
	}

	switch res.Outcome {
	case intercept.OutcomeServed:
		resp.Outcome = "served"
	case intercept.OutcomeSkipped:
		resp.Outcome = "skipped"
	case intercept.OutcomeFallback:
		resp.Outcome = "fallback"
		if res.Err != nil {
			resp.FallbackError = res.Err.Error()
		}
	}

	for _, rec := range res.Records {
		resp.Records = append(resp.Records, recordPayload{
			Document:  rec.Doc,
			TenantID:  rec.TenantID,
			Score:     rec.Score,
			FromIndex: rec.FromIndex,
		})
	}
	for _, ip := range res.IDParents {
		resp.IDParents = append(resp.IDParents, idParentPayload{ID: ip.ID, Parent: ip.Parent})
	}

	return resp
}

// entityEventPayload is one entity lifecycle notification from the host
// application. MetaKey is set only on meta-changed events.
type entityEventPayload struct {
	TenantID   int64  `json:"tenant_id"`
	EntityID   int64  `json:"entity_id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Privileged bool   `json:"privileged,omitempty"`
	Automation bool   `json:"automation,omitempty"`
	Autosave   bool   `json:"autosave,omitempty"`
	MetaKey    string `json:"meta_key,omitempty"`
}

func (p entityEventPayload) toEvent() syncer.Event {
	return syncer.Event{
		TenantID:   p.TenantID,
		EntityID:   p.EntityID,
		Type:       p.Type,
		Status:     p.Status,
		Privileged: p.Privileged,
		Automation: p.Automation,
		Autosave:   p.Autosave,
	}
}

type flushResponse struct {
	Indexed  int                   `json:"indexed"`
	Skipped  int                   `json:"skipped"`
	Failures []flushFailurePayload `json:"failures,omitempty"`
}

type flushFailurePayload struct {
	TenantID int64  `json:"tenant_id"`
	EntityID int64  `json:"entity_id"`
	Reason   string `json:"reason"`
}

func flushResponseFromReport(r *syncer.FlushReport) flushResponse {
	resp := flushResponse{Indexed: r.Indexed, Skipped: r.Skipped}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, flushFailurePayload{
			TenantID: f.TenantID,
			EntityID: f.EntityID,
			Reason:   f.Reason,
		})
	}
	return resp
}

type reindexStartRequest struct {
	Method  string  `json:"method"` // interactive, unattended
	Tenants []int64 `json:"tenants"`
}

type tenantRequest struct {
	TenantID int64 `json:"tenant_id"`
}

// Package prepare converts a source entity into its wire document: date
// normalization and decomposition, taxonomy flattening, and meta projection
// under the allow/deny policy. Preparation is all-or-nothing per entity.
package prepare

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain/document"
	"github.com/driftline/contentdex/internal/hooks"
)

// Preparer builds one Document per entity ID.
type Preparer struct {
	src       Source
	hooks     *hooks.Registry
	guard     Suspender
	log       *zap.Logger
	hierarchy bool
}

// New creates a preparer. guard suspends the sync listener for the duration
// of each Prepare call; pass NopSuspender when no sync manager is wired.
// hierarchy enables ancestor-term indexing (overridable per call via the
// term-hierarchy hook).
func New(src Source, reg *hooks.Registry, guard Suspender, hierarchy bool, log *zap.Logger) *Preparer {
	if guard == nil {
		guard = NopSuspender{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Preparer{src: src, hooks: reg, guard: guard, log: log, hierarchy: hierarchy}
}

// Prepare loads the entity and builds its document. A vanished entity
// surfaces as domain.ErrEntityNotFound, which callers treat as "nothing to
// index". Any other failure aborts the whole document; a half-built document
// is never returned.
func (p *Preparer) Prepare(ctx context.Context, id int64) (*document.Document, error) {
	resume := p.guard.Suspend()
	defer resume()

	e, err := p.src.Entity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load entity %d: %w", id, err)
	}

	doc := &document.Document{
		ID:           e.ID,
		Type:         e.Type,
		Status:       e.Status,
		Parent:       e.ParentID,
		Title:        e.Title,
		Content:      e.Content,
		Excerpt:      e.Excerpt,
		Slug:         e.Slug,
		MimeType:     e.MimeType,
		Permalink:    e.Permalink,
		CommentCount: e.CommentCount,
		MenuOrder:    e.MenuOrder,
		Author: document.Author{
			Raw:         e.AuthorLogin,
			Login:       e.AuthorLogin,
			DisplayName: e.AuthorName,
			ID:          e.AuthorID,
		},
	}

	if p.hooks.ApplyBool(ctx, hooks.PointIgnoreInvalidDates, true) {
		doc.Date = normalizeDate(e.Date)
		doc.DateGMT = normalizeDate(e.DateGMT)
		doc.Modified = normalizeDate(e.Modified)
		doc.ModifiedGMT = normalizeDate(e.ModifiedGMT)
	} else {
		doc.Date = rawDate(e.Date)
		doc.DateGMT = rawDate(e.DateGMT)
		doc.Modified = rawDate(e.Modified)
		doc.ModifiedGMT = rawDate(e.ModifiedGMT)
	}
	doc.DateTerms = dateTerms(doc.Date)

	terms, err := p.prepareTerms(ctx, e)
	if err != nil {
		return nil, err
	}
	doc.Terms = terms

	rawMeta, err := p.src.Meta(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load meta for entity %d: %w", id, err)
	}
	doc.Meta = p.prepareMeta(ctx, id, rawMeta)

	return doc, nil
}

func rawDate(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}

package prepare

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain/document"
	"github.com/driftline/contentdex/internal/domain/entity"
	"github.com/driftline/contentdex/internal/hooks"
)

// prepareTerms flattens the entity's taxonomy memberships. Only public or
// publicly-queryable taxonomies are kept unless the taxonomy hook widens the
// set. With hierarchy on, ancestors of assigned terms are pulled in so a
// document tagged only with a leaf category still matches its parents.
func (p *Preparer) prepareTerms(ctx context.Context, e entity.Entity) (map[string][]document.Term, error) {
	taxonomies, err := p.src.Taxonomies(ctx, e.Type)
	if err != nil {
		return nil, fmt.Errorf("taxonomies for %q: %w", e.Type, err)
	}

	widened := p.hooks.ApplyStrings(ctx, hooks.PointIndexableTaxonomies, nil)
	hierarchy := p.hooks.ApplyBool(ctx, hooks.PointTermHierarchy, p.hierarchy)

	// Term order comes from the relational term-relationship table; cache it
	// per prepare call so ancestor walks do not re-query.
	orderCache := make(map[int64]int)

	out := make(map[string][]document.Term)
	for _, tax := range taxonomies {
		if !tax.Indexable() && !containsString(widened, tax.Name) {
			continue
		}

		terms, err := p.src.Terms(ctx, e.ID, tax.Name)
		if err != nil {
			return nil, fmt.Errorf("terms for entity %d taxonomy %q: %w", e.ID, tax.Name, err)
		}
		if len(terms) == 0 {
			continue
		}

		seen := make(map[int64]bool, len(terms))
		flat := make([]document.Term, 0, len(terms))
		for _, t := range terms {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			flat = append(flat, p.termDoc(ctx, t, e.ID, orderCache))

			if !hierarchy {
				continue
			}
			parent := t.ParentID
			for parent != 0 && !seen[parent] {
				ancestor, err := p.src.TermByID(ctx, tax.Name, parent)
				if err != nil {
					p.log.Warn("ancestor term lookup failed",
						zap.String("taxonomy", tax.Name),
						zap.Int64("term_id", parent),
						zap.Error(err))
					break
				}
				seen[ancestor.ID] = true
				flat = append(flat, p.termDoc(ctx, ancestor, e.ID, orderCache))
				parent = ancestor.ParentID
			}
		}
		out[tax.Name] = flat
	}
	return out, nil
}

func (p *Preparer) termDoc(ctx context.Context, t entity.Term, entityID int64, orderCache map[int64]int) document.Term {
	order, ok := orderCache[t.TaxTermID]
	if !ok {
		var err error
		order, err = p.src.TermOrder(ctx, t.TaxTermID, entityID)
		if err != nil {
			order = 0
		}
		orderCache[t.TaxTermID] = order
	}
	return document.Term{
		ID:        t.ID,
		Slug:      t.Slug,
		Name:      t.Name,
		Parent:    t.ParentID,
		TaxTermID: t.TaxTermID,
		TermOrder: order,
	}
}

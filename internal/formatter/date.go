package formatter

import (
	"time"

	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain/query"
)

// buildDateFilter translates a date clause tree into term and range filters
// against the date_terms sub-fields.
func (f *Formatter) buildDateFilter(dq *query.DateQuery) map[string]any {
	var clauses []any
	for _, node := range dq.Nodes {
		switch {
		case node.Clause != nil:
			if c := f.buildDateClause(node.Clause); c != nil {
				clauses = append(clauses, c)
			}
		case node.Group != nil:
			if g := f.buildDateFilter(node.Group); g != nil {
				clauses = append(clauses, g)
			}
		}
	}
	return combine(dq.Relation, clauses)
}

// buildDateClause produces one filter per clause: the AND of its before/after
// bounds and each date-part constraint.
func (f *Formatter) buildDateClause(c *query.DateClause) map[string]any {
	var parts []any

	if c.Before != "" {
		op := "lt"
		if c.Inclusive {
			op = "lte"
		}
		parts = append(parts, map[string]any{
			"range": map[string]any{"post_date": map[string]any{op: c.Before}},
		})
	}
	if c.After != "" {
		op := "gt"
		if c.Inclusive {
			op = "gte"
		}
		parts = append(parts, map[string]any{
			"range": map[string]any{"post_date": map[string]any{op: c.After}},
		})
	}

	compare := c.Compare
	if compare == "" {
		compare = query.CompareEquals
	}

	year := 0
	if ys := c.Parts[query.DateYear]; len(ys) > 0 {
		year = ys[0]
	}

	// Fixed field order keeps the compiled request deterministic.
	for _, field := range query.DateFieldOrder {
		values, ok := c.Parts[field]
		if !ok || len(values) == 0 {
			continue
		}
		clamped := f.clampDateValues(field, values, year)
		if p := datePartFilter(field, compare, clamped); p != nil {
			parts = append(parts, p)
		}
	}

	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 {
		return parts[0].(map[string]any)
	}
	return map[string]any{"bool": map[string]any{"must": parts}}
}

func datePartFilter(field query.DateField, compare query.CompareOp, values []int) map[string]any {
	path := "date_terms." + string(field)

	if compare.IsRange() {
		return datePartRange(path, compare, values)
	}

	switch compare {
	case query.CompareEquals, query.CompareIn:
		if len(values) == 1 && compare == query.CompareEquals {
			return map[string]any{"term": map[string]any{path: values[0]}}
		}
		return map[string]any{"terms": map[string]any{path: intValues(values)}}
	case query.CompareNotEquals, query.CompareNotIn:
		if len(values) == 1 && compare == query.CompareNotEquals {
			return mustNot(map[string]any{"term": map[string]any{path: values[0]}})
		}
		return mustNot(map[string]any{"terms": map[string]any{path: intValues(values)}})
	}
	return nil
}

func datePartRange(path string, compare query.CompareOp, values []int) map[string]any {
	switch compare {
	case query.CompareBetween, query.CompareNotBetween:
		if len(values) < 2 {
			return nil
		}
		// BETWEEN is inclusive on both ends.
		r := map[string]any{"range": map[string]any{path: map[string]any{
			"gte": values[0],
			"lte": values[1],
		}}}
		if compare == query.CompareNotBetween {
			return mustNot(r)
		}
		return r
	case query.CompareGT:
		return map[string]any{"range": map[string]any{path: map[string]any{"gt": values[0]}}}
	case query.CompareGTE:
		return map[string]any{"range": map[string]any{path: map[string]any{"gte": values[0]}}}
	case query.CompareLT:
		return map[string]any{"range": map[string]any{path: map[string]any{"lt": values[0]}}}
	case query.CompareLTE:
		return map[string]any{"range": map[string]any{path: map[string]any{"lte": values[0]}}}
	}
	return nil
}

// clampDateValues validates each value against the field's numeric bounds.
// Day-of-year and week bounds come from the clause's year when it names one,
// else the worst case. Invalid values are clamped, surfaced as a warning, and
// translation continues: a broken search page costs more than a clamped
// clause.
func (f *Formatter) clampDateValues(field query.DateField, values []int, year int) []int {
	minVal, maxVal, bounded := dateBounds(field, year)
	if !bounded {
		return values
	}
	out := make([]int, len(values))
	for i, v := range values {
		c := v
		if c < minVal {
			c = minVal
		}
		if c > maxVal {
			c = maxVal
		}
		if c != v {
			f.log.Warn("date clause value out of range, clamped",
				zap.String("field", string(field)),
				zap.Int("value", v),
				zap.Int("clamped", c))
		}
		out[i] = c
	}
	return out
}

func dateBounds(field query.DateField, year int) (minVal, maxVal int, bounded bool) {
	switch field {
	case query.DateYear:
		return 1, 9999, true
	case query.DateMonth:
		return 1, 12, true
	case query.DateWeek:
		if year > 0 {
			return 1, isoWeeksInYear(year), true
		}
		return 1, 53, true
	case query.DateDay:
		return 1, 31, true
	case query.DateDayOfYear:
		if year > 0 {
			return 0, daysInYear(year) - 1, true
		}
		return 0, 365, true
	case query.DateDayOfWeek:
		return 0, 6, true
	case query.DateDayOfWeekISO:
		return 1, 7, true
	case query.DateHour:
		return 0, 23, true
	case query.DateMinute, query.DateSecond:
		return 0, 59, true
	}
	return 0, 0, false
}

// isoWeeksInYear returns 52 or 53: December 28 always falls in the year's
// last ISO week.
func isoWeeksInYear(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

func daysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

func intValues(values []int) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

package prepare

import (
	"time"

	"github.com/driftline/contentdex/internal/domain/document"
	"github.com/driftline/contentdex/internal/domain/entity"
)

// StoreLayout is the relational store's timestamp format.
const StoreLayout = "2006-01-02 15:04:05"

// normalizeDate returns the timestamp unchanged, or nil for an empty value,
// the zero-date sentinel, or an unparsable string.
func normalizeDate(raw string) *string {
	if raw == "" || raw == entity.ZeroDate {
		return nil
	}
	if _, err := time.Parse(StoreLayout, raw); err != nil {
		return nil
	}
	return &raw
}

// dateTerms decomposes a normalized creation date into engine-filterable
// fragments. Returns nil when the date is absent.
func dateTerms(normalized *string) *document.DateTerms {
	if normalized == nil {
		return nil
	}
	t, err := time.Parse(StoreLayout, *normalized)
	if err != nil {
		return nil
	}

	_, isoWeek := t.ISOWeek()
	dow := int(t.Weekday()) // Sunday = 0
	isoDow := dow
	if isoDow == 0 {
		isoDow = 7 // Monday = 1 .. Sunday = 7
	}

	return &document.DateTerms{
		Year:         t.Year(),
		Month:        int(t.Month()),
		Week:         isoWeek,
		DayOfYear:    t.YearDay() - 1, // zero-based
		Day:          t.Day(),
		DayOfWeek:    dow,
		DayOfWeekISO: isoDow,
		Hour:         t.Hour(),
		Minute:       t.Minute(),
		Second:       t.Second(),
		YearMonth:    t.Year()*100 + int(t.Month()),
	}
}

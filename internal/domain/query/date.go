package query

// DateField names one precomputed date fragment on the document.
type DateField string

const (
	DateYear         DateField = "year"
	DateMonth        DateField = "month"
	DateWeek         DateField = "week"
	DateDayOfYear    DateField = "dayofyear"
	DateDay          DateField = "day"
	DateDayOfWeek    DateField = "dayofweek"
	DateDayOfWeekISO DateField = "dayofweek_iso"
	DateHour         DateField = "hour"
	DateMinute       DateField = "minute"
	DateSecond       DateField = "second"
	DateYearMonth    DateField = "m"
)

// DateFieldOrder is the canonical emission order for date-part filters so
// that the compiled request is deterministic.
var DateFieldOrder = []DateField{
	DateYear, DateMonth, DateWeek, DateDayOfYear, DateDay,
	DateDayOfWeek, DateDayOfWeekISO, DateHour, DateMinute, DateSecond,
	DateYearMonth,
}

// DateClause is one date constraint. Parts maps date fragments to their
// values; Compare applies to every part in the clause. Before/After are
// "2006-01-02 15:04:05" timestamps matched against the creation date.
type DateClause struct {
	Parts     map[DateField][]int
	Compare   CompareOp
	Before    string
	After     string
	Inclusive bool
}

// DateNode is a tagged variant: exactly one of Clause or Group is set.
type DateNode struct {
	Clause *DateClause
	Group  *DateQuery
}

// DateQuery is a date clause group.
type DateQuery struct {
	Relation Relation
	Nodes    []DateNode
}

package query

// CompareOp is a comparison operator shared by meta and date clauses.
type CompareOp string

const (
	CompareEquals     CompareOp = "="
	CompareNotEquals  CompareOp = "!="
	CompareGT         CompareOp = ">"
	CompareGTE        CompareOp = ">="
	CompareLT         CompareOp = "<"
	CompareLTE        CompareOp = "<="
	CompareLike       CompareOp = "LIKE"
	CompareNotLike    CompareOp = "NOT LIKE"
	CompareIn         CompareOp = "IN"
	CompareNotIn      CompareOp = "NOT IN"
	CompareBetween    CompareOp = "BETWEEN"
	CompareNotBetween CompareOp = "NOT BETWEEN"
	CompareExists     CompareOp = "EXISTS"
	CompareNotExists  CompareOp = "NOT EXISTS"
)

// IsRange reports whether the operator translates into a range filter rather
// than a term/terms filter.
func (c CompareOp) IsRange() bool {
	switch c {
	case CompareGT, CompareGTE, CompareLT, CompareLTE, CompareBetween, CompareNotBetween:
		return true
	}
	return false
}

// MetaClause is one meta-field constraint. Values holds one entry for scalar
// compares, two for BETWEEN, any number for IN.
type MetaClause struct {
	Key     string
	Values  []string
	Compare CompareOp
}

// MetaNode is a tagged variant: exactly one of Clause or Group is set.
type MetaNode struct {
	Clause *MetaClause
	Group  *MetaQuery
}

// MetaQuery is a meta clause group.
type MetaQuery struct {
	Relation Relation
	Nodes    []MetaNode
}

package query

// TaxOperator selects how a taxonomy clause matches its terms.
type TaxOperator string

const (
	// TaxIn matches entities carrying ANY of the terms.
	TaxIn TaxOperator = "IN"
	// TaxNotIn excludes entities carrying any of the terms.
	TaxNotIn TaxOperator = "NOT IN"
	// TaxAnd matches entities carrying ALL of the terms. Structurally
	// distinct from TaxIn: one conjunctive single-term clause per term.
	TaxAnd TaxOperator = "AND"
	// TaxExists matches entities with any term in the taxonomy.
	TaxExists TaxOperator = "EXISTS"
	// TaxNotExists matches entities with no term in the taxonomy.
	TaxNotExists TaxOperator = "NOT EXISTS"
)

// TaxField selects which term attribute clause values refer to.
type TaxField string

const (
	TaxFieldTermID TaxField = "term_id"
	TaxFieldSlug   TaxField = "slug"
	TaxFieldName   TaxField = "name"
)

// TaxClause is one taxonomy constraint.
type TaxClause struct {
	Taxonomy string
	Field    TaxField
	Terms    []string
	Operator TaxOperator
}

// TaxNode is a tagged variant: exactly one of Clause or Group is set.
type TaxNode struct {
	Clause *TaxClause
	Group  *TaxQuery
}

// TaxQuery is a clause group; nested groups recurse with their own relation.
type TaxQuery struct {
	Relation Relation
	Nodes    []TaxNode
}

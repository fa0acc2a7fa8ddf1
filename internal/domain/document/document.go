// Package document defines the wire representation of an entity as stored in
// the search engine. Field names and nesting are the contract with the
// deployed index mapping and must not drift.
package document

// Document is one indexed entity. ID always equals the source entity ID.
type Document struct {
	ID           int64                  `json:"ID"`
	Type         string                 `json:"post_type"`
	Status       string                 `json:"post_status"`
	Parent       int64                  `json:"post_parent"`
	Author       Author                 `json:"post_author"`
	Title        string                 `json:"post_title"`
	Content      string                 `json:"post_content"`
	Excerpt      string                 `json:"post_excerpt"`
	Slug         string                 `json:"post_name"`
	Date         *string                `json:"post_date"`
	DateGMT      *string                `json:"post_date_gmt"`
	Modified     *string                `json:"post_modified"`
	ModifiedGMT  *string                `json:"post_modified_gmt"`
	MimeType     string                 `json:"post_mime_type"`
	Permalink    string                 `json:"permalink"`
	CommentCount int64                  `json:"comment_count"`
	MenuOrder    int                    `json:"menu_order"`
	DateTerms    *DateTerms             `json:"date_terms"`
	Terms        map[string][]Term      `json:"terms"`
	Meta         map[string][]MetaValue `json:"meta"`
}

// Author is the denormalized author sub-object.
type Author struct {
	Raw         string `json:"raw"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	ID          int64  `json:"id"`
}

// DateTerms holds precomputed fragments of the creation date so that date
// filters run as engine-side term/range queries. DayOfYear is zero-based and
// DayOfWeek counts Sunday as 0; DayOfWeekISO counts Monday as 1.
type DateTerms struct {
	Year         int `json:"year"`
	Month        int `json:"month"`
	Week         int `json:"week"`
	DayOfYear    int `json:"dayofyear"`
	Day          int `json:"day"`
	DayOfWeek    int `json:"dayofweek"`
	DayOfWeekISO int `json:"dayofweek_iso"`
	Hour         int `json:"hour"`
	Minute       int `json:"minute"`
	Second       int `json:"second"`
	YearMonth    int `json:"m"` // year*100 + month, e.g. 202403
}

// Term is one flattened taxonomy term. When hierarchy indexing is on,
// ancestors of directly-assigned terms appear here too.
type Term struct {
	ID        int64  `json:"term_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Parent    int64  `json:"parent"`
	TaxTermID int64  `json:"term_taxonomy_id"`
	TermOrder int    `json:"term_order"`
}

// MetaValue is one meta value with its per-type projections. Only the
// projections the raw value actually parses into are emitted.
type MetaValue struct {
	Value    string   `json:"value"`
	Raw      string   `json:"raw"`
	Long     *int64   `json:"long,omitempty"`
	Double   *float64 `json:"double,omitempty"`
	Boolean  *bool    `json:"boolean,omitempty"`
	Date     string   `json:"date,omitempty"`
	Datetime string   `json:"datetime,omitempty"`
	Time     string   `json:"time,omitempty"`
}

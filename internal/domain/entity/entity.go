// Package entity holds the source-of-truth content record as read from the
// host application. The search core never owns entities; it only reads them
// to build index documents.
package entity

// ZeroDate is the relational store's sentinel for "no date".
const ZeroDate = "0000-00-00 00:00:00"

// Entity is a source content record (post, page, product, ...).
// Date fields carry the store's raw "2006-01-02 15:04:05" strings so the
// preparer can distinguish a missing date from the zero-date sentinel.
type Entity struct {
	ID           int64
	Type         string
	Status       string
	ParentID     int64
	AuthorID     int64
	AuthorLogin  string
	AuthorName   string
	Title        string
	Content      string
	Excerpt      string
	Slug         string
	Date         string
	DateGMT      string
	Modified     string
	ModifiedGMT  string
	MimeType     string
	Permalink    string
	CommentCount int64
	MenuOrder    int
}

// Term is one taxonomy term attached to an entity.
type Term struct {
	ID        int64
	Slug      string
	Name      string
	ParentID  int64
	TaxTermID int64 // term-taxonomy relationship ID, distinct from the term ID
}

// Taxonomy describes a taxonomy registered for an entity type.
type Taxonomy struct {
	Name              string
	Public            bool
	PubliclyQueryable bool
	Hierarchical      bool
}

// Indexable reports whether the taxonomy is exposed to the index by default.
// Hidden taxonomies can still be widened in through the taxonomy hook.
func (t Taxonomy) Indexable() bool {
	return t.Public || t.PubliclyQueryable
}

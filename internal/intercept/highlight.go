package intercept

import (
	"strings"

	"github.com/driftline/contentdex/internal/domain/document"
)

// applyHighlights replaces the document's scalar fields with the engine's
// joined highlight fragments where available.
func applyHighlights(doc *document.Document, highlight map[string][]string) {
	if len(highlight) == 0 {
		return
	}
	if frags, ok := highlight["post_title"]; ok {
		doc.Title = joinFragments(frags)
	}
	if frags, ok := highlight["post_content"]; ok {
		doc.Content = joinFragments(frags)
	}
	if frags, ok := highlight["post_excerpt"]; ok {
		doc.Excerpt = joinFragments(frags)
	}
}

func joinFragments(frags []string) string {
	return strings.Join(frags, " ")
}

package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// Story bodies keep user-generated formatting: links, lists, emphasis, images.
	storyPolicy = bluemonday.UGCPolicy()

	// Comments and captions are plain text.
	textPolicy = bluemonday.StrictPolicy()
)

// sanitizeRichText strips scripts, event handlers and unknown tags from story HTML.
func sanitizeRichText(s string) string {
	return strings.TrimSpace(storyPolicy.Sanitize(s))
}

// sanitizeText removes every tag and returns plain text. Entities are
// decoded again because clients render the value as text, not HTML.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

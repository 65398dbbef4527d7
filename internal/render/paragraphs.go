package render

import (
	"regexp"
	"strings"
)

var blankLines = regexp.MustCompile(`\n{2,}`)

// Opening-tag prefixes that mark a segment as already block-level. <p is in
// the set so WrapParagraphs is idempotent: its own output passes through.
var blockPrefixes = []string{
	"<p", "<ul", "<ol", "<li", "<div",
	"<h1", "<h2", "<h3", "<h4", "<h5", "<h6",
	"<hr", "<table", "<blockquote", "<pre",
}

// WrapParagraphs splits text on blank-line boundaries and wraps each segment
// that is not already block-level in a <p> tag, converting its inner single
// newlines to <br>. Block segments (lists from ConvertLists, pre-existing
// block HTML) pass through unchanged. Segments are re-joined with a blank
// line.
func WrapParagraphs(text string) string {
	if text == "" {
		return ""
	}

	segments := blankLines.Split(text, -1)
	for i, seg := range segments {
		trimmed := strings.TrimSpace(seg)
		if trimmed == "" || startsWithBlockTag(trimmed) {
			continue
		}
		segments[i] = "<p>" + strings.ReplaceAll(seg, "\n", "<br>") + "</p>"
	}

	return strings.Join(segments, "\n\n")
}

func startsWithBlockTag(s string) bool {
	lower := strings.ToLower(s)
	for _, prefix := range blockPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

package render

import (
	"regexp"
	"strings"
)

// A bullet line: optional leading whitespace, a single * or - marker, at least
// one space, then content.
var bulletLine = regexp.MustCompile(`^[ \t]*[*-][ \t]+(.*)$`)

// ConvertLists replaces every maximal contiguous run of bullet lines with one
// <ul> block, one <li> per line. The marker and its whitespace are stripped;
// item content is kept verbatim, including inline math from Normalize. Lines
// outside a run are untouched, in place. A lone bullet line still becomes a
// one-item list.
func ConvertLists(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		m := bulletLine.FindStringSubmatch(lines[i])
		if m == nil {
			out = append(out, lines[i])
			i++
			continue
		}

		out = append(out, "<ul>")
		for i < len(lines) {
			m = bulletLine.FindStringSubmatch(lines[i])
			if m == nil {
				break
			}
			out = append(out, "<li>"+m[1]+"</li>")
			i++
		}
		out = append(out, "</ul>")
	}

	return strings.Join(out, "\n")
}

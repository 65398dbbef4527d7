// Package render turns raw Gemini output into math-aware HTML the chat UI can
// insert directly. The pipeline is Normalize → ConvertLists → WrapParagraphs;
// the order matters and is fixed by Render.
package render

import (
	"regexp"
	"strings"
)

var (
	excessNewlines = regexp.MustCompile(`\n{4,}`)

	// Block before inline so $$...$$ is not eaten one dollar at a time.
	blockMath  = regexp.MustCompile(`\$\$([^$]+)\$\$`)
	inlineMath = regexp.MustCompile(`\$([^$]+)\$`)

	// Spans already in target notation. Used to avoid re-wrapping vocabulary
	// that sits inside converted math.
	mathSpan = regexp.MustCompile(`\\\([\s\S]*?\\\)|\\\[[\s\S]*?\\\]`)

	// Whole words only: "log" matches, "logistics" does not. π is handled in
	// the same pattern; it is never part of an ASCII word so \b is not needed.
	mathWord = regexp.MustCompile(`\b(sin|cos|tan|log|ln|theta|alpha|beta|gamma|delta)\b|π`)
)

// Normalize bounds vertical whitespace, rewrites dollar-delimited math to the
// \( \) / \[ \] notation the UI renders, and tags bare math vocabulary as
// inline math. Total function: empty in, empty out. Idempotent on text that is
// already normalized.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = excessNewlines.ReplaceAllString(text, "\n\n\n")
	text = blockMath.ReplaceAllString(text, `\[$1\]`)
	text = inlineMath.ReplaceAllString(text, `\($1\)`)
	text = wrapMathWords(text)

	return text
}

// wrapMathWords wraps bare function/symbol names in inline delimiters. Text
// already inside a math span is left alone, which also makes the pass
// idempotent.
func wrapMathWords(text string) string {
	spans := mathSpan.FindAllStringIndex(text, -1)
	if spans == nil {
		return mathWord.ReplaceAllString(text, `\($0\)`)
	}

	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for _, span := range spans {
		b.WriteString(mathWord.ReplaceAllString(text[last:span[0]], `\($0\)`))
		b.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	b.WriteString(mathWord.ReplaceAllString(text[last:], `\($0\)`))

	return b.String()
}

package render

// Render is the full pipeline: raw model text in, renderable markup out.
// Normalization runs first so bullet content already carries math delimiters
// when lists are detected, and lists run before paragraph wrapping so <ul>
// blocks are recognized as pass-through instead of being re-wrapped.
func Render(raw string) string {
	return WrapParagraphs(ConvertLists(Normalize(raw)))
}

package render

import (
	"strings"
	"testing"
)

// ─── Normalize ───

func TestNormalize_CollapsesExcessNewlines(t *testing.T) {
	got := Normalize("line1\n\n\n\n\nline2")
	want := "line1\n\n\nline2"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestNormalize_KeepsIntentionalBreaks(t *testing.T) {
	in := "a\n\nb\n\n\nc"
	if got := Normalize(in); got != in {
		t.Errorf("Expected %q unchanged, got %q", in, got)
	}
}

func TestNormalize_InlineMath(t *testing.T) {
	got := Normalize("Ta có $a+b$ là tổng.")
	if !strings.Contains(got, `\(a+b\)`) {
		t.Errorf("Expected inline delimiters around a+b, got %q", got)
	}
	if strings.Contains(got, "$") {
		t.Errorf("Expected no raw $ to remain, got %q", got)
	}
}

func TestNormalize_BlockMath(t *testing.T) {
	got := Normalize("$$x^2 + y^2 = z^2$$")
	want := `\[x^2 + y^2 = z^2\]`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestNormalize_BlockNotShadowedByInline(t *testing.T) {
	got := Normalize("trước $$E=mc^2$$ sau $v=s/t$ hết")
	if !strings.Contains(got, `\[E=mc^2\]`) {
		t.Errorf("Expected block form for $$E=mc^2$$, got %q", got)
	}
	if !strings.Contains(got, `\(v=s/t\)`) {
		t.Errorf("Expected inline form for $v=s/t$, got %q", got)
	}
}

func TestNormalize_MathVocabulary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"function name", "giá trị của sin x", `giá trị của \(sin\) x`},
		{"greek letter name", "góc theta nhọn", `góc \(theta\) nhọn`},
		{"pi symbol", "chu vi là 2π", `chu vi là 2\(π\)`},
		{"no partial word", "công ty logistics", "công ty logistics"},
		{"already inside span", `\(sin x\)`, `\(sin x\)`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNormalize_DollarInsideVocabSpan(t *testing.T) {
	// Dollar conversion runs before vocabulary tagging, so the whole $...$
	// span converts first and the word inside is not double-wrapped.
	got := Normalize("$sin x$")
	want := `\(sin x\)`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"line1\n\n\n\n\n\nline2",
		"tính $a+b$ và $$c$$",
		"sin cos tan và π",
		"",
		"chỉ là văn bản thường",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	if got := Normalize(""); got != "" {
		t.Errorf("Expected empty output, got %q", got)
	}
}

// ─── ConvertLists ───

func TestConvertLists_ThreeItems(t *testing.T) {
	got := ConvertLists("* a\n* b\n* c")
	want := "<ul>\n<li>a</li>\n<li>b</li>\n<li>c</li>\n</ul>"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestConvertLists_SingleBulletStillList(t *testing.T) {
	got := ConvertLists("- chỉ một dòng")
	want := "<ul>\n<li>chỉ một dòng</li>\n</ul>"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestConvertLists_MixedContent(t *testing.T) {
	got := ConvertLists("Các bước:\n* bước một\n* bước hai\nKết luận")
	want := "Các bước:\n<ul>\n<li>bước một</li>\n<li>bước hai</li>\n</ul>\nKết luận"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestConvertLists_TwoSeparateRuns(t *testing.T) {
	got := ConvertLists("* a\ntext\n- b\n- c")
	if strings.Count(got, "<ul>") != 2 {
		t.Errorf("Expected two list blocks, got %q", got)
	}
}

func TestConvertLists_IndentedBullets(t *testing.T) {
	got := ConvertLists("  * thụt lề")
	want := "<ul>\n<li>thụt lề</li>\n</ul>"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestConvertLists_NotABullet(t *testing.T) {
	tests := []string{
		"*no space after marker",
		"5 - 3 = 2",
		"a * b",
	}
	for _, in := range tests {
		if got := ConvertLists(in); got != in {
			t.Errorf("Expected %q unchanged, got %q", in, got)
		}
	}
}

func TestConvertLists_PreservesInlineMath(t *testing.T) {
	got := ConvertLists(`* tính \(a+b\)`)
	want := "<ul>\n<li>tính \\(a+b\\)</li>\n</ul>"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// ─── WrapParagraphs ───

func TestWrapParagraphs_WrapsPlainSegments(t *testing.T) {
	got := WrapParagraphs("đoạn một\n\nđoạn hai")
	want := "<p>đoạn một</p>\n\n<p>đoạn hai</p>"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestWrapParagraphs_SingleNewlineBecomesBreak(t *testing.T) {
	got := WrapParagraphs("dòng một\ndòng hai")
	want := "<p>dòng một<br>dòng hai</p>"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestWrapParagraphs_ListPassesThrough(t *testing.T) {
	in := "<ul>\n<li>a</li>\n</ul>"
	if got := WrapParagraphs(in); got != in {
		t.Errorf("Expected list block unchanged, got %q", got)
	}
}

func TestWrapParagraphs_ExistingBlockHTMLPassesThrough(t *testing.T) {
	tests := []string{
		"<div>nội dung</div>",
		"<h2>Tiêu đề</h2>",
		"<table><tr><td>1</td></tr></table>",
	}
	for _, in := range tests {
		if got := WrapParagraphs(in); got != in {
			t.Errorf("Expected %q unchanged, got %q", in, got)
		}
	}
}

func TestWrapParagraphs_Idempotent(t *testing.T) {
	inputs := []string{
		"đoạn một\n\nđoạn hai",
		"dòng một\ndòng hai",
		"<ul>\n<li>a</li>\n</ul>\n\nvăn bản",
	}
	for _, in := range inputs {
		once := WrapParagraphs(in)
		twice := WrapParagraphs(once)
		if once != twice {
			t.Errorf("WrapParagraphs not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

// ─── Render pipeline ───

func TestRender_CollapsedNewlinesYieldTwoParagraphs(t *testing.T) {
	got := Render("line1\n\n\n\n\nline2")
	want := "<p>line1</p>\n\n<p>line2</p>"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestRender_MathInsideBulletIsDelimitedBeforeListDetection(t *testing.T) {
	got := Render("* tính $a+b$\n* rút gọn $x$")
	want := "<ul>\n<li>tính \\(a+b\\)</li>\n<li>rút gọn \\(x\\)</li>\n</ul>"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestRender_ListNotRewrappedAsParagraph(t *testing.T) {
	got := Render("Lời giải:\n\n* bước một\n* bước hai")
	if !strings.Contains(got, "<p>Lời giải:</p>") {
		t.Errorf("Expected intro paragraph, got %q", got)
	}
	if strings.Contains(got, "<p><ul>") {
		t.Errorf("List block must not be wrapped in a paragraph: %q", got)
	}
}

func TestRender_Deterministic(t *testing.T) {
	in := "Giải:\n\n$$x = 2$$\n\n* thử lại\n* kết luận dùng sin"
	first := Render(in)
	second := Render(in)
	if first != second {
		t.Errorf("Render not deterministic: %q vs %q", first, second)
	}
}

func TestRender_EmptyInput(t *testing.T) {
	if got := Render(""); got != "" {
		t.Errorf("Expected empty output, got %q", got)
	}
}

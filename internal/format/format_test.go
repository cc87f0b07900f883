package format

import (
	"net/url"
	"strings"
	"testing"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

func TestFormatEmphasis(t *testing.T) {
	out := New().Format("**a**")
	if !strings.Contains(out, "<strong>a</strong>") {
		t.Errorf("expected <strong>a</strong>, got %q", out)
	}
	if strings.Contains(out, "*") {
		t.Errorf("raw asterisks left in %q", out)
	}
}

func TestFormatEmpty(t *testing.T) {
	if out := New().Format("  \n "); out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestFormatStripsScripts(t *testing.T) {
	out := New().Format("hello <script>alert(1)</script> <img src=x onerror=\"alert(2)\">")
	if strings.Contains(out, "<script") || strings.Contains(out, "alert(1)") {
		t.Errorf("script survived sanitizing: %q", out)
	}
	if strings.Contains(out, "onerror") {
		t.Errorf("event handler survived sanitizing: %q", out)
	}
}

func TestFormatDiagramPlaceholder(t *testing.T) {
	src := "Here:\n\n```mermaid\ngraph TD\n  A --&gt; B\n```\n"
	out := New().Format(src)

	if n := countPlaceholders(out); n != 1 {
		t.Fatalf("expected 1 placeholder, got %d in %q", n, out)
	}
	if strings.Contains(out, "language-mermaid") {
		t.Errorf("diagram rendered as code: %q", out)
	}
	encoded := url.PathEscape("graph TD\n  A --> B")
	if !strings.Contains(out, encoded) {
		t.Errorf("expected encoded source %q in %q", encoded, out)
	}
}

func TestFormatHighlightsOtherFences(t *testing.T) {
	out := New().Format("```go\nfunc main() {}\n```")
	if !strings.Contains(out, `class="chroma"`) {
		t.Errorf("expected chroma classes, got %q", out)
	}
	if countPlaceholders(out) != 0 {
		t.Errorf("unexpected diagram placeholder in %q", out)
	}
}

func TestFormatKeepsSVG(t *testing.T) {
	out := New().Format(`<svg viewBox="0 0 10 10"><path d="M0 0L10 10" onclick="x()"/></svg>`)
	if !strings.Contains(out, "<svg") || !strings.Contains(out, "<path") {
		t.Errorf("svg stripped: %q", out)
	}
	if strings.Contains(out, "onclick") {
		t.Errorf("onclick survived: %q", out)
	}
}

func TestFallbackRewritesCodeBlocks(t *testing.T) {
	f := New()
	// Plain goldmark renders mermaid fences as ordinary code.
	f.md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	out := f.Format("```mermaid\ngraph LR\n  A --> B\n```")
	if countPlaceholders(out) != 1 {
		t.Fatalf("expected rewritten placeholder, got %q", out)
	}
	if !strings.Contains(out, url.PathEscape("graph LR\n  A --> B")) {
		t.Errorf("placeholder lost its source: %q", out)
	}
}

func TestFallbackRewritesSource(t *testing.T) {
	f := New()
	// Highlighted output has no language-mermaid class to rewrite.
	f.md = goldmark.New(goldmark.WithExtensions(extension.GFM, highlighting.Highlighting))

	out := f.Format("intro\n\n```mermaid\ngraph LR\n\n  A --> B\n```\n\noutro")
	if countPlaceholders(out) != 1 {
		t.Fatalf("expected placeholder from source rewrite, got %q", out)
	}
	if !strings.Contains(out, "outro") {
		t.Errorf("text after diagram lost: %q", out)
	}
}

func TestRewriteSourceFences(t *testing.T) {
	got := rewriteSourceFences("a\n```mermaid\nx\n\ny\n```\nb")
	if strings.Contains(got, "```") {
		t.Errorf("fence left in %q", got)
	}
	start, end := strings.Index(got, "<div"), strings.Index(got, "</div>")
	if start < 0 || end < start {
		t.Fatalf("no placeholder in %q", got)
	}
	if strings.Contains(got[start:end], "\n") {
		t.Errorf("newline inside placeholder block: %q", got)
	}
}

func TestCSS(t *testing.T) {
	css := New(WithStyle("monokai")).CSS()
	if !strings.Contains(css, ".chroma") {
		t.Errorf("expected chroma css, got %q", css)
	}
}

func TestMermaidSourceHighlighted(t *testing.T) {
	out := New().Format("```mmd\ngraph TD\n  A --> B\n```")
	if countPlaceholders(out) != 0 {
		t.Fatalf("mmd fence should stay code: %q", out)
	}
	if !strings.Contains(out, `<span class="k">graph</span>`) {
		t.Errorf("expected keyword highlighting, got %q", out)
	}
}

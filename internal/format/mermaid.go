package format

import (
	"bytes"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

const (
	diagramLanguage = "mermaid"
	diagramClass    = "mermaid"
	diagramSource   = "data-diagram-source"
)

// fenceRenderer renders ```mermaid fences as diagram placeholders and hands
// every other fenced block to the wrapped code renderer.
type fenceRenderer struct {
	code     renderer.NodeRenderer
	fallback renderer.NodeRendererFunc
}

func newFenceRenderer(code renderer.NodeRenderer) *fenceRenderer {
	r := &fenceRenderer{code: code}
	capture := funcCapture{}
	code.RegisterFuncs(capture)
	r.fallback = capture[ast.KindFencedCodeBlock]
	return r
}

// SetOption forwards renderer options such as html.WithUnsafe.
func (r *fenceRenderer) SetOption(name renderer.OptionName, value interface{}) {
	if so, ok := r.code.(renderer.SetOptioner); ok {
		so.SetOption(name, value)
	}
}

func (r *fenceRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *fenceRenderer) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.FencedCodeBlock)
	if !isDiagramFence(n, source) {
		if r.fallback == nil {
			return ast.WalkContinue, nil
		}
		return r.fallback(w, source, node, entering)
	}
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(placeholder(fenceBody(n, source)))
	return ast.WalkContinue, nil
}

// funcCapture records the functions a NodeRenderer registers.
type funcCapture map[ast.NodeKind]renderer.NodeRendererFunc

func (c funcCapture) Register(kind ast.NodeKind, fn renderer.NodeRendererFunc) {
	c[kind] = fn
}

func isDiagramFence(n *ast.FencedCodeBlock, source []byte) bool {
	return strings.EqualFold(string(n.Language(source)), diagramLanguage)
}

func fenceBody(n *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// countDiagramFences reports how many mermaid fences goldmark finds in doc.
func countDiagramFences(doc ast.Node, source []byte) int {
	count := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fence, ok := n.(*ast.FencedCodeBlock); ok && entering && isDiagramFence(fence, source) {
			count++
		}
		return ast.WalkContinue, nil
	})
	return count
}

// placeholder builds the container the diagram processor looks for. The
// source is kept percent-encoded in an attribute since the visible text is
// replaced once the diagram renders.
func placeholder(src string) string {
	return `<div class="` + diagramClass + `" ` + diagramSource + `="` +
		html.EscapeString(url.PathEscape(src)) + `">` + html.EscapeString(src) + "</div>\n"
}

func countPlaceholders(out string) int {
	return strings.Count(out, `class="`+diagramClass+`"`)
}

// rewriteCodeBlocks converts <pre><code class="language-mermaid"> blocks
// that slipped through as ordinary code into placeholders.
func rewriteCodeBlocks(out string) string {
	const openTag = `<pre><code class="language-mermaid">`
	const closeTag = `</code></pre>`

	for {
		idx := strings.Index(out, openTag)
		if idx == -1 {
			break
		}
		endIdx := strings.Index(out[idx:], closeTag)
		if endIdx == -1 {
			break
		}
		endIdx += idx

		src := html.UnescapeString(out[idx+len(openTag) : endIdx])
		out = out[:idx] + placeholder(strings.TrimRight(src, "\n")) + out[endIdx+len(closeTag):]
	}
	return out
}

var diagramFence = regexp.MustCompile("(?ms)^[ \t]*```[ \t]*mermaid[ \t]*\n(.*?)\n[ \t]*```[ \t]*$")

// rewriteSourceFences replaces mermaid fences in markdown source with raw
// placeholder HTML. Newlines are kept as character references so the block
// survives as a single HTML block.
func rewriteSourceFences(text string) string {
	return diagramFence.ReplaceAllStringFunc(text, func(fence string) string {
		m := diagramFence.FindStringSubmatch(fence)
		block := strings.TrimSuffix(placeholder(m[1]), "\n")
		return "\n" + strings.ReplaceAll(block, "\n", "&#10;") + "\n"
	})
}

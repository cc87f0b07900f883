// Package format turns chat message text into sanitized HTML.
package format

import (
	"bytes"
	stdhtml "html"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/ziadkadry99/wisdomizer/internal/entities"
)

// DefaultStyle is the chroma style used for code blocks.
const DefaultStyle = "github"

// Formatter converts markdown to HTML. It is safe for concurrent use.
type Formatter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	style  string
	logger zerolog.Logger
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithStyle selects the chroma style for CSS().
func WithStyle(name string) Option {
	return func(f *Formatter) {
		if name != "" {
			f.style = name
		}
	}
}

// WithLogger sets the logger used to report fallback rendering.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Formatter) { f.logger = l }
}

// New creates a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		style:  DefaultStyle,
		policy: Policy(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}

	code := highlighting.NewHTMLRenderer(
		highlighting.WithStyle(f.style),
		highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
	)
	f.md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(newFenceRenderer(code), 100)),
		),
	)
	return f
}

// Format renders text as sanitized HTML. Entities are decoded first so
// diagram arrows written as "--&gt;" survive conversion.
func (f *Formatter) Format(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := entities.Decode(input)

	out, want, err := f.convert(source)
	if err != nil {
		f.logger.Error().Err(err).Msg("markdown conversion failed")
		return f.policy.Sanitize("<p>" + escapeText(source) + "</p>")
	}

	if countPlaceholders(out) < want {
		f.logger.Warn().Int("expected", want).Int("found", countPlaceholders(out)).
			Msg("diagram fences rendered as code, rewriting blocks")
		out = rewriteCodeBlocks(out)
	}
	if countPlaceholders(out) < want {
		f.logger.Warn().Int("expected", want).Int("found", countPlaceholders(out)).
			Msg("diagram fences still missing, rewriting source")
		if rewritten, _, err := f.convert(rewriteSourceFences(source)); err == nil {
			out = rewritten
		}
	}

	return f.policy.Sanitize(out)
}

// convert renders markdown and reports how many diagram fences the parser
// saw, which is the number of placeholders the output should contain.
func (f *Formatter) convert(source string) (string, int, error) {
	src := []byte(source)
	doc := f.md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	if err := f.md.Renderer().Render(&buf, src, doc); err != nil {
		return "", 0, err
	}
	return buf.String(), countDiagramFences(doc, src), nil
}

// CSS returns the stylesheet for highlighted code blocks.
func (f *Formatter) CSS() string {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(f.style)); err != nil {
		f.logger.Error().Err(err).Str("style", f.style).Msg("writing chroma css")
		return ""
	}
	return buf.String()
}

// Style reports the chroma style in use.
func (f *Formatter) Style() string { return f.style }

func escapeText(s string) string {
	return strings.ReplaceAll(stdhtml.EscapeString(s), "\n", "<br>")
}

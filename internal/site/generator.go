// Package site renders Markdown documents into self-contained HTML pages
// with highlighted code and server-rendered diagrams.
package site

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/ziadkadry99/wisdomizer/internal/diagrams"
	"github.com/ziadkadry99/wisdomizer/internal/format"
	"github.com/ziadkadry99/wisdomizer/internal/progress"
	"github.com/ziadkadry99/wisdomizer/internal/walker"
)

// IndexFile is the generated landing page.
const IndexFile = "index.html"

// Page is one document to render.
type Page struct {
	Title    string
	Markdown string
	// Nav is trusted sidebar markup; empty omits the sidebar.
	Nav    string
	Footer string
}

// pageData holds the data passed to the HTML template for each page.
type pageData struct {
	Title        string
	SiteTitle    string
	HighlightCSS template.CSS
	PageCSS      template.CSS
	Content      template.HTML
	Nav          template.HTML
	Footer       string
}

// PageRenderer turns Markdown into a complete HTML document.
type PageRenderer struct {
	siteTitle string
	formatter *format.Formatter
	processor *diagrams.Processor
	tmpl      *template.Template
}

// NewPageRenderer creates a PageRenderer. A nil renderer leaves diagram
// placeholders showing their source.
func NewPageRenderer(siteTitle string, f *format.Formatter, r diagrams.Renderer, logger zerolog.Logger) (*PageRenderer, error) {
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}
	if f == nil {
		f = format.New(format.WithLogger(logger))
	}
	pr := &PageRenderer{siteTitle: siteTitle, formatter: f, tmpl: tmpl}
	if r != nil {
		pr.processor = diagrams.NewProcessor(r, diagrams.WithLogger(logger))
	}
	return pr, nil
}

// RenderPage writes p as a standalone document. Diagrams are rendered
// before the page is written.
func (pr *PageRenderer) RenderPage(ctx context.Context, w io.Writer, p Page) (diagrams.Result, error) {
	var buf bytes.Buffer
	err := pr.tmpl.Execute(&buf, pageData{
		Title:        p.Title,
		SiteTitle:    pr.siteTitle,
		HighlightCSS: template.CSS(pr.formatter.CSS()),
		PageCSS:      template.CSS(pageCSS),
		Content:      template.HTML(pr.formatter.Format(p.Markdown)),
		Nav:          template.HTML(p.Nav),
		Footer:       p.Footer,
	})
	if err != nil {
		return diagrams.Result{}, fmt.Errorf("executing page template: %w", err)
	}

	tree, err := diagrams.ParseTree(&buf)
	if err != nil {
		return diagrams.Result{}, fmt.Errorf("parsing rendered page: %w", err)
	}
	var res diagrams.Result
	if pr.processor != nil {
		res = pr.processor.Process(ctx, tree)
	}
	if err := html.Render(w, tree.Root()); err != nil {
		return res, fmt.Errorf("writing page: %w", err)
	}
	return res, nil
}

// Cache remembers what was rendered last time. *prefs.Store implements it.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Stats summarizes a Generate run.
type Stats struct {
	Rendered      int
	Skipped       int
	Diagrams      int
	DiagramErrors int
}

// Generator renders a directory of Markdown files into a static site.
type Generator struct {
	*PageRenderer

	rootDir   string
	outputDir string
	include   []string
	exclude   []string
	force     bool
	cache     Cache
	reporter  progress.Reporter
	logger    zerolog.Logger

	title    string
	renderer diagrams.Renderer
	markdown *format.Formatter
}

// Option configures a Generator.
type Option func(*Generator)

// WithTitle names the site in page titles and the sidebar.
func WithTitle(title string) Option {
	return func(g *Generator) { g.title = title }
}

// WithPatterns selects documents by doublestar globs.
func WithPatterns(include, exclude []string) Option {
	return func(g *Generator) {
		g.include = include
		g.exclude = exclude
	}
}

// WithForce re-renders documents the cache says are unchanged.
func WithForce(force bool) Option {
	return func(g *Generator) { g.force = force }
}

// WithFormatter sets the Markdown formatter.
func WithFormatter(f *format.Formatter) Option {
	return func(g *Generator) { g.markdown = f }
}

// WithRenderer enables diagram rendering.
func WithRenderer(r diagrams.Renderer) Option {
	return func(g *Generator) { g.renderer = r }
}

// WithCache skips documents whose content and navigation are unchanged.
func WithCache(c Cache) Option {
	return func(g *Generator) { g.cache = c }
}

// WithReporter reports per-document progress.
func WithReporter(r progress.Reporter) Option {
	return func(g *Generator) { g.reporter = r }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a Generator reading rootDir and writing outputDir.
func NewGenerator(rootDir, outputDir string, opts ...Option) (*Generator, error) {
	g := &Generator{
		rootDir:   rootDir,
		outputDir: outputDir,
		reporter:  progress.Nop{},
		logger:    zerolog.Nop(),
		title:     filepath.Base(rootDir),
	}
	for _, opt := range opts {
		opt(g)
	}
	if err := walker.ValidatePatterns(append(append([]string(nil), g.include...), g.exclude...)); err != nil {
		return nil, err
	}
	pr, err := NewPageRenderer(g.title, g.markdown, g.renderer, g.logger)
	if err != nil {
		return nil, err
	}
	g.PageRenderer = pr
	return g, nil
}

// Generate renders every matching document plus an index page.
func (g *Generator) Generate(ctx context.Context) (Stats, error) {
	var stats Stats

	rootAbs, err := filepath.Abs(g.rootDir)
	if err != nil {
		return stats, fmt.Errorf("resolving root dir: %w", err)
	}
	outAbs, err := filepath.Abs(g.outputDir)
	if err != nil {
		return stats, fmt.Errorf("resolving output dir: %w", err)
	}
	exclude := g.exclude
	if rel, err := filepath.Rel(rootAbs, outAbs); err == nil && !strings.HasPrefix(rel, "..") && rel != "." {
		// Never pick up our own output when it lives under the root.
		exclude = append(append([]string(nil), exclude...), filepath.ToSlash(rel)+"/**")
	}

	docs, err := walker.Walk(walker.Config{RootDir: rootAbs, Include: g.include, Exclude: exclude})
	if err != nil {
		return stats, err
	}
	if len(docs) == 0 {
		return stats, fmt.Errorf("no markdown files found in %s", g.rootDir)
	}

	contents := make(map[string]string, len(docs))
	titles := make(map[string]string, len(docs))
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		data, err := os.ReadFile(d.Path)
		if err != nil {
			return stats, fmt.Errorf("reading %s: %w", d.RelPath, err)
		}
		contents[d.RelPath] = string(data)
		titles[d.RelPath] = extractTitle(string(data), d.RelPath)
		paths = append(paths, d.RelPath)
	}
	tree := BuildTree(paths, titles)
	navHash := hashStrings(paths)

	if err := os.MkdirAll(outAbs, 0o755); err != nil {
		return stats, err
	}

	g.reporter.Start(len(docs))
	defer g.reporter.Finish()

	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		outPath := filepath.Join(outAbs, filepath.FromSlash(HTMLPath(d.RelPath)))
		fingerprint := d.ContentHash + ":" + navHash

		if g.unchanged(ctx, outPath, fingerprint) {
			stats.Skipped++
			g.reporter.Update(i+1, d.RelPath+" (unchanged)")
			continue
		}

		res, err := g.writePage(ctx, outPath, Page{
			Title:    titles[d.RelPath],
			Markdown: contents[d.RelPath],
			Nav:      tree.ToHTML(d.RelPath),
		})
		if err != nil {
			return stats, fmt.Errorf("rendering %s: %w", d.RelPath, err)
		}
		stats.Rendered++
		stats.Diagrams += res.Rendered
		stats.DiagramErrors += res.Failed
		if res.Failed > 0 {
			g.logger.Warn().Str("file", d.RelPath).Int("failed", res.Failed).Msg("diagrams could not be rendered")
		}
		g.remember(ctx, outPath, fingerprint)
		g.reporter.Update(i+1, d.RelPath)
	}

	index := fmt.Sprintf("# %s\n\n%d documents rendered from `%s`.\n", g.title, tree.Count(), g.rootDir)
	if _, err := g.writePage(ctx, filepath.Join(outAbs, IndexFile), Page{
		Title:    g.title,
		Markdown: index,
		Nav:      tree.ToHTML(IndexFile),
	}); err != nil {
		return stats, fmt.Errorf("rendering index: %w", err)
	}

	g.logger.Info().Int("rendered", stats.Rendered).Int("skipped", stats.Skipped).Str("output", outAbs).Msg("site generated")
	return stats, nil
}

func (g *Generator) writePage(ctx context.Context, outPath string, p Page) (diagrams.Result, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return diagrams.Result{}, err
	}
	var buf bytes.Buffer
	res, err := g.RenderPage(ctx, &buf, p)
	if err != nil {
		return res, err
	}
	return res, os.WriteFile(outPath, buf.Bytes(), 0o644)
}

func (g *Generator) unchanged(ctx context.Context, outPath, fingerprint string) bool {
	if g.force || g.cache == nil {
		return false
	}
	if _, err := os.Stat(outPath); err != nil {
		return false
	}
	prev, ok, err := g.cache.Get(ctx, cacheKey(outPath))
	if err != nil {
		g.logger.Debug().Err(err).Msg("reading render cache")
		return false
	}
	return ok && prev == fingerprint
}

func (g *Generator) remember(ctx context.Context, outPath, fingerprint string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, cacheKey(outPath), fingerprint); err != nil {
		g.logger.Debug().Err(err).Msg("writing render cache")
	}
}

func cacheKey(outPath string) string { return "render:" + outPath }

func hashStrings(items []string) string {
	h := sha256.New()
	for _, s := range items {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// extractTitle pulls the first # heading from markdown content, or falls
// back to the file name.
func extractTitle(content, relPath string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

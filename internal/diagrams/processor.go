package diagrams

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultDebounce = 100 * time.Millisecond
	DefaultRecheck  = 500 * time.Millisecond

	sandboxStyle = "position:absolute;left:-10000px;top:-10000px;visibility:hidden;pointer-events:none"
)

// Timer is the subset of *time.Timer the processor needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// Result counts the placeholders one Process call settled.
type Result struct {
	Rendered int
	Failed   int
}

// Processor renders placeholders through a Renderer.
type Processor struct {
	renderer  Renderer
	logger    zerolog.Logger
	debounce  time.Duration
	recheck   time.Duration
	afterFunc AfterFunc
	onDone    func(Result)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending Timer
	retry   Timer
	closed  bool
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithDelays sets the settle delay used by Notify and the delay of its one
// follow-up scan.
func WithDelays(debounce, recheck time.Duration) ProcessorOption {
	return func(p *Processor) {
		if debounce >= 0 {
			p.debounce = debounce
		}
		if recheck >= 0 {
			p.recheck = recheck
		}
	}
}

// WithAfterFunc replaces time.AfterFunc (tests).
func WithAfterFunc(fn AfterFunc) ProcessorOption {
	return func(p *Processor) { p.afterFunc = fn }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// WithOnDone registers a callback run after each scan Notify triggers that
// settled at least one placeholder. Views use it to redraw.
func WithOnDone(fn func(Result)) ProcessorOption {
	return func(p *Processor) { p.onDone = fn }
}

// NewProcessor creates a Processor.
func NewProcessor(r Renderer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		renderer:  r,
		logger:    zerolog.Nop(),
		debounce:  DefaultDebounce,
		recheck:   DefaultRecheck,
		afterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

type job struct {
	node    *html.Node
	sandbox *html.Node
	source  string
	svg     string
	err     error
}

// Process renders every unprocessed placeholder in tree. Placeholders are
// claimed under the tree lock before rendering starts, so a concurrent call
// never renders the same node twice.
func (p *Processor) Process(ctx context.Context, tree Tree) Result {
	jobs := p.claim(tree)
	if len(jobs) == 0 {
		return Result{}
	}

	for _, j := range jobs {
		if j.source == "" {
			j.err = errors.New("diagram has no source")
			continue
		}
		j.svg, j.err = p.renderer.Render(ctx, j.source)
	}

	tree.Lock()
	defer tree.Unlock()

	var res Result
	for _, j := range jobs {
		if j.err == nil {
			j.err = fillSandbox(j.sandbox, j.svg)
		}
		if j.err == nil {
			removeChildren(j.node)
			for j.sandbox.FirstChild != nil {
				c := j.sandbox.FirstChild
				j.sandbox.RemoveChild(c)
				j.node.AppendChild(c)
			}
			res.Rendered++
		} else {
			p.logger.Warn().Err(j.err).Msg("diagram render failed")
			setAttr(j.node, AttrState, StateErrored)
			removeChildren(j.node)
			j.node.AppendChild(errorPanel(j.source, j.err))
			res.Failed++
		}
		if j.sandbox.Parent != nil {
			j.sandbox.Parent.RemoveChild(j.sandbox)
		}
	}
	return res
}

// claim marks the pending placeholders processed and gives each one an
// off-screen sandbox node.
func (p *Processor) claim(tree Tree) []*job {
	tree.Lock()
	defer tree.Unlock()

	root := tree.Root()
	nodes := Placeholders(root)
	if len(nodes) == 0 {
		return nil
	}
	body := findBody(root)

	jobs := make([]*job, 0, len(nodes))
	for _, n := range nodes {
		source := Normalize(Source(n))
		setAttr(n, AttrState, StateProcessed)
		if source != "" && getAttr(n, AttrSource) == "" {
			setAttr(n, AttrSource, encodeSource(source))
		}

		sandbox := element(atom.Div, "diagram-sandbox")
		sandbox.Attr = append(sandbox.Attr,
			html.Attribute{Key: "id", Val: "diagram-sandbox-" + uuid.NewString()},
			html.Attribute{Key: "aria-hidden", Val: "true"},
			html.Attribute{Key: "style", Val: sandboxStyle},
		)
		body.AppendChild(sandbox)
		jobs = append(jobs, &job{node: n, sandbox: sandbox, source: source})
	}
	return jobs
}

// fillSandbox parses renderer output into the sandbox; output without an
// svg element is an error.
func fillSandbox(sandbox *html.Node, svg string) error {
	nodes, err := html.ParseFragment(strings.NewReader(svg), element(atom.Div, ""))
	if err != nil {
		return fmt.Errorf("parsing rendered diagram: %w", err)
	}
	hasSVG := false
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.Svg {
			hasSVG = true
		}
		if n.Type == html.CommentNode || n.Type == html.DoctypeNode {
			continue
		}
		sandbox.AppendChild(n)
	}
	if !hasSVG {
		removeChildren(sandbox)
		return errors.New("renderer returned no SVG")
	}
	return nil
}

// Notify asks for a scan of tree once insertions settle. Calls within the
// debounce window collapse into one scan, which is followed by a single
// re-check for placeholders inserted late.
func (p *Processor) Notify(tree Tree) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.pending != nil {
		p.pending.Stop()
	}
	p.pending = p.afterFunc(p.debounce, func() {
		p.scan(tree)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return
		}
		if p.retry != nil {
			p.retry.Stop()
		}
		p.retry = p.afterFunc(p.recheck, func() { p.scan(tree) })
	})
}

func (p *Processor) scan(tree Tree) {
	res := p.Process(p.ctx, tree)
	if res.Rendered+res.Failed == 0 {
		return
	}
	p.logger.Debug().Int("rendered", res.Rendered).Int("failed", res.Failed).Msg("diagrams processed")
	if p.onDone != nil {
		p.onDone(res)
	}
}

// Close stops pending scans and cancels renders in flight.
func (p *Processor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.pending != nil {
		p.pending.Stop()
	}
	if p.retry != nil {
		p.retry.Stop()
	}
	p.cancel()
}

func encodeSource(s string) string {
	return url.PathEscape(s)
}

// errorPanel builds the replacement content for a failed diagram.
func errorPanel(source string, err error) *html.Node {
	panel := element(atom.Div, "diagram-error")

	title := element(atom.Div, "diagram-error-title")
	title.AppendChild(text("Diagram could not be rendered"))
	panel.AppendChild(title)

	msg := element(atom.Div, "diagram-error-message")
	msg.AppendChild(text(err.Error()))
	panel.AppendChild(msg)

	if source != "" {
		panel.AppendChild(sourceExcerpt(source, ErrorLine(err)))
	}

	hint := element(atom.Div, "diagram-error-hint")
	hint.AppendChild(text(hintFor(err)))
	panel.AppendChild(hint)
	return panel
}

const excerptContext = 3

// sourceExcerpt lists the source with line numbers. When the failing line
// is known only the lines around it are shown and it is highlighted.
func sourceExcerpt(source string, errLine int) *html.Node {
	lines := strings.Split(source, "\n")
	first, last := 1, len(lines)
	if errLine > 0 && errLine <= len(lines) {
		first = max(1, errLine-excerptContext)
		last = min(len(lines), errLine+excerptContext)
	}

	pre := element(atom.Pre, "diagram-error-source")
	code := element(atom.Code, "")
	pre.AppendChild(code)
	width := len(strconv.Itoa(last))
	for i := first; i <= last; i++ {
		class := "diagram-error-line"
		if i == errLine {
			class += " diagram-error-line-highlight"
		}
		span := element(atom.Span, class)
		span.AppendChild(text(fmt.Sprintf("%*d  %s", width, i, lines[i-1])))
		code.AppendChild(span)
		if i < last {
			code.AppendChild(text("\n"))
		}
	}
	return pre
}

func hintFor(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The renderer timed out. Try splitting the diagram into smaller parts."
	case errors.Is(err, context.Canceled):
		return "Rendering was cancelled. Reload the conversation to try again."
	case strings.Contains(msg, "not found"):
		return "Install mermaid-cli (mmdc) or set diagrams.command in the config file."
	case strings.Contains(msg, "no diagram type"), strings.Contains(msg, "unknowndiagram"):
		return "Start the diagram with its type, for example \"graph TD\" or \"sequenceDiagram\"."
	case strings.Contains(msg, "no source"):
		return "The diagram block is empty."
	case strings.Contains(msg, "parse error"), strings.Contains(msg, "syntax"), strings.Contains(msg, "expecting"):
		return "Check the highlighted line for an unbalanced bracket or a misspelled arrow."
	default:
		return "Check the diagram source for typos."
	}
}

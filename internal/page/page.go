// Package page keeps the chat UI as a live HTML document. It implements
// session.View for the controller and diagrams.Tree for the diagram
// processor, and publishes the #app markup to subscribers after every
// change so the browser can swap it in.
package page

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/ziadkadry99/wisdomizer/internal/diagrams"
	"github.com/ziadkadry99/wisdomizer/internal/format"
)

// Element ids of the skeleton.
const (
	appID          = "app"
	messagesID     = "messages-container"
	sidebarID      = "topics-sidebar"
	topicTitleID   = "current-topic-name"
	filePreviewID  = "file-preview-container"
	toastsID       = "notifications"
	stylesID       = "chroma-css"
	containerIDFmt = "notification-container-%s"
)

// UpdateType says what an Update carries.
type UpdateType string

const (
	UpdateSnapshot UpdateType = "snapshot"
	UpdateRedirect UpdateType = "redirect"
)

// Update is published to subscribers after each change.
type Update struct {
	Type    UpdateType `json:"type"`
	Version uint64     `json:"version"`
	HTML    string     `json:"html,omitempty"`
	Path    string     `json:"path,omitempty"`
}

// Page is the document behind the browser UI.
type Page struct {
	formatter *format.Formatter
	diagrams  *diagrams.Processor
	logger    zerolog.Logger
	now       func() time.Time
	baseURL   string

	mu       sync.Mutex
	doc      *html.Node
	version  uint64
	redirect string
	subs     map[int]func(Update)
	nextSub  int
}

// Option configures a Page.
type Option func(*Page)

// WithFormatter sets the Markdown formatter. The page's stylesheet
// includes its highlighting CSS.
func WithFormatter(f *format.Formatter) Option {
	return func(p *Page) { p.formatter = f }
}

// WithRenderer enables diagram rendering. Placeholders are processed after
// final content is inserted and the page republishes once they settle.
func WithRenderer(r diagrams.Renderer, opts ...diagrams.ProcessorOption) Option {
	return func(p *Page) {
		opts = append(opts, diagrams.WithOnDone(func(diagrams.Result) { p.Refresh() }))
		p.diagrams = diagrams.NewProcessor(r, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Page) { p.logger = l }
}

// WithClock replaces time.Now, used for bubble timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Page) { p.now = now }
}

// WithBaseURL sets the chat server URL that redirect paths are resolved
// against.
func WithBaseURL(u string) Option {
	return func(p *Page) { p.baseURL = strings.TrimRight(u, "/") }
}

// New builds the page skeleton.
func New(opts ...Option) (*Page, error) {
	p := &Page{
		logger: zerolog.Nop(),
		now:    time.Now,
		subs:   make(map[int]func(Update)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.formatter == nil {
		p.formatter = format.New(format.WithLogger(p.logger))
	}

	doc, err := html.Parse(strings.NewReader(skeleton))
	if err != nil {
		return nil, fmt.Errorf("parsing page skeleton: %w", err)
	}
	p.doc = doc
	if styles := p.byID(stylesID); styles != nil {
		setText(styles, p.formatter.CSS())
	}
	return p, nil
}

// Lock and Unlock guard the document. Together with Root they let the
// diagram processor work on the page directly.
func (p *Page) Lock() { p.mu.Lock() }

// Unlock releases the document.
func (p *Page) Unlock() { p.mu.Unlock() }

// Root returns the document node. Callers must hold the lock.
func (p *Page) Root() *html.Node { return p.doc }

// Subscribe registers fn for every Update. The returned func unregisters
// it. fn is called without the page lock held and must not block.
func (p *Page) Subscribe(fn func(Update)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Current returns the latest snapshot, or the pending redirect.
func (p *Page) Current() Update {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.redirect != "" {
		return Update{Type: UpdateRedirect, Version: p.version, Path: p.redirect}
	}
	return p.snapshotLocked()
}

// RedirectURL returns where the browser was sent, if anywhere.
func (p *Page) RedirectURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.redirect
}

// HTML renders the whole document.
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, p.doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Refresh republishes the current snapshot.
func (p *Page) Refresh() {
	p.mutate(func() {})
}

// Process renders pending diagrams synchronously, bypassing the debounce.
func (p *Page) Process(ctx context.Context) diagrams.Result {
	if p.diagrams == nil {
		return diagrams.Result{}
	}
	res := p.diagrams.Process(ctx, p)
	if res.Rendered+res.Failed > 0 {
		p.Refresh()
	}
	return res
}

// Close stops diagram processing.
func (p *Page) Close() {
	if p.diagrams != nil {
		p.diagrams.Close()
	}
}

// mutate applies fn under the lock and publishes the result.
func (p *Page) mutate(fn func()) {
	p.mu.Lock()
	fn()
	p.version++
	u := p.snapshotLocked()
	subs := p.subscribersLocked()
	p.mu.Unlock()

	for _, s := range subs {
		s(u)
	}
}

// settle asks the diagram processor to look at freshly inserted content.
func (p *Page) settle() {
	if p.diagrams != nil {
		p.diagrams.Notify(p)
	}
}

func (p *Page) publish(u Update) {
	p.mu.Lock()
	subs := p.subscribersLocked()
	p.mu.Unlock()
	for _, s := range subs {
		s(u)
	}
}

func (p *Page) subscribersLocked() []func(Update) {
	subs := make([]func(Update), 0, len(p.subs))
	for _, s := range p.subs {
		subs = append(subs, s)
	}
	return subs
}

func (p *Page) snapshotLocked() Update {
	u := Update{Type: UpdateSnapshot, Version: p.version}
	app := p.byID(appID)
	if app == nil {
		return u
	}
	var buf bytes.Buffer
	for c := app.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			p.logger.Error().Err(err).Msg("rendering page snapshot")
			return u
		}
	}
	u.HTML = buf.String()
	return u
}

func (p *Page) byID(id string) *html.Node {
	return find(p.doc, byID(id))
}

// format renders Markdown to sanitized HTML and inserts it into n.
func (p *Page) format(n *html.Node, content string) {
	out := p.formatter.Format(content)
	if err := setHTML(n, out); err != nil {
		p.logger.Warn().Err(err).Msg("inserting formatted content")
		setText(n, content)
	}
}

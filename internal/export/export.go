// Package export writes a topic's chat history as a Markdown transcript or
// a standalone HTML page.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/entities"
	"github.com/ziadkadry99/wisdomizer/internal/site"
)

// Format selects the transcript encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "markdown", "md" and "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use markdown or html)", s)
	}
}

// Ext is the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatHTML {
		return ".html"
	}
	return ".md"
}

// Source loads chat histories. *api.Client implements it.
type Source interface {
	History(ctx context.Context, uuid string) (*api.History, error)
}

// FrontMatter is the YAML header of a Markdown transcript.
type FrontMatter struct {
	Title    string    `yaml:"title"`
	UUID     string    `yaml:"uuid"`
	Created  time.Time `yaml:"created,omitempty"`
	Updated  time.Time `yaml:"updated,omitempty"`
	Messages int       `yaml:"messages"`
	Exported time.Time `yaml:"exported"`
}

// Exporter turns histories into transcripts.
type Exporter struct {
	src   Source
	pages *site.PageRenderer
	now   func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPageRenderer enables HTML export.
func WithPageRenderer(pr *site.PageRenderer) Option {
	return func(e *Exporter) { e.pages = pr }
}

// WithClock replaces time.Now for the exported timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an Exporter reading from src.
func New(src Source, opts ...Option) *Exporter {
	e := &Exporter{src: src, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export fetches the topic uuid and writes it to w. It returns the chat
// title so callers can name the output.
func (e *Exporter) Export(ctx context.Context, uuid string, f Format, w io.Writer) (string, error) {
	h, err := e.src.History(ctx, uuid)
	if err != nil {
		return "", err
	}
	title := Title(h)

	switch f {
	case FormatHTML:
		if e.pages == nil {
			return title, fmt.Errorf("html export needs a page renderer")
		}
		// Diagrams that fail to render keep an error panel in the page.
		_, err := e.pages.RenderPage(ctx, w, site.Page{
			Title:    title,
			Markdown: Body(h),
			Footer:   "Exported " + e.now().Format(time.RFC1123),
		})
		return title, err
	default:
		return title, e.WriteMarkdown(w, h)
	}
}

// WriteMarkdown writes h with a YAML front matter header.
func (e *Exporter) WriteMarkdown(w io.Writer, h *api.History) error {
	fm := FrontMatter{
		Title:    Title(h),
		UUID:     h.Chat.UUID,
		Created:  h.Chat.CreatedAt,
		Updated:  h.Chat.UpdatedAt,
		Messages: len(h.Messages),
		Exported: e.now().UTC(),
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return fmt.Errorf("encoding front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(Body(h))
	_, err = w.Write(buf.Bytes())
	return err
}

// Title is the chat title, or its uuid when untitled.
func Title(h *api.History) string {
	if t := strings.TrimSpace(h.Chat.Title); t != "" {
		return t
	}
	if h.Chat.UUID != "" {
		return "Chat " + h.Chat.UUID
	}
	return "Chat"
}

// Body renders the messages as Markdown sections.
func Body(h *api.History) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", Title(h))
	if d := strings.TrimSpace(h.Chat.Description); d != "" {
		fmt.Fprintf(&b, "\n%s\n", d)
	}
	for _, m := range h.Messages {
		b.WriteString("\n## ")
		b.WriteString(speaker(m.Role))
		if !m.CreatedAt.IsZero() {
			b.WriteString(" · ")
			b.WriteString(m.CreatedAt.Format("Jan 2, 2006 3:04 PM"))
		}
		b.WriteString("\n\n")

		content := strings.TrimSpace(entities.Decode(m.Content))
		if m.Role == api.RoleUser {
			content = quote(content)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String()
}

func speaker(r api.Role) string {
	switch r {
	case api.RoleUser:
		return "You"
	case api.RoleAssistant:
		return "Wisdomizer"
	case api.RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + l
		}
	}
	return strings.Join(lines, "\n")
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// FileName derives an output file name from a chat title.
func FileName(title string, f Format) string {
	slug := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "chat"
	}
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	return slug + f.Ext()
}

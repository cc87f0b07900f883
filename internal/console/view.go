// Package console is the terminal front end: a session.View that prints
// to a writer and a line-editing REPL that drives the controller.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/entities"
	"github.com/ziadkadry99/wisdomizer/internal/notify"
	"github.com/ziadkadry99/wisdomizer/internal/session"
)

const timeLayout = "3:04 PM"

// Terminal prints the session to a writer.
type Terminal struct {
	out      io.Writer
	markdown bool
	width    int
	now      func() time.Time
	logger   zerolog.Logger

	rendererOnce sync.Once
	renderer     *glamour.TermRenderer
	rendererErr  error

	mu         sync.Mutex
	redirected string
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithMarkdown renders finished responses through glamour instead of
// streaming raw text.
func WithMarkdown(enabled bool) TerminalOption {
	return func(t *Terminal) { t.markdown = enabled }
}

// WithWidth sets the word wrap width used for rendered Markdown.
func WithWidth(w int) TerminalOption {
	return func(t *Terminal) {
		if w > 0 {
			t.width = w
		}
	}
}

// WithTerminalClock replaces time.Now.
func WithTerminalClock(now func() time.Time) TerminalOption {
	return func(t *Terminal) { t.now = now }
}

// WithTerminalLogger sets the logger.
func WithTerminalLogger(l zerolog.Logger) TerminalOption {
	return func(t *Terminal) { t.logger = l }
}

// NewTerminal creates a Terminal writing to out.
func NewTerminal(out io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:    out,
		width:  80,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ session.View = (*Terminal)(nil)

// Redirected returns the sign-in URL the session asked for, if any.
func (t *Terminal) Redirected() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.redirected
}

// BindNotifications prints svc's toasts as they are shown.
func (t *Terminal) BindNotifications(svc *notify.Service) func() {
	return svc.Subscribe(func(ev notify.Event) {
		if ev.Type != notify.EventShown {
			return
		}
		kind := notify.NormalizeKind(ev.Toast.Kind)
		style := toastStyles[string(kind)]
		title := ev.Toast.Title
		if title == "" {
			title = notify.TitleFor(kind)
		}
		t.printf("%s %s\n", style.Render(title), ev.Toast.Message)
	})
}

func (t *Terminal) ShowWelcome(text string) {
	t.printf("\n%s %s\n%s\n", assistantStyle.Render("Wisdomizer"), dimStyle.Render("Just now"), t.render(text))
}

func (t *Terminal) ShowLoading() {
	t.printf("%s\n", dimStyle.Render("Loading chat history..."))
}

func (t *Terminal) ClearMessages() {}

func (t *Terminal) AppendMessage(role api.Role, content string) {
	switch role {
	case api.RoleUser:
		t.AppendUser(content, nil)
	case api.RoleAssistant:
		t.printf("\n%s %s\n%s\n", assistantStyle.Render("Wisdomizer"), dimStyle.Render(t.stamp()), t.render(content))
	default:
		t.AppendNotice(content)
	}
}

func (t *Terminal) AppendUser(content string, file *api.File) {
	t.printf("\n%s %s\n%s\n", userStyle.Render("You"), dimStyle.Render(t.stamp()), content)
	if file != nil {
		t.printf("%s\n", fileStyle.Render(fmt.Sprintf("%s (%s)", file.Name, api.FormatSize(file.Size))))
	}
}

func (t *Terminal) AppendNotice(text string) {
	t.printf("%s\n", noticeStyle.Render(text))
}

func (t *Terminal) StartAssistant() session.Bubble {
	t.printf("\n%s %s\n", assistantStyle.Render("Wisdomizer"), dimStyle.Render(t.stamp()))
	if t.markdown {
		t.printf("%s", dimStyle.Render("Typing..."))
	}
	return &bubble{term: t}
}

// RemoveLastAssistant cannot erase printed output; regeneration prints a
// fresh response below.
func (t *Terminal) RemoveLastAssistant() bool {
	t.AppendNotice("Regenerating response...")
	return true
}

func (t *Terminal) RenderTopics(topics []session.Topic, activeID string) {}

// PrintTopics lists topics with 1-based indexes for the REPL commands.
func (t *Terminal) PrintTopics(topics []session.Topic, activeID string) {
	if len(topics) == 0 {
		t.printf("%s\n", dimStyle.Render("No topics yet"))
		return
	}
	for i, tp := range topics {
		line := fmt.Sprintf("%3d. %s", i+1, tp.Title)
		if tp.ID == activeID {
			line = activeStyle.Render(line + " *")
		}
		t.printf("%s %s\n", line, dimStyle.Render(tp.ID))
	}
}

func (t *Terminal) SetAttachment(file *api.File) {
	if file == nil {
		return
	}
	t.printf("%s\n", fileStyle.Render(fmt.Sprintf("Attached %s (%s)", file.Name, api.FormatSize(file.Size))))
}

func (t *Terminal) Redirect(path string) {
	t.mu.Lock()
	t.redirected = path
	t.mu.Unlock()
	t.printf("%s %s\n", errorStyle.Render("Authentication required."), "Sign in at "+path)
}

// Errorf prints a command error.
func (t *Terminal) Errorf(format string, args ...any) {
	t.printf("%s %s\n", errorStyle.Render("Error:"), fmt.Sprintf(format, args...))
}

// Infof prints a dim status line.
func (t *Terminal) Infof(format string, args ...any) {
	t.printf("%s\n", dimStyle.Render(fmt.Sprintf(format, args...)))
}

func (t *Terminal) stamp() string { return t.now().Format(timeLayout) }

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// render formats Markdown for the terminal. It falls back to the decoded
// text when rendering is disabled or fails.
func (t *Terminal) render(content string) string {
	content = entities.Decode(content)
	if !t.markdown {
		return content
	}
	t.rendererOnce.Do(func() {
		t.renderer, t.rendererErr = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(t.width),
		)
	})
	if t.rendererErr != nil {
		t.logger.Warn().Err(t.rendererErr).Msg("creating markdown renderer")
		return content
	}
	out, err := t.renderer.Render(content)
	if err != nil {
		t.logger.Warn().Err(err).Msg("rendering markdown")
		return content
	}
	return strings.Trim(out, "\n")
}

// bubble streams one response. In raw mode each update prints only the
// text that arrived since the last one.
type bubble struct {
	term    *Terminal
	printed int
}

func (b *bubble) Update(content string) {
	if b.term.markdown {
		return
	}
	content = entities.Decode(content)
	if len(content) > b.printed {
		b.term.printf("%s", content[b.printed:])
		b.printed = len(content)
	}
}

func (b *bubble) Finalize(content string) {
	if b.term.markdown {
		b.term.printf("\r\033[K%s\n", b.term.render(content))
		return
	}
	b.Update(content)
	b.term.printf("\n")
}

func (b *bubble) Stop(partial string) {
	if b.term.markdown {
		b.term.printf("\r\033[K")
		if strings.TrimSpace(partial) != "" {
			b.term.printf("%s\n", b.term.render(partial))
		}
	} else {
		b.Update(partial)
		b.term.printf("\n")
	}
	b.term.printf("%s\n", dimStyle.Render("Stopped"))
}

func (b *bubble) Fail(message string) {
	if b.term.markdown {
		b.term.printf("\r\033[K")
	} else if b.printed > 0 {
		b.term.printf("\n")
	}
	b.term.printf("%s\n", errorStyle.Render(message))
}

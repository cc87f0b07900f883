package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/session"
)

const helpText = `Commands:
  /new [title]           start a new topic
  /topics                list topics
  /open <n|uuid>         switch to a topic
  /rename <n|uuid> <t>   rename a topic
  /delete <n|uuid>       delete a topic
  /regen                 regenerate the last response
  /stop                  stop the response being streamed
  /attach <path>         attach a file to the next message
  /detach                drop the pending attachment
  /system [prompt]       show or set the system prompt
  /clear                 clear the conversation
  /help                  show this help
  /quit                  exit
Anything else is sent as a message.`

// errQuit ends the REPL.
var errQuit = errors.New("quit")

// LineReader reads one line of input. *liner.State implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Console is the interactive chat loop.
type Console struct {
	ctrl        *session.Controller
	term        *Terminal
	line        LineReader
	confirm     func(label string) bool
	historyFile string
	logger      zerolog.Logger
}

// Option configures a Console.
type Option func(*Console)

// WithLineReader replaces the liner prompt (tests).
func WithLineReader(r LineReader) Option {
	return func(c *Console) { c.line = r }
}

// WithConfirm replaces the yes/no prompt used before deleting a topic.
func WithConfirm(fn func(label string) bool) Option {
	return func(c *Console) { c.confirm = fn }
}

// WithHistoryFile persists input history between runs.
func WithHistoryFile(path string) Option {
	return func(c *Console) { c.historyFile = path }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Console) { c.logger = l }
}

// New creates a Console driving ctrl and printing through term.
func New(ctrl *session.Controller, term *Terminal, opts ...Option) *Console {
	c := &Console{
		ctrl:    ctrl,
		term:    term,
		confirm: confirmPrompt,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reads commands until /quit, EOF or Ctrl+C at the prompt.
func (c *Console) Run(ctx context.Context) error {
	if c.line == nil {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)
		defer state.Close()
		c.loadHistory(state)
		defer c.saveHistory(state)
		c.line = state
	}

	c.term.Infof("Type /help for commands.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := c.line.Prompt(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		c.line.AppendHistory(input)

		if err := c.Execute(ctx, input); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			c.term.Errorf("%v", err)
		}
		if url := c.term.Redirected(); url != "" {
			return &api.AuthError{RedirectPath: url}
		}
	}
}

// Execute runs one line of input. Messages block until their response
// ends; Ctrl+C while waiting stops the response.
func (c *Console) Execute(ctx context.Context, input string) error {
	if !strings.HasPrefix(input, "/") {
		s, err := c.ctrl.Send(input)
		if err != nil {
			return err
		}
		return c.wait(ctx, s)
	}

	cmd, rest, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "quit", "exit", "q":
		return errQuit
	case "help", "h", "?":
		c.term.printf("%s\n", helpText)
	case "new":
		_, err := c.ctrl.CreateTopic(ctx, rest)
		return err
	case "topics", "ls":
		st := c.ctrl.Snapshot()
		c.term.PrintTopics(st.Topics, st.TopicID)
	case "open":
		t, err := c.topicRef(rest)
		if err != nil {
			return err
		}
		return c.ctrl.SwitchTopic(ctx, t.Title, t.ID)
	case "rename":
		ref, title, _ := strings.Cut(rest, " ")
		t, err := c.topicRef(ref)
		if err != nil {
			return err
		}
		return c.ctrl.RenameTopic(ctx, t.ID, strings.TrimSpace(title))
	case "delete", "rm":
		t, err := c.topicRef(rest)
		if err != nil {
			return err
		}
		if !c.confirm(fmt.Sprintf("Delete %q", t.Title)) {
			return nil
		}
		return c.ctrl.DeleteTopic(ctx, t.ID)
	case "regen", "regenerate":
		s, err := c.ctrl.Regenerate()
		if err != nil {
			return err
		}
		return c.wait(ctx, s)
	case "stop":
		if !c.ctrl.Stop() {
			c.term.Infof("Nothing to stop")
		}
	case "attach":
		if rest == "" {
			return errors.New("usage: /attach <path>")
		}
		f, err := api.LoadFile(rest)
		if err != nil {
			return err
		}
		return c.ctrl.AttachFile(f)
	case "detach":
		c.ctrl.DetachFile()
	case "system":
		if rest == "" {
			if p := c.ctrl.SystemPrompt(); p != "" {
				c.term.Infof("System prompt: %s", p)
			} else {
				c.term.Infof("No system prompt set")
			}
			return nil
		}
		if rest == "-" {
			rest = ""
		}
		return c.ctrl.SetSystemPrompt(ctx, rest)
	case "clear":
		c.ctrl.Clear()
	default:
		return fmt.Errorf("unknown command /%s (try /help)", cmd)
	}
	return nil
}

// wait blocks until s ends. An interrupt stops the stream instead of
// killing the program.
func (c *Console) wait(ctx context.Context, s *session.Stream) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	select {
	case <-s.Done():
	case <-sigCtx.Done():
		c.ctrl.Stop()
		<-s.Done()
	}
	if err := s.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug().Err(err).Uint64("stream", s.ID()).Msg("response ended with error")
	}
	return nil
}

// topicRef resolves a 1-based index from /topics or a topic uuid.
func (c *Console) topicRef(ref string) (session.Topic, error) {
	if ref == "" {
		return session.Topic{}, errors.New("missing topic number or id")
	}
	topics := c.ctrl.Snapshot().Topics
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(topics) {
			return session.Topic{}, fmt.Errorf("no topic number %d", n)
		}
		return topics[n-1], nil
	}
	for _, t := range topics {
		if t.ID == ref {
			return t, nil
		}
	}
	return session.Topic{}, fmt.Errorf("no topic %q", ref)
}

func (c *Console) loadHistory(state *liner.State) {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		if _, err := state.ReadHistory(f); err != nil {
			c.logger.Debug().Err(err).Msg("reading input history")
		}
		f.Close()
	}
}

func (c *Console) saveHistory(state *liner.State) {
	if c.historyFile == "" {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		c.logger.Debug().Err(err).Msg("saving input history")
		return
	}
	defer f.Close()
	if _, err := state.WriteHistory(f); err != nil {
		c.logger.Debug().Err(err).Msg("saving input history")
	}
}

func confirmPrompt(label string) bool {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	return err == nil
}

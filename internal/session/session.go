// Package session owns the chat UI state: the current topic, the sidebar
// topic list, the single active response stream and topic history loads.
//
// Views (the live HTML page and the terminal) implement View and receive
// every change through it. All state changes are serialized by the
// controller's mutex and view methods are called while it is held.
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/notify"
)

const (
	DefaultTopic        = "Getting started with Wisdomizer"
	WelcomeMessage      = "Hello! I'm Wisdomizer, your personal AI assistant. How can I help you today?"
	EmptyResponse       = "Sorry, I couldn't generate a response. Please try again."
	NewTopicDescription = "New chat topic"

	// MaxMessageLength is the composer limit, in characters.
	MaxMessageLength = 4000
)

var (
	ErrEmptyMessage        = errors.New("message is empty")
	ErrMessageTooLong      = errors.New("message is longer than 4000 characters")
	ErrNothingToRegenerate = errors.New("nothing to regenerate")
	ErrEmptyTitle          = errors.New("topic title is empty")
	ErrNoFile              = errors.New("no file to attach")
)

// Backend is the chat server. *api.Client implements it.
type Backend interface {
	Chat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)
	CreateTopic(ctx context.Context, title, description string) (*api.Topic, error)
	RenameTopic(ctx context.Context, uuid, title string) (*api.Topic, error)
	DeleteTopic(ctx context.Context, uuid string) error
	History(ctx context.Context, uuid string) (*api.History, error)
}

// Notifier shows toasts. *notify.Service implements it.
type Notifier interface {
	Send(message string, kind notify.Kind) notify.Toast
}

// PromptStore persists the system prompt. *prefs.Store implements it.
type PromptStore interface {
	SystemPrompt(ctx context.Context) (string, error)
	SetSystemPrompt(ctx context.Context, prompt string) error
}

// Topic is a sidebar entry.
type Topic struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// View renders the session.
type View interface {
	// ShowWelcome replaces the messages with the welcome bubble.
	ShowWelcome(text string)
	// ShowLoading replaces the messages with the history loading placeholder.
	ShowLoading()
	ClearMessages()
	// AppendMessage adds a finalized bubble, as replayed from history.
	AppendMessage(role api.Role, content string)
	AppendUser(content string, file *api.File)
	AppendNotice(text string)
	// StartAssistant adds an assistant bubble in the typing state.
	StartAssistant() Bubble
	RemoveLastAssistant() bool
	RenderTopics(topics []Topic, activeID string)
	SetAttachment(file *api.File)
	Redirect(path string)
}

// Bubble is one assistant message being streamed.
type Bubble interface {
	// Update shows the content received so far.
	Update(content string)
	// Finalize shows the complete response.
	Finalize(content string)
	// Stop ends an aborted response, keeping what arrived.
	Stop(partial string)
	// Fail replaces the bubble with an error message.
	Fail(message string)
}

// State is a snapshot of the controller.
type State struct {
	TopicName       string    `json:"topic_name"`
	TopicID         string    `json:"topic_id"`
	LastUserMessage string    `json:"last_user_message"`
	Phase           Phase     `json:"phase"`
	Streaming       bool      `json:"streaming"`
	LoadToken       uint64    `json:"load_token"`
	Attachment      *api.File `json:"-"`
	SystemPrompt    string    `json:"system_prompt"`
	Topics          []Topic   `json:"topics"`
}

// Controller is the session state machine.
type Controller struct {
	backend  Backend
	view     View
	notifier Notifier
	prompts  PromptStore
	logger   zerolog.Logger
	now      func() time.Time
	ctx      context.Context

	mu              sync.Mutex
	topicName       string
	topicID         string
	lastUserMessage string
	systemPrompt    string
	attachment      *api.File
	topics          []Topic

	stream     *Stream
	lastStream *Stream
	nextStream uint64

	loadToken  uint64
	loadCancel context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets where failures and confirmations are reported.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithPromptStore enables the persisted system prompt.
func WithPromptStore(s PromptStore) Option {
	return func(c *Controller) { c.prompts = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock replaces time.Now, used for generated topic titles.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithContext sets the parent context of response streams. Cancelling it
// aborts any stream in flight.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

// New creates a Controller on the default topic and shows the welcome
// message. A saved system prompt is restored.
func New(backend Backend, view View, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		view:      view,
		notifier:  discardNotifier{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		ctx:       context.Background(),
		topicName: DefaultTopic,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.prompts != nil {
		prompt, err := c.prompts.SystemPrompt(c.ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("restoring system prompt")
		}
		c.systemPrompt = prompt
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.ShowWelcome(WelcomeMessage)
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		TopicName:       c.topicName,
		TopicID:         c.topicID,
		LastUserMessage: c.lastUserMessage,
		Phase:           PhaseIdle,
		Streaming:       c.stream != nil,
		LoadToken:       c.loadToken,
		Attachment:      c.attachment,
		SystemPrompt:    c.systemPrompt,
		Topics:          append([]Topic(nil), c.topics...),
	}
	if c.lastStream != nil {
		st.Phase = c.lastStream.Phase()
	}
	return st
}

// Seed replaces the sidebar with topics fetched from the server.
func (c *Controller) Seed(topics []api.Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.topics = c.topics[:0]
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if t.UUID == "" || seen[t.UUID] {
			continue
		}
		seen[t.UUID] = true
		c.topics = append(c.topics, Topic{ID: t.UUID, Title: t.Title})
	}
	c.view.RenderTopics(c.topicsCopyLocked(), c.topicID)
}

// Clear aborts any stream and empties the conversation view.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortStreamLocked()
	c.view.ShowWelcome(WelcomeMessage)
}

// AttachFile sets the attachment sent with the next message.
func (c *Controller) AttachFile(f *api.File) error {
	if f == nil {
		return ErrNoFile
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachment = f
	c.view.SetAttachment(f)
	return nil
}

// DetachFile drops the pending attachment.
func (c *Controller) DetachFile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attachment == nil {
		return
	}
	c.attachment = nil
	c.view.SetAttachment(nil)
}

// SetSystemPrompt changes the prompt sent with every request and saves it.
func (c *Controller) SetSystemPrompt(ctx context.Context, prompt string) error {
	if c.prompts != nil {
		if err := c.prompts.SetSystemPrompt(ctx, prompt); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.systemPrompt = prompt
	c.mu.Unlock()
	return nil
}

// SystemPrompt returns the prompt sent with every request.
func (c *Controller) SystemPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.systemPrompt
}

func (c *Controller) topicsCopyLocked() []Topic {
	return append([]Topic(nil), c.topics...)
}

func (c *Controller) notifyLocked(message string, kind notify.Kind) {
	c.notifier.Send(message, kind)
}

// redirectIfUnauthorized sends the view to the sign-in page for 403s.
func (c *Controller) redirectIfUnauthorized(err error) bool {
	var authErr *api.AuthError
	if errors.As(err, &authErr) {
		c.logger.Info().Str("path", authErr.RedirectPath).Msg("authentication required, redirecting")
		c.view.Redirect(authErr.RedirectPath)
		return true
	}
	return false
}

type discardNotifier struct{}

func (discardNotifier) Send(message string, kind notify.Kind) notify.Toast {
	return notify.Toast{Message: message, Kind: kind}
}

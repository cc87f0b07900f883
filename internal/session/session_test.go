package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/notify"
)

// fakeBackend answers from function fields; nil fields succeed trivially.
type fakeBackend struct {
	mu       sync.Mutex
	requests []api.ChatRequest

	chat    func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)
	history func(ctx context.Context, id string) (*api.History, error)
	create  func(title, description string) (*api.Topic, error)
	rename  func(id, title string) (*api.Topic, error)
	remove  func(id string) error
}

func (b *fakeBackend) Chat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	if b.chat != nil {
		return b.chat(ctx, req)
	}
	return sse("|DONE|"), nil
}

func (b *fakeBackend) History(ctx context.Context, id string) (*api.History, error) {
	if b.history != nil {
		return b.history(ctx, id)
	}
	return &api.History{}, nil
}

func (b *fakeBackend) CreateTopic(_ context.Context, title, description string) (*api.Topic, error) {
	if b.create != nil {
		return b.create(title, description)
	}
	return &api.Topic{UUID: "new-" + title, Title: title}, nil
}

func (b *fakeBackend) RenameTopic(_ context.Context, id, title string) (*api.Topic, error) {
	if b.rename != nil {
		return b.rename(id, title)
	}
	return &api.Topic{UUID: id, Title: title}, nil
}

func (b *fakeBackend) DeleteTopic(_ context.Context, id string) error {
	if b.remove != nil {
		return b.remove(id)
	}
	return nil
}

func (b *fakeBackend) lastRequest() api.ChatRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

// sse builds a stream body from chunks.
func sse(chunks ...string) io.ReadCloser {
	var b strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&b, "data: {\"content\":%q}\n\n", c)
	}
	return io.NopCloser(strings.NewReader(b.String()))
}

// ctxBody blocks reads until its context is cancelled.
type ctxBody struct{ ctx context.Context }

func (b ctxBody) Read([]byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b ctxBody) Close() error { return nil }

type recordedBubble struct {
	mu      sync.Mutex
	updates []string
	final   string
	stopped bool
	failed  string
}

func (b *recordedBubble) Update(content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, content)
}

func (b *recordedBubble) Finalize(content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.final = content
}

func (b *recordedBubble) Stop(partial string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	b.final = partial
}

func (b *recordedBubble) Fail(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = message
}

func (b *recordedBubble) snapshot() (final, failed string, stopped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.final, b.failed, b.stopped
}

type recordingView struct {
	mu         sync.Mutex
	messages   []string
	bubbles    []*recordedBubble
	topics     []Topic
	active     string
	attachment *api.File
	redirect   string
}

func (v *recordingView) ShowWelcome(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = []string{"welcome"}
}

func (v *recordingView) ShowLoading() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = []string{"loading"}
}

func (v *recordingView) ClearMessages() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = nil
}

func (v *recordingView) AppendMessage(role api.Role, content string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, string(role)+":"+content)
}

func (v *recordingView) AppendUser(content string, file *api.File) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, "user:"+content)
}

func (v *recordingView) AppendNotice(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, "notice:"+text)
}

func (v *recordingView) StartAssistant() Bubble {
	v.mu.Lock()
	defer v.mu.Unlock()
	b := &recordedBubble{}
	v.bubbles = append(v.bubbles, b)
	v.messages = append(v.messages, "assistant:typing")
	return b
}

func (v *recordingView) RemoveLastAssistant() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := len(v.messages) - 1; i >= 0; i-- {
		if strings.HasPrefix(v.messages[i], "assistant:") {
			v.messages = append(v.messages[:i], v.messages[i+1:]...)
			return true
		}
	}
	return false
}

func (v *recordingView) RenderTopics(topics []Topic, activeID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.topics = topics
	v.active = activeID
}

func (v *recordingView) SetAttachment(file *api.File) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attachment = file
}

func (v *recordingView) Redirect(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.redirect = path
}

func (v *recordingView) lines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.messages...)
}

func (v *recordingView) bubble(i int) *recordedBubble {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bubbles[i]
}

type recordingNotifier struct {
	mu    sync.Mutex
	toast []string
}

func (n *recordingNotifier) Send(message string, kind notify.Kind) notify.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toast = append(n.toast, string(kind)+":"+message)
	return notify.Toast{Message: message, Kind: kind}
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.toast...)
}

func setup(t *testing.T, backend *fakeBackend) (*Controller, *recordingView, *recordingNotifier) {
	t.Helper()
	view := &recordingView{}
	notes := &recordingNotifier{}
	c := New(backend, view, WithNotifier(notes))
	return c, view, notes
}

func waitStream(t *testing.T, s *Stream) error {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish")
	}
	return s.Wait()
}

func TestInitialState(t *testing.T) {
	c, view, _ := setup(t, &fakeBackend{})
	st := c.Snapshot()
	if st.TopicName != DefaultTopic || st.TopicID != "" || st.Streaming || st.Phase != PhaseIdle {
		t.Errorf("initial state = %+v", st)
	}
	if got := view.lines(); len(got) != 1 || got[0] != "welcome" {
		t.Errorf("view = %v", got)
	}
}

func TestSendRejectsInvalidMessages(t *testing.T) {
	backend := &fakeBackend{}
	c, view, _ := setup(t, backend)

	if _, err := c.Send("   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank message: %v", err)
	}
	if _, err := c.Send(strings.Repeat("é", MaxMessageLength+1)); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("long message: %v", err)
	}
	if _, err := c.Send(strings.Repeat("é", MaxMessageLength)); err != nil {
		t.Errorf("message at the limit: %v", err)
	}
	if got := view.lines(); got[0] != "welcome" || len(got) != 3 {
		t.Errorf("view = %v", got)
	}
}

func TestSendStreamsUntilSentinel(t *testing.T) {
	backend := &fakeBackend{
		chat: func(context.Context, api.ChatRequest) (io.ReadCloser, error) {
			return sse("Hel", "lo", "|DONE|", "ignored"), nil
		},
	}
	c, view, _ := setup(t, backend)

	s, err := c.Send("hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := waitStream(t, s); err != nil {
		t.Fatalf("stream error: %v", err)
	}

	final, failed, _ := view.bubble(0).snapshot()
	if final != "Hello" || failed != "" {
		t.Errorf("bubble final = %q failed = %q", final, failed)
	}
	if s.Phase() != PhaseComplete {
		t.Errorf("phase = %v", s.Phase())
	}
	st := c.Snapshot()
	if st.Streaming || c.Active() != nil {
		t.Error("completed stream left an active handle")
	}
	if st.LastUserMessage != "hi" || st.Phase != PhaseComplete {
		t.Errorf("state = %+v", st)
	}

	req := backend.lastRequest()
	if req.Message != "hi" || req.Topic != DefaultTopic || req.ChatUUID != nil {
		t.Errorf("request = %+v", req)
	}
}

func TestSendEmptyResponse(t *testing.T) {
	backend := &fakeBackend{
		chat: func(context.Context, api.ChatRequest) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("")), nil
		},
	}
	c, view, _ := setup(t, backend)
	s, _ := c.Send("hi")
	waitStream(t, s)

	if final, _, _ := view.bubble(0).snapshot(); final != EmptyResponse {
		t.Errorf("final = %q", final)
	}
}

func TestNewSendAbortsPreviousStream(t *testing.T) {
	backend := &fakeBackend{
		chat: func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
			if req.Message == "one" {
				return ctxBody{ctx}, nil
			}
			return sse("second"), nil
		},
	}
	c, view, _ := setup(t, backend)

	first, _ := c.Send("one")
	second, _ := c.Send("two")

	if err := waitStream(t, first); !errors.Is(err, context.Canceled) {
		t.Errorf("first stream error = %v", err)
	}
	if first.Phase() != PhaseAborted {
		t.Errorf("first phase = %v", first.Phase())
	}
	if _, _, stopped := view.bubble(0).snapshot(); !stopped {
		t.Error("aborted bubble not stopped")
	}
	if err := waitStream(t, second); err != nil {
		t.Errorf("second stream: %v", err)
	}
	if final, _, _ := view.bubble(1).snapshot(); final != "second" {
		t.Errorf("second bubble = %q", final)
	}
}

func TestStop(t *testing.T) {
	backend := &fakeBackend{
		chat: func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
			return ctxBody{ctx}, nil
		},
	}
	c, _, notes := setup(t, backend)

	s, _ := c.Send("hi")
	if !c.Stop() {
		t.Fatal("Stop reported no active stream")
	}
	waitStream(t, s)
	if s.Phase() != PhaseAborted {
		t.Errorf("phase = %v", s.Phase())
	}
	if c.Stop() {
		t.Error("second Stop found a stream")
	}
	if got := notes.all(); len(got) != 0 {
		t.Errorf("abort raised notifications: %v", got)
	}
}

func TestStreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		chat   func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)
		bubble string
		toast  string
	}{
		{
			name: "request failure",
			chat: func(context.Context, api.ChatRequest) (io.ReadCloser, error) {
				return nil, errors.New("connection refused")
			},
			bubble: "Sorry, there was an error communicating with the server: connection refused",
			toast:  "error:Error communicating with server",
		},
		{
			name: "server error event",
			chat: func(context.Context, api.ChatRequest) (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader("data: {\"content\":\"par\"}\n\ndata: {\"error\":\"model overloaded\"}\n\n")), nil
			},
			bubble: "Sorry, an error occurred: model overloaded",
			toast:  "error:model overloaded",
		},
		{
			name: "read failure",
			chat: func(context.Context, api.ChatRequest) (io.ReadCloser, error) {
				return io.NopCloser(io.MultiReader(strings.NewReader("data: {\"content\":\"a\"}\n"), failingReader{})), nil
			},
			bubble: "Sorry, an error occurred while reading the response: connection reset",
			toast:  "error:Error reading response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, view, notes := setup(t, &fakeBackend{chat: tt.chat})
			s, _ := c.Send("hi")
			if err := waitStream(t, s); err == nil {
				t.Fatal("expected stream error")
			}
			if s.Phase() != PhaseErrored {
				t.Errorf("phase = %v", s.Phase())
			}
			if _, failed, _ := view.bubble(0).snapshot(); failed != tt.bubble {
				t.Errorf("bubble = %q, want %q", failed, tt.bubble)
			}
			if got := notes.all(); len(got) != 1 || got[0] != tt.toast {
				t.Errorf("notifications = %v", got)
			}
			if c.Active() != nil {
				t.Error("errored stream left an active handle")
			}
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestForbiddenRedirects(t *testing.T) {
	backend := &fakeBackend{
		chat: func(context.Context, api.ChatRequest) (io.ReadCloser, error) {
			return nil, &api.AuthError{RedirectPath: api.DefaultSignInPath}
		},
	}
	c, view, notes := setup(t, backend)
	s, _ := c.Send("hi")
	err := waitStream(t, s)
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Errorf("err = %v", err)
	}
	view.mu.Lock()
	redirect := view.redirect
	view.mu.Unlock()
	if redirect != "/auth/signin" {
		t.Errorf("redirect = %q", redirect)
	}
	if got := notes.all(); len(got) != 0 {
		t.Errorf("notifications = %v", got)
	}
}

func TestSendIncludesTopicAttachmentAndPrompt(t *testing.T) {
	backend := &fakeBackend{}
	c, view, _ := setup(t, backend)
	c.SetSystemPrompt(context.Background(), "Be brief.")

	if _, err := c.CreateTopic(context.Background(), "Trips"); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	file := &api.File{Name: "a.txt", Content: "YQ==", Type: "text/plain", Size: 1}
	c.AttachFile(file)

	s, _ := c.Send("plan it")
	waitStream(t, s)

	req := backend.lastRequest()
	if req.ChatUUID == nil || *req.ChatUUID != "new-Trips" || req.Topic != "Trips" {
		t.Errorf("request topic = %q / %v", req.Topic, req.ChatUUID)
	}
	if req.File != file || req.System != "Be brief." {
		t.Errorf("request = %+v", req)
	}
	if c.Snapshot().Attachment != nil || view.attachment != nil {
		t.Error("attachment not cleared after send")
	}
}

func TestRegenerate(t *testing.T) {
	backend := &fakeBackend{}
	c, view, notes := setup(t, backend)

	if _, err := c.Regenerate(); !errors.Is(err, ErrNothingToRegenerate) {
		t.Fatalf("err = %v", err)
	}
	if got := notes.all(); len(got) != 1 || got[0] != "warning:Nothing to regenerate" {
		t.Errorf("notifications = %v", got)
	}

	s, _ := c.Send("again?")
	waitStream(t, s)
	s, err := c.Regenerate()
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	waitStream(t, s)

	want := []string{"welcome", "user:again?", "assistant:typing"}
	if got := view.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("view = %v, want %v", got, want)
	}
	if backend.lastRequest().Message != "again?" {
		t.Errorf("regenerated message = %q", backend.lastRequest().Message)
	}
}

func TestSwitchTopicReplaysHistory(t *testing.T) {
	backend := &fakeBackend{
		history: func(_ context.Context, id string) (*api.History, error) {
			return &api.History{Messages: []api.Message{
				{Role: api.RoleUser, Content: "q1"},
				{Role: api.RoleAssistant, Content: "a1"},
				{Role: "tool", Content: "skip"},
				{Role: api.RoleUser, Content: "q2"},
			}}, nil
		},
	}
	c, view, _ := setup(t, backend)

	if err := c.SwitchTopic(context.Background(), "Trips", "t-1"); err != nil {
		t.Fatalf("SwitchTopic: %v", err)
	}
	want := []string{"user:q1", "assistant:a1", "user:q2", "notice:Switched to topic: Trips"}
	if got := view.lines(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("view = %v, want %v", got, want)
	}
	st := c.Snapshot()
	if st.TopicID != "t-1" || st.TopicName != "Trips" || st.LastUserMessage != "q2" {
		t.Errorf("state = %+v", st)
	}
}

func TestSwitchTopicEmptyHistoryShowsWelcome(t *testing.T) {
	c, view, _ := setup(t, &fakeBackend{})
	c.SwitchTopic(context.Background(), "Empty", "t-0")
	if got := view.lines(); len(got) != 1 || got[0] != "welcome" {
		t.Errorf("view = %v", got)
	}
}

// lateBody yields first, then waits for cancellation and yields late.
type lateBody struct {
	ctx         context.Context
	first, late string
	step        int
}

func (b *lateBody) Read(p []byte) (int, error) {
	b.step++
	switch b.step {
	case 1:
		return copy(p, fmt.Sprintf("data: {\"content\":%q}\n\n", b.first)), nil
	case 2:
		<-b.ctx.Done()
		return copy(p, fmt.Sprintf("data: {\"content\":%q}\n\n", b.late)), nil
	}
	return 0, io.EOF
}

func (b *lateBody) Close() error { return nil }

func TestStopKeepsOnlyDisplayedText(t *testing.T) {
	backend := &fakeBackend{
		chat: func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
			return &lateBody{ctx: ctx, first: "shown", late: " unseen"}, nil
		},
	}
	c, view, _ := setup(t, backend)

	s, _ := c.Send("hi")
	deadline := time.Now().Add(5 * time.Second)
	for s.Content() != "shown" {
		if time.Now().After(deadline) {
			t.Fatal("first chunk never displayed")
		}
		time.Sleep(time.Millisecond)
	}
	c.Stop()

	if err := waitStream(t, s); !errors.Is(err, context.Canceled) {
		t.Errorf("stream error = %v", err)
	}
	final, _, stopped := view.bubble(0).snapshot()
	if !stopped || final != "shown" {
		t.Errorf("bubble stopped=%v with %q", stopped, final)
	}
	if got := s.Content(); got != "shown" {
		t.Errorf("stream content = %q", got)
	}
}

func TestStaleTopicLoadIsDropped(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{
		history: func(ctx context.Context, id string) (*api.History, error) {
			if id == "slow" {
				<-release
				// The load ignores cancellation and answers late.
				return &api.History{Messages: []api.Message{{Role: api.RoleUser, Content: "stale"}}}, nil
			}
			return &api.History{Messages: []api.Message{{Role: api.RoleUser, Content: "fresh"}}}, nil
		},
	}
	c, view, notes := setup(t, backend)

	done := make(chan error, 1)
	go func() { done <- c.SwitchTopic(context.Background(), "Slow", "slow") }()

	// Wait until the slow load has started.
	deadline := time.Now().Add(5 * time.Second)
	for c.Snapshot().TopicID != "slow" {
		if time.Now().After(deadline) {
			t.Fatal("slow load never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := c.SwitchTopic(context.Background(), "Fast", "fast"); err != nil {
		t.Fatalf("SwitchTopic: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("stale load returned %v", err)
	}

	for _, line := range view.lines() {
		if strings.Contains(line, "stale") {
			t.Errorf("stale history rendered: %v", view.lines())
		}
	}
	if st := c.Snapshot(); st.TopicID != "fast" || st.LastUserMessage != "fresh" {
		t.Errorf("state = %+v", st)
	}
	if got := notes.all(); len(got) != 0 {
		t.Errorf("notifications = %v", got)
	}
}

func TestSwitchTopicFailure(t *testing.T) {
	backend := &fakeBackend{
		history: func(context.Context, string) (*api.History, error) {
			return nil, &api.StatusError{Code: 500, Status: "500 Internal Server Error"}
		},
	}
	c, view, notes := setup(t, backend)
	if err := c.SwitchTopic(context.Background(), "Broken", "b"); err == nil {
		t.Fatal("expected error")
	}
	if got := view.lines(); len(got) != 1 || got[0] != "welcome" {
		t.Errorf("view = %v", got)
	}
	if got := notes.all(); len(got) != 1 || got[0] != "error:Failed to load chat history" {
		t.Errorf("notifications = %v", got)
	}
}

func TestSwitchTopicAbortsStream(t *testing.T) {
	backend := &fakeBackend{
		chat: func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
			return ctxBody{ctx}, nil
		},
	}
	c, _, _ := setup(t, backend)
	s, _ := c.Send("hi")
	c.SwitchTopic(context.Background(), "Other", "o")
	waitStream(t, s)
	if s.Phase() != PhaseAborted {
		t.Errorf("phase = %v", s.Phase())
	}
}

func TestSendDuringTopicLoadIsAborted(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{
		chat: func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
			return ctxBody{ctx}, nil
		},
		history: func(ctx context.Context, id string) (*api.History, error) {
			<-release
			return &api.History{Messages: []api.Message{{Role: api.RoleUser, Content: "earlier"}}}, nil
		},
	}
	c, view, _ := setup(t, backend)

	done := make(chan error, 1)
	go func() { done <- c.SwitchTopic(context.Background(), "Slow", "slow") }()
	deadline := time.Now().Add(5 * time.Second)
	for c.Snapshot().TopicID != "slow" {
		if time.Now().After(deadline) {
			t.Fatal("load never started")
		}
		time.Sleep(time.Millisecond)
	}

	s, err := c.Send("while loading")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("SwitchTopic: %v", err)
	}

	if err := waitStream(t, s); !errors.Is(err, context.Canceled) {
		t.Errorf("stream error = %v", err)
	}
	if s.Phase() != PhaseAborted {
		t.Errorf("phase = %v", s.Phase())
	}
	if c.Stop() {
		t.Error("stream still active after history replaced the view")
	}
	if _, _, stopped := view.bubble(0).snapshot(); !stopped {
		t.Error("bubble not stopped")
	}
}

func TestCreateTopic(t *testing.T) {
	var gotDescription string
	backend := &fakeBackend{
		create: func(title, description string) (*api.Topic, error) {
			gotDescription = description
			return &api.Topic{UUID: "u-9", Title: title}, nil
		},
	}
	c, view, _ := setup(t, backend)
	c.Seed([]api.Topic{{UUID: "old", Title: "Old"}})
	c.now = func() time.Time { return time.Date(2026, 10, 17, 15, 4, 5, 0, time.UTC) }

	topic, err := c.CreateTopic(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	if topic.Title != "New Chat 10-17-2026, 3-04-05 PM" {
		t.Errorf("title = %q", topic.Title)
	}
	if gotDescription != NewTopicDescription {
		t.Errorf("description = %q", gotDescription)
	}
	st := c.Snapshot()
	if st.TopicID != "u-9" || len(st.Topics) != 2 || st.Topics[0].ID != "u-9" {
		t.Errorf("state = %+v", st)
	}
	if view.active != "u-9" {
		t.Errorf("active sidebar entry = %q", view.active)
	}
}

func TestCreateTopicFailure(t *testing.T) {
	backend := &fakeBackend{
		create: func(string, string) (*api.Topic, error) { return nil, errors.New("boom") },
	}
	c, _, notes := setup(t, backend)
	if _, err := c.CreateTopic(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if got := notes.all(); len(got) != 1 || got[0] != "error:Failed to create new topic" {
		t.Errorf("notifications = %v", got)
	}
	if c.Snapshot().TopicName != DefaultTopic {
		t.Error("failed create changed the current topic")
	}
}

func TestRenameTopicUpdatesCurrentTitle(t *testing.T) {
	c, view, notes := setup(t, &fakeBackend{})
	c.Seed([]api.Topic{{UUID: "a", Title: "Alpha"}, {UUID: "b", Title: "Beta"}})
	c.SwitchTopic(context.Background(), "Alpha", "a")

	if err := c.RenameTopic(context.Background(), "a", "  "); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("empty title: %v", err)
	}
	if err := c.RenameTopic(context.Background(), "a", "Apex"); err != nil {
		t.Fatalf("RenameTopic: %v", err)
	}
	if st := c.Snapshot(); st.TopicName != "Apex" || st.Topics[0].Title != "Apex" {
		t.Errorf("state = %+v", st)
	}
	if view.topics[0].Title != "Apex" {
		t.Errorf("sidebar = %+v", view.topics)
	}
	if got := notes.all(); got[len(got)-1] != `success:Topic renamed to "Apex"` {
		t.Errorf("notifications = %v", got)
	}
}

func TestDeleteCurrentTopicFallsBackToDefault(t *testing.T) {
	c, view, notes := setup(t, &fakeBackend{})
	c.Seed([]api.Topic{{UUID: "a", Title: "Alpha"}, {UUID: "b", Title: "Beta"}})
	c.SwitchTopic(context.Background(), "Alpha", "a")
	s, _ := c.Send("hello")
	waitStream(t, s)

	if err := c.DeleteTopic(context.Background(), "a"); err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}
	st := c.Snapshot()
	if st.TopicName != DefaultTopic || st.TopicID != "" || st.LastUserMessage != "" {
		t.Errorf("state = %+v", st)
	}
	if got := view.lines(); len(got) != 1 || got[0] != "welcome" {
		t.Errorf("messages = %v", got)
	}
	if len(st.Topics) != 1 || st.Topics[0].ID != "b" {
		t.Errorf("topics = %+v", st.Topics)
	}
	if got := notes.all(); got[len(got)-1] != "info:Topic deleted" {
		t.Errorf("notifications = %v", got)
	}
}

func TestDeleteFailureRestoresSidebar(t *testing.T) {
	backend := &fakeBackend{remove: func(string) error { return errors.New("nope") }}
	c, view, notes := setup(t, backend)
	c.Seed([]api.Topic{{UUID: "a", Title: "Alpha"}, {UUID: "b", Title: "Beta"}, {UUID: "c", Title: "Gamma"}})
	c.SwitchTopic(context.Background(), "Beta", "b")

	if err := c.DeleteTopic(context.Background(), "b"); err == nil {
		t.Fatal("expected error")
	}
	st := c.Snapshot()
	if len(st.Topics) != 3 || st.Topics[1].ID != "b" {
		t.Errorf("topics = %+v", st.Topics)
	}
	if st.TopicID != "" || st.TopicName != DefaultTopic {
		t.Errorf("state = %+v", st)
	}
	if len(view.topics) != 3 {
		t.Errorf("sidebar = %+v", view.topics)
	}
	if got := notes.all(); got[len(got)-1] != "error:Failed to delete topic" {
		t.Errorf("notifications = %v", got)
	}
}

func TestClearAndAttachments(t *testing.T) {
	c, view, _ := setup(t, &fakeBackend{})
	if err := c.AttachFile(nil); !errors.Is(err, ErrNoFile) {
		t.Errorf("AttachFile(nil) = %v", err)
	}
	c.AttachFile(&api.File{Name: "x"})
	c.DetachFile()
	if c.Snapshot().Attachment != nil || view.attachment != nil {
		t.Error("attachment not removed")
	}

	s, _ := c.Send("hi")
	waitStream(t, s)
	c.Clear()
	if got := view.lines(); len(got) != 1 || got[0] != "welcome" {
		t.Errorf("view after clear = %v", got)
	}
}

type memPrompts struct{ prompt string }

func (m *memPrompts) SystemPrompt(context.Context) (string, error) { return m.prompt, nil }

func (m *memPrompts) SetSystemPrompt(_ context.Context, p string) error {
	m.prompt = p
	return nil
}

func TestSystemPromptRestored(t *testing.T) {
	store := &memPrompts{prompt: "Speak like a pirate."}
	c := New(&fakeBackend{}, &recordingView{}, WithPromptStore(store))
	if c.SystemPrompt() != "Speak like a pirate." {
		t.Errorf("prompt = %q", c.SystemPrompt())
	}
	c.SetSystemPrompt(context.Background(), "Plain.")
	if store.prompt != "Plain." {
		t.Errorf("stored prompt = %q", store.prompt)
	}
}

func TestPhaseNames(t *testing.T) {
	if PhaseStreaming.String() != "streaming" || Phase(42).String() != "unknown" {
		t.Error("unexpected phase names")
	}
	if !PhaseAborted.Terminal() || PhaseSending.Terminal() {
		t.Error("unexpected terminal phases")
	}
}

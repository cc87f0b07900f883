package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/notify"
	"github.com/ziadkadry99/wisdomizer/internal/page"
	"github.com/ziadkadry99/wisdomizer/internal/session"
)

type fakeBackend struct{}

func (fakeBackend) Chat(_ context.Context, req api.ChatRequest) (io.ReadCloser, error) {
	body := fmt.Sprintf("data: {\"content\":%q}\n\ndata: {\"content\":\"|DONE|\"}\n\n", "Echo: "+req.Message)
	return io.NopCloser(strings.NewReader(body)), nil
}

func (fakeBackend) CreateTopic(_ context.Context, title, _ string) (*api.Topic, error) {
	return &api.Topic{UUID: "t-new", Title: title}, nil
}

func (fakeBackend) RenameTopic(_ context.Context, id, title string) (*api.Topic, error) {
	return &api.Topic{UUID: id, Title: title}, nil
}

func (fakeBackend) DeleteTopic(context.Context, string) error { return nil }

func (fakeBackend) History(context.Context, string) (*api.History, error) {
	return &api.History{}, nil
}

type fixture struct {
	srv  *Server
	ctrl *session.Controller
	page *page.Page
	svc  *notify.Service
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	pg, err := page.New(page.WithBaseURL("http://chat.example"))
	if err != nil {
		t.Fatalf("page.New: %v", err)
	}
	t.Cleanup(pg.Close)
	svc := notify.NewService()
	t.Cleanup(pg.BindNotifications(svc))
	ctrl := session.New(fakeBackend{}, pg, session.WithNotifier(svc))
	srv := New(cfg, ctrl, pg, svc)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &fixture{srv: srv, ctrl: ctrl, page: pg, svc: svc}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, Config{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	f := newFixture(t, Config{AllowAll: true})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestIndexServesPage(t *testing.T) {
	f := newFixture(t, Config{})

	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `id="messages-container"`) {
		t.Error("page body missing messages container")
	}
}

func TestIndexRedirectsAfterAuthFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.page.Redirect(api.DefaultSignInPath)

	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "http://chat.example/auth/signin" {
		t.Errorf("Location = %q", loc)
	}
}

func dial(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type message struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
	HTML    string `json:"html"`
	Path    string `json:"path"`
	Error   string `json:"error"`
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(message) bool) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(m) {
			return m
		}
	}
}

func TestWebSocketSendsSnapshots(t *testing.T) {
	f := newFixture(t, Config{})
	conn := dial(t, f)

	first := readUntil(t, conn, func(m message) bool { return true })
	if first.Type != "snapshot" || !strings.Contains(first.HTML, "Wisdomizer") {
		t.Fatalf("first message = %+v", first)
	}

	if err := conn.WriteJSON(command{Type: "send", Text: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	done := readUntil(t, conn, func(m message) bool {
		return m.Type == "snapshot" && strings.Contains(m.HTML, "Echo: hello") && strings.Contains(m.HTML, `data-state="complete"`)
	})
	if done.Version <= first.Version {
		t.Errorf("version did not advance: %d -> %d", first.Version, done.Version)
	}
}

func TestWebSocketTopicCommands(t *testing.T) {
	f := newFixture(t, Config{})
	conn := dial(t, f)

	if err := conn.WriteJSON(command{Type: "new", Title: "Plans"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, func(m message) bool {
		return strings.Contains(m.HTML, `data-uuid="t-new"`)
	})

	if err := conn.WriteJSON(command{Type: "rename", ID: "t-new", Title: "Holiday"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, func(m message) bool {
		return strings.Contains(m.HTML, `<h1 id="current-topic-name">Holiday</h1>`)
	})
	if got := f.ctrl.Snapshot().TopicName; got != "Holiday" {
		t.Errorf("TopicName = %q", got)
	}
}

func TestWebSocketDismissesToast(t *testing.T) {
	f := newFixture(t, Config{})
	conn := dial(t, f)
	toast := f.svc.Notify("Saved", notify.KindSuccess, 0, notify.PositionTopRight)

	readUntil(t, conn, func(m message) bool { return strings.Contains(m.HTML, "Saved") })
	if err := conn.WriteJSON(command{Type: "dismiss", ID: toast.ID}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, func(m message) bool {
		return m.Type == "snapshot" && !strings.Contains(m.HTML, "Saved")
	})
	if len(f.svc.Active(notify.PositionTopRight)) != 0 {
		t.Error("toast still active")
	}
}

func TestWebSocketRejectsBadCommands(t *testing.T) {
	f := newFixture(t, Config{})
	conn := dial(t, f)

	tests := []struct {
		raw  string
		want string
	}{
		{raw: `not json`, want: "invalid message format"},
		{raw: `{"type":"bogus"}`, want: "unknown message type: bogus"},
		{raw: `{"type":"send","text":"   "}`, want: session.ErrEmptyMessage.Error()},
		{raw: `{"type":"open"}`, want: "topic id is required"},
	}
	for _, tt := range tests {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
		m := readUntil(t, conn, func(m message) bool { return m.Type == "error" })
		if m.Error != tt.want {
			t.Errorf("%s: error = %q, want %q", tt.raw, m.Error, tt.want)
		}
	}
}

func TestAttachmentUpload(t *testing.T) {
	f := newFixture(t, Config{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("buy milk"))
	mw.Close()

	req := httptest.NewRequest("POST", "/ui/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	att := f.ctrl.Snapshot().Attachment
	if att == nil || att.Name != "notes.txt" || att.Content != "YnV5IG1pbGs=" {
		t.Fatalf("attachment = %+v", att)
	}
	html, _ := f.page.HTML()
	if !strings.Contains(html, "notes.txt") {
		t.Error("attachment preview not shown")
	}
}

func TestAttachmentRequiresFile(t *testing.T) {
	f := newFixture(t, Config{})

	req := httptest.NewRequest("POST", "/ui/attachments", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	f := newFixture(t, Config{})
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	hdr := http.Header{"Origin": {"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	if err == nil {
		conn.Close()
		t.Fatal("cross-origin handshake accepted")
	}
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("dial error = %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %+v", resp)
	}

	for _, origin := range []string{ts.URL, "http://localhost:5173", "http://127.0.0.1:9"} {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {origin}})
		if err != nil {
			t.Errorf("origin %s: %v", origin, err)
			continue
		}
		conn.Close()
	}
}

func TestWebSocketAllowAllAcceptsAnyOrigin(t *testing.T) {
	f := newFixture(t, Config{AllowAll: true})
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)

	hdr := http.Header{"Origin": {"https://elsewhere.example"}}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", hdr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}

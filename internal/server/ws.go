package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/wisdomizer/internal/page"
	"github.com/ziadkadry99/wisdomizer/internal/session"
)

// sendBuffer is how many updates may queue for a slow browser before older
// snapshots are dropped. Every snapshot carries the whole page, so only
// the newest one matters.
const sendBuffer = 16

// checkOrigin admits clients that send no Origin, pages served by this
// server and pages on the loopback interface. AllowAll lifts the
// restriction the same way it widens CORS.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.cfg.AllowAll {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// command is the incoming websocket message format.
type command struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
}

// errorMessage is sent when a command cannot be carried out.
type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// client is one connected browser.
type client struct {
	conn *websocket.Conn
	send chan any

	mu     sync.Mutex
	closed bool
}

// push queues v without blocking. When the queue is full the oldest
// message is discarded.
func (c *client) push(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.send <- v:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan any, sendBuffer)}
	unsubscribe := s.page.Subscribe(func(u page.Update) { c.push(u) })
	defer unsubscribe()
	c.push(s.page.Current())

	writerDone := make(chan struct{})
	go s.writeLoop(c, writerDone)
	defer func() {
		c.close()
		<-writerDone
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendError(c, "invalid message format")
			continue
		}
		if err := s.dispatch(cmd); err != nil {
			s.sendError(c, err.Error())
		}
	}
}

// writeLoop is the only writer on the connection.
func (s *Server) writeLoop(c *client, done chan<- struct{}) {
	defer close(done)
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			s.logger.Debug().Err(err).Msg("websocket write")
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// sendError reports a failed command through the write loop, which stays
// the connection's only writer.
func (s *Server) sendError(c *client, message string) {
	c.push(errorMessage{Type: "error", Error: message})
}

// dispatch runs one browser command against the controller. Topic
// operations block on the chat server, so they run in the background and
// report failures through notifications.
func (s *Server) dispatch(cmd command) error {
	switch cmd.Type {
	case "send":
		_, err := s.ctrl.Send(cmd.Text)
		return err
	case "regenerate":
		// The controller already warns when there is nothing to regenerate.
		if _, err := s.ctrl.Regenerate(); err != nil && !errors.Is(err, session.ErrNothingToRegenerate) {
			return err
		}
	case "stop":
		s.ctrl.Stop()
	case "clear":
		s.ctrl.Clear()
	case "detach":
		s.ctrl.DetachFile()
	case "dismiss":
		if s.notifier != nil {
			s.notifier.Dismiss(cmd.ID)
		}
	case "system":
		return s.ctrl.SetSystemPrompt(s.ctx, cmd.Text)
	case "open":
		if cmd.ID == "" {
			return errors.New("topic id is required")
		}
		s.background("switching topic", func(ctx context.Context) error {
			return s.ctrl.SwitchTopic(ctx, cmd.Name, cmd.ID)
		})
	case "new":
		s.background("creating topic", func(ctx context.Context) error {
			_, err := s.ctrl.CreateTopic(ctx, cmd.Title)
			return err
		})
	case "rename":
		if cmd.ID == "" {
			return errors.New("topic id is required")
		}
		s.background("renaming topic", func(ctx context.Context) error {
			return s.ctrl.RenameTopic(ctx, cmd.ID, cmd.Title)
		})
	case "delete":
		if cmd.ID == "" {
			return errors.New("topic id is required")
		}
		s.background("deleting topic", func(ctx context.Context) error {
			return s.ctrl.DeleteTopic(ctx, cmd.ID)
		})
	default:
		return errors.New("unknown message type: " + cmd.Type)
	}
	return nil
}

func (s *Server) background(what string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug().Err(err).Msg(what)
		}
	}()
}

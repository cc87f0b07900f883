package session

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/notify"
	"github.com/ziadkadry99/wisdomizer/internal/stream"
)

// Send posts a user message and streams the reply into a new assistant
// bubble. Any stream already open is aborted first. The returned handle
// ends when the reply completes, fails or is aborted.
func (c *Controller) Send(text string) (*Stream, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(text, true), nil
}

// Regenerate removes the last assistant reply and asks again with the last
// user message.
func (c *Controller) Regenerate() (*Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastUserMessage == "" {
		c.notifyLocked("Nothing to regenerate", notify.KindWarning)
		return nil, ErrNothingToRegenerate
	}
	c.abortStreamLocked()
	c.view.RemoveLastAssistant()
	return c.startLocked(c.lastUserMessage, false), nil
}

// Stop aborts the active stream. It reports whether one was open.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abortStreamLocked()
}

// Active returns the open stream, or nil.
func (c *Controller) Active() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

func (c *Controller) startLocked(text string, appendUser bool) *Stream {
	c.abortStreamLocked()

	file := c.attachment
	c.attachment = nil
	if appendUser {
		c.view.AppendUser(text, file)
	}
	if file != nil {
		c.view.SetAttachment(nil)
	}
	c.lastUserMessage = text
	bubble := c.view.StartAssistant()

	req := api.ChatRequest{
		Message: text,
		Topic:   c.topicName,
		System:  c.systemPrompt,
		File:    file,
	}
	if c.topicID != "" {
		id := c.topicID
		req.ChatUUID = &id
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.nextStream++
	s := newStream(c.nextStream, cancel)
	c.stream = s
	c.lastStream = s

	c.logger.Debug().Uint64("stream", s.id).Str("topic", c.topicName).Msg("sending message")
	go c.run(ctx, s, bubble, req)
	return s
}

// abortStreamLocked cancels the active stream. Its goroutine finalizes the
// bubble as stopped.
func (c *Controller) abortStreamLocked() bool {
	if c.stream == nil {
		return false
	}
	c.logger.Debug().Uint64("stream", c.stream.id).Msg("aborting stream")
	c.stream.cancel()
	c.stream = nil
	return true
}

func (c *Controller) run(ctx context.Context, s *Stream, bubble Bubble, req api.ChatRequest) {
	defer s.cancel()

	body, err := c.backend.Chat(ctx, req)
	if err != nil {
		c.finish(ctx, s, bubble, "", err, failedRequest)
		return
	}
	defer body.Close()

	content, err := stream.Consume(body, func(acc string, _ stream.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.stream != s {
			return
		}
		s.streaming(acc)
		bubble.Update(acc)
	})
	c.finish(ctx, s, bubble, content, err, failedRead)
}

type failure int

const (
	failedRequest failure = iota
	failedRead
)

func (c *Controller) finish(ctx context.Context, s *Stream, bubble Bubble, content string, err error, stage failure) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == s {
		c.stream = nil
	}

	if ctx.Err() != nil {
		// Text read after the abort was never shown and is discarded.
		shown := s.Content()
		bubble.Stop(shown)
		s.finish(PhaseAborted, shown, context.Canceled)
		c.logger.Debug().Uint64("stream", s.id).Msg("stream aborted")
		return
	}

	if err == nil {
		if content == "" {
			bubble.Finalize(EmptyResponse)
		} else {
			bubble.Finalize(content)
		}
		s.finish(PhaseComplete, content, nil)
		return
	}

	c.logger.Error().Err(err).Uint64("stream", s.id).Msg("chat stream failed")
	var serverErr *stream.ServerError
	switch {
	case c.redirectIfUnauthorized(err):
		bubble.Stop(content)
	case errors.As(err, &serverErr):
		bubble.Fail("Sorry, an error occurred: " + serverErr.Message)
		c.notifyLocked(serverErr.Message, notify.KindError)
	case stage == failedRequest:
		bubble.Fail("Sorry, there was an error communicating with the server: " + err.Error())
		c.notifyLocked("Error communicating with server", notify.KindError)
	default:
		bubble.Fail("Sorry, an error occurred while reading the response: " + err.Error())
		c.notifyLocked("Error reading response", notify.KindError)
	}
	s.finish(PhaseErrored, content, err)
}

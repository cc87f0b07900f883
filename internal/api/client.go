// Package api is the HTTP client for the chat server's chat and topic
// endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 4 << 10

// Client talks to a chat server.
type Client struct {
	baseURL    string
	signInPath string
	http       *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSignInPath overrides the path reported by AuthError.
func WithSignInPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.signInPath = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for the server at baseURL. The default
// http.Client has no overall timeout because chat responses are streamed;
// callers bound requests with their context.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		signInPath: DefaultSignInPath,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// SignInURL returns the absolute sign-in URL.
func (c *Client) SignInURL() string { return c.baseURL + c.signInPath }

// Chat opens a streaming chat request. The caller must close the returned
// body; cancelling ctx aborts the stream.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshalling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}
	if err := c.checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	c.logger.Debug().Str("topic", req.Topic).Int("message_length", len(req.Message)).Msg("chat stream opened")
	return resp.Body, nil
}

// CreateTopic creates a new topic.
func (c *Client) CreateTopic(ctx context.Context, title, description string) (*Topic, error) {
	var topic Topic
	if err := c.doJSON(ctx, http.MethodPost, "/topics", createTopicRequest{Title: title, Description: description}, &topic); err != nil {
		return nil, fmt.Errorf("creating topic: %w", err)
	}
	return &topic, nil
}

// RenameTopic changes a topic's title.
func (c *Client) RenameTopic(ctx context.Context, uuid, title string) (*Topic, error) {
	var topic Topic
	if err := c.doJSON(ctx, http.MethodPut, "/topics/"+url.PathEscape(uuid), renameTopicRequest{Title: title}, &topic); err != nil {
		return nil, fmt.Errorf("renaming topic: %w", err)
	}
	return &topic, nil
}

// DeleteTopic deletes a topic.
func (c *Client) DeleteTopic(ctx context.Context, uuid string) error {
	var confirmation struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/topics/"+url.PathEscape(uuid), nil, &confirmation); err != nil {
		return fmt.Errorf("deleting topic: %w", err)
	}
	return nil
}

// History fetches a topic's messages.
func (c *Client) History(ctx context.Context, uuid string) (*History, error) {
	var h History
	if err := c.doJSON(ctx, http.MethodGet, "/chat/"+url.PathEscape(uuid), nil, &h); err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	return &h, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusForbidden {
		return &AuthError{RedirectPath: c.signInPath}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   extractErrorMessage(data),
		}
	}
	return nil
}

// extractErrorMessage prefers the server's {"error": "..."} message.
func extractErrorMessage(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

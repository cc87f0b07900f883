package api

import (
	"errors"
	"fmt"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DefaultSignInPath is where a 403 sends the user.
const DefaultSignInPath = "/auth/signin"

// File is an attachment sent along with a chat message. Content is base64.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"`
	// Size is the decoded size in bytes; it is not sent to the server.
	Size int64 `json:"-"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message  string  `json:"message"`
	Topic    string  `json:"topic"`
	ChatUUID *string `json:"chat_uuid"`
	System   string  `json:"system,omitempty"`
	File     *File   `json:"file,omitempty"`
}

// Topic is a server-persisted chat thread.
type Topic struct {
	ID          int    `json:"id,omitempty"`
	UUID        string `json:"uuid"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Chat is the chat record returned with a history.
type Chat struct {
	ID          int       `json:"id"`
	UUID        string    `json:"uuid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message is one entry of a chat history.
type Message struct {
	UUID      string    `json:"uuid,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// History is the response of GET /chat/{uuid}.
type History struct {
	Chat     Chat      `json:"chat"`
	Messages []Message `json:"messages"`
}

type createTopicRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type renameTopicRequest struct {
	Title string `json:"title"`
}

// ErrUnauthorized is matched by errors.Is for any 403 response.
var ErrUnauthorized = errors.New("authentication required")

// AuthError is returned for 403 responses and names the sign-in path.
type AuthError struct {
	RedirectPath string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication required (sign in at %s)", e.RedirectPath)
}

func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("server responded with %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("server responded with %s", e.Status)
}

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/notify"
)

// newTopicLayout mirrors the browser's locale string with '/' and ':'
// replaced, e.g. "New Chat 10-17-2026, 3-04-05 PM".
const newTopicLayout = "1-2-2006, 3-04-05 PM"

// SwitchTopic opens a topic: the active stream and any earlier load are
// cancelled, the loading placeholder is shown and the history is replayed.
// A load superseded by a later switch returns nil without touching the view.
// Applying the history aborts any stream started while it loaded.
func (c *Controller) SwitchTopic(ctx context.Context, name, id string) error {
	c.mu.Lock()
	c.abortStreamLocked()
	token, loadCtx := c.beginLoadLocked(ctx)
	c.topicName = name
	c.topicID = id
	c.lastUserMessage = ""
	c.view.RenderTopics(c.topicsCopyLocked(), id)
	c.view.ShowLoading()
	c.mu.Unlock()

	hist, err := c.backend.History(loadCtx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.loadToken {
		c.logger.Debug().Str("topic", id).Uint64("token", token).Msg("dropping stale topic load")
		return nil
	}
	c.loadCancel = nil
	// A message sent while the history loaded is about to be wiped from
	// the view, so its stream cannot keep running.
	c.abortStreamLocked()

	if err != nil {
		c.view.ShowWelcome(WelcomeMessage)
		if errors.Is(err, context.Canceled) {
			return err
		}
		if !c.redirectIfUnauthorized(err) {
			c.notifyLocked("Failed to load chat history", notify.KindError)
		}
		c.logger.Error().Err(err).Str("topic", id).Msg("loading chat history")
		return fmt.Errorf("switching to topic %s: %w", id, err)
	}

	if len(hist.Messages) == 0 {
		c.view.ShowWelcome(WelcomeMessage)
		return nil
	}
	c.view.ClearMessages()
	for _, m := range hist.Messages {
		switch m.Role {
		case api.RoleUser:
			c.view.AppendMessage(api.RoleUser, m.Content)
			c.lastUserMessage = m.Content
		case api.RoleAssistant:
			c.view.AppendMessage(api.RoleAssistant, m.Content)
		default:
			c.logger.Warn().Str("role", string(m.Role)).Msg("skipping message with unknown role")
		}
	}
	c.view.AppendNotice("Switched to topic: " + name)
	return nil
}

// beginLoadLocked cancels the previous load and issues a new token.
func (c *Controller) beginLoadLocked(ctx context.Context) (uint64, context.Context) {
	c.cancelLoadLocked()
	c.loadToken++
	loadCtx, cancel := context.WithCancel(ctx)
	c.loadCancel = cancel
	return c.loadToken, loadCtx
}

// cancelLoadLocked invalidates any load in flight.
func (c *Controller) cancelLoadLocked() {
	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
		c.loadToken++
	}
}

// CreateTopic creates a topic on the server and makes it current. An empty
// title is replaced by a generated "New Chat <time>" title.
func (c *Controller) CreateTopic(ctx context.Context, title string) (*Topic, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Chat " + c.now().Format(newTopicLayout)
	}

	created, err := c.backend.CreateTopic(ctx, title, NewTopicDescription)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !c.redirectIfUnauthorized(err) {
			c.notifyLocked("Failed to create new topic", notify.KindError)
		}
		c.logger.Error().Err(err).Str("title", title).Msg("creating topic")
		return nil, fmt.Errorf("creating topic: %w", err)
	}

	t := Topic{ID: created.UUID, Title: created.Title}
	if t.Title == "" {
		t.Title = title
	}

	c.abortStreamLocked()
	c.cancelLoadLocked()
	c.removeTopicLocked(t.ID)
	c.topics = append([]Topic{t}, c.topics...)
	c.topicName = t.Title
	c.topicID = t.ID
	c.lastUserMessage = ""
	c.view.RenderTopics(c.topicsCopyLocked(), t.ID)
	c.view.ShowWelcome(WelcomeMessage)
	return &t, nil
}

// RenameTopic renames a topic and mirrors the new title into the sidebar
// and, for the current topic, into the title sent with messages.
func (c *Controller) RenameTopic(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	renamed, err := c.backend.RenameTopic(ctx, id, title)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !c.redirectIfUnauthorized(err) {
			c.notifyLocked("Failed to rename topic", notify.KindError)
		}
		c.logger.Error().Err(err).Str("topic", id).Msg("renaming topic")
		return fmt.Errorf("renaming topic: %w", err)
	}

	if renamed.Title != "" {
		title = renamed.Title
	}
	for i := range c.topics {
		if c.topics[i].ID == id {
			c.topics[i].Title = title
		}
	}
	if c.topicID == id {
		c.topicName = title
	}
	c.view.RenderTopics(c.topicsCopyLocked(), c.topicID)
	c.notifyLocked(`Topic renamed to "`+title+`"`, notify.KindSuccess)
	return nil
}

// DeleteTopic removes a topic. The sidebar entry goes immediately and, when
// it is the current topic, the session falls back to the default topic
// before the server answers. A failed delete restores the sidebar entry;
// the session stays on the default topic.
func (c *Controller) DeleteTopic(ctx context.Context, id string) error {
	c.mu.Lock()
	index, removed, found := c.findTopicLocked(id)
	if c.topicID == id {
		c.abortStreamLocked()
		c.cancelLoadLocked()
		c.topicName = DefaultTopic
		c.topicID = ""
		c.lastUserMessage = ""
		c.view.ShowWelcome(WelcomeMessage)
	}
	c.removeTopicLocked(id)
	c.view.RenderTopics(c.topicsCopyLocked(), c.topicID)
	c.mu.Unlock()

	err := c.backend.DeleteTopic(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if found {
			if _, _, present := c.findTopicLocked(id); !present {
				index = min(index, len(c.topics))
				c.topics = append(c.topics[:index], append([]Topic{removed}, c.topics[index:]...)...)
			}
			c.view.RenderTopics(c.topicsCopyLocked(), c.topicID)
		}
		if !c.redirectIfUnauthorized(err) {
			c.notifyLocked("Failed to delete topic", notify.KindError)
		}
		c.logger.Error().Err(err).Str("topic", id).Msg("deleting topic")
		return fmt.Errorf("deleting topic: %w", err)
	}

	c.notifyLocked("Topic deleted", notify.KindInfo)
	return nil
}

func (c *Controller) findTopicLocked(id string) (int, Topic, bool) {
	for i, t := range c.topics {
		if t.ID == id {
			return i, t, true
		}
	}
	return 0, Topic{}, false
}

func (c *Controller) removeTopicLocked(id string) {
	kept := c.topics[:0]
	for _, t := range c.topics {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.topics = kept
}

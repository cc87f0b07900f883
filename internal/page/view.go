package page

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/diagrams"
	"github.com/ziadkadry99/wisdomizer/internal/session"
)

const (
	assistantName = "Wisdomizer"
	userName      = "You"
	timeLayout    = "3:04 PM"

	footerSeen      = "Seen"
	footerTyping    = "Typing..."
	footerDelivered = "Delivered"
	footerStopped   = "Stopped"
	footerFailed    = "Failed"

	loadingText = "Loading chat history..."
	stoppedText = "Response stopped."
)

var _ session.View = (*Page)(nil)

// ShowWelcome replaces the conversation with the welcome bubble.
func (p *Page) ShowWelcome(text string) {
	p.mutate(func() {
		messages := p.byID(messagesID)
		removeChildren(messages)
		b := p.newAssistantLocked("Just now")
		p.format(b.body, text)
		setText(b.footer, footerDelivered)
		messages.AppendChild(b.root)
	})
	p.settle()
}

// ShowLoading replaces the conversation with the history placeholder.
func (p *Page) ShowLoading() {
	p.mutate(func() {
		messages := p.byID(messagesID)
		removeChildren(messages)
		messages.AppendChild(appendAll(el(atom.Div, "loading-history"),
			el(atom.Span, "loading-spinner", "aria-hidden", "true"),
			withText(el(atom.Span, "loading-text"), loadingText),
		))
	})
}

// ClearMessages empties the conversation.
func (p *Page) ClearMessages() {
	p.mutate(func() {
		removeChildren(p.byID(messagesID))
	})
}

// AppendMessage adds a finalized bubble replayed from history.
func (p *Page) AppendMessage(role api.Role, content string) {
	p.mutate(func() {
		messages := p.byID(messagesID)
		switch role {
		case api.RoleUser:
			messages.AppendChild(p.userBubbleLocked(content, nil))
		case api.RoleAssistant:
			b := p.newAssistantLocked(p.now().Format(timeLayout))
			p.format(b.body, content)
			setText(b.footer, footerDelivered)
			messages.AppendChild(b.root)
		default:
			messages.AppendChild(withText(el(atom.Div, "chat-notice"), content))
		}
	})
	p.settle()
}

// AppendUser adds the user's message, with its attachment chip.
func (p *Page) AppendUser(content string, file *api.File) {
	p.mutate(func() {
		p.byID(messagesID).AppendChild(p.userBubbleLocked(content, file))
	})
	p.settle()
}

// AppendNotice adds a one-line system notice.
func (p *Page) AppendNotice(text string) {
	p.mutate(func() {
		p.byID(messagesID).AppendChild(withText(el(atom.Div, "chat-notice"), text))
	})
}

// StartAssistant adds an assistant bubble showing the typing indicator.
func (p *Page) StartAssistant() session.Bubble {
	var b *bubble
	p.mutate(func() {
		b = p.newAssistantLocked(p.now().Format(timeLayout))
		b.body.AppendChild(appendAll(el(atom.Div, "typing-indicator"),
			el(atom.Span, ""), el(atom.Span, ""), el(atom.Span, ""),
		))
		setText(b.footer, footerTyping)
		setAttr(b.root, "data-state", "typing")
		p.byID(messagesID).AppendChild(b.root)
	})
	return b
}

// RemoveLastAssistant drops the newest assistant bubble.
func (p *Page) RemoveLastAssistant() bool {
	removed := false
	p.mutate(func() {
		bubbles := findAll(p.byID(messagesID), byClass("chat-ai"))
		if len(bubbles) == 0 {
			return
		}
		detach(bubbles[len(bubbles)-1])
		removed = true
	})
	return removed
}

// RenderTopics rebuilds the sidebar and the header title.
func (p *Page) RenderTopics(topics []session.Topic, activeID string) {
	p.mutate(func() {
		sidebar := p.byID(sidebarID)
		list := find(sidebar, byClass("topic-list"))
		if list == nil {
			list = el(atom.Div, "topic-list")
			sidebar.AppendChild(list)
		}
		removeChildren(list)

		title := session.DefaultTopic
		for _, t := range topics {
			class := "topic-item"
			if t.ID == activeID && activeID != "" {
				class += " active"
				title = t.Title
			}
			list.AppendChild(appendAll(el(atom.Div, class, "data-uuid", t.ID),
				withText(el(atom.Span, "topic-name"), t.Title),
				appendAll(el(atom.Span, "topic-actions"),
					withText(el(atom.Button, "topic-rename", "type", "button", "data-uuid", t.ID, "title", "Rename"), "✎"),
					withText(el(atom.Button, "topic-delete", "type", "button", "data-uuid", t.ID, "title", "Delete"), "🗑"),
				),
			))
		}
		if len(topics) == 0 {
			list.AppendChild(withText(el(atom.Div, "topic-empty"), "No topics yet"))
		}
		setText(p.byID(topicTitleID), title)
	})
}

// SetAttachment shows or hides the pending file preview.
func (p *Page) SetAttachment(file *api.File) {
	p.mutate(func() {
		preview := p.byID(filePreviewID)
		removeChildren(preview)
		if file == nil {
			addClass(preview, "hidden")
			return
		}
		removeClass(preview, "hidden")
		preview.AppendChild(fileChip(file, true))
	})
}

// Redirect sends every connected browser to path on the chat server.
func (p *Page) Redirect(path string) {
	target := path
	if strings.HasPrefix(path, "/") {
		target = p.baseURL + path
	}
	p.mu.Lock()
	p.redirect = target
	p.version++
	u := Update{Type: UpdateRedirect, Version: p.version, Path: target}
	p.mu.Unlock()
	p.publish(u)
}

func (p *Page) userBubbleLocked(content string, file *api.File) *html.Node {
	body := el(atom.Div, "chat-bubble msg-user")
	p.format(body, content)
	if file != nil {
		body.AppendChild(fileChip(file, false))
	}
	return appendAll(el(atom.Div, "chat chat-end chat-user"),
		header(userName, p.now().Format(timeLayout)),
		body,
		withText(el(atom.Div, "chat-footer"), footerSeen),
	)
}

func (p *Page) newAssistantLocked(at string) *bubble {
	b := &bubble{
		page:   p,
		body:   el(atom.Div, "chat-bubble msg-ai"),
		footer: el(atom.Div, "chat-footer"),
	}
	b.root = appendAll(el(atom.Div, "chat chat-start chat-ai"),
		header(assistantName, at),
		b.body,
		b.footer,
	)
	return b
}

func header(name, at string) *html.Node {
	return appendAll(withText(el(atom.Div, "chat-header"), name+" "),
		withText(el(atom.Time, "message-time"), at),
	)
}

func fileChip(f *api.File, removable bool) *html.Node {
	chip := appendAll(el(atom.Div, "file-preview", "data-category", api.FileCategory(f.Type)),
		el(atom.Span, "file-icon file-"+api.FileCategory(f.Type), "aria-hidden", "true"),
		withText(el(atom.Span, "file-name"), f.Name),
		withText(el(atom.Span, "file-size"), api.FormatSize(f.Size)),
	)
	if removable {
		chip.AppendChild(withText(el(atom.Button, "file-remove", "type", "button", "title", "Remove"), "×"))
	}
	return chip
}

// bubble is an assistant message being streamed into the page.
type bubble struct {
	page   *Page
	root   *html.Node
	body   *html.Node
	footer *html.Node
}

func (b *bubble) Update(content string) {
	b.page.mutate(func() {
		b.page.format(b.body, content)
		for _, n := range findAll(b.body, byClass(diagrams.ClassName)) {
			setAttr(n, diagrams.AttrState, diagrams.StatePending)
		}
		setAttr(b.root, "data-state", "streaming")
	})
}

func (b *bubble) Finalize(content string) {
	b.page.mutate(func() {
		b.page.format(b.body, content)
		setText(b.footer, footerDelivered)
		setAttr(b.root, "data-state", "complete")
	})
	b.page.settle()
}

func (b *bubble) Stop(partial string) {
	b.page.mutate(func() {
		if strings.TrimSpace(partial) == "" {
			setText(b.body, stoppedText)
		} else {
			b.page.format(b.body, partial)
		}
		setText(b.footer, footerStopped)
		setAttr(b.root, "data-state", "aborted")
	})
	b.page.settle()
}

func (b *bubble) Fail(message string) {
	b.page.mutate(func() {
		setText(b.body, message)
		addClass(b.body, "chat-error")
		setText(b.footer, footerFailed)
		setAttr(b.root, "data-state", "errored")
	})
}

package page

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ziadkadry99/wisdomizer/internal/notify"
)

// BindNotifications draws svc's toasts into the page until the returned
// func is called.
func (p *Page) BindNotifications(svc *notify.Service) func() {
	p.mutate(func() {
		for _, pos := range svc.Containers() {
			container := p.toastContainerLocked(pos)
			for _, t := range svc.Active(pos) {
				container.AppendChild(toastNode(t))
			}
		}
	})
	return svc.Subscribe(p.handleToast)
}

func (p *Page) handleToast(ev notify.Event) {
	p.mutate(func() {
		switch ev.Type {
		case notify.EventShown:
			p.toastContainerLocked(ev.Toast.Position).AppendChild(toastNode(ev.Toast))
		case notify.EventDismissed:
			if n := find(p.doc, byID(toastID(ev.Toast.ID))); n != nil {
				detach(n)
			}
		}
	})
}

// toastContainerLocked returns the container for pos, creating it the
// first time a toast is shown there.
func (p *Page) toastContainerLocked(pos notify.Position) *html.Node {
	pos = notify.NormalizePosition(pos)
	id := fmt.Sprintf(containerIDFmt, pos)
	if n := p.byID(id); n != nil {
		return n
	}
	n := el(atom.Div, "notification-container notification-"+string(pos), "id", id, "aria-live", "polite")
	p.byID(toastsID).AppendChild(n)
	return n
}

func toastID(id string) string { return "notification-" + id }

func toastNode(t notify.Toast) *html.Node {
	kind := notify.NormalizeKind(t.Kind)
	title := t.Title
	if title == "" {
		title = notify.TitleFor(kind)
	}
	class := "notification notification-" + string(kind)
	if t.Position.IsTop() {
		class += " slide-down"
	} else {
		class += " slide-up"
	}
	return appendAll(el(atom.Div, class, "id", toastID(t.ID), "role", "alert"),
		appendAll(el(atom.Div, "notification-content"),
			withText(el(atom.Div, "notification-title"), title),
			withText(el(atom.Div, "notification-message"), t.Message),
		),
		withText(el(atom.Button, "notification-close", "type", "button", "data-dismiss", t.ID, "aria-label", "Dismiss"), "×"),
	)
}

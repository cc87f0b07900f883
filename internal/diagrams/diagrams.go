// Package diagrams renders mermaid placeholders in an HTML document.
//
// The message formatter emits placeholders of the form
//
//	<div class="mermaid" data-diagram-source="graph%20TD...">graph TD...</div>
//
// and the Processor replaces their contents with rendered SVG, or with an
// error panel when the renderer rejects the source. Each placeholder is
// rendered at most once: its data-diagram-state attribute is set before the
// renderer runs and is never cleared.
package diagrams

import (
	"io"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// ClassName marks a placeholder.
	ClassName = "mermaid"
	// AttrSource holds the percent-encoded diagram source.
	AttrSource = "data-diagram-source"
	// AttrState records the outcome of the single render attempt.
	AttrState = "data-diagram-state"

	StateProcessed = "processed"
	StateErrored   = "errored"
	// StatePending holds back placeholders of a message still streaming.
	// Reformatting the message replaces them with fresh, unmarked nodes.
	StatePending = "pending"
)

// Tree is a locked HTML document. The processor holds the lock while it
// reads or mutates nodes and releases it while diagrams render.
type Tree interface {
	sync.Locker
	Root() *html.Node
}

// StaticTree is a Tree over a parsed document.
type StaticTree struct {
	sync.Mutex
	doc *html.Node
}

// NewStaticTree wraps doc.
func NewStaticTree(doc *html.Node) *StaticTree {
	return &StaticTree{doc: doc}
}

// ParseTree parses an HTML document into a StaticTree.
func ParseTree(r io.Reader) (*StaticTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return NewStaticTree(doc), nil
}

// Root returns the document node.
func (t *StaticTree) Root() *html.Node { return t.doc }

// Placeholders returns the unprocessed placeholders under root in document
// order.
func Placeholders(root *html.Node) []*html.Node {
	var found []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, ClassName) {
			if getAttr(n, AttrState) == "" {
				found = append(found, n)
			}
			return false
		}
		return true
	})
	return found
}

// Source resolves a placeholder's diagram text: the encoded attribute,
// then the node's own text, then nested code or pre text, then the
// parent's text. The first non-empty value wins.
func Source(n *html.Node) string {
	if raw := getAttr(n, AttrSource); raw != "" {
		if decoded, err := url.PathUnescape(raw); err == nil {
			raw = decoded
		}
		if s := strings.TrimSpace(raw); s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(ownText(n)); s != "" {
		return s
	}
	var nested string
	walk(n, func(c *html.Node) bool {
		if nested != "" {
			return false
		}
		if c != n && c.Type == html.ElementNode && (c.DataAtom == atom.Code || c.DataAtom == atom.Pre) {
			nested = strings.TrimSpace(textOf(c))
			return false
		}
		return true
	})
	if nested != "" {
		return nested
	}
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		return strings.TrimSpace(textOf(n.Parent))
	}
	return ""
}

// walk visits n and its descendants; returning false skips children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		walk(c, visit)
		c = next
	}
}

func findBody(root *html.Node) *html.Node {
	var body *html.Node
	walk(root, func(n *html.Node) bool {
		if body != nil {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	if body == nil {
		return root
	}
	return body
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

func element(tag atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag.String(), DataAtom: tag}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Package dom wraps an HTML node tree with the small set of query and
// mutation helpers needed to fill the booklet skeleton server side.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document
type Document struct {
	root *html.Node
}

// Parse reads an HTML document
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML document held in memory
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node
func (d *Document) Root() *html.Node {
	return d.root
}

// Query returns the first element matching sel in document order, or nil
func (d *Document) Query(sel string) *html.Node {
	return Find(d.root, sel)
}

// QueryAll returns every element matching sel in document order
func (d *Document) QueryAll(sel string) []*html.Node {
	return FindAll(d.root, sel)
}

// Render serializes the document
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String serializes the document, returning an empty string on failure
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

var selectors sync.Map // string -> cascadia.Selector

func compile(sel string) cascadia.Selector {
	if s, ok := selectors.Load(sel); ok {
		return s.(cascadia.Selector)
	}
	s := cascadia.MustCompile(sel)
	selectors.Store(sel, s)
	return s
}

// Find returns the first descendant of n (or n itself) matching sel.
// Invalid selectors panic.
func Find(n *html.Node, sel string) *html.Node {
	if n == nil {
		return nil
	}
	return compile(sel).MatchFirst(n)
}

// FindAll returns every node in the subtree of n matching sel
func FindAll(n *html.Node, sel string) []*html.Node {
	if n == nil {
		return nil
	}
	return compile(sel).MatchAll(n)
}

// Element creates a detached element with the given classes
func Element(tag string, classes ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	if len(classes) > 0 {
		SetAttr(n, "class", strings.Join(classes, " "))
	}
	return n
}

// TextElement creates a detached element holding text
func TextElement(tag, text string, classes ...string) *html.Node {
	n := Element(tag, classes...)
	SetText(n, text)
	return n
}

// Append adds children to the end of parent, detaching them first if needed
func Append(parent *html.Node, children ...*html.Node) {
	for _, c := range children {
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		parent.AppendChild(c)
	}
}

// Prepend inserts child before the first child of parent
func Prepend(parent, child *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.InsertBefore(child, parent.FirstChild)
}

// Clear removes every child of n
func Clear(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// SetText replaces the children of n with a single text node.
// Markup in text is escaped by the serializer.
func SetText(n *html.Node, text string) {
	Clear(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Text returns the concatenated text content of n
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

// ElementChildren returns the element children of n
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// LastElementChild returns the last element child of n, or nil
func LastElementChild(n *html.Node) *html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Attr returns the value of an attribute
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Classes returns the class list of n
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether n carries class c
func HasClass(n *html.Node, c string) bool {
	if n == nil {
		return false
	}
	for _, have := range Classes(n) {
		if have == c {
			return true
		}
	}
	return false
}

// AddClass adds class c to n if missing
func AddClass(n *html.Node, c string) {
	if HasClass(n, c) {
		return
	}
	SetAttr(n, "class", strings.Join(append(Classes(n), c), " "))
}

// RemoveClass removes every occurrence of class c from n
func RemoveClass(n *html.Node, c string) {
	if !HasClass(n, c) {
		return
	}
	var kept []string
	for _, have := range Classes(n) {
		if have != c {
			kept = append(kept, have)
		}
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

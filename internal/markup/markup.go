// Package markup hides the HTML library behind the handful of tree
// operations the extractors need.
package markup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	ErrNotFound  = errors.New("element not found")
	ErrAmbiguous = errors.New("element found more than once")
)

// Node is a single element of a parsed document.
type Node interface {
	// Find returns descendants matching a CSS selector.
	Find(selector string) []Node
	// FindByClass returns descendants carrying every given class.
	FindByClass(classes ...string) []Node
	// FindByID returns descendants whose id equals id.
	FindByID(id string) []Node
	// FindByAttr returns descendants whose attribute name equals value.
	FindByAttr(name, value string) []Node
	// Parent returns the parent element, or nil at the root.
	Parent() Node
	// NextSibling returns the first following sibling element with the
	// class, or any element when class is empty. Nil when there is none.
	NextSibling(class string) Node
	Attr(name string) (string, bool)
	// Text returns the concatenated text of the subtree.
	Text() string
	// FirstChildText returns the text of the first child node only.
	FirstChildText() string
}

// Parse parses an HTML document.
func Parse(r io.Reader) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return &node{sel: doc.Selection}, nil
}

// ParseString parses an HTML document or fragment held in a string.
func ParseString(s string) (Node, error) {
	return Parse(strings.NewReader(s))
}

// One returns the only node in nodes.
func One(nodes []Node, what string) (Node, error) {
	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	case 1:
		return nodes[0], nil
	default:
		return nil, fmt.Errorf("%s (%d matches): %w", what, len(nodes), ErrAmbiguous)
	}
}

// First returns the first node in nodes, or nil.
func First(nodes []Node) Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

type node struct {
	sel *goquery.Selection
}

func wrap(sel *goquery.Selection) []Node {
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &node{sel: s})
	})
	return nodes
}

func (n *node) Find(selector string) []Node {
	return wrap(n.sel.Find(selector))
}

func (n *node) FindByClass(classes ...string) []Node {
	return wrap(n.sel.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		for _, c := range classes {
			if !s.HasClass(c) {
				return false
			}
		}
		return len(classes) > 0
	}))
}

func (n *node) FindByID(id string) []Node {
	return n.FindByAttr("id", id)
}

func (n *node) FindByAttr(name, value string) []Node {
	return wrap(n.sel.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(name)
		return ok && v == value
	}))
}

func (n *node) Parent() Node {
	p := n.sel.Parent()
	if p.Length() == 0 {
		return nil
	}
	return &node{sel: p}
}

func (n *node) NextSibling(class string) Node {
	next := n.sel.NextAll()
	if class != "" {
		next = next.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.HasClass(class)
		})
	}
	if next.Length() == 0 {
		return nil
	}
	return &node{sel: next.First()}
}

func (n *node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n *node) Text() string {
	return n.sel.Text()
}

func (n *node) FirstChildText() string {
	contents := n.sel.Contents()
	if contents.Length() == 0 {
		return ""
	}
	first := contents.First()
	if raw := first.Get(0); raw.Type == html.TextNode {
		return raw.Data
	}
	return first.Text()
}

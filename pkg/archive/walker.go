package archive

import (
	"iter"
	"strings"

	"golang.org/x/net/html"
)

// Node is the minimal markup tree capability the walker needs.
// FirstChild and NextSibling return nil at the end of a level.
type Node interface {
	Tag() string
	Attr(name string) (string, bool)
	FirstChild() Node
	NextSibling() Node
}

// Walk yields root and all its descendants depth-first, in document order.
// The returned sequence can be ranged over any number of times.
func Walk(root Node) iter.Seq[Node] {
	return walk(root, nil)
}

// Outermost yields nodes matching the predicate without descending into them,
// so a match nested inside another match is never reported.
func Outermost(root Node, match func(Node) bool) iter.Seq[Node] {
	return walk(root, match)
}

func walk(root Node, match func(Node) bool) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if root == nil {
			return
		}
		stack := []Node{root}
		var kids []Node
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			matched := match == nil || match(n)
			if matched && !yield(n) {
				return
			}
			if matched && match != nil {
				continue // don't descend into a reported match
			}

			// push children in reverse so the first child is visited first
			kids = kids[:0]
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				kids = append(kids, c)
			}
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, kids[i])
			}
		}
	}
}

// HasClass reports whether the node's class attribute contains the class name
func HasClass(n Node, class string) bool {
	v, ok := n.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// htmlNode adapts x/net/html nodes to Node
type htmlNode struct {
	n *html.Node
}

// wrap returns nil for a nil html node, keeping the interface comparison honest
func wrap(n *html.Node) Node {
	if n == nil {
		return nil
	}
	return htmlNode{n: n}
}

func (h htmlNode) Tag() string {
	if h.n.Type != html.ElementNode {
		return ""
	}
	return h.n.Data
}

func (h htmlNode) Attr(name string) (string, bool) {
	for _, a := range h.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (h htmlNode) FirstChild() Node  { return wrap(h.n.FirstChild) }
func (h htmlNode) NextSibling() Node { return wrap(h.n.NextSibling) }

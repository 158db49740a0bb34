package markup

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// Node is a selection of zero or more markup nodes.
type Node struct {
	sel *goquery.Selection
}

// Wrap returns a Node over sel.
func Wrap(sel *goquery.Selection) *Node {
	return &Node{sel: sel}
}

// Selection exposes the underlying goquery selection.
func (n *Node) Selection() *goquery.Selection { return n.sel }

// Len is the number of nodes in the selection.
func (n *Node) Len() int { return n.sel.Length() }

// Field implements ports.Record: attributes of the first node by name, or child nodes by
// position when the key is an integer.
func (n *Node) Field(key any) (any, bool) {
	switch k := key.(type) {
	case string:
		v, ok := n.sel.Attr(k)
		if !ok {
			if i, err := strconv.Atoi(k); err == nil {
				return n.child(i)
			}
			return nil, false
		}
		return v, true
	case int:
		return n.child(k)
	}
	return nil, false
}

func (n *Node) child(i int) (any, bool) {
	children := n.sel.First().Children()
	if i < 0 {
		i += children.Length()
	}
	if i < 0 || i >= children.Length() {
		return nil, false
	}
	return Wrap(children.Eq(i)), true
}

// Elements implements pipeline.Elements: each selected node on its own.
func (n *Node) Elements() []any {
	out := make([]any, 0, n.sel.Length())
	n.sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, Wrap(s))
	})
	return out
}

// Find selects the descendants matching a CSS selector.
func (n *Node) Find(selector string) *Node { return Wrap(n.sel.Find(selector)) }

// Content is the combined text of the selection, entities decoded.
func (n *Node) Content() string { return n.sel.Text() }

// Name is the element name of the first node.
func (n *Node) Name() string {
	if n.sel.Length() == 0 {
		return ""
	}
	return goquery.NodeName(n.sel.First())
}

// HTML renders the selection, including the outer element of the first node.
func (n *Node) HTML() (string, error) {
	return goquery.OuterHtml(n.sel.First())
}

func (n *Node) String() string {
	s, err := n.HTML()
	if err != nil {
		return "<" + n.Name() + ">"
	}
	return s
}

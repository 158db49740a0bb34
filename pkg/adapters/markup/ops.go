package markup

import (
	"errors"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/pipeline"
)

var (
	errNotMarkup = errors.New("not a markup node")
	errNotText   = errors.New("not a string or byte slice")
)

// asNode accepts the node-like values a context may hold.
func asNode(v any) (*Node, bool) {
	switch n := v.(type) {
	case *Node:
		return n, true
	case *goquery.Selection:
		return Wrap(n), true
	case *goquery.Document:
		return Wrap(n.Selection), true
	}
	return nil, false
}

func parser(op string, read func(io.Reader) (*Node, error)) pipeline.ItemPipeline {
	return func(it *pipeline.Item) error {
		if it.Value() == nil {
			return nil
		}
		r, ok := readBytes(it.Value())
		if !ok {
			return domain.NewValueError(op, it.Value(), errNotText)
		}
		n, err := read(r)
		if err != nil {
			return domain.NewValueError(op, it.Value(), err)
		}
		it.Update(n)
		return nil
	}
}

// ParseHTML replaces a string value with its parsed HTML document.
// Follow with Item.Enter to read the document as a sub-record.
var ParseHTML = parser("parse_html", ReadHTML)

// ParseHTMLFragment replaces a string value with its parsed top-level HTML nodes.
var ParseHTMLFragment = parser("parse_html_fragment", ReadHTMLFragment)

// ParseXML replaces a string value with its parsed XML document.
var ParseXML = parser("parse_xml", ReadXML)

// Content replaces a node value with its text content.
func Content(it *pipeline.Item) error {
	if it.Value() == nil {
		return nil
	}
	n, ok := asNode(it.Value())
	if !ok {
		return domain.NewValueError("take_content", it.Value(), errNotMarkup)
	}
	it.Update(n.Content())
	return nil
}

// NodeName replaces a node value with its element name.
func NodeName(it *pipeline.Item) error {
	if it.Value() == nil {
		return nil
	}
	n, ok := asNode(it.Value())
	if !ok {
		return domain.NewValueError("take_node_name", it.Value(), errNotMarkup)
	}
	it.Update(n.Name())
	return nil
}

// Select replaces a node value with the descendants matching selector.
func Select(selector string) pipeline.ItemPipeline {
	return func(it *pipeline.Item) error {
		if it.Value() == nil {
			return nil
		}
		n, ok := asNode(it.Value())
		if !ok {
			return domain.NewValueError("css", it.Value(), errNotMarkup)
		}
		it.Update(n.Find(selector))
		return nil
	}
}

// SelectFirst replaces a node value with the first descendant matching selector, or nil.
func SelectFirst(selector string) pipeline.ItemPipeline {
	return func(it *pipeline.Item) error {
		if it.Value() == nil {
			return nil
		}
		n, ok := asNode(it.Value())
		if !ok {
			return domain.NewValueError("at_css", it.Value(), errNotMarkup)
		}
		found := n.sel.Find(selector).First()
		if found.Length() == 0 {
			it.Update(nil)
			return nil
		}
		it.Update(Wrap(found))
		return nil
	}
}

// DecodeHTML replaces entity-encoded markup with its plain text.
func DecodeHTML(it *pipeline.Item) error {
	if it.Value() == nil {
		return nil
	}
	s, ok := it.Value().(string)
	if !ok {
		return domain.NewValueError("decode_html", it.Value(), errNotText)
	}
	text, err := DecodeText(s)
	if err != nil {
		return domain.NewValueError("decode_html", s, err)
	}
	it.Update(text)
	return nil
}

// EncodeHTML escapes a string value with entities. With nl2br, line breaks become <br/>.
func EncodeHTML(nl2br bool) pipeline.ItemPipeline {
	return func(it *pipeline.Item) error {
		if it.Value() == nil {
			return nil
		}
		s, ok := it.Value().(string)
		if !ok {
			return domain.NewValueError("encode_html", it.Value(), errNotText)
		}
		it.Update(EncodeText(s, nl2br))
		return nil
	}
}

// CSS selects, from the node a context reads, the descendants matching selector.
func CSS(rc pipeline.Context, selector string, opts ...pipeline.TakeOption) *pipeline.Item {
	return rc.Static(rc.Data(), prepend(pipeline.ApplyPipeline(Select(selector)), opts)...)
}

// AtCSS selects the first descendant matching selector; nil when there is none.
func AtCSS(rc pipeline.Context, selector string, opts ...pipeline.TakeOption) *pipeline.Item {
	return rc.Static(rc.Data(), prepend(pipeline.ApplyPipeline(SelectFirst(selector)), opts)...)
}

// TakeContent takes the text content of the node a context reads.
func TakeContent(rc pipeline.Context, opts ...pipeline.TakeOption) *pipeline.Item {
	return rc.Static(rc.Data(), prepend(pipeline.ApplyPipeline(Content), opts)...)
}

// TakeNodeName takes the element name of the node a context reads.
func TakeNodeName(rc pipeline.Context, opts ...pipeline.TakeOption) *pipeline.Item {
	return rc.Static(rc.Data(), prepend(pipeline.ApplyPipeline(NodeName), opts)...)
}

func prepend(first pipeline.TakeOption, rest []pipeline.TakeOption) []pipeline.TakeOption {
	return append([]pipeline.TakeOption{first}, rest...)
}

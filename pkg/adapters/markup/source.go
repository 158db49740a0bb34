package markup

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/sluice/pkg/ports"
)

// Source yields the nodes of a document matching a selector, in document order.
type Source struct {
	nodes []any
}

// NewSource selects from an already parsed document.
func NewSource(doc *Node, selector string) *Source {
	return &Source{nodes: doc.Find(selector).Elements()}
}

// FromHTML parses r as HTML and selects from it.
func FromHTML(r io.Reader, selector string) (*Source, error) {
	doc, err := ReadHTML(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return NewSource(doc, selector), nil
}

// FromXML parses r as XML and selects from it.
func FromXML(r io.Reader, selector string) (*Source, error) {
	doc, err := ReadXML(r)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return NewSource(doc, selector), nil
}

// XMLFile parses the XML file at path and selects from it.
func XMLFile(path, selector string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return FromXML(f, selector)
}

// HTMLFile parses the HTML file at path and selects from it.
func HTMLFile(path, selector string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return FromHTML(f, selector)
}

func (s *Source) Capability() ports.Capability { return ports.Ordinal }

func (s *Source) EachIndexed(ctx context.Context, fn func(index int, record any) error) error {
	for i, n := range s.nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i, n); err != nil {
			return err
		}
	}
	return nil
}

// Len is the number of selected nodes.
func (s *Source) Len() int { return len(s.nodes) }

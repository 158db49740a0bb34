package markup

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ReadHTML parses an HTML document.
func ReadHTML(r io.Reader) (*Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return Wrap(doc.Selection), nil
}

// ReadHTMLFragment parses an HTML fragment; the node is the set of top-level nodes.
func ReadHTMLFragment(r io.Reader) (*Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	doc := goquery.NewDocumentFromNode(root)
	return Wrap(doc.Selection.Contents()), nil
}

// ReadXML parses an XML document. Element and attribute names keep their case; since CSS
// type selectors are lower-cased, mixed-case element names are reachable through
// attribute or structural selectors only.
func ReadXML(r io.Reader) (*Node, error) {
	root := &html.Node{Type: html.DocumentNode}
	cur := root
	dec := xml.NewDecoder(r)
	dec.Strict = true
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &html.Node{Type: html.ElementNode, Data: qualified(t.Name)}
			for _, a := range t.Attr {
				n.Attr = append(n.Attr, html.Attribute{Key: qualified(a.Name), Val: a.Value})
			}
			cur.AppendChild(n)
			cur = n
		case xml.EndElement:
			if cur.Parent == nil {
				return nil, fmt.Errorf("unexpected </%s>", t.Name.Local)
			}
			cur = cur.Parent
		case xml.CharData:
			if cur != root {
				cur.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
			}
		case xml.Comment:
			cur.AppendChild(&html.Node{Type: html.CommentNode, Data: string(t)})
		}
	}
	if cur != root {
		return nil, fmt.Errorf("unclosed <%s>", cur.Data)
	}
	return Wrap(goquery.NewDocumentFromNode(root).Selection), nil
}

// qualified keeps namespace prefixes readable: encoding/xml resolves them to URLs.
func qualified(n xml.Name) string {
	if n.Space == "" || strings.Contains(n.Space, "/") {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// DecodeText returns the text of markup s with entities decoded and tags dropped.
func DecodeText(s string) (string, error) {
	n, err := ReadHTMLFragment(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	return n.Content(), nil
}

// EncodeText escapes s for inclusion in markup. With nl2br, line breaks become <br/>.
func EncodeText(s string, nl2br bool) string {
	s = html.EscapeString(s)
	if nl2br {
		s = strings.ReplaceAll(s, "\n", "<br/>")
	}
	return s
}

func readBytes(v any) (io.Reader, bool) {
	switch s := v.(type) {
	case string:
		return strings.NewReader(s), true
	case []byte:
		return bytes.NewReader(s), true
	}
	return nil, false
}

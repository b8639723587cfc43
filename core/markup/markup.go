// Package markup parses saved HTML catalog fragments and queries them with
// XPath.
//
// Parsing is lenient about HTML void elements but does not decode entities:
// text and attribute values come back exactly as written in the page, so
// entity handling stays with the caller.
package markup

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Document is a parsed page.
type Document struct {
	root *xmlquery.Node
}

// Node is one element of a parsed page.
type Node struct {
	node *xmlquery.Node
}

// Parse parses an HTML fragment. Unclosed void elements such as <img> and
// <br> are closed automatically.
func Parse(data []byte) (*Document, error) {
	// Escape every ampersand so the decoder hands back the raw entity text.
	data = bytes.ReplaceAll(data, []byte("&"), []byte("&amp;"))

	root, err := xmlquery.ParseWithOptions(bytes.NewReader(data), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict:    false,
			AutoClose: xml.HTMLAutoClose,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}
	return &Document{root: root}, nil
}

// ClassToken returns an XPath predicate that matches elements whose class
// attribute contains name as a whole token.
func ClassToken(name string) string {
	return fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), ' %s ')", name)
}

// ByClass compiles .//*[class token] for name, relative to the context node.
func ByClass(name string) *xpath.Expr {
	return MustCompile(".//*[" + ClassToken(name) + "]")
}

// Compile compiles an XPath expression.
func Compile(expr string) (*xpath.Expr, error) {
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return e, nil
}

// MustCompile is like Compile but panics if the expression is invalid.
func MustCompile(expr string) *xpath.Expr {
	e, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// Select returns every node matching expr, in document order.
func (d *Document) Select(expr *xpath.Expr) []*Node {
	return wrap(xmlquery.QuerySelectorAll(d.root, expr))
}

// First returns the first node matching expr, or nil.
func (d *Document) First(expr *xpath.Expr) *Node {
	return wrapOne(xmlquery.QuerySelector(d.root, expr))
}

// Select returns every node matching expr relative to n.
func (n *Node) Select(expr *xpath.Expr) []*Node {
	if n == nil {
		return nil
	}
	return wrap(xmlquery.QuerySelectorAll(n.node, expr))
}

// First returns the first node matching expr relative to n, or nil.
func (n *Node) First(expr *xpath.Expr) *Node {
	if n == nil {
		return nil
	}
	return wrapOne(xmlquery.QuerySelector(n.node, expr))
}

// Name returns the element name.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	return n.node.Data
}

// Text returns all text content of the node and its descendants.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return n.node.InnerText()
}

// Attr returns the value of a specific attribute.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.node.SelectAttr(name)
}

// Classes returns the tokens of the class attribute.
func (n *Node) Classes() []string {
	return strings.Fields(n.Attr("class"))
}

// Children returns the child element nodes.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

func wrap(nodes []*xmlquery.Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = &Node{node: n}
	}
	return out
}

func wrapOne(n *xmlquery.Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{node: n}
}

package xml

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// xmlNamespaceURI is the namespace bound to the reserved "xml" prefix.
const xmlNamespaceURI = "http://www.w3.org/XML/1998/namespace"

// Attr is a single element attribute. Prefixed attributes keep their prefix
// in Name (e.g. "xml:lang").
type Attr struct {
	Name  string
	Value string
}

// Element is an immutable, parser-independent view of one XML element.
//
// Text holds the character data before the first child element. Tail holds
// the character data that follows this element and precedes its next
// sibling, so mixed content such as
//
//	<p>In the <hi>beginning</hi> God</p>
//
// becomes p{Text:"In the ", Children:[hi{Text:"beginning", Tail:" God"}]}.
type Element struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Tail     string
	Children []*Element
}

// Tree converts the document's root element into an element tree.
func (d *Document) Tree() *Element {
	root := d.rootElement()
	if root == nil {
		return nil
	}
	return buildElement(root)
}

// ParseTree parses XML data and returns its root element tree.
func ParseTree(data []byte) (*Element, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	tree := doc.Tree()
	if tree == nil {
		return nil, ErrNoRoot
	}
	return tree, nil
}

// LookupAttr returns the named attribute and whether it was present.
func (e *Element) LookupAttr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attr returns the named attribute, or "" when absent.
func (e *Element) Attr(name string) string {
	v, _ := e.LookupAttr(name)
	return v
}

// HasChildren reports whether the element has child elements.
func (e *Element) HasChildren() bool {
	return len(e.Children) > 0
}

// IsEmpty reports whether the element has neither children nor
// non-whitespace direct text.
func (e *Element) IsEmpty() bool {
	return len(e.Children) == 0 && strings.TrimSpace(e.Text) == ""
}

// Child returns the first direct child with the given tag.
func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func buildElement(n *xmlquery.Node) *Element {
	el := &Element{Tag: n.Data}

	for _, a := range n.Attr {
		if isNamespaceDecl(a) {
			continue
		}
		el.Attrs = append(el.Attrs, Attr{Name: attrName(a), Value: a.Value})
	}

	var text strings.Builder
	var last *Element
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode:
			if last == nil {
				el.Text = text.String()
			} else {
				last.Tail = text.String()
			}
			text.Reset()
			last = buildElement(child)
			el.Children = append(el.Children, last)
		case xmlquery.TextNode, xmlquery.CharDataNode:
			text.WriteString(child.Data)
		}
	}
	if last == nil {
		el.Text = text.String()
	} else {
		last.Tail = text.String()
	}

	return el
}

func isNamespaceDecl(a xmlquery.Attr) bool {
	return a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns")
}

func attrName(a xmlquery.Attr) string {
	switch a.Name.Space {
	case "":
		return a.Name.Local
	case xmlNamespaceURI:
		return "xml:" + a.Name.Local
	default:
		return a.Name.Space + ":" + a.Name.Local
	}
}

// Package tree adds the preserveAspectRatio attribute by parsing the document into an element tree and serializing it again.
// Parsing rejects documents that are not well-formed; serialization normalizes the XML declaration, attribute quotes and empty elements.
package tree // import "github.com/tdewolff/svgaspect/tree"

import (
	"bytes"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
	"github.com/tdewolff/svgaspect"
)

var (
	gtBytes         = []byte(">")
	commentBytes    = []byte("--")
	commentEndBytes = []byte("-->")
	cdataEndBytes   = []byte("]]>")
	xmlBytes        = []byte("xml")
)

// NodeType is the type of a Node.
type NodeType int

// NodeType values.
const (
	ElementNode NodeType = iota
	TextNode
	CommentNode
	CDATANode
	DoctypeNode
	PINode
)

// Attr is an element attribute. Val is the raw value without quotes, entities are not decoded.
type Attr struct {
	Name string
	Val  []byte
}

// Node is a node in the document tree. Elements and processing instructions have a Name,
// elements have Attrs and Children, all other nodes keep their source text in Data.
type Node struct {
	Type     NodeType
	Name     string
	Attrs    []Attr
	Children []*Node
	Data     []byte
}

// Attr returns the value of the attribute with the given name.
func (n *Node) Attr(name string) ([]byte, bool) {
	for _, attr := range n.Attrs {
		if attr.Name == name {
			return attr.Val, true
		}
	}
	return nil, false
}

// SetAttr sets the value of an attribute, adding it after all other attributes if it does not exist.
func (n *Node) SetAttr(name, val string) {
	for i, attr := range n.Attrs {
		if attr.Name == name {
			n.Attrs[i].Val = []byte(val)
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{name, []byte(val)})
}

// LocalName returns the element name without its namespace prefix.
func (n *Node) LocalName() string {
	if i := strings.IndexByte(n.Name, ':'); i != -1 {
		return n.Name[i+1:]
	}
	return n.Name
}

// Namespace returns the namespace URI of the element name as declared on the element itself.
func (n *Node) Namespace() string {
	key := "xmlns"
	if i := strings.IndexByte(n.Name, ':'); i != -1 {
		key += ":" + n.Name[:i]
	}
	val, _ := n.Attr(key)
	return string(val)
}

// Document is a parsed XML document. Nodes are the top-level nodes in order, including Root.
// The XML declaration is not kept.
type Document struct {
	Nodes []*Node
	Root  *Node
}

////////////////////////////////////////////////////////////////

type parser struct {
	r  *parse.Input
	l  *xml.Lexer
	tb *TokenBuffer
}

// Parse parses a well-formed XML document. The lexer normalizes whitespace in attribute values in place, so b is copied first.
// Line endings are normalized to \n, so that \r\n in an attribute value becomes a single space.
func Parse(b []byte) (*Document, error) {
	b = bytes.TrimPrefix(b, svgaspect.BOM)
	r := parse.NewInputBytes(normalizeNewlines(b))
	l := xml.NewLexer(r)
	p := &parser{r, l, NewTokenBuffer(l)}
	return p.parse()
}

// normalizeNewlines returns a copy of b with \r\n and lone \r replaced by \n.
func normalizeNewlines(b []byte) []byte {
	c := make([]byte, 0, len(b)+1)
	for {
		i := bytes.IndexByte(b, '\r')
		if i == -1 {
			return append(c, b...)
		}
		c = append(c, b[:i]...)
		c = append(c, '\n')
		b = b[i+1:]
		if 0 < len(b) && b[0] == '\n' {
			b = b[1:]
		}
	}
}

func (p *parser) errorf(format string, a ...interface{}) error {
	return parse.NewErrorLexer(p.r, format, a...)
}

func (p *parser) parse() (*Document, error) {
	doc := &Document{}
	var stack []*Node
	for {
		t := *p.tb.Shift()

		var n *Node
		switch t.TokenType {
		case xml.ErrorToken:
			if err := p.l.Err(); err != io.EOF {
				return nil, err
			} else if 0 < len(stack) {
				return nil, p.errorf("unexpected end of file, <%s> is not closed", stack[len(stack)-1].Name)
			} else if doc.Root == nil {
				return nil, svgaspect.ErrNoRoot
			}
			return doc, nil
		case xml.TextToken:
			if len(stack) == 0 {
				if !parse.IsAllWhitespace(t.Data) {
					return nil, p.errorf("unexpected text outside of root element")
				}
				continue
			} else if bytes.Contains(t.Data, cdataEndBytes) {
				return nil, p.errorf("unexpected ]]> in text")
			} else if !validReferences(t.Data) {
				return nil, p.errorf("invalid entity reference in text")
			}
			n = &Node{Type: TextNode, Data: t.Data}
		case xml.CommentToken:
			if len(t.Data) < 7 || !bytes.HasSuffix(t.Data, commentEndBytes) {
				return nil, p.errorf("unterminated comment")
			} else if body := t.Data[4 : len(t.Data)-3]; bytes.Contains(body, commentBytes) || bytes.HasSuffix(body, []byte("-")) {
				return nil, p.errorf("comment must not contain --")
			}
			n = &Node{Type: CommentNode, Data: t.Data}
		case xml.CDATAToken:
			if len(stack) == 0 {
				return nil, p.errorf("unexpected CDATA section outside of root element")
			} else if !bytes.HasSuffix(t.Data, cdataEndBytes) {
				return nil, p.errorf("unterminated CDATA section")
			}
			n = &Node{Type: CDATANode, Data: t.Data}
		case xml.DOCTYPEToken:
			if len(stack) != 0 || doc.Root != nil {
				return nil, p.errorf("unexpected document type declaration")
			} else if !bytes.HasSuffix(t.Data, gtBytes) {
				return nil, p.errorf("unterminated document type declaration")
			}
			n = &Node{Type: DoctypeNode, Data: t.Data}
		case xml.StartTagPIToken:
			var err error
			if n, err = p.processingInstruction(t); err != nil {
				return nil, err
			}
			if bytes.Equal(t.Text, xmlBytes) {
				if len(doc.Nodes) != 0 || len(stack) != 0 {
					return nil, p.errorf("XML declaration allowed only at the start of the document")
				}
				continue
			}
		case xml.StartTagToken:
			if len(stack) == 0 && doc.Root != nil {
				return nil, p.errorf("unexpected element <%s> after root element", t.Text)
			}
			el, void, err := p.element(t)
			if err != nil {
				return nil, err
			}
			if len(stack) == 0 {
				doc.Root = el
				doc.Nodes = append(doc.Nodes, el)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			if !void {
				stack = append(stack, el)
			}
			continue
		case xml.EndTagToken:
			if !bytes.HasSuffix(t.Data, gtBytes) {
				return nil, p.errorf("unterminated end tag </%s>", t.Text)
			} else if len(stack) == 0 {
				return nil, p.errorf("unexpected end tag </%s>", t.Text)
			} else if top := stack[len(stack)-1]; top.Name != string(t.Text) {
				return nil, p.errorf("end tag </%s> does not match <%s>", t.Text, top.Name)
			}
			stack = stack[:len(stack)-1]
			continue
		default:
			return nil, p.errorf("unexpected %v", t.TokenType)
		}

		if len(stack) == 0 {
			doc.Nodes = append(doc.Nodes, n)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, n)
		}
	}
}

// element parses the attributes and the end of a start tag. It reports whether the element is void (/>).
func (p *parser) element(t Token) (*Node, bool, error) {
	if !isName(t.Text) {
		return nil, false, p.errorf("invalid element name %q", t.Text)
	}
	n := &Node{Type: ElementNode, Name: string(t.Text)}
	for p.tb.Peek(0).TokenType == xml.AttributeToken {
		attr := *p.tb.Shift()
		val := attr.AttrVal
		if !isName(attr.Text) {
			return nil, false, p.errorf("invalid attribute name %q in <%s>", attr.Text, n.Name)
		} else if len(val) < 2 || val[0] != '"' && val[0] != '\'' || val[len(val)-1] != val[0] {
			return nil, false, p.errorf("attribute %s of <%s> must have a quoted value", attr.Text, n.Name)
		}
		val = val[1 : len(val)-1]
		if bytes.IndexByte(val, '<') != -1 {
			return nil, false, p.errorf("attribute %s of <%s> must not contain <", attr.Text, n.Name)
		} else if !validReferences(val) {
			return nil, false, p.errorf("invalid entity reference in attribute %s of <%s>", attr.Text, n.Name)
		} else if _, ok := n.Attr(string(attr.Text)); ok {
			return nil, false, p.errorf("duplicate attribute %s in <%s>", attr.Text, n.Name)
		}
		n.Attrs = append(n.Attrs, Attr{string(attr.Text), val})
	}

	switch t := *p.tb.Shift(); t.TokenType {
	case xml.StartTagCloseToken:
		return n, false, nil
	case xml.StartTagCloseVoidToken:
		return n, true, nil
	case xml.ErrorToken:
		if err := p.l.Err(); err != io.EOF {
			return nil, false, err
		}
		return nil, false, p.errorf("unexpected end of file in start tag <%s>", n.Name)
	default:
		return nil, false, p.errorf("unexpected %v in start tag <%s>", t.TokenType, n.Name)
	}
}

// processingInstruction parses <?target ...?> and keeps its normalized source text.
func (p *parser) processingInstruction(t Token) (*Node, error) {
	n := &Node{Type: PINode, Name: string(t.Text)}
	data := append([]byte("<?"), t.Text...)
	for {
		switch t := *p.tb.Shift(); t.TokenType {
		case xml.AttributeToken:
			data = append(data, ' ')
			data = append(data, t.Text...)
			if 0 < len(t.AttrVal) {
				data = append(data, '=')
				data = append(data, t.AttrVal...)
			}
		case xml.StartTagClosePIToken:
			n.Data = append(data, "?>"...)
			return n, nil
		case xml.ErrorToken:
			if err := p.l.Err(); err != io.EOF {
				return nil, err
			}
			return nil, p.errorf("unterminated processing instruction <?%s", n.Name)
		default:
			return nil, p.errorf("unexpected %v in processing instruction <?%s", t.TokenType, n.Name)
		}
	}
}

////////////////////////////////////////////////////////////////

func isNameStart(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_' || c == ':' || 0x80 <= c
}

func isNameChar(c byte) bool {
	return isNameStart(c) || '0' <= c && c <= '9' || c == '-' || c == '.'
}

func isName(b []byte) bool {
	if len(b) == 0 || !isNameStart(b[0]) {
		return false
	}
	for _, c := range b[1:] {
		if !isNameChar(c) {
			return false
		}
	}
	return true
}

// validReferences returns true if every & in b starts an entity or character reference such as &amp; &#38; or &#x26;.
func validReferences(b []byte) bool {
	for i := 0; i < len(b); i++ {
		if b[i] != '&' {
			continue
		}
		j := bytes.IndexByte(b[i:], ';')
		if j < 2 {
			return false
		}
		ref := b[i+1 : i+j]
		if ref[0] == '#' {
			if 1 < len(ref) && ref[1] == 'x' {
				if len(ref) == 2 {
					return false
				}
				for _, c := range ref[2:] {
					if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
						return false
					}
				}
			} else {
				if len(ref) == 1 {
					return false
				}
				for _, c := range ref[1:] {
					if c < '0' || '9' < c {
						return false
					}
				}
			}
		} else if !isName(ref) {
			return false
		}
		i += j
	}
	return true
}

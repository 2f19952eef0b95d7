// Package text adds the preserveAspectRatio attribute by inserting it into the source text of the root start tag.
// All other bytes of the document are preserved.
package text // import "github.com/tdewolff/svgaspect/text"

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/svgaspect"
)

var (
	attrBytes = []byte(" " + svgaspect.AttrName + `="` + svgaspect.AttrValue + `"`)
	svgBytes  = []byte("svg")

	piStartBytes      = []byte("<?")
	piEndBytes        = []byte("?>")
	commentStartBytes = []byte("<!--")
	commentEndBytes   = []byte("-->")
	cdataStartBytes   = []byte("<![CDATA[")
	cdataEndBytes     = []byte("]]>")
	declStartBytes    = []byte("<!")
	endTagStartBytes  = []byte("</")
)

// Attr is an attribute of a start tag. Val excludes the quotes and is nil when the attribute has no value.
type Attr struct {
	Name []byte
	Val  []byte
}

// Tag is the start tag of the root element with offsets into the document.
type Tag struct {
	Name  []byte
	Attrs []Attr
	Void  bool

	Start  int // offset of <
	Insert int // offset directly after the name or the last attribute
	End    int // offset directly after > or />
}

// Attr returns the value of the attribute with the given name.
func (tag Tag) Attr(name string) ([]byte, bool) {
	for _, attr := range tag.Attrs {
		if string(attr.Name) == name {
			return attr.Val, true
		}
	}
	return nil, false
}

////////////////////////////////////////////////////////////////

// Rewriter is the text rewriter.
type Rewriter struct{}

// Rewrite inserts the attribute before the end of the root start tag, after any existing attributes.
func Rewrite(w io.Writer, b []byte) (bool, error) {
	return (Rewriter{}).Rewrite(w, b)
}

// Rewrite inserts the attribute before the end of the root start tag, after any existing attributes.
func (Rewriter) Rewrite(w io.Writer, b []byte) (bool, error) {
	tag, err := FindRoot(b)
	if err != nil {
		return false, err
	}
	if _, ok := tag.Attr(svgaspect.AttrName); ok {
		return false, nil
	}

	if _, err := w.Write(b[:tag.Insert]); err != nil {
		return false, err
	}
	if _, err := w.Write(attrBytes); err != nil {
		return false, err
	}
	if _, err := w.Write(b[tag.Insert:]); err != nil {
		return false, err
	}
	return true, nil
}

// FindRoot returns the first start tag of the document, skipping the XML declaration, comments,
// processing instructions and the document type declaration. Its local name must be svg.
func FindRoot(b []byte) (Tag, error) {
	z := &scanner{b: b}
	if bytes.HasPrefix(b, svgaspect.BOM) {
		z.pos = len(svgaspect.BOM)
	}
	for {
		i := bytes.IndexByte(z.b[z.pos:], '<')
		if i == -1 {
			return Tag{}, svgaspect.ErrNoRoot
		}
		z.pos += i

		var err error
		switch {
		case z.hasPrefix(piStartBytes):
			err = z.skipPast(piEndBytes, "processing instruction")
		case z.hasPrefix(commentStartBytes):
			err = z.skipPast(commentEndBytes, "comment")
		case z.hasPrefix(cdataStartBytes):
			err = z.skipPast(cdataEndBytes, "CDATA section")
		case z.hasPrefix(declStartBytes):
			err = z.skipDeclaration()
		case z.hasPrefix(endTagStartBytes):
			return Tag{}, z.errorf("unexpected end tag before root element")
		default:
			return z.startTag()
		}
		if err != nil {
			return Tag{}, err
		}
	}
}

////////////////////////////////////////////////////////////////

type scanner struct {
	b   []byte
	pos int
}

func (z *scanner) errorf(format string, a ...interface{}) error {
	return parse.NewError(bytes.NewReader(z.b), z.pos, format, a...)
}

func (z *scanner) hasPrefix(prefix []byte) bool {
	return bytes.HasPrefix(z.b[z.pos:], prefix)
}

func (z *scanner) peek(i int) byte {
	if z.pos+i < len(z.b) {
		return z.b[z.pos+i]
	}
	return 0
}

func (z *scanner) skipWhitespace() {
	for z.pos < len(z.b) && parse.IsWhitespace(z.b[z.pos]) {
		z.pos++
	}
}

func (z *scanner) skipPast(end []byte, what string) error {
	i := bytes.Index(z.b[z.pos:], end)
	if i == -1 {
		return z.errorf("unterminated %s", what)
	}
	z.pos += i + len(end)
	return nil
}

// skipDeclaration skips <!DOCTYPE ...> including an internal subset in brackets.
// Comments and processing instructions in the internal subset are skipped as a whole.
func (z *scanner) skipDeclaration() error {
	start := z.pos
	depth := 0
	var quote byte
	z.pos += len(declStartBytes)
	for z.pos < len(z.b) {
		c := z.b[z.pos]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
		} else if 0 < depth && (z.hasPrefix(commentStartBytes) || z.hasPrefix(piStartBytes)) {
			open, end := commentStartBytes, commentEndBytes
			if z.hasPrefix(piStartBytes) {
				open, end = piStartBytes, piEndBytes
			}
			i := bytes.Index(z.b[z.pos+len(open):], end)
			if i == -1 {
				break
			}
			z.pos += len(open) + i + len(end)
			continue
		} else if c == '"' || c == '\'' {
			quote = c
		} else if c == '[' {
			depth++
		} else if c == ']' && 0 < depth {
			depth--
		} else if c == '>' && depth == 0 {
			z.pos++
			return nil
		}
		z.pos++
	}
	z.pos = start
	return z.errorf("unterminated document type declaration")
}

// isTagEnd returns true at > or />.
func (z *scanner) isTagEnd() bool {
	c := z.peek(0)
	return c == '>' || c == '/' && z.peek(1) == '>'
}

func (z *scanner) startTag() (Tag, error) {
	tag := Tag{Start: z.pos}
	z.pos++ // <
	nameStart := z.pos
	for z.pos < len(z.b) && !parse.IsWhitespace(z.b[z.pos]) && !z.isTagEnd() {
		z.pos++
	}
	tag.Name = z.b[nameStart:z.pos]
	if len(tag.Name) == 0 {
		return Tag{}, z.errorf("expected element name")
	}
	local := tag.Name
	if i := bytes.LastIndexByte(local, ':'); i != -1 {
		local = local[i+1:]
	}
	if !bytes.Equal(local, svgBytes) {
		return Tag{}, errors.Wrapf(svgaspect.ErrNotSVG, "root element is <%s>", tag.Name)
	}

	tag.Insert = z.pos
	for {
		z.skipWhitespace()
		if len(z.b) <= z.pos {
			return Tag{}, z.errorf("unterminated start tag <%s>", tag.Name)
		} else if z.b[z.pos] == '>' {
			tag.End = z.pos + 1
			return tag, nil
		} else if z.isTagEnd() {
			tag.Void = true
			tag.End = z.pos + 2
			return tag, nil
		}

		attr, err := z.attribute()
		if err != nil {
			return Tag{}, err
		}
		tag.Attrs = append(tag.Attrs, attr)
		tag.Insert = z.pos
	}
}

func (z *scanner) attribute() (Attr, error) {
	nameStart := z.pos
	for z.pos < len(z.b) && !parse.IsWhitespace(z.b[z.pos]) && z.b[z.pos] != '=' && !z.isTagEnd() {
		z.pos++
	}
	if z.pos == nameStart {
		return Attr{}, z.errorf("expected attribute name")
	}
	attr := Attr{Name: z.b[nameStart:z.pos]}

	end := z.pos
	z.skipWhitespace()
	if z.peek(0) != '=' {
		z.pos = end
		return attr, nil
	}
	z.pos++ // =
	z.skipWhitespace()

	if quote := z.peek(0); quote == '"' || quote == '\'' {
		i := bytes.IndexByte(z.b[z.pos+1:], quote)
		if i == -1 {
			return Attr{}, z.errorf("unterminated value of attribute %s", attr.Name)
		}
		attr.Val = z.b[z.pos+1 : z.pos+1+i]
		z.pos += i + 2
		return attr, nil
	}

	valStart := z.pos
	for z.pos < len(z.b) && !parse.IsWhitespace(z.b[z.pos]) && !z.isTagEnd() {
		z.pos++
	}
	if z.pos == valStart {
		return Attr{}, z.errorf("expected value of attribute %s", attr.Name)
	}
	attr.Val = z.b[valStart:z.pos]
	return attr, nil
}

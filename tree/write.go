package tree

import (
	"io"
)

var (
	declBytes               = []byte(`<?xml version="1.0" encoding="UTF-8"?>`)
	newlineBytes            = []byte("\n")
	ltBytes                 = []byte("<")
	voidBytes               = []byte("/>")
	isBytes                 = []byte("=")
	spaceBytes              = []byte(" ")
	endBytes                = []byte("</")
	escapedDoubleQuoteBytes = []byte("&#34;")
)

type writer struct {
	w   io.Writer
	n   int64
	err error
	buf []byte
}

func (z *writer) write(b []byte) {
	if z.err != nil {
		return
	}
	n, err := z.w.Write(b)
	z.n += int64(n)
	z.err = err
}

func (z *writer) writeString(s string) {
	z.write([]byte(s))
}

// WriteTo writes the document preceded by an XML declaration, each top-level node on its own line.
func (doc *Document) WriteTo(w io.Writer) (int64, error) {
	z := &writer{w: w, buf: make([]byte, 0, 64)}
	z.write(declBytes)
	z.write(newlineBytes)
	for _, n := range doc.Nodes {
		z.node(n)
		z.write(newlineBytes)
	}
	return z.n, z.err
}

func (z *writer) node(n *Node) {
	if n.Type != ElementNode {
		z.write(n.Data)
		return
	}

	z.write(ltBytes)
	z.writeString(n.Name)
	for _, attr := range n.Attrs {
		z.write(spaceBytes)
		z.writeString(attr.Name)
		z.write(isBytes)
		z.write(escapeAttrVal(&z.buf, attr.Val))
	}
	if len(n.Children) == 0 {
		z.write(voidBytes)
		return
	}
	z.write(gtBytes)
	for _, child := range n.Children {
		z.node(child)
	}
	z.write(endBytes)
	z.writeString(n.Name)
	z.write(gtBytes)
}

// escapeAttrVal returns the attribute value bytes in double quotes, escaping double quotes in b.
func escapeAttrVal(buf *[]byte, b []byte) []byte {
	t := (*buf)[:0]
	t = append(t, '"')
	start := 0
	for i, c := range b {
		if c == '"' {
			t = append(t, b[start:i]...)
			t = append(t, escapedDoubleQuoteBytes...)
			start = i + 1
		}
	}
	t = append(t, b[start:]...)
	t = append(t, '"')
	*buf = t
	return t
}

package tree // import "github.com/tdewolff/svgaspect/tree"

import (
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// Token is a single token unit with its name or text and attribute value (if given).
type Token struct {
	xml.TokenType
	Data    []byte
	Text    []byte
	AttrVal []byte
}

// TokenBuffer is a buffer that allows for token look-ahead.
type TokenBuffer struct {
	l *xml.Lexer

	buf []Token
	pos int
}

// NewTokenBuffer returns a new TokenBuffer.
func NewTokenBuffer(l *xml.Lexer) *TokenBuffer {
	return &TokenBuffer{
		l:   l,
		buf: make([]Token, 0, 8),
	}
}

func (z *TokenBuffer) read(p []Token) int {
	for i := 0; i < len(p); i++ {
		tt, data := z.l.Next()
		t := Token{TokenType: tt, Data: parse.Copy(data)}
		if tt != xml.ErrorToken && tt != xml.TextToken {
			t.Text = parse.Copy(z.l.Text())
		}
		if tt == xml.AttributeToken {
			t.AttrVal = parse.Copy(z.l.AttrVal())
		}
		p[i] = t
		if tt == xml.ErrorToken {
			return i + 1
		}
	}
	return len(p)
}

// Peek returns the ith element and possibly does an allocation.
// Peeking past an error returns the error token.
func (z *TokenBuffer) Peek(i int) *Token {
	end := z.pos + i
	for len(z.buf) <= end {
		if 0 < len(z.buf) && z.buf[len(z.buf)-1].TokenType == xml.ErrorToken {
			return &z.buf[len(z.buf)-1]
		}

		c := cap(z.buf)
		d := len(z.buf) - z.pos
		var buf []Token
		if c == 0 || 2*d > c {
			buf = make([]Token, d, 2*c+1)
		} else {
			buf = z.buf[:d]
		}
		copy(buf, z.buf[z.pos:])

		n := z.read(buf[d:cap(buf)])
		end -= z.pos
		z.pos, z.buf = 0, buf[:d+n]
	}
	return &z.buf[end]
}

// Shift returns the first element and advances position.
func (z *TokenBuffer) Shift() *Token {
	t := z.Peek(0)
	if t.TokenType != xml.ErrorToken {
		z.pos++
	}
	return t
}

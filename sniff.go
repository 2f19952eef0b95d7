package svgaspect

import (
	"bytes"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"github.com/saintfish/chardet"
)

// BOM is the UTF-8 byte order mark.
var BOM = []byte("\xEF\xBB\xBF")

// headSize is the number of leading bytes needed to match all known binary file signatures.
const headSize = 261

// charsetSize is the number of leading bytes used to guess the charset.
const charsetSize = 512

// Sniff returns ErrBinary when b starts with the signature of a known binary file type,
// and ErrEncoding when b is not valid UTF-8. The wrapped message names the detected type or charset.
func Sniff(b []byte) error {
	head := b
	if headSize < len(head) {
		head = head[:headSize]
	}
	if kind, _ := filetype.Match(head); kind != filetype.Unknown {
		return errors.Wrapf(ErrBinary, "detected %s", kind.MIME.Value)
	}

	b = bytes.TrimPrefix(b, BOM)
	if !utf8.Valid(b) {
		return errors.Wrapf(ErrEncoding, "detected %s", Charset(b))
	}
	return nil
}

// Charset returns the best guess of the charset of b, or "unknown".
func Charset(b []byte) string {
	if charsetSize < len(b) {
		b = b[:charsetSize]
	}
	det := chardet.NewTextDetector()
	charGuess, err := det.DetectBest(b)
	if err != nil || charGuess == nil || charGuess.Charset == "" {
		return "unknown"
	}
	return charGuess.Charset
}

// Package textenc decodes source files into UTF-8 ahead of comment stripping.
// UTF-8 and ASCII input is passed through byte for byte, invalid sequences
// included.
package textenc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var encodings = map[string]encoding.Encoding{
	"utf-8":        encoding.Nop,
	"utf8":         encoding.Nop,
	"ascii":        encoding.Nop,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// Normalize lower-cases and trims an encoding name. The empty name means
// UTF-8.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "utf-8"
	}
	return n
}

// Lookup returns the encoding registered under name.
func Lookup(name string) (encoding.Encoding, error) {
	enc, ok := encodings[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q (supported: %s)", name, strings.Join(Supported(), ", "))
	}
	return enc, nil
}

// Supported lists the accepted encoding names in sorted order.
func Supported() []string {
	out := make([]string, 0, len(encodings))
	for k := range encodings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewReader returns a reader yielding r's content as UTF-8. A leading byte
// order mark is consumed.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	switch {
	case enc == encoding.Nop:
		return skipUTF8BOM(r), nil
	case strings.HasPrefix(Normalize(name), "utf-16"):
		// A BOM in the data wins over the configured byte order.
		return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
	default:
		return transform.NewReader(r, enc.NewDecoder()), nil
	}
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

func skipUTF8BOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	// Short inputs fail Peek; they cannot carry a BOM anyway.
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

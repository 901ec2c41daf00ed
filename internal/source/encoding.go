package source

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode returns r transcoded to UTF-8. A leading UTF-8 or UTF-16 byte order
// mark overrides charset and is removed. Invalid input becomes U+FFFD.
func Decode(r io.Reader, charset string) (io.Reader, error) {
	enc, err := Lookup(charset)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// Lookup resolves a WHATWG encoding label such as "latin1" or "shift_jis".
// The empty label is UTF-8.
func Lookup(charset string) (encoding.Encoding, error) {
	label := strings.TrimSpace(charset)
	if label == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc, nil
}

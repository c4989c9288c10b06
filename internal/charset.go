package internal

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// ErrUnknownCharset is returned by DecodeHTML when a forced charset label is
// not recognised.
var ErrUnknownCharset = errors.New("unknown charset")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeHTML converts raw HTML bytes to a UTF-8 string.
//
// With forced set, that label decides the charset. Otherwise the charset is
// sniffed from a byte order mark, a <meta> declaration in the first 1024
// bytes, or the content itself. It returns the decoded text and the
// canonical name of the charset used.
func DecodeHTML(data []byte, forced string) (string, string, error) {
	var (
		enc  encoding.Encoding
		name string
	)
	if forced = strings.TrimSpace(forced); forced != "" {
		e, err := htmlindex.Get(forced)
		if err != nil {
			return "", "", fmt.Errorf("%w: %q", ErrUnknownCharset, forced)
		}
		enc = e
		if name, err = htmlindex.Name(e); err != nil {
			name = strings.ToLower(forced)
		}
	} else {
		enc, name, _ = charset.DetermineEncoding(data, "")
	}

	if name == "utf-8" {
		return string(bytes.TrimPrefix(data, utf8BOM)), name, nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", name, fmt.Errorf("decode %s: %w", name, err)
	}
	return strings.TrimPrefix(string(out), "\uFEFF"), name, nil
}

// KnownCharset reports whether label names a charset DecodeHTML can force.
func KnownCharset(label string) bool {
	_, err := htmlindex.Get(strings.TrimSpace(label))
	return err == nil
}

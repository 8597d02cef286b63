// Package xmltext makes free text safe to embed in the record XML.
package xmltext

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrIllegalChar is returned for valid UTF-8 that XML 1.0 still forbids,
// such as most control characters.
var ErrIllegalChar = errors.New("character not allowed in XML")

var replacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape validates s as UTF-8, normalises it to NFC and escapes the three
// characters the record format does not allow in text nodes.
func Escape(s string) (string, error) {
	t := transform.Chain(encoding.UTF8Validator, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return "", fmt.Errorf("encode text: %w", err)
	}
	if i := strings.IndexFunc(out, illegal); i >= 0 {
		return "", fmt.Errorf("encode text: %w at byte %d", ErrIllegalChar, i)
	}
	return replacer.Replace(out), nil
}

// EscapeFallback is the degraded path used when Escape fails: invalid bytes
// and characters XML forbids become '?', then &, < and > are escaped.
func EscapeFallback(s string) string {
	s = strings.ToValidUTF8(s, "?")
	s = strings.Map(func(r rune) rune {
		if illegal(r) {
			return '?'
		}
		return r
	}, s)
	return replacer.Replace(s)
}

// illegal reports runes outside the XML 1.0 Char production.
func illegal(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return false
	case r < 0x20:
		return true
	case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return true
	}
	return false
}

package xmltext

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEscape_DisallowedCharacters(t *testing.T) {
	got, err := Escape("a < b & c > d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a &lt; b &amp; c &gt; d"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestEscape_NormalisesToNFC(t *testing.T) {
	// "e" + combining acute accent composes to a single code point.
	got, err := Escape("café")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "café" {
		t.Errorf("expected composed form, got %q", got)
	}
}

func TestEscape_InvalidUTF8(t *testing.T) {
	if _, err := Escape("bad \xff byte"); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
}

func TestEscape_ControlCharacter(t *testing.T) {
	if _, err := Escape("bell\x07"); !errors.Is(err, ErrIllegalChar) {
		t.Errorf("expected ErrIllegalChar, got %v", err)
	}
	if got, err := Escape("tab\tand\nnewline"); err != nil || got != "tab\tand\nnewline" {
		t.Errorf("expected whitespace kept, got %q (%v)", got, err)
	}
}

func TestEscapeFallback(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"x<\xff>&", "x&lt;?&gt;&amp;"},
		{"Caf\xe9 r\xe9sults", "Caf? r?sults"},
		{"bell\x07 \uFFFE", "bell? ?"},
		{"plain", "plain"},
	} {
		if got := EscapeFallback(tc.in); got != tc.want {
			t.Errorf("EscapeFallback(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestEscapeFallback_ParsesAsXML(t *testing.T) {
	text := EscapeFallback("Latin-1 caf\xe9 & <b>\x01")
	dec := xml.NewDecoder(strings.NewReader("<c>" + text + "</c>"))
	var got string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			got += string(cd)
		}
	}
	if want := "Latin-1 caf? & <b>?"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

package latex

import (
	"log/slog"
	"strings"

	"github.com/dgallion1/plotextract/internal/xmltext"
)

const labelHead = `\label{`

// AssembleCaption turns the payload of s into caption text: lines joined with
// single spaces, an embedded \label{...} removed, XML-unsafe characters
// escaped, surrounding space and one outer brace pair stripped.
func AssembleCaption(log *slog.Logger, lines []string, s Span) string {
	text := payload(lines, s)
	if s.MultiLine() {
		text = strings.ReplaceAll(text, "\n", " ")
		text = strings.ReplaceAll(text, "  ", " ")
	}
	return CleanCaption(log, text)
}

// CleanCaption applies the post-assembly cleaning steps to raw caption text.
func CleanCaption(log *slog.Logger, text string) string {
	if i := strings.Index(text, labelHead); i >= 0 {
		if s, ok := MatchBraces([]string{text}, 0, i, Curly); ok {
			text = text[:i] + text[s.CloseCol+1:]
		}
	}

	escaped, err := xmltext.Escape(text)
	if err != nil {
		if log != nil {
			log.Warn("caption cannot be encoded, using plain escaping", "caption", text, "error", err)
		}
		escaped = xmltext.EscapeFallback(text)
	}

	text = strings.TrimSpace(escaped)
	if len(text) > 1 && text[0] == '{' && text[len(text)-1] == '}' {
		text = text[1 : len(text)-1]
	}
	return text
}

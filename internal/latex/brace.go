package latex

import "strings"

// Bracket selects which pair MatchBraces balances.
type Bracket int

const (
	Curly Bracket = iota
	Square
	Paren
)

func (b Bracket) pair() (byte, byte) {
	switch b {
	case Square:
		return '[', ']'
	case Paren:
		return '(', ')'
	default:
		return '{', '}'
	}
}

// Span locates a bracketed payload. The columns point at the brackets
// themselves; the payload sits strictly between them.
type Span struct {
	OpenLine  int
	OpenCol   int
	CloseLine int
	CloseCol  int
}

// MultiLine reports whether the payload crosses a line boundary.
func (s Span) MultiLine() bool { return s.CloseLine > s.OpenLine }

// MatchBraces finds the first opening bracket at or after col on line (or,
// failing that, the first one on any later line) and follows same-kind
// nesting until it closes. Other bracket kinds are ignored.
//
// When no opening bracket exists or the nesting never closes it returns
// Span{OpenLine: line, CloseLine: line} with zero columns and false.
func MatchBraces(lines []string, line, col int, kind Bracket) (Span, bool) {
	fail := Span{OpenLine: line, CloseLine: line}
	if line < 0 || line >= len(lines) {
		return fail, false
	}
	lb, rb := kind.pair()

	col = max(col, 0)
	col = min(col, len(lines[line]))

	openLine := line
	openCol := strings.IndexByte(lines[line][col:], lb)
	if openCol >= 0 {
		openCol += col
	} else {
		for openLine = line + 1; openLine < len(lines); openLine++ {
			if openCol = strings.IndexByte(lines[openLine], lb); openCol >= 0 {
				break
			}
		}
		if openCol < 0 {
			return fail, false
		}
	}

	depth := 0
	c := openCol
	for l := openLine; l < len(lines); l++ {
		s := lines[l]
		for ; c < len(s); c++ {
			switch s[c] {
			case lb:
				depth++
			case rb:
				depth--
				if depth == 0 {
					return Span{OpenLine: openLine, OpenCol: openCol, CloseLine: l, CloseCol: c}, true
				}
			}
		}
		c = 0
	}
	return fail, false
}

// payload returns the raw text between the brackets of s, joining lines with
// a single space.
func payload(lines []string, s Span) string {
	if !s.MultiLine() {
		return lines[s.OpenLine][s.OpenCol+1 : s.CloseCol]
	}
	parts := make([]string, 0, s.CloseLine-s.OpenLine+1)
	parts = append(parts, lines[s.OpenLine][s.OpenCol+1:])
	parts = append(parts, lines[s.OpenLine+1:s.CloseLine]...)
	parts = append(parts, lines[s.CloseLine][:s.CloseCol])
	return strings.Join(parts, " ")
}

// capture is MatchBraces followed by payload.
func capture(lines []string, line, col int, kind Bracket) (string, Span, bool) {
	s, ok := MatchBraces(lines, line, col, kind)
	if !ok {
		return "", s, false
	}
	return payload(lines, s), s, true
}

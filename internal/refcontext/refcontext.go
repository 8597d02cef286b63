// Package refcontext pulls the prose surrounding references to a figure's
// label out of the LaTeX source, giving catalogue records a short textual
// description of what the figure shows.
package refcontext

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/plotextract/internal/figure"
)

// DefaultDisallowed lists macros that end a context window. They mark
// structure (a new section, another float) rather than running prose.
var DefaultDisallowed = []string{"begin", "end", "section", "includegraphics", "caption", "acknowledgements"}

// Options bounds the context windows.
type Options struct {
	Window     int      // characters considered on each side of a reference
	Words      int      // words kept on each side
	Sentences  int      // sentences kept on each side
	Disallowed []string // macro names that stop a window
	RefMacros  []string // macros that reference a label, e.g. ref
}

func DefaultOptions() Options {
	return Options{
		Window:     750,
		Words:      75,
		Sentences:  2,
		Disallowed: DefaultDisallowed,
		RefMacros:  []string{"ref", "fig"},
	}
}

// macroName captures the last macro in a word.
var macroName = regexp.MustCompile(`.*\\(\w+)`)

// Extractor builds context windows. It is safe for concurrent use.
type Extractor struct {
	opts       Options
	disallowed map[string]bool
	refAlt     string
}

// New returns an Extractor; non-positive limits fall back to the defaults.
func New(opts Options) *Extractor {
	def := DefaultOptions()
	if opts.Window <= 0 {
		opts.Window = def.Window
	}
	if opts.Words <= 0 {
		opts.Words = def.Words
	}
	if opts.Sentences <= 0 {
		opts.Sentences = def.Sentences
	}
	if opts.Disallowed == nil {
		opts.Disallowed = def.Disallowed
	}
	if len(opts.RefMacros) == 0 {
		opts.RefMacros = def.RefMacros
	}

	e := &Extractor{opts: opts, disallowed: make(map[string]bool, len(opts.Disallowed))}
	for _, d := range opts.Disallowed {
		e.disallowed[d] = true
	}
	quoted := make([]string, len(opts.RefMacros))
	for i, m := range opts.RefMacros {
		quoted[i] = regexp.QuoteMeta(m)
	}
	e.refAlt = strings.Join(quoted, "|")
	return e
}

// Extract returns t with one context string per reference to its label in
// text. Tuples without a label come back unchanged.
func (e *Extractor) Extract(t figure.Tuple, text string) figure.Tuple {
	if t.Label == "" {
		return t
	}
	re, err := regexp.Compile(`\\(?:` + e.refAlt + `)\{` + regexp.QuoteMeta(t.Label) + `\}`)
	if err != nil {
		return t
	}

	var contexts []string
	for _, loc := range re.FindAllStringIndex(text, -1) {
		before := text[runeFloor(text, loc[0]-e.opts.Window):loc[0]]
		after := text[loc[1]:runeFloor(text, loc[1]+e.opts.Window)]
		c := e.backward(before) + ` \ref{` + t.Label + `} ` + e.forward(after)
		contexts = append(contexts, strings.TrimSpace(c))
	}
	t.Contexts = contexts
	return t
}

// runeFloor clamps i into text and backs it up to a rune boundary.
func runeFloor(text string, i int) int {
	i = max(0, min(i, len(text)))
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func (e *Extractor) boundary(word string) bool {
	m := macroName.FindStringSubmatch(word)
	return m != nil && e.disallowed[m[1]]
}

// backward keeps the words nearest the reference, walking away from it.
// Meeting a structural macro also drops any trailing piece of that macro's
// braced argument already collected.
func (e *Extractor) backward(window string) string {
	words := strings.Fields(window)
	kept := make([]string, 0, e.opts.Words)
	for i := len(words) - 1; i >= 0 && len(kept) < e.opts.Words; i-- {
		if e.boundary(words[i]) {
			for j := len(kept) - 1; j >= 0; j-- {
				if strings.Contains(kept[j], "}") {
					kept = kept[:j]
					break
				}
			}
			break
		}
		kept = append(kept, words[i])
	}
	slices.Reverse(kept)

	sentences := splitSentences(strings.Join(kept, " "))
	if len(sentences) > e.opts.Sentences {
		sentences = sentences[len(sentences)-e.opts.Sentences:]
	}
	return strings.Join(sentences, " ")
}

func (e *Extractor) forward(window string) string {
	words := strings.Fields(window)
	kept := make([]string, 0, e.opts.Words)
	for _, w := range words {
		if len(kept) >= e.opts.Words || e.boundary(w) {
			break
		}
		kept = append(kept, w)
	}

	sentences := splitSentences(strings.Join(kept, " "))
	if len(sentences) > e.opts.Sentences {
		sentences = sentences[:e.opts.Sentences]
	}
	return strings.Join(sentences, " ")
}

// splitSentences breaks single-spaced text at a space that follows . ? or !
// and precedes a capital letter.
func splitSentences(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 1; i+1 < len(s); i++ {
		if s[i] != ' ' {
			continue
		}
		switch s[i-1] {
		case '.', '?', '!':
		default:
			continue
		}
		if c := s[i+1]; c >= 'A' && c <= 'Z' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

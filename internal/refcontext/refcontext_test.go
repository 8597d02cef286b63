package refcontext

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dgallion1/plotextract/internal/figure"
)

func extract(t *testing.T, opts Options, label, text string) []string {
	t.Helper()
	return New(opts).Extract(figure.Tuple{Image: "a.png", Label: label}, text).Contexts
}

func TestExtract_SentenceCaps(t *testing.T) {
	text := `First point. Second point. We show the data in Figure \ref{fig:a} which rises sharply. Then it falls. Finally stable.`
	got := extract(t, DefaultOptions(), "fig:a", text)
	want := `Second point. We show the data in Figure \ref{fig:a} which rises sharply. Then it falls.`
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected [%q], got %q", want, got)
	}
}

func TestExtract_BackwardStopsAtSection(t *testing.T) {
	text := `\section{Our Results} We see \ref{fig:b} clearly.`
	got := extract(t, DefaultOptions(), "fig:b", text)
	want := `We see \ref{fig:b} clearly.`
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected [%q], got %q", want, got)
	}
}

func TestExtract_BoundaryIsLastMacroInWord(t *testing.T) {
	text := `Intro \emph{x}\section{Results} We see \ref{fig:d} clearly.`
	got := extract(t, DefaultOptions(), "fig:d", text)
	want := `We see \ref{fig:d} clearly.`
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected [%q], got %q", want, got)
	}
}

func TestExtract_ForwardStopsAtBegin(t *testing.T) {
	text := `\ref{fig:c} is shown. \begin{figure} hidden text`
	got := extract(t, DefaultOptions(), "fig:c", text)
	want := `\ref{fig:c} is shown.`
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected [%q], got %q", want, got)
	}
}

func TestExtract_EveryOccurrenceAndFigMacro(t *testing.T) {
	text := `See \ref{f1} here. Later \fig{f1} there. Not \ref{f1x} nor \ref{f2}.`
	got := extract(t, DefaultOptions(), "f1", text)
	if len(got) != 2 {
		t.Fatalf("expected 2 contexts, got %q", got)
	}
	for _, c := range got {
		if !strings.Contains(c, `\ref{f1}`) {
			t.Errorf("expected composed reference in %q", c)
		}
	}
}

func TestExtract_LabelIsLiteral(t *testing.T) {
	got := extract(t, DefaultOptions(), "fig:a.b", `Look at \ref{fig:aXb} now.`)
	if len(got) != 0 {
		t.Errorf("expected no match for regexp-like label, got %q", got)
	}
}

func TestExtract_NoLabelUnchanged(t *testing.T) {
	in := figure.Tuple{Image: "a.png", Caption: "c"}
	out := New(DefaultOptions()).Extract(in, `\ref{} text`)
	if out.Contexts != nil || out.Caption != "c" {
		t.Errorf("expected tuple unchanged, got %+v", out)
	}
}

func TestExtract_WindowRespectsRuneBoundaries(t *testing.T) {
	opts := DefaultOptions()
	opts.Window = 5
	text := strings.Repeat("é", 10) + `\ref{x}` + strings.Repeat("ü", 10)
	got := extract(t, opts, "x", text)
	if len(got) != 1 {
		t.Fatalf("expected 1 context, got %q", got)
	}
	if !utf8.ValidString(got[0]) {
		t.Errorf("context split a rune: %q", got[0])
	}
}

func TestExtract_NeverExceedsCaps(t *testing.T) {
	var b strings.Builder
	for i := range 400 {
		fmt.Fprintf(&b, "Sentence number %d has some words in it. ", i)
		if i == 200 {
			b.WriteString(`Here is \ref{big} in the middle. `)
		}
	}
	text := b.String()

	for _, tc := range []struct{ words, sentences int }{{75, 2}, {10, 5}, {200, 1}, {3, 3}} {
		opts := DefaultOptions()
		opts.Words = tc.words
		opts.Sentences = tc.sentences
		opts.Window = 5000

		got := extract(t, opts, "big", text)
		if len(got) != 1 {
			t.Fatalf("expected 1 context, got %d", len(got))
		}
		before, after, ok := strings.Cut(got[0], `\ref{big}`)
		if !ok {
			t.Fatalf("reference missing from %q", got[0])
		}
		for side, s := range map[string]string{"before": before, "after": after} {
			if n := len(strings.Fields(s)); n > tc.words {
				t.Errorf("words=%d: %s side has %d words", tc.words, side, n)
			}
			if n := len(splitSentences(strings.Join(strings.Fields(s), " "))); n > tc.sentences {
				t.Errorf("sentences=%d: %s side has %d sentences", tc.sentences, side, n)
			}
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two? three. Four! 5. Six")
	want := []string{"One.", "Two? three.", "Four! 5.", "Six"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %q, got %q", want, got)
	}
}

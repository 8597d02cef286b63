package latex

import (
	"strings"

	"github.com/dgallion1/plotextract/internal/figure"
)

const (
	noCaptionFound  = "No caption found"
	noSubCaption    = "No caption"
	captionMissing  = "Caption not extracted"
	noImagePrefix   = "noimg"
	subCaptionJoint = " : "
)

// merge pairs the accumulated image and caption of st into tuples. at is the
// line where the figure was closed; it anchors the fallback caption search.
func (s *Scanner) merge(lines []string, at int, st *scanState, source string) []figure.Tuple {
	image := st.image.Without(NoFilename)
	caption := st.caption
	label := st.activeLabel

	tuple := func(img, c string) figure.Tuple {
		return figure.Tuple{Image: img, Caption: c, Label: label, Source: source}
	}

	var out []figure.Tuple
	switch {
	case image.IsEmpty() && caption.IsEmpty():
		return nil

	case image.IsEmpty():
		return []figure.Tuple{tuple("", noImagePrefix+flatten(caption))}

	case caption.IsEmpty():
		found := s.searchCaption(lines, at)
		if !image.IsCompound() {
			if found == "" {
				found = noCaptionFound
			}
			return []figure.Tuple{tuple(image.Main(), found)}
		}
		if image.Main() != "" {
			c := found
			if c == "" {
				c = noCaptionFound
			}
			out = append(out, tuple(image.Main(), c))
		}
		for _, sub := range image.Subs() {
			c := found
			if c == "" {
				c = noSubCaption
			}
			out = append(out, tuple(sub, c))
		}
		return out

	case image.IsCompound() && caption.IsCompound():
		main := caption.Main()
		if image.Main() != "" && main != "" {
			out = append(out, tuple(image.Main(), main))
		}
		subcaps := caption.Subs()
		for i, sub := range image.Subs() {
			switch {
			case i < len(subcaps):
				out = append(out, tuple(sub, joinCaption(main, subcaps[i])))
			case len(subcaps) > 0:
				out = append(out, tuple(sub, joinCaption(main, captionMissing)))
			default:
				out = append(out, tuple(sub, main))
			}
		}
		return out

	case image.IsCompound():
		c := caption.Main()
		if image.Main() != "" {
			out = append(out, tuple(image.Main(), c))
		}
		for _, sub := range image.Subs() {
			out = append(out, tuple(sub, c))
		}
		return out

	case caption.IsCompound():
		if caption.Main() != "" {
			out = append(out, tuple(image.Main(), caption.Main()))
		}
		for _, c := range caption.Subs() {
			out = append(out, tuple(image.Main(), c))
		}
		return out

	default:
		return []figure.Tuple{tuple(image.Main(), caption.Main())}
	}
}

// joinCaption prefixes a sub-caption with the umbrella caption.
func joinCaption(main, sub string) string {
	if main == "" {
		return sub
	}
	return main + subCaptionJoint + sub
}

// flatten renders a caption value as one string, parts separated by ": ".
func flatten(v figure.Value) string {
	if !v.IsCompound() {
		return v.Main()
	}
	parts := make([]string, 0, len(v.Subs())+1)
	if v.Main() != "" {
		parts = append(parts, v.Main())
	}
	for _, sub := range v.Subs() {
		if sub != "" {
			parts = append(parts, sub)
		}
	}
	return strings.Join(parts, ": ")
}

// searchCaption looks for a brace group near line at that could serve as a
// caption: first backwards (at included), then forwards. A group counts when
// its opening brace starts the line or follows whitespace, so macro
// arguments are never taken for captions.
func (s *Scanner) searchCaption(lines []string, at int) string {
	try := func(l int) string {
		if l < 0 || l >= len(lines) {
			return ""
		}
		col := captionBrace(lines[l])
		if col < 0 {
			return ""
		}
		span, ok := MatchBraces(lines, l, col, Curly)
		if !ok {
			return ""
		}
		return AssembleCaption(s.log, lines, span)
	}
	for l := at; l >= 0 && l > at-s.opts.CaptionSearchBack; l-- {
		if c := try(l); c != "" {
			return c
		}
	}
	for l := at + 1; l < len(lines) && l <= at+s.opts.CaptionSearchForward; l++ {
		if c := try(l); c != "" {
			return c
		}
	}
	return ""
}

func captionBrace(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != '{' {
			continue
		}
		if i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
			return i
		}
	}
	return -1
}

package figure

import (
	"slices"
	"strings"
)

// CaptionSeparator joins captions merged for the same image.
const CaptionSeparator = " : "

// Dedup merges tuples that share an image. The first occurrence keeps its
// position, label and contexts; every distinct caption seen for the image is
// joined with CaptionSeparator in first-seen order.
func Dedup(tuples []Tuple) []Tuple {
	captions := make(map[string][]string, len(tuples))
	var order []string
	for _, t := range tuples {
		seen, ok := captions[t.Image]
		if !ok {
			order = append(order, t.Image)
			captions[t.Image] = []string{t.Caption}
			continue
		}
		if !slices.Contains(seen, t.Caption) {
			captions[t.Image] = append(seen, t.Caption)
		}
	}

	first := make(map[string]Tuple, len(order))
	for _, t := range tuples {
		if _, ok := first[t.Image]; !ok {
			first[t.Image] = t
		}
	}

	out := make([]Tuple, 0, len(order))
	for _, img := range order {
		t := first[img]
		t.Caption = strings.Join(captions[img], CaptionSeparator)
		out = append(out, t)
	}
	return out
}

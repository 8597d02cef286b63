// Package record turns deduplicated figure tuples into catalogue records:
// MARCXML-style FFT entries plus the context sidecar files they point at.
package record

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/plotextract/internal/figure"
	"github.com/dgallion1/plotextract/internal/xmltext"
)

// Kind is the flavour of a record entry.
type Kind int

const (
	Plot Kind = iota
	PlotMisc
	Context
)

func (k Kind) String() string {
	switch k {
	case Plot:
		return "Plot"
	case PlotMisc:
		return "PlotMisc"
	case Context:
		return "Context"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Subfield codes used in FFT entries.
const (
	CodePath        = "a"
	CodeType        = "t"
	CodeDescription = "d"
	CodeName        = "n"
	CodeFormat      = "f"
	CodeOptions     = "o"
)

const (
	hidden        = "HIDDEN"
	contextSuffix = ".context"
	contextFormat = ".png;context"

	// Captions shorter than this are not worth showing.
	minCaptionLen = 3
)

// Attr is one subfield. Value is already escaped for XML text.
type Attr struct {
	Code  string
	Value string
}

// Entry is one FFT block. Index is the 1-based position of the figure the
// entry belongs to; a Context entry shares the index of its Plot.
type Entry struct {
	Kind  Kind
	Index int
	Attrs []Attr
}

// Get returns the first value stored under code.
func (e Entry) Get(code string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Code == code {
			return a.Value, true
		}
	}
	return "", false
}

// Record is the catalogue record for one archive.
type Record struct {
	RefNo      *int64
	Identifier string
	Entries    []Entry
}

// Sidecar is a file the record references that must be written next to the
// image it describes.
type Sidecar struct {
	Path    string
	Content string
}

// Build converts tuples into a record. Tuples without an image are skipped.
// It returns nil when no entry was produced.
func Build(tuples []figure.Tuple, identifier string, refno *int64) (*Record, []Sidecar) {
	rec := &Record{RefNo: refno, Identifier: identifier}
	var sidecars []Sidecar

	index := 0
	for _, t := range tuples {
		if t.Image == "" {
			continue
		}
		index++
		path := escape(t.Image)
		name := escape(Name(identifier, t.Image))
		desc := fmt.Sprintf("%05d %s", index, t.Caption)

		if utf8.RuneCountInString(t.Caption) < minCaptionLen {
			rec.Entries = append(rec.Entries, Entry{Kind: PlotMisc, Index: index, Attrs: []Attr{
				{CodePath, path},
				{CodeType, PlotMisc.String()},
				{CodeDescription, desc},
				{CodeName, name},
				{CodeOptions, hidden},
			}})
			continue
		}

		rec.Entries = append(rec.Entries, Entry{Kind: Plot, Index: index, Attrs: []Attr{
			{CodePath, path},
			{CodeType, Plot.String()},
			{CodeDescription, desc},
			{CodeName, name},
		}})

		if len(t.Contexts) == 0 {
			continue
		}
		ctxPath := t.Image + contextSuffix
		rec.Entries = append(rec.Entries, Entry{Kind: Context, Index: index, Attrs: []Attr{
			{CodePath, escape(ctxPath)},
			{CodeType, Plot.String()},
			{CodeFormat, contextFormat},
			{CodeOptions, hidden},
			{CodeName, name},
		}})
		sidecars = append(sidecars, Sidecar{Path: ctxPath, Content: strings.Join(t.Contexts, "\n\n")})
	}

	if len(rec.Entries) == 0 {
		return nil, nil
	}
	return rec, sidecars
}

// Name derives the catalogue name of an image: the record identifier and the
// image's base name without extension.
func Name(identifier, image string) string {
	base := filepath.Base(image)
	return identifier + "_" + strings.TrimSuffix(base, filepath.Ext(base))
}

func escape(s string) string {
	if out, err := xmltext.Escape(s); err == nil {
		return out
	}
	return xmltext.EscapeFallback(s)
}

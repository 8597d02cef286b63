package record

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

const (
	collectionOpen  = `<collection xmlns="http://www.loc.gov/MARC21/slim">` + "\n"
	collectionClose = "</collection>\n"
)

type xmlRecord struct {
	XMLName xml.Name       `xml:"record"`
	Control *xmlControl    `xml:"controlfield,omitempty"`
	Fields  []xmlDatafield `xml:"datafield"`
}

type xmlControl struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

type xmlDatafield struct {
	Tag       string        `xml:"tag,attr"`
	Ind1      string        `xml:"ind1,attr"`
	Ind2      string        `xml:"ind2,attr"`
	Subfields []xmlSubfield `xml:"subfield"`
}

// Values are pre-escaped, hence innerxml.
type xmlSubfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",innerxml"`
}

func (r *Record) marshalable() xmlRecord {
	out := xmlRecord{Fields: make([]xmlDatafield, 0, len(r.Entries))}
	if r.RefNo != nil {
		out.Control = &xmlControl{Tag: "001", Value: strconv.FormatInt(*r.RefNo, 10)}
	}
	for _, e := range r.Entries {
		df := xmlDatafield{Tag: "FFT", Ind1: " ", Ind2: " "}
		for _, a := range e.Attrs {
			df.Subfields = append(df.Subfields, xmlSubfield{Code: a.Code, Value: a.Value})
		}
		out.Fields = append(out.Fields, df)
	}
	return out
}

// Encode writes the <record> element to w.
func (r *Record) Encode(w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(r.marshalable()); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// WriteDocument writes a complete XML document holding one record.
func (r *Record) WriteDocument(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header+collectionOpen); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := r.Encode(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, collectionClose); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// WriteFile writes the record document to path, creating parent directories.
func (r *Record) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create record file: %w", err)
	}
	if err := r.WriteDocument(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteSidecars writes each sidecar file in place.
func WriteSidecars(sidecars []Sidecar) error {
	for _, s := range sidecars {
		if err := os.WriteFile(s.Path, []byte(s.Content), 0o644); err != nil {
			return fmt.Errorf("write sidecar %s: %w", s.Path, err)
		}
	}
	return nil
}

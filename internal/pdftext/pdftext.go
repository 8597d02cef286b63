// Package pdftext extracts plain text from a PDF found in a submission that
// ships no LaTeX source, so the record still has something searchable.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	pdflib "github.com/ledongthuc/pdf"
)

var (
	// ErrNoText is returned when a PDF yields no text at all.
	ErrNoText = errors.New("pdf has no extractable text")
	// ErrTimeout is returned when pdftotext outlives its deadline.
	ErrTimeout = errors.New("pdf text extraction timed out")
)

// Extractor tries the Go PDF reader first, then the pdftotext binary if
// FallbackPdftotext is set.
type Extractor struct {
	FallbackPdftotext bool
	Binary            string // defaults to pdftotext
	Timeout           time.Duration
}

// Text returns the document text with pages separated by form feeds.
func (e *Extractor) Text(ctx context.Context, path string) (string, error) {
	text, err := extractPDFText(path)
	if (err != nil || strings.TrimSpace(text) == "") && e.FallbackPdftotext {
		text, err = e.extractPdftotext(ctx, path)
	}
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// WriteSidecar stores the text of pdfPath next to it as <name>.txt and
// returns the sidecar path.
func (e *Extractor) WriteSidecar(ctx context.Context, pdfPath string) (string, error) {
	text, err := e.Text(ctx, pdfPath)
	if err != nil {
		return "", err
	}
	out := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".txt"
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write text sidecar: %w", err)
	}
	return out, nil
}

// FindPDF returns the first file that starts with a PDF header.
func FindPDF(files []string) (string, bool) {
	for _, f := range files {
		if isPDF(f) {
			return f, true
		}
	}
	return "", false
}

func isPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 5)
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, []byte("%PDF-"))
}

func extractPDFText(path string) (text string, err error) {
	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func (e *Extractor) extractPdftotext(ctx context.Context, path string) (string, error) {
	bin := e.Binary
	if bin == "" {
		bin = "pdftotext"
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, bin, "-layout", path, "-")
	cmd.WaitDelay = time.Second
	out, err := cmd.Output()
	if err != nil {
		switch ctxErr := ctx.Err(); {
		case errors.Is(ctxErr, context.DeadlineExceeded):
			return "", fmt.Errorf("%w: %w", ErrTimeout, ctxErr)
		case ctxErr != nil:
			return "", ctxErr
		}
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

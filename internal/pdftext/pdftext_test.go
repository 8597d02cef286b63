package pdftext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func write(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFindPDF(t *testing.T) {
	dir := t.TempDir()
	notes := write(t, dir, "notes.pdf", "not really a pdf", 0o644)
	paper := write(t, dir, "paper", "%PDF-1.5\n...", 0o644)

	got, ok := FindPDF([]string{notes, paper})
	if !ok || got != paper {
		t.Errorf("expected %s, got %q (ok=%v)", paper, got, ok)
	}
	if _, ok := FindPDF([]string{notes}); ok {
		t.Error("expected no pdf")
	}
}

func TestText_InvalidWithoutFallback(t *testing.T) {
	p := write(t, t.TempDir(), "broken.pdf", "%PDF-1.4 truncated", 0o644)
	e := &Extractor{}
	if _, err := e.Text(context.Background(), p); err == nil {
		t.Error("expected error for broken pdf")
	}
}

func TestWriteSidecar_Fallback(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script extractor")
	}
	dir := t.TempDir()
	bin := write(t, dir, "fake-pdftotext", "#!/bin/sh\necho 'Page one text'\n", 0o755)
	p := write(t, dir, "paper.pdf", "%PDF-1.4 truncated", 0o644)

	e := &Extractor{FallbackPdftotext: true, Binary: bin}
	out, err := e.WriteSidecar(context.Background(), p)
	if err != nil {
		t.Fatalf("sidecar: %v", err)
	}
	if out != filepath.Join(dir, "paper.txt") {
		t.Errorf("unexpected sidecar path %s", out)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Page one text\n" {
		t.Errorf("expected %q, got %q", "Page one text\n", data)
	}
}

func TestText_EmptyFallbackOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script extractor")
	}
	dir := t.TempDir()
	bin := write(t, dir, "fake-pdftotext", "#!/bin/sh\nprintf '  \\n'\n", 0o755)
	p := write(t, dir, "scan.pdf", "%PDF-1.4 truncated", 0o644)

	e := &Extractor{FallbackPdftotext: true, Binary: bin}
	if _, err := e.Text(context.Background(), p); !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
}

func TestText_FallbackTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script extractor")
	}
	dir := t.TempDir()
	bin := write(t, dir, "slow-pdftotext", "#!/bin/sh\nexec sleep 5\n", 0o755)
	p := write(t, dir, "paper.pdf", "%PDF-1.4 truncated", 0o644)

	e := &Extractor{FallbackPdftotext: true, Binary: bin, Timeout: 50 * time.Millisecond}
	start := time.Now()
	_, err := e.Text(context.Background(), p)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline in error chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("extractor did not stop at its deadline: %s", elapsed)
	}
}

func TestText_FallbackFailureIsNotTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script extractor")
	}
	dir := t.TempDir()
	bin := write(t, dir, "bad-pdftotext", "#!/bin/sh\nexit 3\n", 0o755)
	p := write(t, dir, "paper.pdf", "%PDF-1.4 truncated", 0o644)

	e := &Extractor{FallbackPdftotext: true, Binary: bin, Timeout: time.Minute}
	_, err := e.Text(context.Background(), p)
	if err == nil || errors.Is(err, ErrTimeout) {
		t.Errorf("expected a plain failure, got %v", err)
	}
}

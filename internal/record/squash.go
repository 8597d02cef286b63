package record

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SquashWriter accumulates the records of a whole batch in one document.
// Appends from concurrent workers are serialized.
type SquashWriter struct {
	mu      sync.Mutex
	f       *os.File
	records int
	closed  bool
}

// CreateSquash truncates path and writes the document header.
func CreateSquash(path string) (*SquashWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create squash dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create squash file: %w", err)
	}
	if _, err := f.WriteString(xml.Header + collectionOpen); err != nil {
		f.Close()
		return nil, fmt.Errorf("write squash header: %w", err)
	}
	return &SquashWriter{f: f}, nil
}

// Append adds one record. Encoding happens outside the lock.
func (s *SquashWriter) Append(r *Record) error {
	var buf bytes.Buffer
	if err := r.Encode(&buf); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("squash file already closed")
	}
	if _, err := s.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append to squash file: %w", err)
	}
	s.records++
	return nil
}

// Records returns how many records were appended.
func (s *SquashWriter) Records() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Close writes the document footer and closes the file.
func (s *SquashWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if _, err := s.f.WriteString(collectionClose); err != nil {
		s.f.Close()
		return fmt.Errorf("write squash footer: %w", err)
	}
	return s.f.Close()
}

// Path returns the squash file's name.
func (s *SquashWriter) Path() string { return s.f.Name() }

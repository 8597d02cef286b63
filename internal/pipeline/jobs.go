package pipeline

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// JobStatus represents the state of one archive's processing.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusConverting JobStatus = "converting"
	StatusScanning   JobStatus = "scanning"
	StatusWriting    JobStatus = "writing"
	StatusCompleted  JobStatus = "completed"
	StatusEmpty      JobStatus = "empty"
	StatusTimeout    JobStatus = "timeout"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions follow.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusEmpty, StatusTimeout, StatusFailed:
		return true
	}
	return false
}

// Job tracks the processing of a single archive.
type Job struct {
	mu sync.Mutex

	ID         string `json:"job_id"`
	Archive    string `json:"archive"`
	Identifier string `json:"identifier"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	Output      string    `json:"output,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	errors []string
}

// Progress counts what an archive yielded at each step.
type Progress struct {
	Files     int      `json:"files"`
	Sources   int      `json:"sources"`
	Images    int      `json:"images"`
	Converted int      `json:"converted"`
	Figures   int      `json:"figures"`
	Entries   int      `json:"entries"`
	Sidecars  int      `json:"sidecars"`
	Errors    []string `json:"errors"`
}

// NewJob returns a queued job for archive.
func NewJob(archive string) *Job {
	now := time.Now()
	return &Job{
		ID:         newJobID(),
		Archive:    archive,
		Identifier: Identifier(archive),
		Status:     StatusQueued,
		Phase:      "queued",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Identifier derives the record identifier from an archive path: its base
// name without archive extensions.
func Identifier(archive string) string {
	name := filepath.Base(archive)
	for _, ext := range []string{".gz", ".tgz", ".tar"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// JobStore is a thread-safe in-memory job registry.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Snapshots returns every job in creation order.
func (s *JobStore) Snapshots() []JobSnapshot {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	slices.SortFunc(jobs, func(a, b *Job) int { return strings.Compare(a.ID, b.ID) })
	out := make([]JobSnapshot, len(jobs))
	for i, j := range jobs {
		out[i] = j.Snapshot()
	}
	return out
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetExtracted records the archive's member counts.
func (j *Job) SetExtracted(files, sources, images int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Files = files
	j.Progress.Sources = sources
	j.Progress.Images = images
	j.UpdatedAt = time.Now()
}

func (j *Job) SetConverted(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Converted = n
	j.UpdatedAt = time.Now()
}

func (j *Job) SetFigures(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Figures = n
	j.UpdatedAt = time.Now()
}

// SetWritten records what ended up in the output and where.
func (j *Job) SetWritten(entries, sidecars int, output string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Entries = entries
	j.Progress.Sidecars = sidecars
	j.Output = output
	j.UpdatedAt = time.Now()
}

func (j *Job) setHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Archive     string    `json:"archive"`
	Identifier  string    `json:"identifier"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Progress    Progress  `json:"progress"`
	ContentHash string    `json:"content_hash,omitempty"`
	Output      string    `json:"output,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	p := j.Progress
	p.Errors = slices.Clone(errs)
	return JobSnapshot{
		ID:          j.ID,
		Archive:     j.Archive,
		Identifier:  j.Identifier,
		Status:      j.Status,
		Phase:       j.Phase,
		Progress:    p,
		ContentHash: j.ContentHash,
		Output:      j.Output,
	}
}

// FileHashHex computes SHA-256 of a file's content and returns hex string.
func FileHashHex(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/payrecon/internal/pages"
	"github.com/dgallion1/payrecon/internal/reconcile"
	"github.com/google/uuid"
)

// JobStatus represents the state of a comparison job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusExtracting  JobStatus = "extracting"
	StatusReconciling JobStatus = "reconciling"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Upload is one side of a comparison: the exported file and its name.
type Upload struct {
	Name string
	Data []byte
}

// Job tracks the state of a single payslip comparison.
type Job struct {
	mu sync.Mutex

	ID     string     `json:"job_id"`
	Status JobStatus  `json:"status"`
	Phase  string     `json:"phase"`
	Mode   pages.Mode `json:"mode"`

	FilenameA string `json:"filename_a"`
	FilenameB string `json:"filename_b"`
	HashA     string `json:"hash_a"`
	HashB     string `json:"hash_b"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileA  []byte
	fileB  []byte
	rows   []reconcile.Row
	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	PagesA   int      `json:"pages_a"`
	PagesB   int      `json:"pages_b"`
	MethodA  string   `json:"method_a,omitempty"`
	MethodB  string   `json:"method_b,omitempty"`
	Rows     int      `json:"rows"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// NewJob creates a queued job holding both uploads.
func NewJob(a, b Upload, mode pages.Mode) *Job {
	now := time.Now()
	return &Job{
		ID:        newJobID(),
		Status:    StatusQueued,
		Phase:     "queued",
		Mode:      mode,
		FilenameA: a.Name,
		FilenameB: b.Name,
		HashA:     ContentHashHex(a.Data),
		HashB:     ContentHashHex(b.Data),
		CreatedAt: now,
		UpdatedAt: now,
		fileA:     a.Data,
		fileB:     b.Data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
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

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
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

// SetDocuments records the page counts, methods and warnings of both sides.
func (j *Job) SetDocuments(a, b pages.Document) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.PagesA = len(a.Pages)
	j.Progress.PagesB = len(b.Pages)
	j.Progress.MethodA = a.Method
	j.Progress.MethodB = b.Method
	for _, w := range a.Warnings {
		j.Progress.Warnings = append(j.Progress.Warnings, "a: "+w)
	}
	for _, w := range b.Warnings {
		j.Progress.Warnings = append(j.Progress.Warnings, "b: "+w)
	}
	j.UpdatedAt = time.Now()
}

// SetRows stores the reconciliation result and releases the uploads.
func (j *Job) SetRows(rows []reconcile.Row) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = rows
	j.Progress.Rows = len(rows)
	j.fileA, j.fileB = nil, nil
	j.UpdatedAt = time.Now()
}

// Rows returns the reconciliation result, nil until the job completes.
func (j *Job) Rows() []reconcile.Row {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rows
}

// Uploads returns both files for processing.
func (j *Job) Uploads() (a, b Upload) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Upload{Name: j.FilenameA, Data: j.fileA}, Upload{Name: j.FilenameB, Data: j.fileB}
}

// Release drops the uploaded bytes once they are no longer needed.
func (j *Job) Release() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileA, j.fileB = nil, nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string             `json:"job_id"`
	Status    JobStatus          `json:"status"`
	Phase     string             `json:"phase"`
	Mode      pages.Mode         `json:"mode"`
	FilenameA string             `json:"filename_a"`
	FilenameB string             `json:"filename_b"`
	HashA     string             `json:"hash_a"`
	HashB     string             `json:"hash_b"`
	Progress  Progress           `json:"progress"`
	Summary   *reconcile.Summary `json:"summary,omitempty"`
	Rows      []reconcile.Row    `json:"rows,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state. Rows are included
// once the job has completed.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	warnings := j.Progress.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	snap := JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Mode:      j.Mode,
		FilenameA: j.FilenameA,
		FilenameB: j.FilenameB,
		HashA:     j.HashA,
		HashB:     j.HashB,
		Progress: Progress{
			PagesA:   j.Progress.PagesA,
			PagesB:   j.Progress.PagesB,
			MethodA:  j.Progress.MethodA,
			MethodB:  j.Progress.MethodB,
			Rows:     j.Progress.Rows,
			Warnings: append([]string{}, warnings...),
			Errors:   append([]string{}, errs...),
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Status == StatusCompleted {
		s := reconcile.Summarize(j.rows)
		snap.Summary = &s
		snap.Rows = j.rows
	}
	return snap
}

// newJobID returns a time-ordered UUIDv7 so job IDs sort by submission.
func newJobID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

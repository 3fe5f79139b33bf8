package progress

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// ErrDuplicateJob is returned when creating a record whose ID already exists.
var ErrDuplicateJob = errors.New("job id already exists")

// ErrNotFound is returned when no record exists for the requested ID.
var ErrNotFound = errors.New("progress record not found")

// Store is the always-available bookkeeping for job progress. It is the
// authoritative status source while the process is up, whether or not
// the durable store is reachable.
//
// Exactly one worker writes to a given record; any number of pollers may
// read it concurrently. Progress never decreases and terminal records are
// never mutated again.
type Store struct {
	mu      sync.RWMutex
	records map[string]*types.ProgressRecord
	logger  *slog.Logger
}

// NewStore creates an empty store. The store is owned by the process
// orchestrator and injected where needed; there is no package singleton.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		records: make(map[string]*types.ProgressRecord),
		logger:  logger,
	}
}

// Create inserts a fresh pending record for id. The caller guarantees
// uniqueness (random UUIDs); a duplicate is rejected, never overwritten.
func (s *Store) Create(id string) (types.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; ok {
		return types.ProgressRecord{}, ErrDuplicateJob
	}

	now := time.Now()
	rec := &types.ProgressRecord{
		ID:        id,
		Status:    types.StatusPending,
		Message:   "Job accepted",
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[id] = rec
	return *rec, nil
}

// Update overwrites the mutable fields of a record. Unknown IDs are
// logged and ignored so a racing worker can never crash the process.
// Progress is clamped so it never moves backwards, and terminal records
// are left untouched.
func (s *Store) Update(id string, progress int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		s.logger.Warn("progress update for unknown job", "job_id", id)
		return
	}
	if rec.Status.Terminal() {
		s.logger.Warn("progress update after terminal state ignored", "job_id", id, "status", rec.Status)
		return
	}

	if progress > rec.Progress {
		rec.Progress = progress
	}
	if rec.Progress > 99 {
		rec.Progress = 99 // 100 is reserved for completion
	}
	rec.Status = types.StatusProcessing
	rec.Message = message
	rec.UpdatedAt = time.Now()
}

// SetTiming records media timing info alongside the percentage for jobs
// that expose processed/total duration.
func (s *Store) SetTiming(id string, processed, total float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.Status.Terminal() {
		return
	}
	rec.ProcessedDuration = processed
	rec.TotalDuration = total
	rec.UpdatedAt = time.Now()
}

// Complete transitions a record to its completed terminal state with
// progress pinned at 100.
func (s *Store) Complete(id, result string, files []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		s.logger.Warn("completion for unknown job", "job_id", id)
		return
	}
	if rec.Status.Terminal() {
		return
	}

	rec.Status = types.StatusCompleted
	rec.Progress = 100
	rec.Message = "Completed"
	rec.Result = result
	rec.ResultFiles = append([]string(nil), files...)
	rec.UpdatedAt = time.Now()
}

// Fail transitions a record to its failed terminal state. The cause is
// always recorded; a failed job never has an empty error message.
func (s *Store) Fail(id, cause string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		s.logger.Warn("failure for unknown job", "job_id", id)
		return
	}
	if rec.Status.Terminal() {
		return
	}

	if cause == "" {
		cause = "unknown error"
	}
	rec.Status = types.StatusFailed
	rec.Message = "Failed"
	rec.ErrorMessage = cause
	rec.UpdatedAt = time.Now()
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (types.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return types.ProgressRecord{}, ErrNotFound
	}
	out := *rec
	out.ResultFiles = append([]string(nil), rec.ResultFiles...)
	return out, nil
}

// EvictOlderThan drops terminal records whose last update is older than
// maxAge and returns how many were removed. In-flight records are kept
// regardless of age.
func (s *Store) EvictOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted int
	for id, rec := range s.records {
		if rec.Status.Terminal() && rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of tracked records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

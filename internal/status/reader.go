// Package status is the poll read model: the in-memory progress record
// is authoritative while it exists, the durable row is the fallback
// after a restart.
package status

import (
	"errors"

	"github.com/codebuildervaibhav/media-pipeline/internal/progress"
	"github.com/codebuildervaibhav/media-pipeline/internal/storage"
	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// ErrNotFound is returned when neither store knows the job.
var ErrNotFound = errors.New("job not found")

// Durable is the fallback lookup side. May be nil when no durable
// store is configured.
type Durable interface {
	Get(jobID string) (*types.Job, error)
}

// Reader merges the two status sources.
type Reader struct {
	store   *progress.Store
	durable Durable
}

// NewReader creates a read model over the progress store and an
// optional durable store.
func NewReader(store *progress.Store, durable Durable) *Reader {
	return &Reader{store: store, durable: durable}
}

// Status answers "what is the state of job id".
func (r *Reader) Status(id string) (*types.StatusResponse, error) {
	rec, err := r.store.Get(id)
	if err == nil {
		return &types.StatusResponse{
			ID:           rec.ID,
			Status:       rec.Status,
			Progress:     rec.Progress,
			Message:      rec.Message,
			ResultText:   rec.Result,
			ResultFiles:  rec.ResultFiles,
			ErrorMessage: rec.ErrorMessage,
		}, nil
	}

	if r.durable == nil {
		return nil, ErrNotFound
	}

	job, err := r.durable.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &types.StatusResponse{
		ID:           job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		Message:      job.Message,
		ResultText:   job.ResultText,
		ResultFiles:  job.ResultFiles,
		ErrorMessage: job.ErrorMessage,
	}, nil
}

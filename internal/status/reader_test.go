package status

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/media-pipeline/internal/progress"
	"github.com/codebuildervaibhav/media-pipeline/internal/storage"
	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

type fakeDurable struct {
	jobs map[string]*types.Job
	err  error
}

func (f *fakeDurable) Get(jobID string) (*types.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, storage.ErrJobNotFound
	}
	return job, nil
}

func newStore() *progress.Store {
	return progress.NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStatusLiveRecordWins(t *testing.T) {
	store := newStore()
	_, err := store.Create("job-1")
	require.NoError(t, err)
	store.Update("job-1", 42, "Transcribing")

	// The durable row is stale on purpose.
	durable := &fakeDurable{jobs: map[string]*types.Job{
		"job-1": {ID: "job-1", Status: types.StatusPending, Progress: 0},
	}}

	r := NewReader(store, durable)
	resp, err := r.Status("job-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, resp.Status)
	assert.Equal(t, 42, resp.Progress)
	assert.Equal(t, "Transcribing", resp.Message)
}

func TestStatusDurableFallback(t *testing.T) {
	durable := &fakeDurable{jobs: map[string]*types.Job{
		"old-job": {
			ID:          "old-job",
			Status:      types.StatusCompleted,
			Progress:    100,
			ResultText:  "archived result",
			ResultFiles: []string{"/outputs/old.txt"},
		},
	}}

	r := NewReader(newStore(), durable)
	resp, err := r.Status("old-job")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, resp.Status)
	assert.Equal(t, 100, resp.Progress)
	assert.Equal(t, "archived result", resp.ResultText)
	assert.Equal(t, []string{"/outputs/old.txt"}, resp.ResultFiles)
}

func TestStatusUnknownJob(t *testing.T) {
	r := NewReader(newStore(), &fakeDurable{})
	_, err := r.Status("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusNoDurableStore(t *testing.T) {
	r := NewReader(newStore(), nil)
	_, err := r.Status("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusDurableError(t *testing.T) {
	cause := errors.New("database is locked")
	r := NewReader(newStore(), &fakeDurable{err: cause})
	_, err := r.Status("job-1")
	assert.ErrorIs(t, err, cause)
}

func TestStatusFailedJob(t *testing.T) {
	store := newStore()
	_, err := store.Create("job-1")
	require.NoError(t, err)
	store.Fail("job-1", "yt-dlp exited 1")

	r := NewReader(store, nil)
	resp, err := r.Status("job-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, resp.Status)
	assert.Equal(t, "yt-dlp exited 1", resp.ErrorMessage)
}

package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

func newTestDB(t *testing.T) *JobDB {
	t.Helper()
	db, err := NewJobDB(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGet(t *testing.T) {
	db := newTestDB(t)

	job := &types.Job{
		ID:             "job-1",
		Type:           types.JobTranscription,
		InputType:      types.InputRemoteURL,
		RequestName:    "my video",
		SourceURL:      "https://youtu.be/abc",
		TargetLanguage: "en",
		OutputFormats:  []types.OutputFormat{types.FormatText, types.FormatMarkdown},
	}
	require.NoError(t, db.Insert(job))

	got, err := db.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, types.JobTranscription, got.Type)
	assert.Equal(t, types.InputRemoteURL, got.InputType)
	assert.Equal(t, "my video", got.RequestName)
	assert.Equal(t, "https://youtu.be/abc", got.SourceURL)
	assert.Equal(t, []types.OutputFormat{types.FormatText, types.FormatMarkdown}, got.OutputFormats)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.Equal(t, 0, got.Progress)
}

func TestGetUnknownJob(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Get("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestUpdateProgress(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Insert(&types.Job{ID: "job-1", Type: types.JobDocument, InputType: types.InputFile, RequestName: "doc"}))

	require.NoError(t, db.UpdateProgress("job-1", types.StatusProcessing, 45, "Extracting text"))

	got, err := db.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, got.Status)
	assert.Equal(t, 45, got.Progress)
	assert.Equal(t, "Extracting text", got.Message)
}

func TestFinishCompleted(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Insert(&types.Job{ID: "job-1", Type: types.JobTranscription, InputType: types.InputFile, RequestName: "audio"}))

	files := []string{"/outputs/a.txt", "/outputs/a.md"}
	require.NoError(t, db.Finish("job-1", types.StatusCompleted, "final transcript", files, ""))

	got, err := db.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "final transcript", got.ResultText)
	assert.Equal(t, files, got.ResultFiles)
	assert.Empty(t, got.ErrorMessage)
}

func TestFinishFailed(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Insert(&types.Job{ID: "job-1", Type: types.JobTranscription, InputType: types.InputFile, RequestName: "audio"}))

	require.NoError(t, db.Finish("job-1", types.StatusFailed, "", nil, "whisper exited 1"))

	got, err := db.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, got.Status)
	assert.Equal(t, "whisper exited 1", got.ErrorMessage)
	assert.Empty(t, got.ResultFiles)
}

func TestListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.Insert(&types.Job{ID: id, Type: types.JobDocument, InputType: types.InputText, RequestName: id}))
	}

	jobs, err := db.List(10)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	jobs, err = db.List(2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

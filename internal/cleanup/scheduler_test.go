package cleanup

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/media-pipeline/internal/progress"
)

func TestSweepRemovesOldTempFiles(t *testing.T) {
	tempDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := progress.NewStore(logger)

	oldFile := filepath.Join(tempDir, "old.wav")
	freshFile := filepath.Join(tempDir, "fresh.wav")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(freshFile, []byte("y"), 0644))

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	s := NewScheduler(tempDir, 30, 24, 48, store, logger)
	s.sweep()

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err), "old file should be deleted")
	_, err = os.Stat(freshFile)
	assert.NoError(t, err, "fresh file should survive")
}

func TestSweepEvictsStaleProgress(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := progress.NewStore(logger)

	_, err := store.Create("done")
	require.NoError(t, err)
	store.Complete("done", "x", nil)

	// Retention of zero hours makes every terminal record stale.
	s := NewScheduler(t.TempDir(), 30, 24, 0, store, logger)
	s.sweep()

	_, err = store.Get("done")
	assert.ErrorIs(t, err, progress.ErrNotFound)
}

func TestStartStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := progress.NewStore(logger)

	s := NewScheduler(t.TempDir(), 30, 24, 48, store, logger)
	s.Start()
	s.Stop()
}

func TestEnsureTempDirExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "temp")
	require.NoError(t, EnsureTempDirExists(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

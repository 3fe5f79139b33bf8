package cleanup

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codebuildervaibhav/media-pipeline/internal/progress"
)

// Scheduler periodically sweeps aged temp files and evicts terminal
// progress records past the retention window.
type Scheduler struct {
	tempDir           string
	interval          time.Duration
	maxFileAge        time.Duration
	progressRetention time.Duration
	store             *progress.Store
	logger            *slog.Logger
	stopChan          chan struct{}
}

// NewScheduler creates a cleanup scheduler.
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours, progressRetentionHours int, store *progress.Store, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		tempDir:           tempDir,
		interval:          time.Duration(intervalMinutes) * time.Minute,
		maxFileAge:        time.Duration(maxAgeHours) * time.Hour,
		progressRetention: time.Duration(progressRetentionHours) * time.Hour,
		store:             store,
		logger:            logger,
		stopChan:          make(chan struct{}),
	}
}

// Start runs an immediate sweep and then one per interval.
func (s *Scheduler) Start() {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.logger.Info("cleanup scheduler started",
		"interval", s.interval, "max_file_age", s.maxFileAge, "progress_retention", s.progressRetention)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.logger.Info("cleanup scheduler stopped")
}

func (s *Scheduler) sweep() {
	s.cleanTempFiles()

	if evicted := s.store.EvictOlderThan(s.progressRetention); evicted > 0 {
		s.logger.Info("evicted stale progress records", "count", evicted)
	}
}

// cleanTempFiles removes temp files older than the max age.
func (s *Scheduler) cleanTempFiles() {
	now := time.Now()
	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		if now.Sub(info.ModTime()) > s.maxFileAge {
			size := info.Size()
			if rmErr := os.Remove(path); rmErr != nil {
				s.logger.Warn("failed to delete old temp file", "path", path, "error", rmErr)
			} else {
				deletedCount++
				deletedSize += size
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("error during temp cleanup", "error", err)
	}

	if deletedCount > 0 {
		s.logger.Info("temp cleanup complete",
			"files_deleted", deletedCount, "mb_freed", float64(deletedSize)/(1024*1024))
	}
}

// EnsureTempDirExists creates the temp directory if missing.
func EnsureTempDirExists(tempDir string) error {
	return os.MkdirAll(tempDir, 0755)
}

package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// Downloader fetches remote media to a local file using yt-dlp.
type Downloader struct {
	tempDir string
	logger  *slog.Logger
}

// NewDownloader creates a downloader writing into tempDir.
func NewDownloader(tempDir string, logger *slog.Logger) *Downloader {
	return &Downloader{tempDir: tempDir, logger: logger}
}

// Download extracts the audio track of a remote video into a WAV file
// and returns the local path. Requires yt-dlp and ffmpeg on PATH.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	outputPath := filepath.Join(d.tempDir, fmt.Sprintf("download_%s.wav", uuid.New().String()))

	d.logger.Info("downloading media", "url", url)

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-x",
		"--audio-format", "wav",
		"--no-playlist",
		"-o", outputPath,
		url,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w\nOutput: %s", err, string(output))
	}

	// yt-dlp may append the extension itself depending on the template.
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("download finished but output missing: %w", err)
	}

	d.logger.Info("media downloaded", "path", outputPath)
	return outputPath, nil
}

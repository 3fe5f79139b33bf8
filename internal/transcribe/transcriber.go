// Package transcribe provides the transcription collaborators: a local
// Whisper subprocess, an OpenAI-compatible HTTP backend, and caption
// extraction for hosted videos. The backend variant is selected once by
// configuration, never by failure fallthrough inside business logic.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// ProgressFunc is invoked with processed and total media seconds as a
// long transcription advances. Total may be zero when unknown.
type ProgressFunc func(processedSeconds, totalSeconds float64)

// Transcriber converts an audio file into text plus timing segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string, onProgress ProgressFunc) (*types.TranscriptionResult, error)
}

// Options selects and configures a Transcriber implementation.
type Options struct {
	Mode    string // "local" or "api"
	Model   string
	BaseURL string
	APIKey  string
}

// New builds the configured Transcriber variant.
func New(opts Options, logger *slog.Logger) (Transcriber, error) {
	switch opts.Mode {
	case "local":
		return NewLocalWhisper(opts.Model, logger), nil
	case "api":
		return NewAPIWhisper(opts.BaseURL, opts.APIKey, opts.Model, logger), nil
	default:
		return nil, fmt.Errorf("unknown whisper mode %q", opts.Mode)
	}
}

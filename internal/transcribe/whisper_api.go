package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// APIWhisper posts audio to an OpenAI-compatible
// /v1/audio/transcriptions endpoint (faster-whisper server, or the
// hosted API). The HTTP service reports no incremental progress, so the
// callback fires once at completion.
type APIWhisper struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewAPIWhisper creates an HTTP-backed transcriber.
func NewAPIWhisper(baseURL, apiKey, model string, logger *slog.Logger) *APIWhisper {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &APIWhisper{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Transcribe sends the audio file and maps the verbose response into a
// TranscriptionResult.
func (w *APIWhisper) Transcribe(ctx context.Context, audioPath, language string, onProgress ProgressFunc) (*types.TranscriptionResult, error) {
	w.logger.Info("sending audio to transcription service", "path", audioPath, "model", w.model)

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription service error: %w", err)
	}

	segments := make([]types.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = types.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		}
	}

	duration := resp.Duration
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	if onProgress != nil {
		onProgress(duration, duration)
	}

	return &types.TranscriptionResult{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: duration,
		Segments: segments,
	}, nil
}

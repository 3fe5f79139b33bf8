// Package resolver encodes the source fallback policy for remote media:
// prefer a pre-existing transcript, escalate to downloading and
// transcribing the audio when none is available.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/codebuildervaibhav/media-pipeline/internal/transcribe"
	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// Provenance tags identify which source produced a result section.
const (
	ProvenanceCaptions = "captions"
	ProvenanceAudio    = "audio_transcription"
)

// CaptionFetcher extracts an existing transcript for a hosted video.
type CaptionFetcher interface {
	Fetch(ctx context.Context, sourceURL, language string) (*types.CaptionResult, error)
}

// Downloader fetches remote media to a local audio file.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// Section is one acquired result, tagged with its provenance. Sections
// are returned in order of acquisition.
type Section struct {
	Provenance string
	Language   string
	Generated  bool
	Text       string
	Duration   float64
}

// Resolver runs the caption-first fallback chain.
type Resolver struct {
	captions    CaptionFetcher
	downloader  Downloader
	transcriber transcribe.Transcriber

	// allowFallback permits escalating to audio transcription when the
	// caller asked only for captions and none exist. Without it, a
	// caption miss is a hard failure.
	allowFallback bool

	logger *slog.Logger
}

// New creates a resolver over the three collaborators.
func New(captions CaptionFetcher, downloader Downloader, transcriber transcribe.Transcriber, allowFallback bool, logger *slog.Logger) *Resolver {
	return &Resolver{
		captions:      captions,
		downloader:    downloader,
		transcriber:   transcriber,
		allowFallback: allowFallback,
		logger:        logger,
	}
}

// Resolve acquires text for sourceURL according to the caller's intent.
//
// With PreferCaptions set, caption extraction is tried first; on success
// the audio path is skipped entirely unless TranscribeAudio was also
// explicitly requested. On a caption miss the audio path runs anyway
// when fallback is allowed, so the caller gets a usable result instead
// of an empty one. When every attempted source fails, the errors are
// aggregated into a single failure; there is no partially empty success.
func (r *Resolver) Resolve(ctx context.Context, sourceURL, language string, opts types.SourceOptions, onProgress transcribe.ProgressFunc) ([]Section, error) {
	wantCaptions := opts.PreferCaptions
	wantAudio := opts.TranscribeAudio
	if !wantCaptions && !wantAudio {
		wantCaptions = true
	}

	var (
		sections []Section
		failures []error
	)

	runAudio := wantAudio

	if wantCaptions {
		cap, err := r.captions.Fetch(ctx, sourceURL, language)
		if err != nil {
			r.logger.Warn("caption extraction failed", "url", sourceURL, "error", err)
			failures = append(failures, fmt.Errorf("caption extraction: %w", err))
			if r.allowFallback {
				runAudio = true
			}
		} else {
			sections = append(sections, Section{
				Provenance: ProvenanceCaptions,
				Language:   cap.Language,
				Generated:  cap.Generated,
				Text:       cap.Text,
			})
		}
	}

	if runAudio {
		sec, err := r.transcribeAudio(ctx, sourceURL, language, onProgress)
		if err != nil {
			r.logger.Warn("audio transcription failed", "url", sourceURL, "error", err)
			failures = append(failures, fmt.Errorf("audio transcription: %w", err))
		} else {
			sections = append(sections, sec)
		}
	}

	if len(sections) == 0 {
		if len(failures) == 0 {
			failures = append(failures, errors.New("no source path was attempted"))
		}
		return nil, fmt.Errorf("all sources failed for %s: %w", sourceURL, errors.Join(failures...))
	}
	return sections, nil
}

// transcribeAudio downloads the media and delegates to the transcriber.
func (r *Resolver) transcribeAudio(ctx context.Context, sourceURL, language string, onProgress transcribe.ProgressFunc) (Section, error) {
	localPath, err := r.downloader.Download(ctx, sourceURL)
	if err != nil {
		return Section{}, fmt.Errorf("download: %w", err)
	}
	defer os.Remove(localPath)

	result, err := r.transcriber.Transcribe(ctx, localPath, language, onProgress)
	if err != nil {
		return Section{}, err
	}

	return Section{
		Provenance: ProvenanceAudio,
		Language:   result.Language,
		Generated:  true,
		Text:       result.Text,
		Duration:   result.Duration,
	}, nil
}

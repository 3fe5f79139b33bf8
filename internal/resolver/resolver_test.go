package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/media-pipeline/internal/transcribe"
	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

type fakeCaptions struct {
	result *types.CaptionResult
	err    error
	calls  int
}

func (f *fakeCaptions) Fetch(ctx context.Context, sourceURL, language string) (*types.CaptionResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeDownloader struct {
	path  string
	err   error
	calls int
}

func (f *fakeDownloader) Download(ctx context.Context, url string) (string, error) {
	f.calls++
	return f.path, f.err
}

type fakeTranscriber struct {
	result *types.TranscriptionResult
	err    error
	calls  int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath, language string, onProgress transcribe.ProgressFunc) (*types.TranscriptionResult, error) {
	f.calls++
	if f.err == nil && onProgress != nil {
		onProgress(30, 60)
	}
	return f.result, f.err
}

func newTestResolver(c *fakeCaptions, d *fakeDownloader, tr *fakeTranscriber, allowFallback bool) *Resolver {
	return New(c, d, tr, allowFallback, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolveCaptionsSuccessSkipsAudio(t *testing.T) {
	captions := &fakeCaptions{result: &types.CaptionResult{Text: "hello world", Language: "en"}}
	downloader := &fakeDownloader{path: "/tmp/nope.wav"}
	transcriber := &fakeTranscriber{}
	r := newTestResolver(captions, downloader, transcriber, true)

	sections, err := r.Resolve(context.Background(), "https://youtu.be/abc", "en", types.SourceOptions{PreferCaptions: true}, nil)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, ProvenanceCaptions, sections[0].Provenance)
	assert.Equal(t, "hello world", sections[0].Text)
	assert.Equal(t, 0, downloader.calls)
	assert.Equal(t, 0, transcriber.calls)
}

func TestResolveDefaultsToCaptions(t *testing.T) {
	captions := &fakeCaptions{result: &types.CaptionResult{Text: "default path", Language: "en"}}
	r := newTestResolver(captions, &fakeDownloader{}, &fakeTranscriber{}, true)

	// Neither flag set: captions are still tried.
	sections, err := r.Resolve(context.Background(), "https://youtu.be/abc", "en", types.SourceOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, ProvenanceCaptions, sections[0].Provenance)
	assert.Equal(t, 1, captions.calls)
}

func TestResolveCaptionMissEscalatesOnce(t *testing.T) {
	captions := &fakeCaptions{err: errors.New("no captions published")}
	downloader := &fakeDownloader{path: "/tmp/media-test-missing.wav"}
	transcriber := &fakeTranscriber{result: &types.TranscriptionResult{Text: "spoken words", Language: "en", Duration: 60}}
	r := newTestResolver(captions, downloader, transcriber, true)

	sections, err := r.Resolve(context.Background(), "https://youtu.be/abc", "en", types.SourceOptions{PreferCaptions: true}, nil)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, ProvenanceAudio, sections[0].Provenance)
	assert.Equal(t, "spoken words", sections[0].Text)
	assert.True(t, sections[0].Generated)
	assert.Equal(t, 1, downloader.calls)
	assert.Equal(t, 1, transcriber.calls)
}

func TestResolveCaptionMissNoFallback(t *testing.T) {
	captions := &fakeCaptions{err: errors.New("no captions published")}
	downloader := &fakeDownloader{}
	transcriber := &fakeTranscriber{}
	r := newTestResolver(captions, downloader, transcriber, false)

	sections, err := r.Resolve(context.Background(), "https://youtu.be/abc", "en", types.SourceOptions{PreferCaptions: true}, nil)
	require.Error(t, err)
	assert.Nil(t, sections)
	assert.Contains(t, err.Error(), "all sources failed")
	assert.Contains(t, err.Error(), "no captions published")
	assert.Equal(t, 0, downloader.calls)
}

func TestResolveAllSourcesFailAggregated(t *testing.T) {
	captions := &fakeCaptions{err: errors.New("caption miss")}
	downloader := &fakeDownloader{err: errors.New("yt-dlp exploded")}
	r := newTestResolver(captions, downloader, &fakeTranscriber{}, true)

	_, err := r.Resolve(context.Background(), "https://youtu.be/abc", "en", types.SourceOptions{PreferCaptions: true}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caption miss")
	assert.Contains(t, err.Error(), "yt-dlp exploded")
}

func TestResolveBothExplicitRunsBoth(t *testing.T) {
	captions := &fakeCaptions{result: &types.CaptionResult{Text: "caption text", Language: "en"}}
	downloader := &fakeDownloader{path: "/tmp/media-test-missing.wav"}
	transcriber := &fakeTranscriber{result: &types.TranscriptionResult{Text: "audio text", Language: "en", Duration: 90}}
	r := newTestResolver(captions, downloader, transcriber, true)

	sections, err := r.Resolve(context.Background(), "https://youtu.be/abc", "en",
		types.SourceOptions{PreferCaptions: true, TranscribeAudio: true}, nil)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, ProvenanceCaptions, sections[0].Provenance)
	assert.Equal(t, ProvenanceAudio, sections[1].Provenance)
	assert.Equal(t, 90.0, sections[1].Duration)
}

func TestResolveAudioOnly(t *testing.T) {
	captions := &fakeCaptions{result: &types.CaptionResult{Text: "should not be used"}}
	downloader := &fakeDownloader{path: "/tmp/media-test-missing.wav"}
	transcriber := &fakeTranscriber{result: &types.TranscriptionResult{Text: "audio only", Language: "de"}}
	r := newTestResolver(captions, downloader, transcriber, true)

	sections, err := r.Resolve(context.Background(), "https://youtu.be/abc", "de",
		types.SourceOptions{TranscribeAudio: true}, nil)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, ProvenanceAudio, sections[0].Provenance)
	assert.Equal(t, 0, captions.calls)
}

func TestResolvePartialFailureStillSucceeds(t *testing.T) {
	// Captions succeed, explicit audio request fails: the caption
	// section alone is a success.
	captions := &fakeCaptions{result: &types.CaptionResult{Text: "caption text", Language: "en"}}
	downloader := &fakeDownloader{err: errors.New("download refused")}
	r := newTestResolver(captions, downloader, &fakeTranscriber{}, true)

	sections, err := r.Resolve(context.Background(), "https://youtu.be/abc", "en",
		types.SourceOptions{PreferCaptions: true, TranscribeAudio: true}, nil)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, ProvenanceCaptions, sections[0].Provenance)
}

func TestResolveForwardsProgress(t *testing.T) {
	captions := &fakeCaptions{err: errors.New("miss")}
	downloader := &fakeDownloader{path: "/tmp/media-test-missing.wav"}
	transcriber := &fakeTranscriber{result: &types.TranscriptionResult{Text: "x"}}
	r := newTestResolver(captions, downloader, transcriber, true)

	var processed, total float64
	_, err := r.Resolve(context.Background(), "https://youtu.be/abc", "en",
		types.SourceOptions{PreferCaptions: true},
		func(p, tot float64) { processed, total = p, tot })
	require.NoError(t, err)
	assert.Equal(t, 30.0, processed)
	assert.Equal(t, 60.0, total)
}

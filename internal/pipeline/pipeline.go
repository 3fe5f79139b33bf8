// Package pipeline drives a job through its type-specific stage
// sequence, translating stage completion into progress checkpoints.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/media-pipeline/internal/extract"
	"github.com/codebuildervaibhav/media-pipeline/internal/media"
	"github.com/codebuildervaibhav/media-pipeline/internal/progress"
	"github.com/codebuildervaibhav/media-pipeline/internal/render"
	"github.com/codebuildervaibhav/media-pipeline/internal/resolver"
	"github.com/codebuildervaibhav/media-pipeline/internal/transcribe"
	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// Fixed per-stage percentage windows. The split is policy, not a
// computed value; tests depend on these exact numbers.
const (
	IngestStart    = 0
	IngestEnd      = 10
	ExtractStart   = 10
	ExtractEnd     = 70
	TransformStart = 70
	TransformEnd   = 80
	RenderStart    = 80
	RenderEnd      = 100
)

// SourceResolver acquires text for a remote source, applying the
// caption-first fallback chain.
type SourceResolver interface {
	Resolve(ctx context.Context, sourceURL, language string, opts types.SourceOptions, onProgress transcribe.ProgressFunc) ([]resolver.Section, error)
}

// Transformer is the optional AI post-processing collaborator.
type Transformer interface {
	Transform(ctx context.Context, text string, req types.TransformRequest) (string, error)
}

// Speaker is the text-to-speech collaborator.
type Speaker interface {
	Speak(ctx context.Context, text, voice string) ([]byte, error)
}

// ArtifactStore persists rendered result artifacts.
type ArtifactStore interface {
	SaveArtifact(requestName, ext string, data []byte) (string, error)
	SaveMetadata(artifactPath string, meta map[string]any) error
}

// Archiver uploads an artifact to remote archival storage.
type Archiver interface {
	Archive(localPath string) (string, error)
}

// Recorder mirrors stage checkpoints into the durable job store. All
// calls are best-effort; failures never abort the pipeline.
type Recorder interface {
	UpdateProgress(jobID string, status types.Status, progress int, message string) error
}

// Config wires the pipeline's collaborators. Transformer, Speaker,
// Recorder and Archiver may be nil when the corresponding feature is
// not configured.
type Config struct {
	Store       *progress.Store
	Recorder    Recorder
	Resolver    SourceResolver
	Transcriber transcribe.Transcriber
	Transformer Transformer
	Speaker     Speaker
	Artifacts   ArtifactStore
	Archiver    Archiver
	TempDir     string
	Logger      *slog.Logger

	// Overridable subprocess hooks, defaulted to the real commands.
	Normalize   func(ctx context.Context, inputPath, tempDir string) (string, error)
	ExtractText func(ctx context.Context, path string) (string, error)
	RenderFn    func(ctx context.Context, text string, format types.OutputFormat, meta render.Metadata) ([]byte, error)
}

// Pipeline executes jobs. One goroutine owns a job for its lifetime;
// stages within a job run strictly sequentially.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline, filling in default subprocess hooks.
func New(cfg Config) *Pipeline {
	if cfg.Normalize == nil {
		cfg.Normalize = media.NormalizeAudio
	}
	if cfg.ExtractText == nil {
		cfg.ExtractText = extract.Text
	}
	if cfg.RenderFn == nil {
		cfg.RenderFn = render.Render
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg}
}

// Run executes the job's full stage sequence. A nil return means the
// primary step succeeded and the job may complete; any error is
// stage-fatal and the dispatcher converts it into a failed state.
// Cancellation is checked between stages.
func (p *Pipeline) Run(ctx context.Context, job *types.Job) error {
	p.checkpoint(job, IngestStart+2, "Preparing job")
	if err := ctx.Err(); err != nil {
		return err
	}

	if job.Type == types.JobTextToSpeech {
		return p.runSpeech(ctx, job)
	}

	var (
		text     string
		language string
		err      error
	)
	switch job.Type {
	case types.JobTranscription:
		text, language, err = p.acquireTranscription(ctx, job)
	case types.JobDocument:
		text, language, err = p.acquireDocument(ctx, job)
	default:
		err = fmt.Errorf("unknown job type %q", job.Type)
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text = p.transform(ctx, job, text)
	if err := ctx.Err(); err != nil {
		return err
	}

	job.ResultText = text
	p.renderOutputs(ctx, job, text, language, job.OutputFormats, true)
	if err := ctx.Err(); err != nil {
		return err
	}

	p.finishArtifacts(job, language)
	return nil
}

// acquireTranscription runs the extract stage for transcription jobs:
// either the source resolver for a remote URL or per-file transcription
// of uploaded audio.
func (p *Pipeline) acquireTranscription(ctx context.Context, job *types.Job) (string, string, error) {
	if job.InputType == types.InputRemoteURL {
		return p.resolveRemote(ctx, job)
	}

	n := len(job.FilePaths)
	if n == 0 {
		return "", "", errors.New("no input files")
	}

	parts := make([]string, 0, n)
	var (
		language string
		okCount  int
		failures []error
	)

	for i, path := range job.FilePaths {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		name := p.inputName(job, i)
		start, end := fileWindow(i, n)
		p.checkpoint(job, start, fmt.Sprintf("Transcribing %s (%d/%d)", name, i+1, n))

		normalized, err := p.cfg.Normalize(ctx, path, p.cfg.TempDir)
		if err != nil {
			p.cfg.Logger.Warn("audio normalization failed", "job_id", job.ID, "file", name, "error", err)
			failures = append(failures, err)
			parts = append(parts, inlineError(name, err))
			continue
		}

		onProgress := p.subProgress(job, name, start, end)
		result, err := p.cfg.Transcriber.Transcribe(ctx, normalized, job.TargetLanguage, onProgress)
		os.Remove(normalized)
		if err != nil {
			p.cfg.Logger.Warn("transcription failed", "job_id", job.ID, "file", name, "error", err)
			failures = append(failures, err)
			parts = append(parts, inlineError(name, err))
			continue
		}

		if language == "" {
			language = result.Language
		}
		parts = append(parts, result.Text)
		okCount++
		p.checkpoint(job, end, fmt.Sprintf("Finished %s (%d/%d)", name, i+1, n))
	}

	if okCount == 0 {
		return "", "", fmt.Errorf("transcription produced nothing usable: %w", errors.Join(failures...))
	}

	return p.joinParts(job, parts), language, nil
}

// resolveRemote maps the resolver's sub-progress onto the whole extract
// window and combines multi-source sections with labeled headers.
func (p *Pipeline) resolveRemote(ctx context.Context, job *types.Job) (string, string, error) {
	p.checkpoint(job, ExtractStart, "Resolving remote source")

	onProgress := p.subProgress(job, job.SourceURL, ExtractStart, ExtractEnd)
	sections, err := p.cfg.Resolver.Resolve(ctx, job.SourceURL, job.TargetLanguage, job.Source, onProgress)
	if err != nil {
		return "", "", err
	}

	language := sections[0].Language
	if len(sections) == 1 {
		p.checkpoint(job, ExtractEnd, "Source resolved")
		return sections[0].Text, language, nil
	}

	parts := make([]string, len(sections))
	for i, sec := range sections {
		label := "Existing Transcript"
		if sec.Provenance == resolver.ProvenanceAudio {
			label = "Audio Transcription"
		}
		parts[i] = fmt.Sprintf("=== %s (%s) ===\n\n%s", label, sec.Language, sec.Text)
	}
	p.checkpoint(job, ExtractEnd, "Sources resolved")
	return strings.Join(parts, "\n\n"), language, nil
}

// acquireDocument runs the extract stage for document jobs: literal
// text passes straight through, files are extracted one by one with
// per-file failure isolation.
func (p *Pipeline) acquireDocument(ctx context.Context, job *types.Job) (string, string, error) {
	if job.InputType == types.InputText {
		text := strings.TrimSpace(job.Text)
		if text == "" {
			return "", "", errors.New("no text provided")
		}
		p.checkpoint(job, ExtractEnd, "Text ingested")
		return text, job.TargetLanguage, nil
	}

	n := len(job.FilePaths)
	if n == 0 {
		return "", "", errors.New("no input files")
	}

	parts := make([]string, 0, n)
	var (
		okCount  int
		failures []error
	)

	for i, path := range job.FilePaths {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		name := p.inputName(job, i)
		start, end := fileWindow(i, n)
		p.checkpoint(job, start, fmt.Sprintf("Extracting %s (%d/%d)", name, i+1, n))

		text, err := p.cfg.ExtractText(ctx, path)
		if err != nil {
			p.cfg.Logger.Warn("document extraction failed", "job_id", job.ID, "file", name, "error", err)
			failures = append(failures, err)
			parts = append(parts, inlineError(name, err))
			continue
		}

		parts = append(parts, text)
		okCount++
		p.checkpoint(job, end, fmt.Sprintf("Extracted %s (%d/%d)", name, i+1, n))
	}

	if okCount == 0 {
		return "", "", fmt.Errorf("extraction produced nothing usable: %w", errors.Join(failures...))
	}

	return p.joinParts(job, parts), job.TargetLanguage, nil
}

// runSpeech handles text_to_speech jobs: synthesis is the primary step,
// the audio artifact is saved in the render window, and any extra text
// formats render over the source text.
func (p *Pipeline) runSpeech(ctx context.Context, job *types.Job) error {
	if p.cfg.Speaker == nil {
		return errors.New("speech synthesis is not configured")
	}
	text := strings.TrimSpace(job.Text)
	if text == "" {
		return errors.New("no text provided for speech synthesis")
	}

	p.checkpoint(job, ExtractStart, "Synthesizing speech")
	audio, err := p.cfg.Speaker.Speak(ctx, text, job.Voice)
	if err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.checkpoint(job, RenderStart, "Saving audio artifact")
	path, err := p.cfg.Artifacts.SaveArtifact(job.RequestName, "mp3", audio)
	if err != nil {
		return fmt.Errorf("failed to save audio artifact: %w", err)
	}
	job.ResultFiles = append(job.ResultFiles, path)
	job.ResultText = text

	// Extra text-bearing formats are optional; the audio tag itself was
	// already satisfied above.
	p.renderOutputs(ctx, job, text, job.TargetLanguage, job.OutputFormats, false)
	if err := ctx.Err(); err != nil {
		return err
	}

	p.finishArtifacts(job, job.TargetLanguage)
	return nil
}

// transform runs the optional AI post-processing stage. A transform
// failure is a per-unit error: the raw text survives and the job keeps
// going.
func (p *Pipeline) transform(ctx context.Context, job *types.Job, text string) string {
	if job.Transform == nil || p.cfg.Transformer == nil {
		return text
	}

	p.checkpoint(job, TransformStart+2, "Running AI post-processing")

	processed, err := p.cfg.Transformer.Transform(ctx, text, *job.Transform)
	if err != nil {
		p.cfg.Logger.Warn("AI post-processing failed, keeping original text", "job_id", job.ID, "error", err)
		return text
	}

	p.checkpoint(job, TransformEnd, "AI post-processing complete")
	return text + "\n\n=== AI Output (" + job.Transform.ProcessingType + ") ===\n\n" + processed
}

// renderOutputs attempts every requested format independently. A failed
// format is logged and omitted; it never fails the job. defaultToText
// ensures at least a text artifact when no formats were requested.
func (p *Pipeline) renderOutputs(ctx context.Context, job *types.Job, text, language string, formats []types.OutputFormat, defaultToText bool) {
	if len(formats) == 0 {
		if !defaultToText {
			return
		}
		formats = []types.OutputFormat{types.FormatText}
	}

	meta := render.Metadata{
		SourceName: job.RequestName,
		Language:   language,
		CreatedAt:  time.Now(),
	}

	n := len(formats)
	span := RenderEnd - RenderStart
	for i, format := range formats {
		if ctx.Err() != nil {
			return
		}

		p.checkpoint(job, RenderStart+i*span/n, fmt.Sprintf("Rendering %s output", format))

		if format == types.FormatAudio {
			// Audio artifacts come from the speech stage, not a
			// text renderer.
			continue
		}

		data, err := p.cfg.RenderFn(ctx, text, format, meta)
		if err != nil {
			p.cfg.Logger.Warn("output rendering failed", "job_id", job.ID, "format", format, "error", err)
			continue
		}

		path, err := p.cfg.Artifacts.SaveArtifact(job.RequestName, format.Extension(), data)
		if err != nil {
			p.cfg.Logger.Warn("failed to save artifact", "job_id", job.ID, "format", format, "error", err)
			continue
		}
		job.ResultFiles = append(job.ResultFiles, path)
	}
}

// finishArtifacts writes the sidecar metadata for the primary artifact
// and archives it remotely, both best-effort.
func (p *Pipeline) finishArtifacts(job *types.Job, language string) {
	if len(job.ResultFiles) == 0 {
		return
	}
	primary := job.ResultFiles[0]

	meta := map[string]any{
		"job_id":       job.ID,
		"job_type":     job.Type,
		"request_name": job.RequestName,
		"language":     language,
		"word_count":   len(strings.Fields(job.ResultText)),
		"created_at":   time.Now(),
	}
	if err := p.cfg.Artifacts.SaveMetadata(primary, meta); err != nil {
		p.cfg.Logger.Warn("failed to save sidecar metadata", "job_id", job.ID, "error", err)
	}

	p.archive(job, primary)
}

// archive uploads the primary artifact with retries; a final failure
// only loses the remote copy.
func (p *Pipeline) archive(job *types.Job, path string) {
	if p.cfg.Archiver == nil {
		return
	}

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		var url string
		url, err = p.cfg.Archiver.Archive(path)
		if err == nil {
			p.cfg.Logger.Info("artifact archived", "job_id", job.ID, "url", url)
			return
		}
		p.cfg.Logger.Warn("archive attempt failed", "job_id", job.ID, "attempt", attempt, "error", err)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}
	}
	p.cfg.Logger.Warn("archival failed after 3 attempts, keeping local copy only", "job_id", job.ID)
}

// checkpoint pushes a stage checkpoint into the progress store and,
// best-effort, the durable record.
func (p *Pipeline) checkpoint(job *types.Job, pct int, msg string) {
	if pct > job.Progress {
		job.Progress = pct
	}
	job.Status = types.StatusProcessing
	job.Message = msg
	job.UpdatedAt = time.Now()

	p.cfg.Store.Update(job.ID, pct, msg)

	if p.cfg.Recorder != nil {
		if err := p.cfg.Recorder.UpdateProgress(job.ID, types.StatusProcessing, pct, msg); err != nil {
			p.cfg.Logger.Warn("durable progress write failed", "job_id", job.ID, "error", err)
		}
	}
}

// subProgress maps a collaborator's processed/total duration signal
// linearly onto the [start, end) window of the current unit.
func (p *Pipeline) subProgress(job *types.Job, name string, start, end int) transcribe.ProgressFunc {
	return func(processed, total float64) {
		if total <= 0 {
			return
		}
		frac := processed / total
		if frac > 1 {
			frac = 1
		}
		p.cfg.Store.SetTiming(job.ID, processed, total)
		pct := start + int(frac*float64(end-start))
		p.checkpoint(job, pct, fmt.Sprintf("Transcribing %s (%d%%)", name, int(frac*100)))
	}
}

// joinParts assembles per-input results; multi-input jobs get a labeled
// header per input so the caller can see exactly what failed and where.
func (p *Pipeline) joinParts(job *types.Job, parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	labeled := make([]string, len(parts))
	for i, part := range parts {
		labeled[i] = fmt.Sprintf("=== %s ===\n\n%s", p.inputName(job, i), part)
	}
	return strings.Join(labeled, "\n\n")
}

// inputName returns the caller-visible name of input i.
func (p *Pipeline) inputName(job *types.Job, i int) string {
	if i < len(job.FileNames) && job.FileNames[i] != "" {
		return job.FileNames[i]
	}
	if i < len(job.FilePaths) {
		return filepath.Base(job.FilePaths[i])
	}
	return fmt.Sprintf("input_%d", i+1)
}

// fileWindow subdivides the extract window evenly across n inputs.
func fileWindow(i, n int) (int, int) {
	span := ExtractEnd - ExtractStart
	start := ExtractStart + i*span/n
	end := ExtractStart + (i+1)*span/n
	return start, end
}

// inlineError is the marker substituted for a failed input's
// contribution to the aggregate result.
func inlineError(name string, err error) string {
	return fmt.Sprintf("[Error processing %s: %v]", name, err)
}

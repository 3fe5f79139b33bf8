package transcribe

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/media-pipeline/internal/media"
	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// segmentLine matches whisper's live segment output:
// [00:01.000 --> 00:07.480]  some text
var segmentLine = regexp.MustCompile(`\[(\d+):(\d+)(?:\.(\d+))?\s*-->\s*(\d+):(\d+)(?:\.(\d+))?\]`)

// LocalWhisper runs python -m whisper as a subprocess and reads its
// JSON output. Live segment lines on stdout drive the progress callback.
type LocalWhisper struct {
	modelName string
	logger    *slog.Logger
}

// NewLocalWhisper creates a subprocess-backed transcriber. The model
// name is one of tiny/base/small/medium/large.
func NewLocalWhisper(modelName string, logger *slog.Logger) *LocalWhisper {
	if modelName == "" {
		modelName = "small"
	}
	return &LocalWhisper{modelName: modelName, logger: logger}
}

// Transcribe processes an audio file and returns the transcript.
func (w *LocalWhisper) Transcribe(ctx context.Context, audioPath, language string, onProgress ProgressFunc) (*types.TranscriptionResult, error) {
	tempDir, err := os.MkdirTemp("", "whisper_output")
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper output dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	total, err := media.ProbeDuration(ctx, absAudioPath)
	if err != nil {
		w.logger.Warn("duration probe failed, sub-progress disabled", "error", err)
		total = 0
	}

	args := []string{"-m", "whisper",
		absAudioPath,
		"--model", w.modelName,
		"--output_dir", tempDir,
		"--output_format", "json",
		"--fp16", "False",
	}
	if language != "" {
		args = append(args, "--language", language)
	}

	cmd := exec.CommandContext(ctx, "python", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to attach to whisper stdout: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start whisper: %w", err)
	}

	// Whisper prints each segment as it finishes; the end timestamp of
	// the newest segment is how far into the media we are.
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var tail []string
	for scanner.Scan() {
		line := scanner.Text()
		tail = append(tail, line)
		if len(tail) > 20 {
			tail = tail[1:]
		}
		if onProgress == nil {
			continue
		}
		if end, ok := parseSegmentEnd(line); ok {
			onProgress(end, total)
		}
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w\nOutput: %s", err, strings.Join(tail, "\n"))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(tempDir, baseName+".json")

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	var out whisperOutput
	if err := json.Unmarshal(jsonData, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	segments := make([]types.Segment, len(out.Segments))
	for i, seg := range out.Segments {
		segments[i] = types.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		}
	}

	duration := total
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	w.logger.Info("transcription completed", "segments", len(segments), "duration", duration)

	return &types.TranscriptionResult{
		Text:     strings.TrimSpace(out.Text),
		Language: out.Language,
		Duration: duration,
		Segments: segments,
	}, nil
}

// parseSegmentEnd extracts the end timestamp (seconds) of a live
// segment line, if the line is one.
func parseSegmentEnd(line string) (float64, bool) {
	m := segmentLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	minutes, _ := strconv.Atoi(m[4])
	seconds, _ := strconv.Atoi(m[5])
	end := float64(minutes*60 + seconds)
	if m[6] != "" {
		frac, _ := strconv.ParseFloat("0."+m[6], 64)
		end += frac
	}
	return end, true
}

// whisperOutput matches Python Whisper's JSON output format.
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

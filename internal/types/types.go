package types

import "time"

// Status is the lifecycle state of a job. Completed and failed are
// terminal; a terminal job is never mutated again.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobType selects the stage sequence a job runs through.
type JobType string

const (
	JobTranscription JobType = "transcription"
	JobTextToSpeech  JobType = "text_to_speech"
	JobDocument      JobType = "document_processing"
)

// InputType identifies where a job's content comes from.
type InputType string

const (
	InputFile      InputType = "file"
	InputRemoteURL InputType = "remote_url"
	InputText      InputType = "text"
)

// OutputFormat is a requested result artifact format.
type OutputFormat string

const (
	FormatText     OutputFormat = "text"
	FormatMarkdown OutputFormat = "markdown"
	FormatWord     OutputFormat = "word"
	FormatPDF      OutputFormat = "pdf"
	FormatAudio    OutputFormat = "audio"
)

// Extension returns the file extension for the format, without the dot.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatWord:
		return "docx"
	case FormatPDF:
		return "pdf"
	case FormatAudio:
		return "mp3"
	default:
		return "txt"
	}
}

// ValidFormat reports whether f is a known output format tag.
func ValidFormat(f OutputFormat) bool {
	switch f {
	case FormatText, FormatMarkdown, FormatWord, FormatPDF, FormatAudio:
		return true
	}
	return false
}

// TransformRequest asks for AI post-processing of the extracted text.
// ProcessingType is one of summarize, critique, expand, explain, custom;
// Prompt is used only for custom.
type TransformRequest struct {
	ProcessingType string `json:"processing_type"`
	Prompt         string `json:"prompt,omitempty"`
	Model          string `json:"model,omitempty"`
}

// SourceOptions carries the caller's intent for remote-url jobs.
type SourceOptions struct {
	// PreferCaptions tries an existing transcript before any download.
	PreferCaptions bool `json:"prefer_captions"`
	// TranscribeAudio explicitly requests the audio transcription path,
	// combined with captions when both succeed.
	TranscribeAudio bool `json:"transcribe_audio"`
}

// Job is one unit of submitted work, tracked from submission to a
// terminal state. A single worker goroutine owns it for its lifetime.
type Job struct {
	ID             string            `json:"id"`
	Type           JobType           `json:"job_type"`
	InputType      InputType         `json:"input_type"`
	RequestName    string            `json:"request_name"`
	FilePaths      []string          `json:"-"`
	FileNames      []string          `json:"file_names,omitempty"`
	SourceURL      string            `json:"source_url,omitempty"`
	Text           string            `json:"-"`
	TargetLanguage string            `json:"target_language,omitempty"`
	OutputFormats  []OutputFormat    `json:"output_formats"`
	Source         SourceOptions     `json:"source_options"`
	Transform      *TransformRequest `json:"transform,omitempty"`
	Voice          string            `json:"voice,omitempty"`

	Status       Status    `json:"status"`
	Progress     int       `json:"progress_percentage"`
	Message      string    `json:"status_message"`
	ResultText   string    `json:"result_text,omitempty"`
	ResultFiles  []string  `json:"result_files,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProgressRecord is the in-memory, always-available status snapshot used
// for live polling. It exists even when the durable store is unreachable.
type ProgressRecord struct {
	ID                string    `json:"id"`
	Status            Status    `json:"status"`
	Progress          int       `json:"progress_percentage"`
	Message           string    `json:"status_message"`
	TotalDuration     float64   `json:"total_duration,omitempty"`
	ProcessedDuration float64   `json:"processed_duration,omitempty"`
	Result            string    `json:"result,omitempty"`
	ResultFiles       []string  `json:"result_files,omitempty"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StatusResponse is the poll read model returned to callers.
type StatusResponse struct {
	ID           string   `json:"id"`
	Status       Status   `json:"status"`
	Progress     int      `json:"progress_percentage"`
	Message      string   `json:"status_message"`
	ResultText   string   `json:"result_text,omitempty"`
	ResultFiles  []string `json:"result_files,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// Segment is a timestamped piece of a transcription.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionResult is the output of the transcription collaborator.
type TranscriptionResult struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// CaptionResult is the output of the transcript extraction collaborator.
type CaptionResult struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	Generated bool   `json:"is_generated"`
}

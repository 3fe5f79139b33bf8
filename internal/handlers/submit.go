package handlers

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/media-pipeline/internal/dispatch"
	"github.com/codebuildervaibhav/media-pipeline/internal/media"
	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// SubmitHandler accepts new jobs over HTTP and hands them to the
// dispatcher. Input validation failures are rejected here, before any
// job exists.
type SubmitHandler struct {
	dispatcher *dispatch.Dispatcher
	tempDir    string
	maxSizeMB  int
	logger     *slog.Logger
}

// NewSubmitHandler creates the submission handler.
func NewSubmitHandler(dispatcher *dispatch.Dispatcher, tempDir string, maxSizeMB int, logger *slog.Logger) *SubmitHandler {
	return &SubmitHandler{
		dispatcher: dispatcher,
		tempDir:    tempDir,
		maxSizeMB:  maxSizeMB,
		logger:     logger,
	}
}

// remoteRequest is the JSON body for URL and text submissions.
type remoteRequest struct {
	URL             string                  `json:"url"`
	Text            string                  `json:"text"`
	Name            string                  `json:"name"`
	Language        string                  `json:"language"`
	Formats         []string                `json:"formats"`
	PreferCaptions  *bool                   `json:"prefer_captions"`
	TranscribeAudio bool                    `json:"transcribe_audio"`
	Transform       *types.TransformRequest `json:"transform"`
	Voice           string                  `json:"voice"`
}

// Upload handles multipart audio uploads, one transcription job per
// request with N files.
func (h *SubmitHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "No files uploaded",
			"code":  "ERR_NO_FILE",
		})
	}
	files := form.File["files"]

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	for _, file := range files {
		if file.Size > maxSize {
			return c.Status(400).JSON(fiber.Map{
				"error": fmt.Sprintf("File %s too large (max %dMB)", file.Filename, h.maxSizeMB),
				"code":  "ERR_FILE_TOO_LARGE",
			})
		}
		if !media.ValidAudioFormat(file.Filename) {
			return c.Status(400).JSON(fiber.Map{
				"error": fmt.Sprintf("Unsupported audio format: %s", file.Filename),
				"code":  "ERR_INVALID_FORMAT",
			})
		}
	}

	job := &types.Job{
		ID:             uuid.New().String(),
		Type:           types.JobTranscription,
		InputType:      types.InputFile,
		RequestName:    formValue(c, "name", "untitled"),
		TargetLanguage: c.FormValue("language"),
	}

	formats, err := parseFormats(strings.Split(c.FormValue("formats"), ","))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error(), "code": "ERR_INVALID_FORMAT_TAG"})
	}
	job.OutputFormats = formats

	for _, file := range files {
		tempPath := filepath.Join(h.tempDir, fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(file.Filename)))
		if err := c.SaveFile(file, tempPath); err != nil {
			h.logger.Error("failed to save uploaded file", "error", err)
			return c.Status(500).JSON(fiber.Map{
				"error": "Failed to save file",
				"code":  "ERR_SAVE_FAILED",
			})
		}
		job.FilePaths = append(job.FilePaths, tempPath)
		job.FileNames = append(job.FileNames, file.Filename)
	}

	return h.submit(c, job)
}

// Documents handles multipart document uploads as one
// document_processing job.
func (h *SubmitHandler) Documents(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "No files uploaded",
			"code":  "ERR_NO_FILE",
		})
	}
	files := form.File["files"]

	for _, file := range files {
		if !media.ValidDocumentFormat(file.Filename) {
			return c.Status(400).JSON(fiber.Map{
				"error": fmt.Sprintf("Unsupported document type: %s", file.Filename),
				"code":  "ERR_INVALID_FORMAT",
			})
		}
	}

	job := &types.Job{
		ID:          uuid.New().String(),
		Type:        types.JobDocument,
		InputType:   types.InputFile,
		RequestName: formValue(c, "name", "document"),
	}

	formats, err := parseFormats(strings.Split(c.FormValue("formats"), ","))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error(), "code": "ERR_INVALID_FORMAT_TAG"})
	}
	job.OutputFormats = formats

	for _, file := range files {
		tempPath := filepath.Join(h.tempDir, fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(file.Filename)))
		if err := c.SaveFile(file, tempPath); err != nil {
			h.logger.Error("failed to save uploaded file", "error", err)
			return c.Status(500).JSON(fiber.Map{
				"error": "Failed to save file",
				"code":  "ERR_SAVE_FAILED",
			})
		}
		job.FilePaths = append(job.FilePaths, tempPath)
		job.FileNames = append(job.FileNames, file.Filename)
	}

	return h.submit(c, job)
}

// YouTube handles remote-url transcription requests with the
// caption/audio intent flags.
func (h *SubmitHandler) YouTube(c *fiber.Ctx) error {
	var req remoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}
	if req.URL == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "URL is required",
			"code":  "ERR_NO_URL",
		})
	}
	if !media.IsYouTubeURL(req.URL) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Not a recognized YouTube URL",
			"code":  "ERR_INVALID_URL",
		})
	}

	formats, err := parseFormats(req.Formats)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error(), "code": "ERR_INVALID_FORMAT_TAG"})
	}

	preferCaptions := true
	if req.PreferCaptions != nil {
		preferCaptions = *req.PreferCaptions
	}

	job := &types.Job{
		ID:             uuid.New().String(),
		Type:           types.JobTranscription,
		InputType:      types.InputRemoteURL,
		RequestName:    defaultName(req.Name, "youtube_video"),
		SourceURL:      req.URL,
		TargetLanguage: req.Language,
		OutputFormats:  formats,
		Source: types.SourceOptions{
			PreferCaptions:  preferCaptions,
			TranscribeAudio: req.TranscribeAudio,
		},
		Transform: req.Transform,
	}

	return h.submit(c, job)
}

// Text handles literal-text document jobs.
func (h *SubmitHandler) Text(c *fiber.Ctx) error {
	var req remoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Text is required",
			"code":  "ERR_NO_TEXT",
		})
	}

	formats, err := parseFormats(req.Formats)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error(), "code": "ERR_INVALID_FORMAT_TAG"})
	}

	job := &types.Job{
		ID:             uuid.New().String(),
		Type:           types.JobDocument,
		InputType:      types.InputText,
		RequestName:    defaultName(req.Name, "text"),
		Text:           req.Text,
		TargetLanguage: req.Language,
		OutputFormats:  formats,
		Transform:      req.Transform,
	}

	return h.submit(c, job)
}

// Speech handles text-to-speech jobs.
func (h *SubmitHandler) Speech(c *fiber.Ctx) error {
	var req remoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Text is required",
			"code":  "ERR_NO_TEXT",
		})
	}

	job := &types.Job{
		ID:            uuid.New().String(),
		Type:          types.JobTextToSpeech,
		InputType:     types.InputText,
		RequestName:   defaultName(req.Name, "speech"),
		Text:          req.Text,
		Voice:         req.Voice,
		OutputFormats: []types.OutputFormat{types.FormatAudio},
	}

	return h.submit(c, job)
}

// submit hands the job to the dispatcher and answers with the ID the
// caller will poll.
func (h *SubmitHandler) submit(c *fiber.Ctx, job *types.Job) error {
	id, err := h.dispatcher.Submit(job)
	if err != nil {
		h.logger.Error("job submission failed", "error", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to submit job",
			"code":  "ERR_SUBMIT_FAILED",
		})
	}

	return c.JSON(fiber.Map{
		"job_id":  id,
		"status":  string(types.StatusPending),
		"message": "Job accepted, processing started",
	})
}

// parseFormats validates requested output format tags, tolerating
// blanks from an empty form field.
func parseFormats(raw []string) ([]types.OutputFormat, error) {
	var formats []types.OutputFormat
	for _, f := range raw {
		f = strings.TrimSpace(strings.ToLower(f))
		if f == "" {
			continue
		}
		tag := types.OutputFormat(f)
		if !types.ValidFormat(tag) {
			return nil, fmt.Errorf("unknown output format %q", f)
		}
		formats = append(formats, tag)
	}
	return formats, nil
}

func formValue(c *fiber.Ctx, key, fallback string) string {
	if v := c.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func defaultName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

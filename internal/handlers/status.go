package handlers

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/media-pipeline/internal/dispatch"
	"github.com/codebuildervaibhav/media-pipeline/internal/status"
	"github.com/codebuildervaibhav/media-pipeline/internal/storage"
)

// StatusHandler serves the poll/download/cancel side of a job.
type StatusHandler struct {
	reader     *status.Reader
	dispatcher *dispatch.Dispatcher
	artifacts  *storage.LocalStorage
	jobs       *storage.JobDB
	logger     *slog.Logger
}

// NewStatusHandler creates the status handler. jobs may be nil when no
// durable store is configured.
func NewStatusHandler(reader *status.Reader, dispatcher *dispatch.Dispatcher, artifacts *storage.LocalStorage, jobs *storage.JobDB, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		reader:     reader,
		dispatcher: dispatcher,
		artifacts:  artifacts,
		jobs:       jobs,
		logger:     logger,
	}
}

// Get answers a status poll for one job.
func (h *StatusHandler) Get(c *fiber.Ctx) error {
	resp, err := h.reader.Status(c.Params("id"))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{
				"error": "Job not found",
				"code":  "ERR_NOT_FOUND",
			})
		}
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	// Callers download by base name, not by server-side path.
	files := make([]string, len(resp.ResultFiles))
	for i, f := range resp.ResultFiles {
		files[i] = filepath.Base(f)
	}
	resp.ResultFiles = files

	return c.JSON(resp)
}

// List returns recent jobs from the durable store.
func (h *StatusHandler) List(c *fiber.Ctx) error {
	if h.jobs == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "Durable job store is not available",
			"code":  "ERR_NO_DURABLE_STORE",
		})
	}

	jobs, err := h.jobs.List(c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(jobs)
}

// Download streams one result artifact by base name.
func (h *StatusHandler) Download(c *fiber.Ctx) error {
	path, err := h.artifacts.Resolve(c.Params("name"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Result file not found",
			"code":  "ERR_FILE_NOT_FOUND",
		})
	}
	return c.Download(path)
}

// Cancel requests cooperative cancellation of a running job.
func (h *StatusHandler) Cancel(c *fiber.Ctx) error {
	if err := h.dispatcher.Cancel(c.Params("id")); err != nil {
		return c.Status(409).JSON(fiber.Map{
			"error": "Job is not running",
			"code":  "ERR_NOT_RUNNING",
		})
	}
	return c.JSON(fiber.Map{"status": "cancel_requested"})
}

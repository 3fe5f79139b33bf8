package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/media-pipeline/internal/status"
)

// ProgressStream pushes progress snapshots to a websocket client until
// the job reaches a terminal state, as an alternative to polling.
type ProgressStream struct {
	reader   *status.Reader
	interval time.Duration
	logger   *slog.Logger
}

// NewProgressStream creates the websocket progress handler.
func NewProgressStream(reader *status.Reader, logger *slog.Logger) *ProgressStream {
	return &ProgressStream{
		reader:   reader,
		interval: 500 * time.Millisecond,
		logger:   logger,
	}
}

// Handle streams snapshots for the job in the :id route param.
func (h *ProgressStream) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	for {
		resp, err := h.reader.Status(jobID)
		if err != nil {
			if errors.Is(err, status.ErrNotFound) {
				c.WriteJSON(map[string]string{"error": "job not found"})
			}
			return
		}

		if err := c.WriteJSON(resp); err != nil {
			h.logger.Debug("progress stream client gone", "job_id", jobID, "error", err)
			return
		}

		if resp.Status.Terminal() {
			return
		}
		time.Sleep(h.interval)
	}
}

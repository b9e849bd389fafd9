package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// ArchiveService lists and opens archived scenario batches.
type ArchiveService interface {
	List(ctx context.Context) ([]domain.BlobInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// ArchiveHandler serves archive listing and manual archive runs.
type ArchiveHandler struct {
	archives  ArchiveService
	logger    *slog.Logger
	triggerCh chan<- struct{} // when non-nil, sending triggers one archive run
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(archives ArchiveService, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archives: archives, logger: logger}
}

// WithTriggerChannel sets the channel to send on when a run is requested.
// The archive loop must receive from this channel to run.
func (h *ArchiveHandler) WithTriggerChannel(ch chan<- struct{}) *ArchiveHandler {
	h.triggerCh = ch
	return h
}

// ListArchives returns the archive objects in storage.
// GET /api/archives
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.archives == nil {
		writeError(w, http.StatusServiceUnavailable, "archiving is not configured")
		return
	}
	infos, err := h.archives.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list archives", err)
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": infos})
}

// DownloadArchive streams one archive object as JSON lines.
// GET /api/archives/{name}
func (h *ArchiveHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	if h.archives == nil {
		writeError(w, http.StatusServiceUnavailable, "archiving is not configured")
		return
	}
	name := pathParam(r, "name")
	body, err := h.archives.Open(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to open archive", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: archive download interrupted",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}

// TriggerArchive enqueues one archive run with a non-blocking send.
// POST /api/archives/run
func (h *ArchiveHandler) TriggerArchive(w http.ResponseWriter, r *http.Request) {
	if h.triggerCh == nil {
		writeError(w, http.StatusServiceUnavailable, "archive loop is not running")
		return
	}
	h.logger.InfoContext(r.Context(), "handler: archive run requested")
	select {
	case h.triggerCh <- struct{}{}:
	default:
		// already triggered and not yet consumed
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"message":      "archive run enqueued",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}

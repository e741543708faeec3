package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/models"
	"github.com/ternarybob/reportrelay/internal/storage/badger"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// RunStore reads persisted run records
type RunStore interface {
	GetRun(ctx context.Context, id string) (*models.RunRecord, error)
	ListRuns(ctx context.Context, status string, limit int) ([]*models.RunRecord, error)
	CountRuns(ctx context.Context) (int, error)
}

// RunsHandler exposes the run history
type RunsHandler struct {
	store        RunStore
	defaultLimit int
	logger       arbor.ILogger
}

// NewRunsHandler creates a new RunsHandler. defaultLimit applies when the
// request has no limit parameter.
func NewRunsHandler(store RunStore, defaultLimit int, logger arbor.ILogger) *RunsHandler {
	if defaultLimit <= 0 {
		defaultLimit = defaultRunsLimit
	}
	return &RunsHandler{
		store:        store,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// ListRunsHandler handles GET /runs?limit=N&status=S
func (h *RunsHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := GetLimitParam(r, h.defaultLimit, maxRunsLimit)
	status := r.URL.Query().Get("status")

	runs, err := h.store.ListRuns(r.Context(), status, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	total, err := h.store.CountRuns(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count runs")
	}

	if runs == nil {
		runs = []*models.RunRecord{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
		"total": total,
	})
}

// GetRunHandler handles GET /runs/{id}
func (h *RunsHandler) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, badger.ErrRunNotFound) {
		WriteError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", id).Msg("Failed to get run")
		WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	WriteJSON(w, http.StatusOK, run)
}

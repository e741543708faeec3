package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/services/scheduler"
)

// JobStatusProvider reports scheduled job state
type JobStatusProvider interface {
	GetJobStatus(name string) (*scheduler.JobStatus, error)
}

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	jobs     JobStatusProvider
	jobNames []string
	logger   arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler. jobs may be nil when no
// background jobs are registered.
func NewStatusHandler(jobs JobStatusProvider, jobNames []string, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		jobs:     jobs,
		jobNames: jobNames,
		logger:   logger,
	}
}

// HealthHandler handles GET /health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   common.GetVersion(),
	})
}

// GetStatusHandler handles GET /status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobs := make([]*scheduler.JobStatus, 0, len(h.jobNames))
	if h.jobs != nil {
		for _, name := range h.jobNames {
			status, err := h.jobs.GetJobStatus(name)
			if err != nil {
				h.logger.Warn().Err(err).Str("job", name).Msg("Job status unavailable")
				continue
			}
			jobs = append(jobs, status)
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": common.GetVersion(),
		"build":   common.GetBuildInfo(),
		"jobs":    jobs,
	})
}

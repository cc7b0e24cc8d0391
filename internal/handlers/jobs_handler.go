package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/services"
)

// JobsHandler exposes operator triggers for background jobs.
type JobsHandler struct {
	reconciler services.Reconciler
	now        func() time.Time
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(reconciler services.Reconciler) *JobsHandler {
	return &JobsHandler{reconciler: reconciler, now: time.Now}
}

// Sweep runs one reconciliation pass over the current month.
// @Summary     Run reconciliation sweep
// @Description Re-check every budget of the current month that has not alerted against the ledger and raise any missed alerts
// @Tags        jobs
// @Produce     json
// @Security    APIKeyAuth
// @Success     200 {object} services.SweepResult "Sweep summary"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Failure     503 {object} ErrorResponse "Job endpoints not configured"
// @Router      /jobs/sweep [post]
func (h *JobsHandler) Sweep(c *gin.Context) {
	result, err := h.reconciler.Sweep(c.Request.Context(), h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sweep": result})
}

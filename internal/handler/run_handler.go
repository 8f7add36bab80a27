package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/mis"
	"gstpipeline/internal/port"
)

// RunHandler serves run status, exceptions, audit trail, and MIS reports.
type RunHandler struct {
	runs       port.RunRepository
	exceptions port.ExceptionRepository
	auditLogs  port.AuditLogRepository
	misReports port.MISReportRepository
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runs port.RunRepository, exceptions port.ExceptionRepository, auditLogs port.AuditLogRepository, misReports port.MISReportRepository) *RunHandler {
	return &RunHandler{runs: runs, exceptions: exceptions, auditLogs: auditLogs, misReports: misReports}
}

func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run id")
		return uuid.Nil, false
	}
	return runID, true
}

// Get handles GET /runs/:id
// @Summary Fetch one run's lifecycle record
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} APIResponse
// @Router /runs/{id} [get]
func (h *RunHandler) Get(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}
	run, err := h.runs.GetByID(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}

// ListExceptions handles GET /runs/:id/exceptions
// @Summary List a run's detected exceptions
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} APIResponse
// @Router /runs/{id}/exceptions [get]
func (h *RunHandler) ListExceptions(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}
	exceptions, err := h.exceptions.ListByRun(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, exceptions)
}

// AuditTrail handles GET /runs/:id/audit
// @Summary List a run's audit log in emission order
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} APIResponse
// @Router /runs/{id}/audit [get]
func (h *RunHandler) AuditTrail(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}
	entries, err := h.auditLogs.ListByRun(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, entries)
}

// CompareMIS handles GET /mis/compare?channel=...&gstin=...
// @Summary Month-over-month growth across a channel's MIS reports
// @Tags runs
// @Produce json
// @Param channel query string true "Channel"
// @Param gstin query string true "GSTIN"
// @Success 200 {object} APIResponse
// @Router /mis/compare [get]
func (h *RunHandler) CompareMIS(c *gin.Context) {
	channel := domain.Channel(c.Query("channel"))
	gstin := c.Query("gstin")
	if !channel.Valid() || gstin == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_QUERY", "channel and gstin are required")
		return
	}

	reports, err := h.misReports.ListByChannel(c.Request.Context(), channel, gstin)
	if err != nil {
		HandleError(c, err)
		return
	}
	comparisons := make([]mis.Comparison, 0)
	for i := 1; i < len(reports); i++ {
		comparisons = append(comparisons, mis.Compare(reports[i-1], reports[i]))
	}
	RespondOK(c, comparisons)
}

// MISReport handles GET /runs/:id/mis
// @Summary Fetch a run's MIS report
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} APIResponse
// @Router /runs/{id}/mis [get]
func (h *RunHandler) MISReport(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}
	report, err := h.misReports.GetByRun(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, report)
}

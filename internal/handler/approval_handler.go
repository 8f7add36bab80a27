package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gstpipeline/internal/approvalqueue"
	"gstpipeline/internal/domain"
	"gstpipeline/internal/middleware"
	"gstpipeline/internal/port"
)

// ApprovalHandler serves the pending-approval review endpoints.
type ApprovalHandler struct {
	approvals port.ApprovalRepository
	applier   *approvalqueue.Applier
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(approvals port.ApprovalRepository, applier *approvalqueue.Applier) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, applier: applier}
}

// ListPending handles GET /runs/:id/approvals
// @Summary List a run's pending approval requests
// @Tags approvals
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} APIResponse
// @Router /runs/{id}/approvals [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run id")
		return
	}
	pending, err := h.approvals.ListPending(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, pending)
}

// ListQueue handles GET /approvals
// @Summary List pending approval requests across all runs
// @Tags approvals
// @Produce json
// @Success 200 {object} APIResponse
// @Router /approvals [get]
func (h *ApprovalHandler) ListQueue(c *gin.Context) {
	pending, err := h.approvals.ListAllPending(c.Request.Context(), 200)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, pending)
}

// decideRequest is the decision body for POST /approvals/:id/decide.
type decideRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// Decide handles POST /approvals/:id/decide
// @Summary Approve or reject a pending request, applying master mutations on approval
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval request ID"
// @Param decision body decideRequest true "Decision"
// @Success 200 {object} APIResponse
// @Router /approvals/{id}/decide [post]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid approval id")
		return
	}
	var body decideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "invalid decision body")
		return
	}

	req, err := h.approvals.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	status := domain.ApprovalStatusRejected
	if body.Approve {
		status = domain.ApprovalStatusApproved
	}
	approver := middleware.GetSubject(c)
	if err := h.applier.Decide(c.Request.Context(), *req, status, approver, body.Notes); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"id": id, "status": status, "approver": approver})
}

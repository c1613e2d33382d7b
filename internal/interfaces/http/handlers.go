package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/approvia/doa-engine/internal/application/service"
	"github.com/approvia/doa-engine/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	approvalService service.ApprovalService
	matrixService   service.MatrixService
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	approvalService service.ApprovalService,
	matrixService service.MatrixService,
	logger Logger,
) *Handlers {
	return &Handlers{
		approvalService: approvalService,
		matrixService:   matrixService,
		logger:          logger,
	}
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// SubmitWorkflow starts an approval workflow for a document
func (h *Handlers) SubmitWorkflow(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	wf, tasks, err := h.approvalService.Submit(c.Request.Context(), c.Param("companyId"), service.Document{
		ID:    req.DocumentID,
		Type:  req.DocumentType,
		Title: req.DocumentTitle,
	}, req.InitiatorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: SubmitResponse{Workflow: wf, Tasks: tasks}})
}

// ApproveWorkflow records an approval at the current level
func (h *Handlers) ApproveWorkflow(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	wf, newTasks, err := h.approvalService.Approve(c.Request.Context(),
		c.Param("companyId"), c.Param("workflowId"), req.UserID, req.Comments)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: DecisionResponse{Workflow: wf, NewTasks: newTasks}})
}

// DeclineWorkflow records a decline, terminating the workflow
func (h *Handlers) DeclineWorkflow(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	wf, err := h.approvalService.Decline(c.Request.Context(),
		c.Param("companyId"), c.Param("workflowId"), req.UserID, req.Comments)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: DecisionResponse{Workflow: wf}})
}

// GetWorkflowForDocument returns the latest workflow for a document
func (h *Handlers) GetWorkflowForDocument(c *gin.Context) {
	documentType := c.Query("document_type")
	documentID := c.Query("document_id")
	if documentType == "" || documentID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "document_type and document_id are required"})
		return
	}

	wf, err := h.approvalService.GetWorkflowForDocument(c.Request.Context(),
		c.Param("companyId"), documentType, documentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if wf == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no workflow for document"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: wf})
}

// GetUserTasks returns the user's incomplete tasks
func (h *Handlers) GetUserTasks(c *gin.Context) {
	tasks, err := h.approvalService.GetUserTasks(c.Request.Context(),
		c.Param("companyId"), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: tasks})
}

// CompleteTask acknowledges a task
func (h *Handlers) CompleteTask(c *gin.Context) {
	err := h.approvalService.CompleteTask(c.Request.Context(),
		c.Param("companyId"), c.Param("taskId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// CreateMatrix creates an approval matrix
func (h *Handlers) CreateMatrix(c *gin.Context) {
	var req MatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	matrix := req.ToEntity(c.Param("companyId"))
	if err := h.matrixService.Create(c.Request.Context(), matrix); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: matrix})
}

// UpdateMatrix updates an approval matrix
func (h *Handlers) UpdateMatrix(c *gin.Context) {
	var req MatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	matrix := req.ToEntity(c.Param("companyId"))
	matrix.ID = c.Param("matrixId")
	if err := h.matrixService.Update(c.Request.Context(), matrix); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: matrix})
}

// ArchiveMatrix archives an approval matrix
func (h *Handlers) ArchiveMatrix(c *gin.Context) {
	err := h.matrixService.Archive(c.Request.Context(),
		c.Param("companyId"), c.Param("matrixId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetMatrix retrieves an approval matrix
func (h *Handlers) GetMatrix(c *gin.Context) {
	matrix, err := h.matrixService.Get(c.Request.Context(),
		c.Param("companyId"), c.Param("matrixId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: matrix})
}

// ListMatrices lists a company's approval matrices
func (h *Handlers) ListMatrices(c *gin.Context) {
	matrices, err := h.matrixService.ListByCompany(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: matrices})
}

// respondError maps engine errors to HTTP status codes. Every precondition
// failure keeps its own identity; nothing collapses into a generic 500
// except genuine internal errors.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, workflow.ErrWorkflowNotFound),
		errors.Is(err, workflow.ErrMatrixNotFound),
		errors.Is(err, workflow.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrWorkflowNotPending),
		errors.Is(err, workflow.ErrWorkflowAlreadyPending),
		errors.Is(err, workflow.ErrAlreadyDecided):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrCommentsRequired),
		errors.Is(err, workflow.ErrEmptyMatrix),
		errors.Is(err, workflow.ErrInvalidMatrix),
		errors.Is(err, workflow.ErrInvalidSubmission),
		errors.Is(err, workflow.ErrNoOwnerFound):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrWriteConflict):
		status = http.StatusServiceUnavailable
	case errors.Is(err, workflow.ErrInvalidApprovalLevel):
		h.logger.Error("Data integrity error", "error", err, "path", c.Request.URL.Path)
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError && !errors.Is(err, workflow.ErrInvalidApprovalLevel) {
		h.logger.Error("Request failed", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}

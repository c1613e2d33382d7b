package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/approvia/doa-engine/internal/application/service"
	"github.com/approvia/doa-engine/internal/domain/entity"
	"github.com/approvia/doa-engine/internal/domain/workflow"
)

type mockApprovalService struct {
	submitFunc       func(ctx context.Context, companyID string, doc service.Document, initiatorID string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error)
	approveFunc      func(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error)
	declineFunc      func(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, error)
	completeTaskFunc func(ctx context.Context, companyID, taskID string) error
	getWorkflowFunc  func(ctx context.Context, companyID, documentType, documentID string) (*entity.ApprovalWorkflow, error)
	getTasksFunc     func(ctx context.Context, companyID, userID string) ([]*entity.ApprovalTask, error)
}

func (m *mockApprovalService) Submit(ctx context.Context, companyID string, doc service.Document, initiatorID string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, companyID, doc, initiatorID)
	}
	return &entity.ApprovalWorkflow{ID: "wf-1", Status: entity.WorkflowStatusPending}, nil, nil
}

func (m *mockApprovalService) Approve(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error) {
	if m.approveFunc != nil {
		return m.approveFunc(ctx, companyID, workflowID, userID, comments)
	}
	return &entity.ApprovalWorkflow{ID: workflowID, Status: entity.WorkflowStatusApproved}, nil, nil
}

func (m *mockApprovalService) Decline(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, error) {
	if m.declineFunc != nil {
		return m.declineFunc(ctx, companyID, workflowID, userID, comments)
	}
	return &entity.ApprovalWorkflow{ID: workflowID, Status: entity.WorkflowStatusDeclined}, nil
}

func (m *mockApprovalService) CompleteTask(ctx context.Context, companyID, taskID string) error {
	if m.completeTaskFunc != nil {
		return m.completeTaskFunc(ctx, companyID, taskID)
	}
	return nil
}

func (m *mockApprovalService) GetWorkflowForDocument(ctx context.Context, companyID, documentType, documentID string) (*entity.ApprovalWorkflow, error) {
	if m.getWorkflowFunc != nil {
		return m.getWorkflowFunc(ctx, companyID, documentType, documentID)
	}
	return nil, nil
}

func (m *mockApprovalService) GetUserTasks(ctx context.Context, companyID, userID string) ([]*entity.ApprovalTask, error) {
	if m.getTasksFunc != nil {
		return m.getTasksFunc(ctx, companyID, userID)
	}
	return []*entity.ApprovalTask{}, nil
}

type mockMatrixService struct {
	createFunc func(ctx context.Context, matrix *entity.ApprovalMatrix) error
	getFunc    func(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error)
}

func (m *mockMatrixService) Create(ctx context.Context, matrix *entity.ApprovalMatrix) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, matrix)
	}
	return nil
}

func (m *mockMatrixService) Update(ctx context.Context, matrix *entity.ApprovalMatrix) error {
	return nil
}

func (m *mockMatrixService) Archive(ctx context.Context, companyID, id string) error {
	return nil
}

func (m *mockMatrixService) Get(ctx context.Context, companyID, id string) (*entity.ApprovalMatrix, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, companyID, id)
	}
	return &entity.ApprovalMatrix{ID: id, CompanyID: companyID}, nil
}

func (m *mockMatrixService) ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalMatrix, error) {
	return []*entity.ApprovalMatrix{}, nil
}

func (m *mockMatrixService) ResolveActive(ctx context.Context, companyID, documentType string) (*entity.ApprovalMatrix, error) {
	return nil, nil
}

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(approval service.ApprovalService, matrix service.MatrixService) *Server {
	return NewServer(DefaultServerConfig(), approval, matrix, noopLogger{})
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(&mockApprovalService{}, &mockMatrixService{})

	w := doRequest(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitWorkflow(t *testing.T) {
	var gotDoc service.Document
	approval := &mockApprovalService{
		submitFunc: func(ctx context.Context, companyID string, doc service.Document, initiatorID string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error) {
			gotDoc = doc
			return &entity.ApprovalWorkflow{ID: "wf-1", CompanyID: companyID, Status: entity.WorkflowStatusPending}, nil, nil
		},
	}
	server := newTestServer(approval, &mockMatrixService{})

	body := `{"document_id":"doc-1","document_type":"job_offer","document_title":"Offer","initiator_id":"dave"}`
	w := doRequest(t, server, http.MethodPost, "/api/v1/companies/company-1/workflows", body)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "doc-1", gotDoc.ID)
	assert.Equal(t, "job_offer", gotDoc.Type)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestSubmitWorkflow_MissingFields(t *testing.T) {
	server := newTestServer(&mockApprovalService{}, &mockMatrixService{})

	w := doRequest(t, server, http.MethodPost, "/api/v1/companies/company-1/workflows",
		`{"document_id":"doc-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApproveWorkflow(t *testing.T) {
	server := newTestServer(&mockApprovalService{}, &mockMatrixService{})

	w := doRequest(t, server, http.MethodPost,
		"/api/v1/companies/company-1/workflows/wf-1/approve",
		`{"user_id":"alice","comments":"ok"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"workflow not found", workflow.ErrWorkflowNotFound, http.StatusNotFound},
		{"not authorized", workflow.ErrNotAuthorized, http.StatusForbidden},
		{"not pending", workflow.ErrWorkflowNotPending, http.StatusConflict},
		{"already decided", workflow.ErrAlreadyDecided, http.StatusConflict},
		{"already pending", workflow.ErrWorkflowAlreadyPending, http.StatusConflict},
		{"comments required", workflow.ErrCommentsRequired, http.StatusBadRequest},
		{"invalid submission", workflow.ErrInvalidSubmission, http.StatusBadRequest},
		{"no owner", workflow.ErrNoOwnerFound, http.StatusBadRequest},
		{"write conflict", workflow.ErrWriteConflict, http.StatusServiceUnavailable},
		{"integrity error", workflow.ErrInvalidApprovalLevel, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approval := &mockApprovalService{
				approveFunc: func(ctx context.Context, companyID, workflowID, userID, comments string) (*entity.ApprovalWorkflow, []*entity.ApprovalTask, error) {
					return nil, nil, tt.err
				},
			}
			server := newTestServer(approval, &mockMatrixService{})

			w := doRequest(t, server, http.MethodPost,
				"/api/v1/companies/company-1/workflows/wf-1/approve",
				`{"user_id":"alice"}`)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestGetWorkflowForDocument(t *testing.T) {
	server := newTestServer(&mockApprovalService{}, &mockMatrixService{})

	t.Run("missing query parameters", func(t *testing.T) {
		w := doRequest(t, server, http.MethodGet, "/api/v1/companies/company-1/workflows", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("never submitted", func(t *testing.T) {
		w := doRequest(t, server, http.MethodGet,
			"/api/v1/companies/company-1/workflows?document_type=job_offer&document_id=doc-1", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("found", func(t *testing.T) {
		approval := &mockApprovalService{
			getWorkflowFunc: func(ctx context.Context, companyID, documentType, documentID string) (*entity.ApprovalWorkflow, error) {
				return &entity.ApprovalWorkflow{ID: "wf-1", Status: entity.WorkflowStatusApproved}, nil
			},
		}
		server := newTestServer(approval, &mockMatrixService{})
		w := doRequest(t, server, http.MethodGet,
			"/api/v1/companies/company-1/workflows?document_type=job_offer&document_id=doc-1", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCreateMatrix(t *testing.T) {
	var created *entity.ApprovalMatrix
	matrixService := &mockMatrixService{
		createFunc: func(ctx context.Context, matrix *entity.ApprovalMatrix) error {
			created = matrix
			return nil
		},
	}
	server := newTestServer(&mockApprovalService{}, matrixService)

	body := `{
		"name": "Contract approvals",
		"document_type": "employment_contract",
		"status": "active",
		"approval_blocks": [{"level": 1, "approvers": ["alice"], "requires_all": true}]
	}`
	w := doRequest(t, server, http.MethodPost, "/api/v1/companies/company-1/matrices", body)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, created)
	assert.Equal(t, "company-1", created.CompanyID, "company comes from the URL, not the payload")
}

func TestCreateMatrix_InvalidBlocks(t *testing.T) {
	matrixService := &mockMatrixService{
		createFunc: func(ctx context.Context, matrix *entity.ApprovalMatrix) error {
			return workflow.ErrInvalidMatrix
		},
	}
	server := newTestServer(&mockApprovalService{}, matrixService)

	body := `{"name": "x", "document_type": "job_offer", "approval_blocks": [{"level": 1, "approvers": []}]}`
	w := doRequest(t, server, http.MethodPost, "/api/v1/companies/company-1/matrices", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteTask(t *testing.T) {
	approval := &mockApprovalService{
		completeTaskFunc: func(ctx context.Context, companyID, taskID string) error {
			if taskID == "missing" {
				return workflow.ErrTaskNotFound
			}
			return nil
		},
	}
	server := newTestServer(approval, &mockMatrixService{})

	w := doRequest(t, server, http.MethodPost, "/api/v1/companies/company-1/tasks/task-1/complete", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, server, http.MethodPost, "/api/v1/companies/company-1/tasks/missing/complete", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

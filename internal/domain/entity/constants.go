package entity

// Matrix status constants
const (
	MatrixStatusDraft    = "draft"
	MatrixStatusActive   = "active"
	MatrixStatusArchived = "archived"
)

// Workflow status constants
const (
	WorkflowStatusPending  = "pending"
	WorkflowStatusApproved = "approved"
	WorkflowStatusDeclined = "declined"
)

// Decision constants
const (
	DecisionApproved = "approved"
	DecisionDeclined = "declined"
)

// Task type constants
const (
	TaskTypeApprovalRequest  = "approval_request"
	TaskTypeApprovalResponse = "approval_response"
)

// Task priority constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Document type constants. The engine treats the document type as opaque
// beyond requiring it to be non-empty; these are the types the surrounding
// application currently submits.
const (
	DocumentTypeOrgChart           = "org_chart"
	DocumentTypeDepartmentCharter  = "department_charter"
	DocumentTypeJobDescription     = "job_description"
	DocumentTypeJobOffer           = "job_offer"
	DocumentTypeEmploymentContract = "employment_contract"
	DocumentTypeTerminationNotice  = "termination_notice"
)

package dto

import (
	"time"

	"github.com/uni-ombuds/case-api/internal/models"
)

// ComplainantBlock is the required identity block of an intake payload.
type ComplainantBlock struct {
	Role           string `json:"role" validate:"required"`
	DocumentType   string `json:"documentType" validate:"required"`
	DocumentNumber string `json:"documentNumber" validate:"required"`
	FirstName      string `json:"firstName" validate:"required"`
	LastName       string `json:"lastName" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Address        string `json:"address" validate:"required"`
}

// RespondentBlock is the optional identity block of the person the case is
// filed against. The block counts as present only when a name field is set.
type RespondentBlock struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Position  string `json:"position"`
	Unit      string `json:"unit"`
}

// Empty reports whether no name field of the block is populated.
func (r *RespondentBlock) Empty() bool {
	return r == nil || (r.FirstName == "" && r.LastName == "")
}

// CreateCaseRequest is the fully-typed intake payload validated once at the
// registry boundary.
type CreateCaseRequest struct {
	Type           models.CaseType  `json:"type" validate:"required"`
	Complainant    ComplainantBlock `json:"complainant" validate:"required"`
	Respondent     *RespondentBlock `json:"respondent"`
	Narrative      string           `json:"narrative" validate:"required"`
	AffectedRights string           `json:"affectedRights" validate:"required"`
	NotifyByEmail  bool             `json:"notifyByEmail" validate:"required,eq=true"`
}

// TransitionRequest moves a case to a new lifecycle state. Override is
// honoured only for supervisors and bypasses the transition graph.
type TransitionRequest struct {
	TargetState models.CaseState `json:"targetState" validate:"required"`
	Comment     string           `json:"comment"`
	Resolution  string           `json:"resolution"`
	Override    bool             `json:"override"`
}

// PriorityRequest changes the handling priority of a case.
type PriorityRequest struct {
	Priority models.CasePriority `json:"priority" validate:"required"`
	Comment  string              `json:"comment"`
}

// AssignRequest transfers responsibility for a case to another handler.
type AssignRequest struct {
	HandlerID string `json:"handlerId" validate:"required"`
	Comment   string `json:"comment"`
}

// ManualEntryRequest appends a manual follow-up note to a case's trail.
type ManualEntryRequest struct {
	Action  string `json:"action" validate:"required"`
	Comment string `json:"comment" validate:"required"`
	Visible *bool  `json:"visible"`
}

// CaseQuery mirrors supported listing filters.
type CaseQuery struct {
	Type       string
	State      string
	Priority   string
	AssignedTo string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// AttachmentResult reports the per-file outcome of an upload batch. Failures
// are reported individually and never abort the surrounding operation.
type AttachmentResult struct {
	DisplayName string             `json:"displayName"`
	Attachment  *models.Attachment `json:"attachment,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// ManualEntryResponse couples the appended entry with per-file results.
type ManualEntryResponse struct {
	Entry       *models.AuditEntry `json:"entry"`
	Attachments []AttachmentResult `json:"attachments,omitempty"`
}

// AttachmentDownloadResponse enriches metadata with a signed download URL.
type AttachmentDownloadResponse struct {
	models.Attachment
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

package models

import "time"

// CaseType identifies the kind of case filed with the office.
type CaseType string

const (
	CaseTypeComplaint    CaseType = "complaint"
	CaseTypeGrievance    CaseType = "grievance"
	CaseTypeDenunciation CaseType = "denunciation"
)

// Prefix returns the tracking-code prefix for the case type.
func (t CaseType) Prefix() string {
	switch t {
	case CaseTypeComplaint:
		return "REC"
	case CaseTypeGrievance:
		return "QUE"
	case CaseTypeDenunciation:
		return "DEN"
	default:
		return ""
	}
}

// Valid reports whether the case type is one of the known kinds.
func (t CaseType) Valid() bool {
	return t.Prefix() != ""
}

// CaseState is the lifecycle state of a case.
type CaseState string

const (
	CaseStatePending   CaseState = "pending"
	CaseStateInReview  CaseState = "in_review"
	CaseStateInProcess CaseState = "in_process"
	CaseStateResolved  CaseState = "resolved"
	CaseStateArchived  CaseState = "archived"
	CaseStateRejected  CaseState = "rejected"
)

// Terminal reports whether the state accepts no further transitions.
func (s CaseState) Terminal() bool {
	switch s {
	case CaseStateResolved, CaseStateArchived, CaseStateRejected:
		return true
	default:
		return false
	}
}

// Valid reports whether the state is part of the lifecycle.
func (s CaseState) Valid() bool {
	switch s {
	case CaseStatePending, CaseStateInReview, CaseStateInProcess,
		CaseStateResolved, CaseStateArchived, CaseStateRejected:
		return true
	default:
		return false
	}
}

// CasePriority is the handling priority of a case.
type CasePriority string

const (
	PriorityLow    CasePriority = "low"
	PriorityMedium CasePriority = "medium"
	PriorityHigh   CasePriority = "high"
	PriorityUrgent CasePriority = "urgent"
)

// Valid reports whether the priority is one of the known levels.
func (p CasePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Case represents a registered complaint, grievance or denunciation.
// It is mutated only through the lifecycle, assignment and registry services;
// Version guards against concurrent lost updates.
type Case struct {
	ID           string       `db:"id" json:"id"`
	TrackingCode string       `db:"tracking_code" json:"tracking_code"`
	Type         CaseType     `db:"case_type" json:"case_type"`
	State        CaseState    `db:"state" json:"state"`
	Priority     CasePriority `db:"priority" json:"priority"`

	Narrative      string  `db:"narrative" json:"narrative"`
	AffectedRights string  `db:"affected_rights" json:"affected_rights"`
	Resolution     *string `db:"resolution" json:"resolution,omitempty"`

	ComplainantRole           string `db:"complainant_role" json:"complainant_role"`
	ComplainantDocumentType   string `db:"complainant_document_type" json:"complainant_document_type"`
	ComplainantDocumentNumber string `db:"complainant_document_number" json:"complainant_document_number"`
	ComplainantFirstName      string `db:"complainant_first_name" json:"complainant_first_name"`
	ComplainantLastName       string `db:"complainant_last_name" json:"complainant_last_name"`
	ComplainantEmail          string `db:"complainant_email" json:"complainant_email"`
	ComplainantPhone          string `db:"complainant_phone" json:"complainant_phone"`
	ComplainantAddress        string `db:"complainant_address" json:"complainant_address"`
	NotifyByEmail             bool   `db:"notify_by_email" json:"notify_by_email"`

	RespondentFirstName *string `db:"respondent_first_name" json:"respondent_first_name,omitempty"`
	RespondentLastName  *string `db:"respondent_last_name" json:"respondent_last_name,omitempty"`
	RespondentPosition  *string `db:"respondent_position" json:"respondent_position,omitempty"`
	RespondentUnit      *string `db:"respondent_unit" json:"respondent_unit,omitempty"`

	AssignedTo    *string   `db:"assigned_to" json:"assigned_to,omitempty"`
	ResponseDueAt time.Time `db:"response_due_at" json:"response_due_at"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasRespondent reports whether any respondent name field is populated.
func (c *Case) HasRespondent() bool {
	return (c.RespondentFirstName != nil && *c.RespondentFirstName != "") ||
		(c.RespondentLastName != nil && *c.RespondentLastName != "")
}

// CaseFilter captures filtering criteria for listing cases.
type CaseFilter struct {
	Type       *CaseType
	State      *CaseState
	Priority   *CasePriority
	AssignedTo string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

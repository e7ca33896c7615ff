package models

import "time"

// AuditAction constants name the system-generated follow-up actions.
// Manual follow-ups carry a caller-supplied label instead.
const (
	AuditActionCaseCreated    = "CASE_CREATED"
	AuditActionStateChange    = "STATE_CHANGE"
	AuditActionPriorityChange = "PRIORITY_CHANGE"
	AuditActionReassigned     = "REASSIGNED"
	AuditActionRecordIssued   = "RECORD_ISSUED"
)

// AuditEntry is one immutable follow-up record on a case. Entries are only
// ever appended; Seq breaks ties between entries sharing a timestamp.
type AuditEntry struct {
	ID        string     `db:"id" json:"id"`
	CaseID    string     `db:"case_id" json:"case_id"`
	Seq       int64      `db:"seq" json:"-"`
	ActorID   *string    `db:"actor_id" json:"actor_id,omitempty"`
	Action    string     `db:"action" json:"action"`
	Comment   string     `db:"comment" json:"comment"`
	PrevState *CaseState `db:"prev_state" json:"prev_state,omitempty"`
	NewState  *CaseState `db:"new_state" json:"new_state,omitempty"`
	Visible   bool       `db:"visible" json:"visible"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`

	Attachments []Attachment `db:"-" json:"attachments,omitempty"`
}

// StateBearing reports whether the entry records a state change.
func (e *AuditEntry) StateBearing() bool {
	return e.NewState != nil
}

// AuditEntryFilter captures criteria for listing a case's trail.
type AuditEntryFilter struct {
	CaseID      string
	VisibleOnly bool
}

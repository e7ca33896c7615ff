package dto

import (
	"time"

	"github.com/uni-ombuds/case-api/internal/models"
)

// PublicCaseView is the read-only projection returned by the unauthenticated
// tracking-code lookup. Only public-safe fields are exposed and the trail is
// filtered to visible entries.
type PublicCaseView struct {
	TrackingCode    string              `json:"trackingCode"`
	Type            models.CaseType     `json:"type"`
	State           models.CaseState    `json:"state"`
	Priority        models.CasePriority `json:"priority"`
	ComplainantName string              `json:"complainantName"`
	ResponseDueAt   time.Time           `json:"responseDueAt"`
	CreatedAt       time.Time           `json:"createdAt"`
	Resolution      *string             `json:"resolution,omitempty"`
	Entries         []PublicEntryView   `json:"entries"`
}

// PublicEntryView is the public-safe projection of one follow-up entry.
type PublicEntryView struct {
	Action      string            `json:"action"`
	Comment     string            `json:"comment"`
	NewState    *models.CaseState `json:"newState,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	Attachments []PublicFileView  `json:"attachments,omitempty"`
}

// PublicFileView exposes attachment metadata without storage details.
type PublicFileView struct {
	DisplayName string                    `json:"displayName"`
	Category    models.AttachmentCategory `json:"category"`
}

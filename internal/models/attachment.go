package models

import "time"

// AttachmentCategory classifies an uploaded file and determines its policy.
type AttachmentCategory string

const (
	CategoryIdentityDocument    AttachmentCategory = "identity_document"
	CategoryDocumentaryEvidence AttachmentCategory = "documentary_evidence"
	CategoryDigitalSignature    AttachmentCategory = "digital_signature"
	CategoryGeneratedRecord     AttachmentCategory = "generated_record"
	CategoryFollowupAttachment  AttachmentCategory = "followup_attachment"
)

// AttachmentTarget states what an attachment category may be linked to.
type AttachmentTarget string

const (
	AttachToCase  AttachmentTarget = "case"
	AttachToEntry AttachmentTarget = "entry"
)

const mb = int64(1024 * 1024)

// Common media types accepted across categories.
const (
	MediaPDF  = "application/pdf"
	MediaJPEG = "image/jpeg"
	MediaPNG  = "image/png"
	MediaDOC  = "application/msword"
	MediaDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaXLS  = "application/vnd.ms-excel"
	MediaXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// CategoryPolicy is the validation contract for one attachment category.
// MaxSizeBytes of zero means no per-file limit (system-produced files).
type CategoryPolicy struct {
	Target           AttachmentTarget
	MaxSizeBytes     int64
	MaxTotalPerCase  int64
	AllowedMediaType map[string]struct{}
}

// Allows reports whether the media type is accepted by the policy.
func (p CategoryPolicy) Allows(mediaType string) bool {
	_, ok := p.AllowedMediaType[mediaType]
	return ok
}

func mediaSet(types ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// PolicyFor returns the policy for a category. The boolean is false for
// unknown categories so new ones are a visible, reviewed change.
func PolicyFor(category AttachmentCategory) (CategoryPolicy, bool) {
	switch category {
	case CategoryIdentityDocument:
		return CategoryPolicy{
			Target:           AttachToCase,
			MaxSizeBytes:     5 * mb,
			AllowedMediaType: mediaSet(MediaPDF, MediaJPEG, MediaPNG),
		}, true
	case CategoryDocumentaryEvidence:
		return CategoryPolicy{
			Target:           AttachToCase,
			MaxSizeBytes:     5 * mb,
			MaxTotalPerCase:  25 * mb,
			AllowedMediaType: mediaSet(MediaPDF, MediaJPEG, MediaPNG, MediaDOC, MediaDOCX),
		}, true
	case CategoryDigitalSignature:
		return CategoryPolicy{
			Target:           AttachToCase,
			MaxSizeBytes:     5 * mb,
			AllowedMediaType: mediaSet(MediaJPEG, MediaPNG),
		}, true
	case CategoryGeneratedRecord:
		return CategoryPolicy{
			Target:           AttachToCase,
			AllowedMediaType: mediaSet(MediaPDF),
		}, true
	case CategoryFollowupAttachment:
		return CategoryPolicy{
			Target:           AttachToEntry,
			MaxSizeBytes:     10 * mb,
			AllowedMediaType: mediaSet(MediaPDF, MediaJPEG, MediaPNG, MediaDOC, MediaDOCX, MediaXLS, MediaXLSX),
		}, true
	default:
		return CategoryPolicy{}, false
	}
}

// Attachment is a classified file linked to either a case or one audit entry,
// never both.
type Attachment struct {
	ID          string             `db:"id" json:"id"`
	CaseID      *string            `db:"case_id" json:"case_id,omitempty"`
	EntryID     *string            `db:"entry_id" json:"entry_id,omitempty"`
	Category    AttachmentCategory `db:"category" json:"category"`
	DisplayName string             `db:"display_name" json:"display_name"`
	SizeBytes   int64              `db:"size_bytes" json:"size_bytes"`
	MediaType   string             `db:"media_type" json:"media_type"`
	StorageRef  string             `db:"storage_ref" json:"storage_ref"`
	UploadedAt  time.Time          `db:"uploaded_at" json:"uploaded_at"`
}

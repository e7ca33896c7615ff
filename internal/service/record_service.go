package service

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
	"github.com/uni-ombuds/case-api/pkg/export"
)

type recordRenderer interface {
	Render(doc export.RecordDocument) ([]byte, error)
}

// RecordService produces the printable PDF record of a case. The rendered
// file is stored as a system-produced generated_record attachment on the
// case itself.
type RecordService struct {
	registry *RegistryService
	trail    *AuditService
	evidence *EvidenceService
	pdf      recordRenderer
	logger   *zap.Logger
}

// NewRecordService constructs the service.
func NewRecordService(registry *RegistryService, trail *AuditService, evidence *EvidenceService, pdf recordRenderer, logger *zap.Logger) *RecordService {
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{registry: registry, trail: trail, evidence: evidence, pdf: pdf, logger: logger}
}

// Generate renders and stores the case record, returning a signed download.
func (s *RecordService) Generate(ctx context.Context, caseID string, actor models.Actor) (*dto.AttachmentDownloadResponse, error) {
	c, err := s.registry.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	entries, err := s.trail.List(ctx, caseID, true)
	if err != nil {
		return nil, err
	}

	payload, err := s.pdf.Render(buildRecordDocument(c, entries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render case record")
	}

	file := EvidenceFile{
		DisplayName: fmt.Sprintf("%s-record.pdf", c.TrackingCode),
		MediaType:   models.MediaPDF,
		SizeBytes:   int64(len(payload)),
		Content:     bytes.NewReader(payload),
	}
	att, err := s.evidence.StoreForCase(ctx, c, file, models.CategoryGeneratedRecord)
	if err != nil {
		return nil, err
	}
	s.logger.Info("case record issued",
		zap.String("case_id", c.ID),
		zap.String("tracking_code", c.TrackingCode),
		zap.String("actor_id", actor.ID))

	att2, token, expiresAt, err := s.evidence.SignedDownload(ctx, att.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AttachmentDownloadResponse{
		Attachment:  *att2,
		DownloadURL: fmt.Sprintf("/api/v1/attachments/download/%s", token),
		ExpiresAt:   expiresAt,
	}, nil
}

func buildRecordDocument(c *models.Case, entries []models.AuditEntry) export.RecordDocument {
	doc := export.RecordDocument{
		Title: fmt.Sprintf("Case record %s", c.TrackingCode),
		Summary: []export.RecordField{
			{Label: "Tracking code", Value: c.TrackingCode},
			{Label: "Type", Value: string(c.Type)},
			{Label: "State", Value: string(c.State)},
			{Label: "Priority", Value: string(c.Priority)},
			{Label: "Filed", Value: c.CreatedAt.Format("2006-01-02")},
			{Label: "Response due", Value: c.ResponseDueAt.Format("2006-01-02")},
			{Label: "Complainant", Value: c.ComplainantFirstName + " " + c.ComplainantLastName},
			{Label: "Narrative", Value: c.Narrative},
			{Label: "Affected rights", Value: c.AffectedRights},
		},
		History: export.Dataset{
			Headers: []string{"date", "action", "comment"},
		},
	}
	if c.Resolution != nil {
		doc.Summary = append(doc.Summary, export.RecordField{Label: "Resolution", Value: *c.Resolution})
	}
	for _, entry := range entries {
		doc.History.Rows = append(doc.History.Rows, map[string]string{
			"date":    entry.CreatedAt.Format("2006-01-02 15:04"),
			"action":  entry.Action,
			"comment": entry.Comment,
		})
	}
	return doc
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
	"github.com/uni-ombuds/case-api/pkg/export"
)

// minManualCommentLen is the shortest accepted manual note after trimming.
const minManualCommentLen = 10

type auditTrailRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, filter models.AuditEntryFilter) ([]models.AuditEntry, error)
	AttachFiles(ctx context.Context, entries []models.AuditEntry) error
}

type auditCaseReader interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
}

type entryEvidenceStore interface {
	StoreForEntry(ctx context.Context, c *models.Case, entryID string, file EvidenceFile) (*models.Attachment, error)
}

// AuditService owns the append-only follow-up trail. Entries are immutable
// once appended; manual notes may be marked internal-only via the visibility
// flag.
type AuditService struct {
	repo      auditTrailRepository
	cases     auditCaseReader
	evidence  entryEvidenceStore
	lookups   lookupInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(repo auditTrailRepository, cases auditCaseReader, evidence entryEvidenceStore, lookups lookupInvalidator, validate *validator.Validate, logger *zap.Logger) *AuditService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, cases: cases, evidence: evidence, lookups: lookups, validator: validate, logger: logger}
}

// AppendManual appends a manual follow-up note, classifying and linking any
// attached files. File failures are reported per file and never abort the
// note itself.
func (s *AuditService) AppendManual(ctx context.Context, caseID string, req dto.ManualEntryRequest, files []EvidenceFile, actor models.Actor) (*dto.ManualEntryResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid follow-up payload")
	}
	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) < minManualCommentLen {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment must be at least 10 characters")
	}
	if strings.TrimSpace(req.Action) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action label is required")
	}

	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch case")
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}
	entry := &models.AuditEntry{
		CaseID:  c.ID,
		ActorID: actorID(actor),
		Action:  strings.TrimSpace(req.Action),
		Comment: comment,
		Visible: visible,
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append entry")
	}

	resp := &dto.ManualEntryResponse{Entry: entry}
	for _, file := range files {
		result := dto.AttachmentResult{DisplayName: file.DisplayName}
		att, err := s.evidence.StoreForEntry(ctx, c, entry.ID, file)
		if err != nil {
			result.Error = appErrors.FromError(err).Message
		} else {
			result.Attachment = att
			entry.Attachments = append(entry.Attachments, *att)
		}
		resp.Attachments = append(resp.Attachments, result)
	}

	if visible && s.lookups != nil {
		s.lookups.Invalidate(ctx, c.TrackingCode)
	}
	return resp, nil
}

// List returns a case's trail ordered by timestamp ascending. When
// visibleOnly is set, internal-only notes are filtered out.
func (s *AuditService) List(ctx context.Context, caseID string, visibleOnly bool) ([]models.AuditEntry, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch case")
	}
	entries, err := s.repo.List(ctx, models.AuditEntryFilter{CaseID: caseID, VisibleOnly: visibleOnly})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list entries")
	}
	if err := s.repo.AttachFiles(ctx, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry files")
	}
	return entries, nil
}

// ExportCSV renders the full trail of a case as CSV for offline review.
func (s *AuditService) ExportCSV(ctx context.Context, caseID string) ([]byte, error) {
	entries, err := s.List(ctx, caseID, false)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{
		Headers: []string{"timestamp", "action", "comment", "prev_state", "new_state", "visible", "actor"},
	}
	for _, entry := range entries {
		row := map[string]string{
			"timestamp": entry.CreatedAt.Format("2006-01-02 15:04:05"),
			"action":    entry.Action,
			"comment":   entry.Comment,
			"visible":   boolWord(entry.Visible),
		}
		if entry.PrevState != nil {
			row["prev_state"] = string(*entry.PrevState)
		}
		if entry.NewState != nil {
			row["new_state"] = string(*entry.NewState)
		}
		if entry.ActorID != nil {
			row["actor"] = *entry.ActorID
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	payload, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render trail export")
	}
	return payload, nil
}

func boolWord(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

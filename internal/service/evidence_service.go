package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
	"github.com/uni-ombuds/case-api/pkg/storage"
)

// EvidenceFile describes an uploaded file before classification.
type EvidenceFile struct {
	DisplayName string
	MediaType   string
	SizeBytes   int64
	Content     io.Reader
}

type attachmentRepository interface {
	Create(ctx context.Context, att *models.Attachment) error
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	ListByCase(ctx context.Context, caseID string) ([]models.Attachment, error)
	TotalSizeByCategory(ctx context.Context, caseID string, category models.AttachmentCategory) (int64, error)
	Delete(ctx context.Context, id string) error
}

type attachmentStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

// EvidenceService validates uploaded files against the closed category policy
// set and persists the accepted ones. Classification always happens before
// any case or entry mutation; a rejected file creates nothing.
type EvidenceService struct {
	repo    attachmentRepository
	storage attachmentStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	metrics *MetricsService
}

// NewEvidenceService constructs the service.
func NewEvidenceService(repo attachmentRepository, store attachmentStorage, signer *storage.SignedURLSigner, logger *zap.Logger, metrics *MetricsService) *EvidenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvidenceService{repo: repo, storage: store, signer: signer, logger: logger, metrics: metrics}
}

// Classify validates a file against its category policy and returns the
// attachment descriptor ready for linking. It performs no writes.
func (s *EvidenceService) Classify(ctx context.Context, caseID string, file EvidenceFile, category models.AttachmentCategory) (*models.Attachment, error) {
	policy, ok := models.PolicyFor(category)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrFileRejected, fmt.Sprintf("unknown attachment category %q", category))
	}
	if file.DisplayName == "" {
		return nil, appErrors.Clone(appErrors.ErrFileRejected, "file name is required")
	}
	if !policy.Allows(file.MediaType) {
		if s.metrics != nil {
			s.metrics.ObserveFileRejected(category)
		}
		return nil, appErrors.Clone(appErrors.ErrFileRejected,
			fmt.Sprintf("media type %s is not accepted for %s", file.MediaType, category))
	}
	if policy.MaxSizeBytes > 0 && file.SizeBytes > policy.MaxSizeBytes {
		if s.metrics != nil {
			s.metrics.ObserveFileRejected(category)
		}
		return nil, appErrors.Clone(appErrors.ErrFileRejected,
			fmt.Sprintf("file exceeds the %d MB limit for %s", policy.MaxSizeBytes/(1024*1024), category))
	}
	if policy.MaxTotalPerCase > 0 && caseID != "" {
		total, err := s.repo.TotalSizeByCategory(ctx, caseID, category)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check stored sizes")
		}
		if total+file.SizeBytes > policy.MaxTotalPerCase {
			if s.metrics != nil {
				s.metrics.ObserveFileRejected(category)
			}
			return nil, appErrors.Clone(appErrors.ErrFileRejected,
				fmt.Sprintf("case would exceed the cumulative %d MB limit for %s", policy.MaxTotalPerCase/(1024*1024), category))
		}
	}

	return &models.Attachment{
		ID:          uuid.NewString(),
		Category:    category,
		DisplayName: file.DisplayName,
		SizeBytes:   file.SizeBytes,
		MediaType:   file.MediaType,
	}, nil
}

// StoreForCase classifies and persists a case-level attachment. The category
// must target cases.
func (s *EvidenceService) StoreForCase(ctx context.Context, c *models.Case, file EvidenceFile, category models.AttachmentCategory) (*models.Attachment, error) {
	policy, ok := models.PolicyFor(category)
	if !ok || policy.Target != models.AttachToCase {
		return nil, appErrors.Clone(appErrors.ErrFileRejected, fmt.Sprintf("category %q does not attach to cases", category))
	}
	att, err := s.Classify(ctx, c.ID, file, category)
	if err != nil {
		return nil, err
	}
	att.CaseID = &c.ID
	return s.persist(ctx, filepath.Join("cases", c.TrackingCode), att, file)
}

// StoreForEntry classifies and persists a follow-up attachment linked to one
// audit entry.
func (s *EvidenceService) StoreForEntry(ctx context.Context, c *models.Case, entryID string, file EvidenceFile) (*models.Attachment, error) {
	att, err := s.Classify(ctx, c.ID, file, models.CategoryFollowupAttachment)
	if err != nil {
		return nil, err
	}
	att.EntryID = &entryID
	return s.persist(ctx, filepath.Join("cases", c.TrackingCode, "entries"), att, file)
}

// SignedDownload returns attachment metadata with a time-limited URL token.
func (s *EvidenceService) SignedDownload(ctx context.Context, attachmentID string) (*models.Attachment, string, time.Time, error) {
	att, err := s.repo.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	token, expiresAt, err := s.signer.Generate(att.ID, att.StorageRef)
	if err != nil {
		return nil, "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return att, token, expiresAt, nil
}

// ListForCase returns the attachments linked directly to a case.
func (s *EvidenceService) ListForCase(ctx context.Context, caseID string) ([]models.Attachment, error) {
	attachments, err := s.repo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attachments")
	}
	return attachments, nil
}

func (s *EvidenceService) persist(ctx context.Context, dir string, att *models.Attachment, file EvidenceFile) (*models.Attachment, error) {
	ref := filepath.Join(dir, fmt.Sprintf("%s-%s", att.ID, file.DisplayName))
	if _, err := s.storage.SaveStream(ref, file.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	att.StorageRef = ref
	att.UploadedAt = time.Now().UTC()
	if err := s.repo.Create(ctx, att); err != nil {
		// Do not leave an orphaned file behind a failed row insert.
		if delErr := s.storage.Delete(ref); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("ref", ref), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attachment")
	}
	return att, nil
}

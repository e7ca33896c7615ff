package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/models"
	"github.com/uni-ombuds/case-api/internal/repository"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
)

// responseDueBusinessDays is the statutory answer window granted to the
// office from the moment a case is registered.
const responseDueBusinessDays = 20

// maxCodeAttempts bounds tracking-code retries on sequence conflicts.
const maxCodeAttempts = 3

type registryCaseRepository interface {
	CreateWithEntry(ctx context.Context, c *models.Case, entry *models.AuditEntry) error
	GetByID(ctx context.Context, id string) (*models.Case, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error)
	Delete(ctx context.Context, id string) error
}

type trackingCodeMinter interface {
	Next(ctx context.Context, caseType models.CaseType, year int) (string, error)
}

// CaseNotifier receives fire-and-forget events after successful registration.
// Failures are logged, never surfaced to the caller.
type CaseNotifier interface {
	CaseRegistered(c *models.Case)
}

// RegistryService owns case records: it creates them from intake payloads and
// is the only component allowed to hard-delete one.
type RegistryService struct {
	repo      registryCaseRepository
	codes     trackingCodeMinter
	notifier  CaseNotifier
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// NewRegistryService constructs the service.
func NewRegistryService(repo registryCaseRepository, codes trackingCodeMinter, notifier CaseNotifier, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *RegistryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{
		repo:      repo,
		codes:     codes,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a case from a validated intake payload. The case starts in
// pending state with medium priority, carries a freshly minted tracking code
// and its creation audit entry from the first moment it exists.
func (s *RegistryService) Create(ctx context.Context, req dto.CreateCaseRequest, actor models.Actor) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intake payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown case type")
	}

	now := s.now()
	c := &models.Case{
		Type:           req.Type,
		State:          models.CaseStatePending,
		Priority:       models.PriorityMedium,
		Narrative:      req.Narrative,
		AffectedRights: req.AffectedRights,

		ComplainantRole:           req.Complainant.Role,
		ComplainantDocumentType:   req.Complainant.DocumentType,
		ComplainantDocumentNumber: req.Complainant.DocumentNumber,
		ComplainantFirstName:      req.Complainant.FirstName,
		ComplainantLastName:       req.Complainant.LastName,
		ComplainantEmail:          req.Complainant.Email,
		ComplainantPhone:          req.Complainant.Phone,
		ComplainantAddress:        req.Complainant.Address,
		NotifyByEmail:             req.NotifyByEmail,

		ResponseDueAt: AddBusinessDays(now, responseDueBusinessDays),
		CreatedAt:     now,
	}
	if !req.Respondent.Empty() {
		c.RespondentFirstName = optional(req.Respondent.FirstName)
		c.RespondentLastName = optional(req.Respondent.LastName)
		c.RespondentPosition = optional(req.Respondent.Position)
		c.RespondentUnit = optional(req.Respondent.Unit)
	}

	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.Next(ctx, req.Type, now.Year())
		if err != nil {
			if appErrors.Is(err, appErrors.ErrCodeGenConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		c.TrackingCode = code

		newState := models.CaseStatePending
		entry := &models.AuditEntry{
			ActorID:   actorID(actor),
			Action:    models.AuditActionCaseCreated,
			Comment:   "case registered",
			NewState:  &newState,
			Visible:   true,
			CreatedAt: now,
		}
		if err := s.repo.CreateWithEntry(ctx, c, entry); err != nil {
			// A duplicate tracking code means another creator won the same
			// sequence slot; mint again.
			if repository.Retryable(err) {
				lastErr = appErrors.Wrap(err, appErrors.ErrCodeGenConflict.Code, appErrors.ErrCodeGenConflict.Status, appErrors.ErrCodeGenConflict.Message)
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
		}

		if s.metrics != nil {
			s.metrics.ObserveCaseCreated(c.Type)
		}
		if s.notifier != nil {
			s.notifier.CaseRegistered(c)
		}
		return c, nil
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrCodeGenConflict.Code, appErrors.ErrCodeGenConflict.Status, "tracking code generation failed after retries")
}

// Get fetches a case by id.
func (s *RegistryService) Get(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch case")
	}
	return c, nil
}

// List returns cases with pagination.
func (s *RegistryService) List(ctx context.Context, q dto.CaseQuery) ([]models.Case, *models.Pagination, error) {
	filter := models.CaseFilter{
		AssignedTo: q.AssignedTo,
		Search:     q.Search,
		Page:       q.Page,
		PageSize:   q.PageSize,
		SortBy:     q.SortBy,
		SortOrder:  q.SortOrder,
	}
	if q.Type != "" {
		t := models.CaseType(q.Type)
		filter.Type = &t
	}
	if q.State != "" {
		st := models.CaseState(q.State)
		filter.State = &st
	}
	if q.Priority != "" {
		p := models.CasePriority(q.Priority)
		filter.Priority = &p
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	cases, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return cases, pagination, nil
}

// Delete hard-deletes a case. Cases are archived, not deleted, in the normal
// lifecycle; this is the supervisor-only escape hatch.
func (s *RegistryService) Delete(ctx context.Context, id string, actor models.Actor) error {
	if actor.Role != models.RoleSupervisor {
		return appErrors.Clone(appErrors.ErrForbidden, "only supervisors may delete cases")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete case")
	}
	s.logger.Warn("case hard-deleted", zap.String("case_id", id), zap.String("actor_id", actor.ID))
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func actorID(actor models.Actor) *string {
	if actor.System() {
		return nil
	}
	id := actor.ID
	return &id
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
)

type assignmentCaseRepository interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	UpdateAssigneeWithEntry(ctx context.Context, id string, expectedVersion int, handlerID string, entry *models.AuditEntry) error
}

type handlerDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AssignmentService transfers case responsibility between handlers, checking
// eligibility against the staff directory.
type AssignmentService struct {
	repo      assignmentCaseRepository
	directory handlerDirectory
	lookups   lookupInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(repo assignmentCaseRepository, directory handlerDirectory, lookups lookupInvalidator, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, directory: directory, lookups: lookups, validator: validate, logger: logger}
}

// Assign sets the responsible handler. The target must exist in the
// directory, be active and hold an administrative or supervisory role.
func (s *AssignmentService) Assign(ctx context.Context, caseID string, req dto.AssignRequest, actor models.Actor) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	c, err := s.repo.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch case")
	}

	if c.AssignedTo != nil && *c.AssignedTo == req.HandlerID {
		return nil, appErrors.Clone(appErrors.ErrNoOpRejected, "case is already assigned to that handler")
	}

	handler, err := s.directory.FindByID(ctx, req.HandlerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrIneligibleHandler, "handler does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check handler")
	}
	if !handler.EligibleHandler() {
		return nil, appErrors.Clone(appErrors.ErrIneligibleHandler,
			fmt.Sprintf("user %s is not an active administrative or supervisory handler", handler.ID))
	}

	comment := req.Comment
	if comment == "" {
		comment = fmt.Sprintf("case reassigned to %s", handler.FullName)
	}
	entry := &models.AuditEntry{
		CaseID:  c.ID,
		ActorID: actorID(actor),
		Action:  models.AuditActionReassigned,
		Comment: comment,
		Visible: true,
	}

	if err := s.repo.UpdateAssigneeWithEntry(ctx, c.ID, c.Version, req.HandlerID, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVersionConflict, "case was modified concurrently, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign case")
	}

	c.AssignedTo = &req.HandlerID
	c.Version++
	if s.lookups != nil {
		s.lookups.Invalidate(ctx, c.TrackingCode)
	}
	return c, nil
}

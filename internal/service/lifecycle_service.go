package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
)

// transitionGraph fixes the legal state edges. Terminal states have no
// outbound edges; a missing pair is an invalid transition.
var transitionGraph = map[models.CaseState][]models.CaseState{
	models.CaseStatePending:   {models.CaseStateInReview, models.CaseStateInProcess, models.CaseStateRejected},
	models.CaseStateInReview:  {models.CaseStateInProcess, models.CaseStateRejected},
	models.CaseStateInProcess: {models.CaseStateResolved, models.CaseStateArchived, models.CaseStateRejected},
}

// TransitionAllowed reports whether the (from, to) edge exists in the graph.
func TransitionAllowed(from, to models.CaseState) bool {
	for _, next := range transitionGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}

type lifecycleCaseRepository interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	UpdateStateWithEntry(ctx context.Context, id string, expectedVersion int, newState models.CaseState, resolution *string, entry *models.AuditEntry) error
	UpdatePriorityWithEntry(ctx context.Context, id string, expectedVersion int, priority models.CasePriority, entry *models.AuditEntry) error
}

type lookupInvalidator interface {
	Invalidate(ctx context.Context, trackingCode string)
}

// LifecycleService validates and applies state and priority changes. Every
// successful change appends exactly one audit entry, transactionally with the
// case update.
type LifecycleService struct {
	repo    lifecycleCaseRepository
	lookups lookupInvalidator
	logger  *zap.Logger
	metrics *MetricsService
}

// NewLifecycleService constructs the service.
func NewLifecycleService(repo lifecycleCaseRepository, lookups lookupInvalidator, logger *zap.Logger, metrics *MetricsService) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{repo: repo, lookups: lookups, logger: logger, metrics: metrics}
}

// Transition moves a case along the lifecycle graph. Illegal edges, including
// no-op transitions, are rejected with no side effects. Supervisors may set
// override to bypass the graph; the bypass is recorded in the entry comment.
func (s *LifecycleService) Transition(ctx context.Context, caseID string, req dto.TransitionRequest, actor models.Actor) (*models.Case, error) {
	if !req.TargetState.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown state %q", req.TargetState))
	}

	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	if req.TargetState == c.State {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "case is already in the requested state")
	}
	if !TransitionAllowed(c.State, req.TargetState) {
		if !req.Override {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("cannot move case from %s to %s", c.State, req.TargetState))
		}
		if actor.Role != models.RoleSupervisor {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "administrative override requires a supervisor")
		}
	}

	comment := req.Comment
	if comment == "" {
		comment = fmt.Sprintf("state changed from %s to %s", c.State, req.TargetState)
	}
	if req.Override && !TransitionAllowed(c.State, req.TargetState) {
		comment = "administrative override: " + comment
	}

	prev := c.State
	target := req.TargetState
	entry := &models.AuditEntry{
		CaseID:    c.ID,
		ActorID:   actorID(actor),
		Action:    models.AuditActionStateChange,
		Comment:   comment,
		PrevState: &prev,
		NewState:  &target,
		Visible:   true,
	}

	var resolution *string
	if req.TargetState == models.CaseStateResolved && req.Resolution != "" {
		resolution = &req.Resolution
	}

	if err := s.repo.UpdateStateWithEntry(ctx, c.ID, c.Version, req.TargetState, resolution, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVersionConflict, "case was modified concurrently, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply state change")
	}

	c.State = req.TargetState
	c.Version++
	if resolution != nil {
		c.Resolution = resolution
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(prev, req.TargetState)
	}
	s.invalidate(ctx, c.TrackingCode)
	return c, nil
}

// SetPriority changes the handling priority. Any priority may move to any
// other; only the no-op is rejected.
func (s *LifecycleService) SetPriority(ctx context.Context, caseID string, req dto.PriorityRequest, actor models.Actor) (*models.Case, error) {
	if !req.Priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", req.Priority))
	}

	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Priority == req.Priority {
		return nil, appErrors.Clone(appErrors.ErrNoOpRejected, "case already has that priority")
	}

	comment := req.Comment
	if comment == "" {
		comment = fmt.Sprintf("priority changed from %s to %s", c.Priority, req.Priority)
	}
	entry := &models.AuditEntry{
		CaseID:  c.ID,
		ActorID: actorID(actor),
		Action:  models.AuditActionPriorityChange,
		Comment: comment,
		Visible: true,
	}

	if err := s.repo.UpdatePriorityWithEntry(ctx, c.ID, c.Version, req.Priority, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVersionConflict, "case was modified concurrently, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change priority")
	}

	c.Priority = req.Priority
	c.Version++
	s.invalidate(ctx, c.TrackingCode)
	return c, nil
}

func (s *LifecycleService) getCase(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch case")
	}
	return c, nil
}

func (s *LifecycleService) invalidate(ctx context.Context, trackingCode string) {
	if s.lookups != nil {
		s.lookups.Invalidate(ctx, trackingCode)
	}
}

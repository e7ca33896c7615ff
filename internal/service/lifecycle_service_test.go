package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
)

type mockLifecycleRepo struct {
	current *models.Case
	entries []*models.AuditEntry

	stateErr    error
	priorityErr error
}

func (m *mockLifecycleRepo) GetByID(ctx context.Context, id string) (*models.Case, error) {
	if m.current == nil || m.current.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *m.current
	return &cp, nil
}

func (m *mockLifecycleRepo) UpdateStateWithEntry(ctx context.Context, id string, expectedVersion int, newState models.CaseState, resolution *string, entry *models.AuditEntry) error {
	if m.stateErr != nil {
		return m.stateErr
	}
	if m.current.Version != expectedVersion {
		return sql.ErrNoRows
	}
	m.current.State = newState
	m.current.Version++
	if resolution != nil {
		m.current.Resolution = resolution
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLifecycleRepo) UpdatePriorityWithEntry(ctx context.Context, id string, expectedVersion int, priority models.CasePriority, entry *models.AuditEntry) error {
	if m.priorityErr != nil {
		return m.priorityErr
	}
	if m.current.Version != expectedVersion {
		return sql.ErrNoRows
	}
	m.current.Priority = priority
	m.current.Version++
	m.entries = append(m.entries, entry)
	return nil
}

type recordingInvalidator struct {
	codes []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, trackingCode string) {
	r.codes = append(r.codes, trackingCode)
}

func pendingCase() *models.Case {
	return &models.Case{
		ID:           "case-1",
		TrackingCode: "REC-2025-0001",
		Type:         models.CaseTypeComplaint,
		State:        models.CaseStatePending,
		Priority:     models.PriorityMedium,
		Version:      1,
	}
}

func TestTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to models.CaseState
		want     bool
	}{
		{models.CaseStatePending, models.CaseStateInReview, true},
		{models.CaseStatePending, models.CaseStateInProcess, true},
		{models.CaseStatePending, models.CaseStateRejected, true},
		{models.CaseStatePending, models.CaseStateResolved, false},
		{models.CaseStatePending, models.CaseStateArchived, false},
		{models.CaseStateInReview, models.CaseStateInProcess, true},
		{models.CaseStateInReview, models.CaseStateRejected, true},
		{models.CaseStateInReview, models.CaseStatePending, false},
		{models.CaseStateInProcess, models.CaseStateResolved, true},
		{models.CaseStateInProcess, models.CaseStateArchived, true},
		{models.CaseStateInProcess, models.CaseStateRejected, true},
		{models.CaseStateInProcess, models.CaseStateInReview, false},
		{models.CaseStateResolved, models.CaseStateArchived, false},
		{models.CaseStateArchived, models.CaseStateInProcess, false},
		{models.CaseStateRejected, models.CaseStatePending, false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, TransitionAllowed(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTransition(t *testing.T) {
	repo := &mockLifecycleRepo{current: pendingCase()}
	lookups := &recordingInvalidator{}
	svc := NewLifecycleService(repo, lookups, nil, nil)

	updated, err := svc.Transition(context.Background(), "case-1", dto.TransitionRequest{TargetState: models.CaseStateInReview}, models.Actor{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.CaseStateInReview, updated.State)
	assert.Equal(t, 2, updated.Version)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, models.AuditActionStateChange, entry.Action)
	assert.Equal(t, models.CaseStatePending, *entry.PrevState)
	assert.Equal(t, models.CaseStateInReview, *entry.NewState)
	assert.Equal(t, []string{"REC-2025-0001"}, lookups.codes)
}

func TestTransitionSameStateRejected(t *testing.T) {
	repo := &mockLifecycleRepo{current: pendingCase()}
	svc := NewLifecycleService(repo, nil, nil, nil)

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionRequest{TargetState: models.CaseStatePending}, models.Actor{Role: models.RoleSupervisor})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	assert.Empty(t, repo.entries)
}

func TestTransitionIllegalEdgeRejected(t *testing.T) {
	repo := &mockLifecycleRepo{current: pendingCase()}
	svc := NewLifecycleService(repo, nil, nil, nil)

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionRequest{TargetState: models.CaseStateResolved}, models.Actor{Role: models.RoleAdmin})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	assert.Equal(t, models.CaseStatePending, repo.current.State)
}

func TestTransitionOverride(t *testing.T) {
	archived := pendingCase()
	archived.State = models.CaseStateArchived
	repo := &mockLifecycleRepo{current: archived}
	svc := NewLifecycleService(repo, nil, nil, nil)

	// Only supervisors may bypass the graph.
	_, err := svc.Transition(context.Background(), "case-1",
		dto.TransitionRequest{TargetState: models.CaseStateInProcess, Override: true},
		models.Actor{ID: "u2", Role: models.RoleAdmin})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	updated, err := svc.Transition(context.Background(), "case-1",
		dto.TransitionRequest{TargetState: models.CaseStateInProcess, Comment: "reopened after appeal", Override: true},
		models.Actor{ID: "u3", Role: models.RoleSupervisor})
	require.NoError(t, err)
	assert.Equal(t, models.CaseStateInProcess, updated.State)
	require.Len(t, repo.entries, 1)
	assert.True(t, strings.HasPrefix(repo.entries[0].Comment, "administrative override: "))
}

func TestTransitionVersionConflict(t *testing.T) {
	repo := &mockLifecycleRepo{current: pendingCase(), stateErr: sql.ErrNoRows}
	svc := NewLifecycleService(repo, nil, nil, nil)

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionRequest{TargetState: models.CaseStateInReview}, models.Actor{Role: models.RoleAdmin})
	assert.True(t, appErrors.Is(err, appErrors.ErrVersionConflict))
}

func TestTransitionResolutionOnlyOnResolved(t *testing.T) {
	inProcess := pendingCase()
	inProcess.State = models.CaseStateInProcess
	repo := &mockLifecycleRepo{current: inProcess}
	svc := NewLifecycleService(repo, nil, nil, nil)

	updated, err := svc.Transition(context.Background(), "case-1",
		dto.TransitionRequest{TargetState: models.CaseStateResolved, Resolution: "parties reached agreement"},
		models.Actor{Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, updated.Resolution)
	assert.Equal(t, "parties reached agreement", *updated.Resolution)
}

func TestTransitionUnknownState(t *testing.T) {
	svc := NewLifecycleService(&mockLifecycleRepo{current: pendingCase()}, nil, nil, nil)

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionRequest{TargetState: "limbo"}, models.Actor{Role: models.RoleSupervisor})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSetPriority(t *testing.T) {
	repo := &mockLifecycleRepo{current: pendingCase()}
	lookups := &recordingInvalidator{}
	svc := NewLifecycleService(repo, lookups, nil, nil)

	updated, err := svc.SetPriority(context.Background(), "case-1", dto.PriorityRequest{Priority: models.PriorityUrgent}, models.Actor{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, updated.Priority)
	assert.Equal(t, 2, updated.Version)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, models.AuditActionPriorityChange, repo.entries[0].Action)
}

func TestSetPriorityNoOpRejected(t *testing.T) {
	repo := &mockLifecycleRepo{current: pendingCase()}
	svc := NewLifecycleService(repo, nil, nil, nil)

	_, err := svc.SetPriority(context.Background(), "case-1", dto.PriorityRequest{Priority: models.PriorityMedium}, models.Actor{Role: models.RoleAdmin})
	assert.True(t, appErrors.Is(err, appErrors.ErrNoOpRejected))
	assert.Empty(t, repo.entries)
}

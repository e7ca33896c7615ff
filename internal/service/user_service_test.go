package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
)

type mockUserRepo struct {
	users   []models.User
	filters []models.UserFilter
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.filters = append(m.filters, filter)
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func directoryUsers() []models.User {
	return []models.User{
		{ID: "super-1", FullName: "The Ombudsperson", Role: models.RoleSupervisor, Active: true},
		{ID: "admin-1", FullName: "Case Lead", Role: models.RoleAdmin, Active: true},
		{ID: "assistant-1", FullName: "Front Desk", Role: models.RoleAssistant, Active: true},
		{ID: "inactive-1", FullName: "Former Lead", Role: models.RoleAdmin, Active: false},
	}
}

func TestUserList(t *testing.T) {
	repo := &mockUserRepo{users: directoryUsers()}
	svc := NewUserService(repo, nil)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 4)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 4, pagination.TotalCount)

	_, pagination, err = svc.List(context.Background(), models.UserFilter{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 3, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize, "oversized page size falls back to the default")
}

func TestUserGet(t *testing.T) {
	svc := NewUserService(&mockUserRepo{users: directoryUsers()}, nil)

	user, err := svc.Get(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "Case Lead", user.FullName)

	_, err = svc.Get(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestEligibleHandlers(t *testing.T) {
	repo := &mockUserRepo{users: directoryUsers()}
	svc := NewUserService(repo, nil)

	handlers, err := svc.EligibleHandlers(context.Background())
	require.NoError(t, err)
	require.Len(t, handlers, 2)
	ids := []string{handlers[0].ID, handlers[1].ID}
	assert.ElementsMatch(t, []string{"super-1", "admin-1"}, ids)

	require.Len(t, repo.filters, 1)
	require.NotNil(t, repo.filters[0].Active)
	assert.True(t, *repo.filters[0].Active, "inactive accounts are excluded at the query")
}

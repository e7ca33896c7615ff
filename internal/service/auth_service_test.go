package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
)

type mockAuthRepo struct {
	user       *models.User
	lastLogins []string
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	cp := *m.user
	return &cp, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *m.user
	return &cp, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{user: &models.User{
		ID:           "u1",
		Email:        "lead@ombuds.example.edu",
		FullName:     "Case Lead",
		Role:         models.RoleAdmin,
		Active:       true,
		PasswordHash: string(hash),
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "case-api-test",
	})
	return svc, repo
}

func TestLogin(t *testing.T) {
	svc, repo := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "lead@ombuds.example.edu",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Equal(t, []string{"u1"}, repo.lastLogins)
}

func TestLoginRejected(t *testing.T) {
	svc, repo := newAuthFixture(t)

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), models.LoginRequest{
			Email:    "lead@ombuds.example.edu",
			Password: "wrong",
		})
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), models.LoginRequest{
			Email:    "nobody@ombuds.example.edu",
			Password: "correct-horse",
		})
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
	})

	t.Run("inactive account", func(t *testing.T) {
		repo.user.Active = false
		defer func() { repo.user.Active = true }()
		_, err := svc.Login(context.Background(), models.LoginRequest{
			Email:    "lead@ombuds.example.edu",
			Password: "correct-horse",
		})
		assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email"})
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	})
}

func TestValidateToken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "lead@ombuds.example.edu",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "case-api-test", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc, repo := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "lead@ombuds.example.edu",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "different-secret"})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not.a.token")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

package controller

import (
	"context"
	"testing"

	"github.com/gartstein/streamline/internal/streamline/ability"
	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/db"
	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// seedManager creates a manager role holding VIEW_COMPANIES and a user with it.
func seedManager(t *testing.T, repo *db.Repository, status models.Status) *models.User {
	t.Helper()
	ctx := context.Background()

	permission := &models.Permission{Name: ability.ViewCompanies}
	require.NoError(t, repo.Permissions().Create(ctx, permission))
	group := &models.PermissionGroup{Name: "Read Only"}
	require.NoError(t, repo.PermissionGroups().Create(ctx, group))
	require.NoError(t, repo.ReplaceGroupPermissions(ctx, group.ID, []uuid.UUID{permission.ID}))
	role := &models.Role{Name: "manager"}
	require.NoError(t, repo.Roles().Create(ctx, role))
	require.NoError(t, repo.ReplaceRoleGroups(ctx, role.ID, []uuid.UUID{group.ID}))

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	user := &models.User{Username: "jane", PasswordHash: hash, RoleID: &role.ID, Status: status}
	require.NoError(t, repo.Users().Create(ctx, user))
	return user
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newTestRepo(t)
	service := NewAuthService(repo, &MockProducer{}, zaptest.NewLogger(t))
	seedManager(t, repo, models.StatusActive)
	require.NoError(t, repo.Users().Create(context.Background(), &models.User{Username: "oauth-only", Status: models.StatusActive}))

	user, err := service.Login(context.Background(), "jane", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "manager", user.RoleName())

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "jane", "nope"},
		{"unknown user", "ghost", "s3cret"},
		{"user without password", "oauth-only", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := service.Login(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, e.ErrInvalidCredentials)
			assert.Nil(t, user)
		})
	}
}

func TestAuthServiceLoginInactive(t *testing.T) {
	repo := newTestRepo(t)
	service := NewAuthService(repo, &MockProducer{}, zaptest.NewLogger(t))
	seedManager(t, repo, models.StatusInactive)

	_, err := service.Login(context.Background(), "jane", "s3cret")
	assert.ErrorIs(t, err, e.ErrInvalidCredentials)
}

func TestAuthServicePrincipal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	service := NewAuthService(repo, &MockProducer{}, zaptest.NewLogger(t))
	user := seedManager(t, repo, models.StatusActive)

	principal, err := service.Principal(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "manager", principal.Role)
	assert.Equal(t, []string{ability.ViewCompanies}, principal.Permissions)
	assert.True(t, principal.Can(ability.Read, ability.Company))
	assert.False(t, principal.Can(ability.Create, ability.Company))

	_, err = service.Principal(ctx, uuid.New())
	assert.ErrorIs(t, err, e.ErrUnauthorized)

	inactive := models.StatusInactive
	require.NoError(t, repo.Users().Update(ctx, user.ID, &models.UserUpdate{Status: &inactive}))
	_, err = service.Principal(ctx, user.ID)
	assert.ErrorIs(t, err, e.ErrUnauthorized)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	service := NewAuthService(repo, &MockProducer{}, zaptest.NewLogger(t))
	user := seedManager(t, repo, models.StatusActive)

	assert.ErrorIs(t, service.ChangePassword(ctx, user.ID, "wrong", "next"), e.ErrInvalidCredentials)
	assert.ErrorIs(t, service.ChangePassword(ctx, user.ID, "s3cret", ""), e.ErrInvalidInput)

	require.NoError(t, service.ChangePassword(ctx, user.ID, "s3cret", "next"))
	_, err := service.Login(ctx, "jane", "next")
	assert.NoError(t, err)
	_, err = service.Login(ctx, "jane", "s3cret")
	assert.ErrorIs(t, err, e.ErrInvalidCredentials)
}

func TestAuthServiceGoogleSignIn(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	producer := &MockProducer{}
	service := NewAuthService(repo, producer, zaptest.NewLogger(t))

	role := &models.Role{Name: DefaultGoogleRole}
	require.NoError(t, repo.Roles().Create(ctx, role))

	profile := &auth.GoogleProfile{Subject: "sub-1", Email: "jane@example.com", Name: "Jane"}
	created, err := service.GoogleSignIn(ctx, profile, "access-1", "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", created.Username)
	assert.Equal(t, DefaultGoogleRole, created.RoleName())
	assert.Equal(t, "access-1", created.AccessToken)
	assert.Equal(t, "refresh-1", created.RefreshToken)
	assert.Len(t, producer.Events(), 1)

	profile.Name = "Jane Doe"
	again, err := service.GoogleSignIn(ctx, profile, "access-2", "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID, "same google subject maps to the same user")
	assert.Equal(t, "Jane Doe", again.Name)
	assert.Equal(t, "access-2", again.AccessToken)
	assert.Equal(t, "refresh-1", again.RefreshToken, "missing refresh token keeps the stored one")

	other, err := service.GoogleSignIn(ctx, &auth.GoogleProfile{Subject: "sub-2", Email: "jane@example.com"}, "a", "r")
	require.NoError(t, err)
	assert.Equal(t, "google-sub-2", other.Username, "taken email falls back to the subject")

	noEmail, err := service.GoogleSignIn(ctx, &auth.GoogleProfile{Subject: "sub-3"}, "a", "r")
	require.NoError(t, err)
	assert.Equal(t, "google-sub-3", noEmail.Username)

	_, err = service.GoogleSignIn(ctx, &auth.GoogleProfile{}, "a", "r")
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

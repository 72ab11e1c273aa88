package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/db"
	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/events"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultGoogleRole is given to users created through Google sign-in.
const DefaultGoogleRole = "user"

// AuthService verifies credentials and loads principals.
type AuthService struct {
	repo     *db.Repository
	producer EventProducer
	logger   *zap.Logger
}

// NewAuthService creates the login and principal service.
func NewAuthService(repo *db.Repository, producer EventProducer, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("auth_service"),
	}
}

// Login checks a username and password. Every mismatch yields
// ErrInvalidCredentials, and unknown users still pay for one bcrypt compare.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, e.ErrNotFound) {
		auth.BurnPassword(password)
		return nil, e.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.PasswordHash == "" {
		auth.BurnPassword(password)
		return nil, e.ErrInvalidCredentials
	}
	if !auth.CheckPassword(user.PasswordHash, password) || user.Status != models.StatusActive {
		return nil, e.ErrInvalidCredentials
	}
	return user, nil
}

// Principal loads an active user with its role and permission names.
func (s *AuthService) Principal(ctx context.Context, userID uuid.UUID) (*auth.Principal, error) {
	user, err := s.repo.Users().Get(ctx, userID)
	if errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", e.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return s.PrincipalFor(ctx, user)
}

// PrincipalFor derives the principal of an already loaded user.
func (s *AuthService) PrincipalFor(ctx context.Context, user *models.User) (*auth.Principal, error) {
	if user.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: user is inactive", e.ErrUnauthorized)
	}

	permissions := []string{}
	if user.RoleID != nil {
		var err error
		if permissions, err = s.repo.RolePermissions(ctx, *user.RoleID); err != nil {
			return nil, fmt.Errorf("failed to load permissions: %w", err)
		}
	}
	return auth.NewPrincipal(user, permissions), nil
}

// ChangePassword replaces the password of userID after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if err := required("newPassword", newPassword); err != nil {
		return err
	}
	user, err := s.repo.Users().Get(ctx, userID)
	if err != nil {
		return wrap(err, "failed to load user")
	}
	if !auth.CheckPassword(user.PasswordHash, oldPassword) {
		return e.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.Users().Update(ctx, userID, &models.UserUpdate{PasswordHash: &hash}); err != nil {
		return wrap(err, "failed to update password")
	}
	s.producer.Produce(events.NewEvent(events.Updated, "User", userID, user.Username, map[string]string{"change": "password"}))
	return nil
}

// GoogleSignIn upserts the user linked to a Google account. Existing users
// get fresh tokens and profile fields; new users get the default role.
// Tokens are stored as received.
func (s *AuthService) GoogleSignIn(ctx context.Context, profile *auth.GoogleProfile, accessToken, refreshToken string) (*models.User, error) {
	if profile == nil || profile.Subject == "" {
		return nil, invalid("google profile without subject")
	}

	existing, err := s.repo.FindUserByGoogleID(ctx, profile.Subject)
	switch {
	case err == nil:
		return s.refreshGoogleUser(ctx, existing, profile, accessToken, refreshToken)
	case errors.Is(err, e.ErrNotFound):
		return s.createGoogleUser(ctx, profile, accessToken, refreshToken)
	default:
		return nil, fmt.Errorf("failed to load google user: %w", err)
	}
}

func (s *AuthService) refreshGoogleUser(ctx context.Context, user *models.User, profile *auth.GoogleProfile, accessToken, refreshToken string) (*models.User, error) {
	if user.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: user is inactive", e.ErrUnauthorized)
	}

	changes := &models.UserUpdate{AccessToken: &accessToken}
	if refreshToken != "" {
		changes.RefreshToken = &refreshToken
	}
	if profile.Email != "" {
		changes.Email = &profile.Email
	}
	if profile.Name != "" {
		changes.Name = &profile.Name
	}
	if err := s.repo.Users().Update(ctx, user.ID, changes); err != nil {
		return nil, wrap(err, "failed to update google user")
	}
	return s.repo.Users().Get(ctx, user.ID)
}

func (s *AuthService) createGoogleUser(ctx context.Context, profile *auth.GoogleProfile, accessToken, refreshToken string) (*models.User, error) {
	username := profile.Email
	if username == "" {
		username = "google-" + profile.Subject
	} else if taken, err := s.repo.UserExistsByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if taken {
		username = "google-" + profile.Subject
	}

	subject := profile.Subject
	user := &models.User{
		Username:     username,
		Email:        profile.Email,
		Name:         profile.Name,
		GoogleID:     &subject,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Status:       models.StatusActive,
	}

	role, err := s.repo.FindRoleByName(ctx, DefaultGoogleRole)
	switch {
	case err == nil:
		user.RoleID = &role.ID
	case errors.Is(err, e.ErrNotFound):
		s.logger.Warn("default role missing, creating google user without role",
			zap.String("role", DefaultGoogleRole))
	default:
		return nil, fmt.Errorf("failed to load default role: %w", err)
	}

	if err := s.repo.Users().Create(ctx, user); err != nil {
		return nil, wrap(err, "failed to create google user")
	}
	created, err := s.repo.Users().Get(ctx, user.ID)
	if err != nil {
		return nil, wrap(err, "failed to get google user")
	}
	s.producer.Produce(events.NewEvent(events.Created, "User", created.ID, created.Username, created))
	return created, nil
}

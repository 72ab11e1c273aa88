package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/streamline/internal/pkg/utils"
	"github.com/gartstein/streamline/internal/streamline/auth"
	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/events"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserInput is the create and update payload for users. Password is stored
// only as a bcrypt hash.
type UserInput struct {
	Username   *string        `json:"username"`
	Email      *string        `json:"email"`
	Name       *string        `json:"name"`
	Password   *string        `json:"password"`
	Status     *models.Status `json:"status"`
	RoleID     *uuid.UUID     `json:"roleId"`
	EmployeeID *uuid.UUID     `json:"employeeId"`
}

// UserNames checks username uniqueness ahead of the insert.
type UserNames interface {
	UserExistsByUsername(ctx context.Context, username string) (bool, error)
}

// UserService manages login accounts.
type UserService struct {
	store    Store[models.User]
	names    UserNames
	producer EventProducer
	logger   *zap.Logger
}

// NewUserService creates the user service.
func NewUserService(store Store[models.User], names UserNames, producer EventProducer, logger *zap.Logger) *UserService {
	return &UserService{
		store:    store,
		names:    names,
		producer: producer,
		logger:   logger.Named("user_service"),
	}
}

func (s *UserService) Create(ctx context.Context, in *UserInput) (*models.User, error) {
	if in.Username == nil || in.Password == nil {
		return nil, invalid("username and password are required")
	}
	username := strings.TrimSpace(*in.Username)
	if err := firstError(
		required("username", username),
		required("password", *in.Password),
		notNilID("roleId", in.RoleID),
		validStatus(in.Status),
	); err != nil {
		return nil, err
	}

	exists, err := s.names.UserExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: user %q", e.ErrDuplicate, username)
	}

	hash, err := auth.HashPassword(*in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(utils.Deref(in.Email)),
		Name:         strings.TrimSpace(utils.Deref(in.Name)),
		PasswordHash: hash,
		Status:       models.StatusActive,
		RoleID:       in.RoleID,
		EmployeeID:   in.EmployeeID,
	}
	if in.Status != nil {
		user.Status = *in.Status
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, wrap(err, "failed to create user")
	}
	created, err := s.store.Get(ctx, user.ID)
	if err != nil {
		return nil, wrap(err, "failed to get user")
	}
	s.produce(ctx, events.Created, created)
	return created, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to get user")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, opts models.ListOptions) ([]models.User, error) {
	users, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, wrap(err, "failed to list users")
	}
	return users, nil
}

// Update changes the given fields; a new password is re-hashed.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, in *UserInput) (*models.User, error) {
	if err := firstError(
		notBlank("username", in.Username),
		notBlank("password", in.Password),
		notNilID("roleId", in.RoleID),
		validStatus(in.Status),
	); err != nil {
		return nil, err
	}

	changes := &models.UserUpdate{
		Email:  in.Email,
		Name:   in.Name,
		Status: in.Status,
		RoleID: in.RoleID,
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		changes.Username = &username
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		changes.PasswordHash = &hash
	}

	if err := s.store.Update(ctx, id, changes); err != nil {
		return nil, wrap(err, "failed to update user")
	}
	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to get user")
	}
	s.produce(ctx, events.Updated, updated)
	return updated, nil
}

// Deactivate flips the user to INACTIVE; the row is kept.
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	inactive := models.StatusInactive
	if err := s.store.Update(ctx, id, &models.UserUpdate{Status: &inactive}); err != nil {
		return wrap(err, "failed to deactivate user")
	}
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return wrap(err, "failed to get user")
	}
	s.produce(ctx, events.Deactivated, user)
	return nil
}

func (s *UserService) produce(ctx context.Context, eventType events.EventType, user *models.User) {
	s.producer.Produce(events.NewEvent(eventType, "User", user.ID, auth.ActorFrom(ctx), user))
}

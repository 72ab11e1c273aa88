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

// AccountInput describes the login account linked to an employee. On create
// username and password are required; on update only set fields change.
type AccountInput struct {
	Username *string       `json:"username"`
	Password *string       `json:"password"`
	RoleID   *uuid.UUID    `json:"roleId"`
	Status   *models.Status `json:"status"`
}

// EmployeeService manages employees together with their user accounts.
type EmployeeService struct {
	repo     *db.Repository
	producer EventProducer
	logger   *zap.Logger
}

// NewEmployeeService creates the employee service.
func NewEmployeeService(repo *db.Repository, producer EventProducer, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("employee_service"),
	}
}

// Create inserts the employee and, when account is given, its user in the
// same transaction.
func (s *EmployeeService) Create(ctx context.Context, employee *models.Employee, account *AccountInput) (*models.Employee, error) {
	employee.ResetIdentity()
	employee.User = nil
	employee.Locations = nil
	if err := firstError(
		required("firstName", employee.FirstName),
		required("lastName", employee.LastName),
		defaultStatus(&employee.Status),
	); err != nil {
		return nil, err
	}

	var user *models.User
	if account != nil {
		var err error
		if user, err = newAccountUser(employee, account); err != nil {
			return nil, err
		}
	}

	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.Employees().Create(ctx, employee); err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		user.EmployeeID = &employee.ID
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, wrap(err, "failed to create employee")
	}

	created, err := s.repo.Employees().Get(ctx, employee.ID)
	if err != nil {
		return nil, wrap(err, "failed to get employee")
	}
	s.produce(ctx, events.Created, created)
	return created, nil
}

func (s *EmployeeService) Get(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	employee, err := s.repo.Employees().Get(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to get employee")
	}
	return employee, nil
}

func (s *EmployeeService) List(ctx context.Context, opts models.ListOptions) ([]models.Employee, error) {
	employees, err := s.repo.Employees().List(ctx, opts)
	if err != nil {
		return nil, wrap(err, "failed to list employees")
	}
	return employees, nil
}

// Update applies employee field changes and account changes in one
// transaction. An employee without an account gets one when account carries
// a username and password.
func (s *EmployeeService) Update(ctx context.Context, id uuid.UUID, changes *models.EmployeeUpdate, account *AccountInput) (*models.Employee, error) {
	if changes == nil {
		changes = &models.EmployeeUpdate{}
	}
	if err := firstError(
		notBlank("firstName", changes.FirstName),
		notBlank("lastName", changes.LastName),
		validStatus(changes.Status),
	); err != nil {
		return nil, err
	}

	var userChanges *models.UserUpdate
	if account != nil {
		var err error
		if userChanges, err = accountChanges(account); err != nil {
			return nil, err
		}
	}

	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.Employees().Update(ctx, id, changes); err != nil {
			return err
		}
		if account == nil {
			return nil
		}

		user, err := tx.FindUserByEmployee(ctx, id)
		if errors.Is(err, e.ErrNotFound) {
			employee, err := tx.Employees().Get(ctx, id)
			if err != nil {
				return err
			}
			newUser, err := newAccountUser(employee, account)
			if err != nil {
				return err
			}
			newUser.EmployeeID = &id
			return tx.Users().Create(ctx, newUser)
		}
		if err != nil {
			return err
		}
		return tx.Users().Update(ctx, user.ID, userChanges)
	})
	if err != nil {
		return nil, wrap(err, "failed to update employee")
	}

	updated, err := s.repo.Employees().Get(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get employee for event",
			zap.Error(err),
			zap.String("employee_id", id.String()),
		)
		return nil, err
	}
	s.produce(ctx, events.Updated, updated)
	return updated, nil
}

// Deactivate flips the employee and its user account to INACTIVE.
func (s *EmployeeService) Deactivate(ctx context.Context, id uuid.UUID) error {
	inactive := models.StatusInactive
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.Employees().Update(ctx, id, &models.EmployeeUpdate{Status: &inactive}); err != nil {
			return err
		}
		user, err := tx.FindUserByEmployee(ctx, id)
		if errors.Is(err, e.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Users().Update(ctx, user.ID, &models.UserUpdate{Status: &inactive})
	})
	if err != nil {
		return wrap(err, "failed to deactivate employee")
	}

	employee, err := s.repo.Employees().Get(ctx, id)
	if err != nil {
		return wrap(err, "failed to get employee")
	}
	s.produce(ctx, events.Deactivated, employee)
	return nil
}

func (s *EmployeeService) Locations(ctx context.Context, id uuid.UUID) ([]models.Location, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	locations, err := s.repo.EmployeeLocations(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to list employee locations")
	}
	return locations, nil
}

func (s *EmployeeService) AssignLocation(ctx context.Context, id, locationID uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.AssignLocation(ctx, id, locationID); err != nil {
		return wrap(err, "failed to assign location")
	}
	s.producer.Produce(events.NewEvent(events.Created, "EmployeeLocation", id, auth.ActorFrom(ctx),
		models.EmployeeLocation{EmployeeID: id, LocationID: locationID}))
	return nil
}

func (s *EmployeeService) UnassignLocation(ctx context.Context, id, locationID uuid.UUID) error {
	if err := s.repo.UnassignLocation(ctx, id, locationID); err != nil {
		return wrap(err, "failed to unassign location")
	}
	s.producer.Produce(events.NewEvent(events.Deleted, "EmployeeLocation", id, auth.ActorFrom(ctx),
		models.EmployeeLocation{EmployeeID: id, LocationID: locationID}))
	return nil
}

func (s *EmployeeService) produce(ctx context.Context, eventType events.EventType, employee *models.Employee) {
	s.producer.Produce(events.NewEvent(eventType, "Employee", employee.ID, auth.ActorFrom(ctx), employee))
}

// newAccountUser builds the user row for a new employee account.
func newAccountUser(employee *models.Employee, account *AccountInput) (*models.User, error) {
	if account.Username == nil || account.Password == nil {
		return nil, invalid("account requires username and password")
	}
	if err := firstError(
		required("account.username", *account.Username),
		required("account.password", *account.Password),
		notNilID("account.roleId", account.RoleID),
		validStatus(account.Status),
	); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(*account.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Username:     strings.TrimSpace(*account.Username),
		Email:        employee.Email,
		Name:         strings.TrimSpace(employee.FirstName + " " + employee.LastName),
		PasswordHash: hash,
		Status:       models.StatusActive,
		RoleID:       account.RoleID,
	}
	if account.Status != nil {
		user.Status = *account.Status
	}
	return user, nil
}

// accountChanges converts account input into a user update, hashing any
// new password.
func accountChanges(account *AccountInput) (*models.UserUpdate, error) {
	if err := firstError(
		notBlank("account.username", account.Username),
		notBlank("account.password", account.Password),
		notNilID("account.roleId", account.RoleID),
		validStatus(account.Status),
	); err != nil {
		return nil, err
	}

	changes := &models.UserUpdate{RoleID: account.RoleID, Status: account.Status}
	if account.Username != nil {
		username := strings.TrimSpace(*account.Username)
		changes.Username = &username
	}
	if account.Password != nil {
		hash, err := auth.HashPassword(*account.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		changes.PasswordHash = &hash
	}
	return changes, nil
}

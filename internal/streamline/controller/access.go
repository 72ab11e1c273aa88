package controller

import (
	"context"

	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/db"
	"github.com/gartstein/streamline/internal/streamline/events"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccessService manages roles, permissions and permission groups.
type AccessService struct {
	repo     *db.Repository
	producer EventProducer
	logger   *zap.Logger
}

// NewAccessService creates the role and permission service.
func NewAccessService(repo *db.Repository, producer EventProducer, logger *zap.Logger) *AccessService {
	return &AccessService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("access_service"),
	}
}

func (s *AccessService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	permissions, err := s.repo.Permissions().List(ctx, models.ListOptions{})
	if err != nil {
		return nil, wrap(err, "failed to list permissions")
	}
	return permissions, nil
}

func (s *AccessService) CreatePermission(ctx context.Context, permission *models.Permission) (*models.Permission, error) {
	permission.ResetIdentity()
	if err := required("name", permission.Name); err != nil {
		return nil, err
	}
	if err := s.repo.Permissions().Create(ctx, permission); err != nil {
		return nil, wrap(err, "failed to create permission")
	}
	s.produce(ctx, events.Created, "Permission", permission.ID, permission)
	return permission, nil
}

// DeletePermission detaches the permission from its groups and deletes it.
func (s *AccessService) DeletePermission(ctx context.Context, id uuid.UUID) error {
	var deleted *models.Permission
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		permission, err := tx.Permissions().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DetachPermission(ctx, id); err != nil {
			return err
		}
		deleted = permission
		return tx.Permissions().Delete(ctx, id)
	})
	if err != nil {
		return wrap(err, "failed to delete permission")
	}
	s.produce(ctx, events.Deleted, "Permission", id, deleted)
	return nil
}

func (s *AccessService) ListGroups(ctx context.Context) ([]models.PermissionGroup, error) {
	groups, err := s.repo.PermissionGroups().List(ctx, models.ListOptions{})
	if err != nil {
		return nil, wrap(err, "failed to list permission groups")
	}
	return groups, nil
}

func (s *AccessService) GetGroup(ctx context.Context, id uuid.UUID) (*models.PermissionGroup, error) {
	group, err := s.repo.PermissionGroups().Get(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to get permission group")
	}
	return group, nil
}

// CreateGroup inserts a group with the given permissions.
func (s *AccessService) CreateGroup(ctx context.Context, group *models.PermissionGroup, permissionIDs []uuid.UUID) (*models.PermissionGroup, error) {
	group.ResetIdentity()
	group.Permissions = nil
	if err := required("name", group.Name); err != nil {
		return nil, err
	}

	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.PermissionGroups().Create(ctx, group); err != nil {
			return err
		}
		return tx.ReplaceGroupPermissions(ctx, group.ID, permissionIDs)
	})
	if err != nil {
		return nil, wrap(err, "failed to create permission group")
	}
	return s.afterGroupWrite(ctx, events.Created, group.ID)
}

// UpdateGroup applies column changes and, when permissionIDs is non-nil,
// replaces the group's permission set.
func (s *AccessService) UpdateGroup(ctx context.Context, id uuid.UUID, changes *models.PermissionGroupUpdate, permissionIDs *[]uuid.UUID) (*models.PermissionGroup, error) {
	if changes == nil {
		changes = &models.PermissionGroupUpdate{}
	}
	if err := notBlank("name", changes.Name); err != nil {
		return nil, err
	}

	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.PermissionGroups().Update(ctx, id, changes); err != nil {
			return err
		}
		if permissionIDs == nil {
			return nil
		}
		return tx.ReplaceGroupPermissions(ctx, id, *permissionIDs)
	})
	if err != nil {
		return nil, wrap(err, "failed to update permission group")
	}
	return s.afterGroupWrite(ctx, events.Updated, id)
}

func (s *AccessService) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	var deleted *models.PermissionGroup
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		group, err := tx.PermissionGroups().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DetachGroup(ctx, id); err != nil {
			return err
		}
		deleted = group
		return tx.PermissionGroups().Delete(ctx, id)
	})
	if err != nil {
		return wrap(err, "failed to delete permission group")
	}
	s.produce(ctx, events.Deleted, "PermissionGroup", id, deleted)
	return nil
}

func (s *AccessService) afterGroupWrite(ctx context.Context, eventType events.EventType, id uuid.UUID) (*models.PermissionGroup, error) {
	group, err := s.repo.PermissionGroups().Get(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to get permission group")
	}
	s.produce(ctx, eventType, "PermissionGroup", id, group)
	return group, nil
}

func (s *AccessService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.Roles().List(ctx, models.ListOptions{})
	if err != nil {
		return nil, wrap(err, "failed to list roles")
	}
	return roles, nil
}

func (s *AccessService) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	role, err := s.repo.Roles().Get(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to get role")
	}
	return role, nil
}

// CreateRole inserts a role attached to the given permission groups.
func (s *AccessService) CreateRole(ctx context.Context, role *models.Role, groupIDs []uuid.UUID) (*models.Role, error) {
	role.ResetIdentity()
	role.Groups = nil
	if err := required("name", role.Name); err != nil {
		return nil, err
	}

	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.Roles().Create(ctx, role); err != nil {
			return err
		}
		return tx.ReplaceRoleGroups(ctx, role.ID, groupIDs)
	})
	if err != nil {
		return nil, wrap(err, "failed to create role")
	}
	return s.afterRoleWrite(ctx, events.Created, role.ID)
}

// UpdateRole applies column changes and, when groupIDs is non-nil, replaces
// the role's groups.
func (s *AccessService) UpdateRole(ctx context.Context, id uuid.UUID, changes *models.RoleUpdate, groupIDs *[]uuid.UUID) (*models.Role, error) {
	if changes == nil {
		changes = &models.RoleUpdate{}
	}
	if err := notBlank("name", changes.Name); err != nil {
		return nil, err
	}

	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.Roles().Update(ctx, id, changes); err != nil {
			return err
		}
		if groupIDs == nil {
			return nil
		}
		return tx.ReplaceRoleGroups(ctx, id, *groupIDs)
	})
	if err != nil {
		return nil, wrap(err, "failed to update role")
	}
	return s.afterRoleWrite(ctx, events.Updated, id)
}

// DeleteRole fails with ErrInvalidInput while users still hold the role.
func (s *AccessService) DeleteRole(ctx context.Context, id uuid.UUID) error {
	var deleted *models.Role
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		role, err := tx.Roles().Get(ctx, id)
		if err != nil {
			return err
		}
		users, err := tx.Users().List(ctx, models.ListOptions{Filters: map[string]any{"role_id": id}, Limit: 1})
		if err != nil {
			return err
		}
		if len(users) > 0 {
			return invalid("role %q is assigned to users", role.Name)
		}
		if err := tx.ReplaceRoleGroups(ctx, id, nil); err != nil {
			return err
		}
		deleted = role
		return tx.Roles().Delete(ctx, id)
	})
	if err != nil {
		return wrap(err, "failed to delete role")
	}
	s.produce(ctx, events.Deleted, "Role", id, deleted)
	return nil
}

// RolePermissions returns the effective permission names of a role.
func (s *AccessService) RolePermissions(ctx context.Context, id uuid.UUID) ([]string, error) {
	if _, err := s.repo.Roles().Get(ctx, id); err != nil {
		return nil, wrap(err, "failed to get role")
	}
	names, err := s.repo.RolePermissions(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to load role permissions")
	}
	return names, nil
}

func (s *AccessService) afterRoleWrite(ctx context.Context, eventType events.EventType, id uuid.UUID) (*models.Role, error) {
	role, err := s.repo.Roles().Get(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to get role")
	}
	s.produce(ctx, eventType, "Role", id, role)
	return role, nil
}

func (s *AccessService) produce(ctx context.Context, eventType events.EventType, resource string, id uuid.UUID, data any) {
	s.producer.Produce(events.NewEvent(eventType, resource, id, auth.ActorFrom(ctx), data))
}

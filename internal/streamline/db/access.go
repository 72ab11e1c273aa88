package db

import (
	"context"
	"fmt"

	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
)

func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Role").
		First(&user, "username = ?", username).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *Repository) FindUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Role").
		First(&user, "google_id = ?", googleID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *Repository) FindUserByEmployee(ctx context.Context, employeeID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "employee_id = ?", employeeID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *Repository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

// RolePermissions returns the sorted, de-duplicated permission names granted
// to a role through its permission groups.
func (r *Repository) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	names := make([]string, 0)
	err := r.db.WithContext(ctx).Model(&models.Permission{}).
		Joins("JOIN permission_on_groups ON permission_on_groups.permission_id = permissions.id").
		Joins("JOIN role_permission_groups ON role_permission_groups.permission_group_id = permission_on_groups.group_id").
		Where("role_permission_groups.role_id = ?", roleID).
		Distinct().
		Order("permissions.name").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ReplaceGroupPermissions makes permissionIDs the exact permission set of a
// group. Unknown ids are rejected. Call inside WithTransaction.
func (r *Repository) ReplaceGroupPermissions(ctx context.Context, groupID uuid.UUID, permissionIDs []uuid.UUID) error {
	if err := r.requireAll(ctx, &models.Permission{}, permissionIDs); err != nil {
		return err
	}

	db := r.db.WithContext(ctx)
	if err := db.Where("group_id = ?", groupID).Delete(&models.PermissionOnGroup{}).Error; err != nil {
		return translate(err)
	}
	if len(permissionIDs) == 0 {
		return nil
	}

	rows := make([]models.PermissionOnGroup, 0, len(permissionIDs))
	for _, id := range dedupe(permissionIDs) {
		rows = append(rows, models.PermissionOnGroup{PermissionID: id, GroupID: groupID})
	}
	return translate(db.Create(&rows).Error)
}

// ReplaceRoleGroups makes groupIDs the exact group set of a role. Call inside
// WithTransaction.
func (r *Repository) ReplaceRoleGroups(ctx context.Context, roleID uuid.UUID, groupIDs []uuid.UUID) error {
	if err := r.requireAll(ctx, &models.PermissionGroup{}, groupIDs); err != nil {
		return err
	}

	db := r.db.WithContext(ctx)
	if err := db.Where("role_id = ?", roleID).Delete(&models.RoleGroup{}).Error; err != nil {
		return translate(err)
	}
	if len(groupIDs) == 0 {
		return nil
	}

	rows := make([]models.RoleGroup, 0, len(groupIDs))
	for _, id := range dedupe(groupIDs) {
		rows = append(rows, models.RoleGroup{RoleID: roleID, PermissionGroupID: id})
	}
	return translate(db.Create(&rows).Error)
}

func (r *Repository) AssignLocation(ctx context.Context, employeeID, locationID uuid.UUID) error {
	if err := r.requireAll(ctx, &models.Location{}, []uuid.UUID{locationID}); err != nil {
		return err
	}
	row := models.EmployeeLocation{EmployeeID: employeeID, LocationID: locationID}
	return translate(r.db.WithContext(ctx).Create(&row).Error)
}

func (r *Repository) UnassignLocation(ctx context.Context, employeeID, locationID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("employee_id = ? AND location_id = ?", employeeID, locationID).
		Delete(&models.EmployeeLocation{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) EmployeeLocations(ctx context.Context, employeeID uuid.UUID) ([]models.Location, error) {
	locations := make([]models.Location, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN employee_locations ON employee_locations.location_id = locations.id").
		Where("employee_locations.employee_id = ?", employeeID).
		Order("locations.name").
		Find(&locations).Error
	if err != nil {
		return nil, translate(err)
	}
	return locations, nil
}

// requireAll fails with ErrInvalidInput unless every id exists in model's table.
func (r *Repository) requireAll(ctx context.Context, model any, ids []uuid.UUID) error {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Where("id IN ?", unique).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(unique) {
		return fmt.Errorf("%w: %d of %d referenced records do not exist", e.ErrInvalidInput, len(unique)-int(count), len(unique))
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DetachPermission removes a permission from every group.
func (r *Repository) DetachPermission(ctx context.Context, permissionID uuid.UUID) error {
	return translate(r.db.WithContext(ctx).
		Where("permission_id = ?", permissionID).
		Delete(&models.PermissionOnGroup{}).Error)
}

// DetachGroup removes a permission group from every role and drops its
// permission links.
func (r *Repository) DetachGroup(ctx context.Context, groupID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("permission_group_id = ?", groupID).Delete(&models.RoleGroup{}).Error; err != nil {
		return translate(err)
	}
	return translate(db.Where("group_id = ?", groupID).Delete(&models.PermissionOnGroup{}).Error)
}

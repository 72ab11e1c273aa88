// Package seed installs the default permissions, permission groups, roles and
// sample users into an empty database.
package seed

import (
	"context"
	"fmt"

	"github.com/gartstein/streamline/internal/streamline/ability"
	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/db"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options carries the plaintext passwords of the sample users.
type Options struct {
	AdminPassword string
	UserPassword  string
}

// Result summarizes what Run inserted.
type Result struct {
	Skipped     bool
	Permissions int
	Groups      int
	Roles       int
	Users       int
}

var permissions = []models.Permission{
	{Name: ability.ViewDashboard, Description: "View the dashboard"},
	{Name: ability.ViewCompanies, Description: "View companies, divisions and locations"},
	{Name: ability.ManageCompanies, Description: "Create, edit and delete companies, divisions, locations and contracts"},
	{Name: ability.ViewContracts, Description: "View contracts"},
	{Name: ability.ViewContacts, Description: "View contacts"},
	{Name: ability.ManageContacts, Description: "Create, edit and delete contacts"},
	{Name: ability.ViewEmployees, Description: "View employees"},
	{Name: ability.ManageEmployees, Description: "Create, edit and deactivate employees"},
	{Name: ability.ViewUsers, Description: "View user accounts"},
	{Name: ability.ManageUsers, Description: "Create, edit and deactivate user accounts"},
	{Name: ability.ManageRoles, Description: "Manage roles, permission groups and permissions"},
	{Name: ability.ViewAuditLog, Description: "View the audit log"},
}

type groupSeed struct {
	name        string
	description string
	permissions []string
}

var groups = []groupSeed{
	{"Dashboard", "Dashboard access", []string{ability.ViewDashboard}},
	{"Company Management", "Companies and their contracts", []string{
		ability.ViewCompanies, ability.ManageCompanies, ability.ViewContracts,
	}},
	{"Directory", "Contacts and employees", []string{
		ability.ViewContacts, ability.ManageContacts, ability.ViewEmployees, ability.ManageEmployees,
	}},
	{"Read Only", "Read access to business data", []string{
		ability.ViewDashboard, ability.ViewCompanies, ability.ViewContracts, ability.ViewContacts, ability.ViewEmployees,
	}},
	{"Administration", "Users, roles and the audit log", []string{
		ability.ViewUsers, ability.ManageUsers, ability.ManageRoles, ability.ViewAuditLog,
	}},
}

type roleSeed struct {
	name        string
	description string
	groups      []string
}

var roles = []roleSeed{
	{ability.AdminRole, "System administrator", []string{"Dashboard", "Company Management", "Directory", "Read Only", "Administration"}},
	{"manager", "Manages companies and the directory", []string{"Dashboard", "Company Management", "Directory"}},
	{"user", "Read-only access", []string{"Read Only"}},
}

// Run seeds repo in one transaction. It does nothing when any role exists.
func Run(ctx context.Context, repo *db.Repository, opts Options, logger *zap.Logger) (*Result, error) {
	if opts.AdminPassword == "" || opts.UserPassword == "" {
		return nil, fmt.Errorf("admin and user passwords are required")
	}

	existing, err := repo.Roles().List(ctx, models.ListOptions{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to check roles: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("Roles already exist, skipping seed")
		return &Result{Skipped: true}, nil
	}

	adminHash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return nil, err
	}
	userHash, err := auth.HashPassword(opts.UserPassword)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	err = repo.WithTransaction(ctx, func(tx *db.Repository) error {
		permissionIDs := make(map[string]uuid.UUID, len(permissions))
		for _, p := range permissions {
			permission := p
			if err := tx.Permissions().Create(ctx, &permission); err != nil {
				return fmt.Errorf("permission %s: %w", p.Name, err)
			}
			permissionIDs[p.Name] = permission.ID
			result.Permissions++
		}

		groupIDs := make(map[string]uuid.UUID, len(groups))
		for _, g := range groups {
			group := &models.PermissionGroup{Name: g.name, Description: g.description}
			if err := tx.PermissionGroups().Create(ctx, group); err != nil {
				return fmt.Errorf("group %s: %w", g.name, err)
			}
			ids := make([]uuid.UUID, 0, len(g.permissions))
			for _, name := range g.permissions {
				ids = append(ids, permissionIDs[name])
			}
			if err := tx.ReplaceGroupPermissions(ctx, group.ID, ids); err != nil {
				return fmt.Errorf("group %s: %w", g.name, err)
			}
			groupIDs[g.name] = group.ID
			result.Groups++
		}

		roleIDs := make(map[string]uuid.UUID, len(roles))
		for _, r := range roles {
			role := &models.Role{Name: r.name, Description: r.description}
			if err := tx.Roles().Create(ctx, role); err != nil {
				return fmt.Errorf("role %s: %w", r.name, err)
			}
			ids := make([]uuid.UUID, 0, len(r.groups))
			for _, name := range r.groups {
				ids = append(ids, groupIDs[name])
			}
			if err := tx.ReplaceRoleGroups(ctx, role.ID, ids); err != nil {
				return fmt.Errorf("role %s: %w", r.name, err)
			}
			roleIDs[r.name] = role.ID
			result.Roles++
		}

		adminRole, userRole := roleIDs[ability.AdminRole], roleIDs["user"]
		users := []*models.User{
			{Username: "admin", Name: "Administrator", PasswordHash: adminHash, RoleID: &adminRole, Status: models.StatusActive},
			{Username: "user", Name: "Sample User", PasswordHash: userHash, RoleID: &userRole, Status: models.StatusActive},
		}
		for _, u := range users {
			if err := tx.Users().Create(ctx, u); err != nil {
				return fmt.Errorf("user %s: %w", u.Username, err)
			}
			result.Users++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed failed: %w", err)
	}

	logger.Info("Seed completed",
		zap.Int("permissions", result.Permissions),
		zap.Int("groups", result.Groups),
		zap.Int("roles", result.Roles),
		zap.Int("users", result.Users),
	)
	return result, nil
}

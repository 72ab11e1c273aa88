package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is attached to users and grants the permissions of its groups.
type Role struct {
	Base
	Name        string            `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string            `gorm:"size:500" json:"description"`
	Groups      []PermissionGroup `gorm:"many2many:role_permission_groups" json:"groups,omitempty"`
}

// RoleUpdate holds the mutable columns of a Role.
type RoleUpdate struct {
	Stamp
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Permission is a named capability, e.g. MANAGE_COMPANIES.
type Permission struct {
	Base
	Name        string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string `gorm:"size:500" json:"description"`
}

// PermissionGroup is a named bundle of permissions attached to roles.
type PermissionGroup struct {
	Base
	Name        string       `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string       `gorm:"size:500" json:"description"`
	Permissions []Permission `gorm:"many2many:permission_on_groups;joinForeignKey:GroupID;joinReferences:PermissionID" json:"permissions,omitempty"`
}

// PermissionGroupUpdate holds the mutable columns of a PermissionGroup.
type PermissionGroupUpdate struct {
	Stamp
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// PermissionOnGroup is the join row between permissions and groups.
type PermissionOnGroup struct {
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"permissionId"`
	GroupID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"groupId"`
	AssignedAt   time.Time `gorm:"autoCreateTime" json:"assignedAt"`
}

// RoleGroup is the join row between roles and permission groups.
type RoleGroup struct {
	RoleID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"roleId"`
	PermissionGroupID uuid.UUID `gorm:"type:uuid;primaryKey" json:"permissionGroupId"`
}

// TableName pins the join table name used by Role.Groups.
func (RoleGroup) TableName() string {
	return "role_permission_groups"
}

// AuditLog records one mutation observed on the event stream.
type AuditLog struct {
	Base
	Action     string    `gorm:"size:50;not null;index" json:"action"`
	Resource   string    `gorm:"size:50;not null;index" json:"resource"`
	ResourceID uuid.UUID `gorm:"type:uuid;index" json:"resourceId"`
	Actor      string    `gorm:"size:255" json:"actor"`
	Payload    string    `gorm:"type:text" json:"payload"`
	OccurredAt time.Time `gorm:"index" json:"occurredAt"`
}

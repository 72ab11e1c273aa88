package models

import (
	"time"

	"github.com/google/uuid"
)

// Employee is a member of staff. An employee may own one login account.
type Employee struct {
	Base
	CompanyID  *uuid.UUID `gorm:"type:uuid;index" json:"companyId"`
	DivisionID *uuid.UUID `gorm:"type:uuid;index" json:"divisionId"`
	FirstName  string     `gorm:"size:100;not null" json:"firstName"`
	LastName   string     `gorm:"size:100;not null" json:"lastName"`
	Email      string     `gorm:"size:255" json:"email"`
	Phone      string     `gorm:"size:50" json:"phone"`
	Title      string     `gorm:"size:100" json:"title"`
	HiredAt    *time.Time `json:"hiredAt"`
	Status     Status     `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
	User       *User      `gorm:"foreignKey:EmployeeID" json:"user,omitempty"`
	Locations  []Location `gorm:"many2many:employee_locations" json:"locations,omitempty"`
}

// EmployeeUpdate holds the mutable fields of an Employee.
type EmployeeUpdate struct {
	Stamp
	CompanyID  *uuid.UUID `json:"companyId"`
	DivisionID *uuid.UUID `json:"divisionId"`
	FirstName  *string    `json:"firstName"`
	LastName   *string    `json:"lastName"`
	Email      *string    `json:"email"`
	Phone      *string    `json:"phone"`
	Title      *string    `json:"title"`
	HiredAt    *time.Time `json:"hiredAt"`
	Status     *Status    `json:"status"`
}

// EmployeeLocation assigns an employee to a location.
type EmployeeLocation struct {
	EmployeeID uuid.UUID `gorm:"type:uuid;primaryKey" json:"employeeId"`
	LocationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"locationId"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assignedAt"`
}

// User is a login account. Credentials and OAuth tokens are never serialized.
type User struct {
	Base
	Username     string     `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:255" json:"email"`
	Name         string     `gorm:"size:255" json:"name"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	GoogleID     *string    `gorm:"size:255;uniqueIndex" json:"googleId,omitempty"`
	AccessToken  string     `gorm:"size:2048" json:"-"`
	RefreshToken string     `gorm:"size:2048" json:"-"`
	Status       Status     `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
	RoleID       *uuid.UUID `gorm:"type:uuid;index" json:"roleId"`
	Role         *Role      `json:"role,omitempty"`
	EmployeeID   *uuid.UUID `gorm:"type:uuid;index" json:"employeeId"`
}

// RoleName returns the name of the user's role, or an empty string when the
// role is not loaded.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// UserUpdate holds the column changes applied to a User. Password changes go
// through PasswordHash after hashing.
type UserUpdate struct {
	Stamp
	Username     *string    `json:"username"`
	Email        *string    `json:"email"`
	Name         *string    `json:"name"`
	PasswordHash *string    `json:"-"`
	AccessToken  *string    `json:"-"`
	RefreshToken *string    `json:"-"`
	Status       *Status    `json:"status"`
	RoleID       *uuid.UUID `json:"roleId"`
}

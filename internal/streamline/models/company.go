package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is a customer or partner organization.
type Company struct {
	Base
	Name      string     `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Website   string     `gorm:"size:255" json:"website"`
	Email     string     `gorm:"size:255" json:"email"`
	Phone     string     `gorm:"size:50" json:"phone"`
	Address   string     `gorm:"size:500" json:"address"`
	Status    Status     `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
	Divisions []Division `json:"divisions,omitempty"`
	Locations []Location `json:"locations,omitempty"`
	Contacts  []Contact  `json:"contacts,omitempty"`
	Contracts []Contract `json:"contracts,omitempty"`
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates.
type CompanyUpdate struct {
	Stamp
	Name    *string `json:"name"`
	Website *string `json:"website"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Status  *Status `json:"status"`
}

// Division is an organizational sub-unit of a Company.
type Division struct {
	Base
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"companyId"`
	Company     *Company   `json:"company,omitempty"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Description string     `gorm:"size:2000" json:"description"`
	Status      Status     `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
	Locations   []Location `json:"locations,omitempty"`
	Contacts    []Contact  `json:"contacts,omitempty"`
}

// DivisionUpdate holds the mutable fields of a Division.
type DivisionUpdate struct {
	Stamp
	CompanyID   *uuid.UUID `json:"companyId"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status"`
}

// Location is a physical site belonging to a company and optionally to one
// of its divisions.
type Location struct {
	Base
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"companyId"`
	DivisionID *uuid.UUID `gorm:"type:uuid;index" json:"divisionId"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	Address    string     `gorm:"size:500" json:"address"`
	City       string     `gorm:"size:100" json:"city"`
	State      string     `gorm:"size:100" json:"state"`
	PostalCode string     `gorm:"size:20" json:"postalCode"`
	Country    string     `gorm:"size:100" json:"country"`
	Status     Status     `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
}

// LocationUpdate holds the mutable fields of a Location.
type LocationUpdate struct {
	Stamp
	CompanyID  *uuid.UUID `json:"companyId"`
	DivisionID *uuid.UUID `json:"divisionId"`
	Name       *string    `json:"name"`
	Address    *string    `json:"address"`
	City       *string    `json:"city"`
	State      *string    `json:"state"`
	PostalCode *string    `json:"postalCode"`
	Country    *string    `json:"country"`
	Status     *Status    `json:"status"`
}

// Contact is a person reachable at a company.
type Contact struct {
	Base
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"companyId"`
	DivisionID *uuid.UUID `gorm:"type:uuid;index" json:"divisionId"`
	LocationID *uuid.UUID `gorm:"type:uuid;index" json:"locationId"`
	FirstName  string     `gorm:"size:100;not null" json:"firstName"`
	LastName   string     `gorm:"size:100;not null" json:"lastName"`
	Email      string     `gorm:"size:255" json:"email"`
	Phone      string     `gorm:"size:50" json:"phone"`
	Title      string     `gorm:"size:100" json:"title"`
	Status     Status     `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
}

// ContactUpdate holds the mutable fields of a Contact.
type ContactUpdate struct {
	Stamp
	CompanyID  *uuid.UUID `json:"companyId"`
	DivisionID *uuid.UUID `json:"divisionId"`
	LocationID *uuid.UUID `json:"locationId"`
	FirstName  *string    `json:"firstName"`
	LastName   *string    `json:"lastName"`
	Email      *string    `json:"email"`
	Phone      *string    `json:"phone"`
	Title      *string    `json:"title"`
	Status     *Status    `json:"status"`
}

// ContractStatus is the state of a Contract.
type ContractStatus string

const (
	ContractDraft      ContractStatus = "DRAFT"
	ContractActive     ContractStatus = "ACTIVE"
	ContractExpired    ContractStatus = "EXPIRED"
	ContractTerminated ContractStatus = "TERMINATED"
)

// Valid reports whether s is one of the known contract states.
func (s ContractStatus) Valid() bool {
	switch s {
	case ContractDraft, ContractActive, ContractExpired, ContractTerminated:
		return true
	}
	return false
}

// Contract is an agreement with a company.
type Contract struct {
	Base
	CompanyID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"companyId"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"size:3000" json:"description"`
	Value       float64        `json:"value"`
	StartDate   *time.Time     `json:"startDate"`
	EndDate     *time.Time     `json:"endDate"`
	Status      ContractStatus `gorm:"size:20;not null;default:DRAFT;index" json:"status"`
}

// ContractUpdate holds the mutable fields of a Contract.
type ContractUpdate struct {
	Stamp
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Value       *float64        `json:"value"`
	StartDate   *time.Time      `json:"startDate"`
	EndDate     *time.Time      `json:"endDate"`
	Status      *ContractStatus `json:"status"`
}

// Package models defines the persisted entities of the Streamline API and the
// partial-update payloads accepted for them. The structs double as gorm
// schemas and as the JSON representation served to clients.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state shared by most entities. Deactivation is a
// status flip rather than a row deletion.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Entity is implemented by every model embedding Base.
type Entity interface {
	ResourceID() uuid.UUID
	ResetIdentity()
}

// Base carries the identity and timestamps common to all entities.
type Base struct {
	// ID is assigned on insert when left empty.
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a fresh UUID to records inserted without one.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ResourceID returns the record identifier.
func (b *Base) ResourceID() uuid.UUID {
	return b.ID
}

// ResetIdentity clears client-supplied identity and timestamps before insert.
func (b *Base) ResetIdentity() {
	b.ID = uuid.Nil
	b.CreatedAt = time.Time{}
	b.UpdatedAt = time.Time{}
}

// Stamp is embedded in update payloads so that partial updates still move
// updated_at forward.
type Stamp struct {
	UpdatedAt time.Time `json:"-"`
}

// ListOptions narrows a list query. Filters maps column names to required
// values; callers only pass whitelisted columns.
type ListOptions struct {
	Filters map[string]any
	Limit   int
	Offset  int
}

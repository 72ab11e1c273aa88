// Package controller implements the business logic (service layer) of the
// Streamline API, orchestrating repository operations and emitting an event
// for every successful mutation.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/streamline/internal/streamline/auth"
	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/events"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventProducer publishes mutation events.
type EventProducer interface {
	Produce(event events.Event)
}

// Store is the per-entity storage interface implemented by db.Table.
type Store[T any] interface {
	Create(ctx context.Context, item *T) error
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	List(ctx context.Context, opts models.ListOptions) ([]T, error)
	Update(ctx context.Context, id uuid.UUID, changes any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ResourceService provides CRUD for one entity type T with partial updates
// of type U. The hooks validate input and fill defaults before writes.
type ResourceService[T any, U any] struct {
	resource      string
	store         Store[T]
	producer      EventProducer
	logger        *zap.Logger
	prepareCreate func(ctx context.Context, item *T) error
	prepareUpdate func(ctx context.Context, id uuid.UUID, changes *U) error
}

// NewResourceService constructs a ResourceService. Nil hooks accept any input.
func NewResourceService[T any, U any](
	resource string,
	store Store[T],
	producer EventProducer,
	logger *zap.Logger,
	prepareCreate func(context.Context, *T) error,
	prepareUpdate func(context.Context, uuid.UUID, *U) error,
) *ResourceService[T, U] {
	return &ResourceService[T, U]{
		resource:      resource,
		store:         store,
		producer:      producer,
		logger:        logger.Named("resource_service").With(zap.String("resource", resource)),
		prepareCreate: prepareCreate,
		prepareUpdate: prepareUpdate,
	}
}

// Create inserts item after validation. Client-supplied ids and timestamps
// are discarded.
func (s *ResourceService[T, U]) Create(ctx context.Context, item *T) (*T, error) {
	entity, ok := any(item).(models.Entity)
	if !ok {
		return nil, fmt.Errorf("%s is not an entity", s.resource)
	}
	entity.ResetIdentity()

	if s.prepareCreate != nil {
		if err := s.prepareCreate(ctx, item); err != nil {
			return nil, err
		}
	}

	if err := s.store.Create(ctx, item); err != nil {
		return nil, wrap(err, "failed to create %s", s.resource)
	}

	s.produce(ctx, events.Created, entity.ResourceID(), item)
	return item, nil
}

// Get retrieves one record by ID, returning ErrNotFound if absent.
func (s *ResourceService[T, U]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to get %s", s.resource)
	}
	return item, nil
}

func (s *ResourceService[T, U]) List(ctx context.Context, opts models.ListOptions) ([]T, error) {
	items, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, wrap(err, "failed to list %s", s.resource)
	}
	return items, nil
}

// Update applies the non-nil fields of changes and returns the fresh record.
func (s *ResourceService[T, U]) Update(ctx context.Context, id uuid.UUID, changes *U) (*T, error) {
	if id == uuid.Nil || changes == nil {
		return nil, fmt.Errorf("%w: invalid %s update", e.ErrInvalidInput, s.resource)
	}
	if s.prepareUpdate != nil {
		if err := s.prepareUpdate(ctx, id, changes); err != nil {
			return nil, err
		}
	}

	if err := s.store.Update(ctx, id, changes); err != nil {
		return nil, wrap(err, "failed to update %s", s.resource)
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get record for event",
			zap.Error(err),
			zap.String("resource_id", id.String()),
		)
		return nil, err
	}
	s.produce(ctx, events.Updated, id, updated)
	return updated, nil
}

// Delete removes a record by ID and fires a deletion event carrying the
// record as it was.
func (s *ResourceService[T, U]) Delete(ctx context.Context, id uuid.UUID) error {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return wrap(err, "failed to get %s for deletion", s.resource)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return wrap(err, "failed to delete %s", s.resource)
	}

	s.produce(ctx, events.Deleted, id, item)
	return nil
}

func (s *ResourceService[T, U]) produce(ctx context.Context, eventType events.EventType, id uuid.UUID, data any) {
	s.producer.Produce(events.NewEvent(eventType, s.resource, id, auth.ActorFrom(ctx), data))
}

// wrap adds context to unexpected errors and passes the shared sentinels
// through untouched.
func wrap(err error, format string, args ...any) error {
	for _, sentinel := range []error{e.ErrNotFound, e.ErrDuplicate, e.ErrInvalidInput, e.ErrInvalidCredentials, e.ErrUnauthorized, e.ErrForbidden} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

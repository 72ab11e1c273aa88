package db

import (
	"context"

	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Table gives single-entity CRUD over one model type. Get preloads the
// configured associations; List returns bare rows.
type Table[T any] struct {
	db       *gorm.DB
	order    string
	preloads []string
}

func newTable[T any](db *gorm.DB, order string, preloads ...string) *Table[T] {
	return &Table[T]{db: db, order: order, preloads: preloads}
}

func (t *Table[T]) Create(ctx context.Context, item *T) error {
	return translate(t.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error)
}

func (t *Table[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	var item T
	q := t.db.WithContext(ctx)
	for _, p := range t.preloads {
		q = q.Preload(p)
	}
	if err := q.First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (t *Table[T]) List(ctx context.Context, opts models.ListOptions) ([]T, error) {
	q := t.db.WithContext(ctx).Model(new(T))
	for column, value := range opts.Filters {
		q = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if t.order != "" {
		q = q.Order(t.order)
	}

	items := make([]T, 0)
	if err := q.Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	return items, nil
}

// Update applies a partial update payload. changes is one of the *Update
// structs in package models; nil pointer fields are left untouched.
func (t *Table[T]) Update(ctx context.Context, id uuid.UUID, changes any) error {
	result := t.db.WithContext(ctx).Model(new(T)).
		Where("id = ?", id).
		Updates(changes)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (t *Table[T]) Delete(ctx context.Context, id uuid.UUID) error {
	result := t.db.WithContext(ctx).Delete(new(T), "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/invoicely/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	if err := s.scoped(ctx, query, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindOne returns nil, nil when no row matches.
func (s *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var row T
	err := s.scoped(ctx, query, opts).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *store[T]) Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error) {
	var count int64
	err := s.scoped(ctx, query, opts).Count(&count).Error
	return count, err
}

func (s *store[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

// Update applies fields (a map or struct) to the row with resourceID and
// reports how many rows changed.
func (s *store[T]) Update(ctx context.Context, resourceID any, fields any) (int64, error) {
	return s.UpdateWhere(ctx, fields, option.ApplyOperator(option.Condition{Field: "id", Value: resourceID}))
}

// UpdateWhere refuses to run without at least one option so a forgotten
// filter cannot touch the whole table.
func (s *store[T]) UpdateWhere(ctx context.Context, fields any, opts ...option.QueryOption) (int64, error) {
	if len(opts) == 0 {
		return 0, gorm.ErrMissingWhereClause
	}
	res := s.scoped(ctx, nil, opts).Updates(fields)
	return res.RowsAffected, res.Error
}

func (s *store[T]) Delete(ctx context.Context, resourceID any) error {
	return s.db.WithContext(ctx).Where("id = ?", resourceID).Delete(new(T)).Error
}

func (s *store[T]) scoped(ctx context.Context, query *T, opts []option.QueryOption) *gorm.DB {
	stmt := s.db.WithContext(ctx).Model(new(T))
	if query != nil {
		stmt = stmt.Where(query)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}

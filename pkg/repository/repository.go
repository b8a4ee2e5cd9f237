package repository

import (
	"context"

	"github.com/smallbiznis/invoicely/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store for single-table records keyed
// by an "id" column. Query structs match on their non-zero fields.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID any, fields any) (int64, error)
	UpdateWhere(ctx context.Context, fields any, opts ...option.QueryOption) (int64, error)
	Delete(ctx context.Context, resourceID any) error
}

package repository

import (
	"context"

	"github.com/vitalis-health/vitalis/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is the generic persistence contract shared by all entity stores.
// Typed repositories in each domain package wrap it with entity-specific
// queries; the generic surface covers plain filter-by-example access.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
	BatchUpdate(ctx context.Context, resources []*T) error
}

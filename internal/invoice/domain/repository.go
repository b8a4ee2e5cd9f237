package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the invoice store. Every call takes the handle to run on so
// Insert can share the counter transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, inv *Invoice) error
	// FindByID returns nil, nil when no invoice has id.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter ListFilter) (ListResult, error)
	// ListAll lists every user's invoices with the owner's name and company.
	ListAll(ctx context.Context, db *gorm.DB, filter ListFilter) (ListResult, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, now time.Time) error
	// Stats aggregates one user's invoices, or everyone's when userID is nil.
	Stats(ctx context.Context, db *gorm.DB, userID *snowflake.ID) (Stats, error)
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	CompanyName     *string          `json:"company_name"`
	InvoiceTitle    *string          `json:"invoice_title"`
	InvoicePrefix   *string          `json:"invoice_prefix"`
	PhoneNumber     *string          `json:"phone_number"`
	Website         *string          `json:"website"`
	Email           *string          `json:"email"`
	GSTEnabled      *bool            `json:"gst_enabled"`
	CGSTPercent     *decimal.Decimal `json:"cgst_percent"`
	SGSTPercent     *decimal.Decimal `json:"sgst_percent"`
	TermsConditions *string          `json:"terms_conditions"`
	Template        *string          `json:"invoice_template"`
}

type AddColumnRequest struct {
	Name string `json:"name"`
}

type ColumnUpdate struct {
	Name    *string `json:"name"`
	Enabled *bool   `json:"enabled"`
}

type Service interface {
	Load(ctx context.Context, userID snowflake.ID) (Settings, error)
	// Reload reads storage even when a cached copy exists, then refreshes it.
	Reload(ctx context.Context, userID snowflake.ID) (Settings, error)
	Save(ctx context.Context, userID snowflake.ID, req UpdateRequest) (Settings, error)
	AddColumn(ctx context.Context, userID snowflake.ID, req AddColumnRequest) (Settings, error)
	UpdateColumn(ctx context.Context, userID snowflake.ID, key string, req ColumnUpdate) (Settings, error)
	RemoveColumn(ctx context.Context, userID snowflake.ID, key string) (Settings, error)
	UploadLogo(ctx context.Context, userID snowflake.ID, data []byte) (Settings, error)
	RemoveLogo(ctx context.Context, userID snowflake.ID) (Settings, error)
	// Invalidate drops any cached copy after a write made outside the service.
	Invalidate(userID snowflake.ID)
}

type Repository interface {
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Settings, error)
	Insert(ctx context.Context, db *gorm.DB, s *Settings) error
	Update(ctx context.Context, db *gorm.DB, s *Settings) error
	// IncrementCounter advances the counter only if it still equals previous.
	IncrementCounter(ctx context.Context, db *gorm.DB, userID snowflake.ID, previous int64, now time.Time) error
}

var (
	ErrSettingsNotFound  = errors.New("settings_not_found")
	ErrCounterConflict   = errors.New("invoice_counter_conflict")
	ErrInvalidTemplate   = errors.New("invalid_template")
	ErrInvalidTaxPercent = errors.New("invalid_tax_percent")
	ErrInvalidTitle      = errors.New("invalid_invoice_title")
	ErrInvalidLogo       = errors.New("invalid_logo_type")
	ErrLogoTooLarge      = errors.New("logo_too_large")
)

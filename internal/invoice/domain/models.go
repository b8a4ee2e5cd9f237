// Package domain holds the invoice document model: column schema, line items,
// totals and the persisted invoice record.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status represents the invoice lifecycle.
type Status string

const (
	StatusDraft Status = "draft"
	StatusSent  Status = "sent"
	StatusPaid  Status = "paid"
)

var ErrInvalidStatus = errors.New("invalid_status")

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusSent:
		return StatusSent, nil
	case StatusPaid:
		return StatusPaid, nil
	default:
		return "", ErrInvalidStatus
	}
}

// DateLayout is the ISO date format used for issue and due dates.
const DateLayout = "2006-01-02"

// Invoice is the persisted record. Totals are snapshots taken at save time;
// item amounts are always re-derived from quantity and unit price.
type Invoice struct {
	ID              snowflake.ID                   `gorm:"primaryKey" json:"id"`
	UserID          snowflake.ID                   `gorm:"not null;index;uniqueIndex:ux_invoices_user_number,priority:1" json:"user_id"`
	InvoiceNumber   string                         `gorm:"type:text;not null;uniqueIndex:ux_invoices_user_number,priority:2" json:"invoice_number"`
	ClientName      string                         `gorm:"type:text;not null;default:''" json:"client_name"`
	ClientAddress   string                         `gorm:"type:text;not null;default:''" json:"client_address"`
	ClientEmail     string                         `gorm:"type:text;not null;default:''" json:"client_email"`
	ClientPhone     string                         `gorm:"type:text;not null;default:''" json:"client_phone"`
	IssueDate       string                         `gorm:"type:text;not null" json:"issue_date"`
	DueDate         string                         `gorm:"type:text;not null" json:"due_date"`
	Items           datatypes.JSONType[[]LineItem] `gorm:"not null" json:"items"`
	Columns         datatypes.JSONType[Schema]     `gorm:"not null" json:"columns"`
	Subtotal        decimal.Decimal                `gorm:"type:numeric(18,2);not null;default:0" json:"subtotal"`
	CGSTAmount      decimal.Decimal                `gorm:"type:numeric(18,2);not null;default:0" json:"cgst_amount"`
	SGSTAmount      decimal.Decimal                `gorm:"type:numeric(18,2);not null;default:0" json:"sgst_amount"`
	GrandTotal      decimal.Decimal                `gorm:"type:numeric(18,2);not null;default:0" json:"grand_total"`
	GSTEnabled      bool                           `gorm:"not null;default:false" json:"gst_enabled"`
	CGSTPercent     decimal.Decimal                `gorm:"type:numeric(6,2);not null;default:0" json:"cgst_percent"`
	SGSTPercent     decimal.Decimal                `gorm:"type:numeric(6,2);not null;default:0" json:"sgst_percent"`
	TermsConditions string                         `gorm:"type:text;not null;default:''" json:"terms_conditions"`
	Template        string                         `gorm:"type:text;not null;default:'classic'" json:"template"`
	Status          Status                         `gorm:"column:invoice_status;type:text;not null;default:'draft'" json:"invoice_status"`
	CreatedAt       time.Time                      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                      `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Tax returns the invoice's tax configuration.
func (i Invoice) Tax() TaxConfig {
	return NewTaxConfig(i.GSTEnabled, i.CGSTPercent, i.SGSTPercent)
}

// LineItems returns the stored items.
func (i Invoice) LineItems() []LineItem {
	return i.Items.Data()
}

// Schema returns the column schema captured at save time.
func (i Invoice) Schema() Schema {
	cols := i.Columns.Data()
	if len(cols) == 0 {
		return DefaultSchema()
	}
	return cols
}

// InvoiceSummary is a list row. Owner fields are only filled for privileged listings.
type InvoiceSummary struct {
	ID            snowflake.ID    `json:"id"`
	UserID        snowflake.ID    `json:"user_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientName    string          `json:"client_name"`
	IssueDate     string          `json:"issue_date"`
	DueDate       string          `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Template      string          `json:"template"`
	Status        Status          `gorm:"column:invoice_status" json:"invoice_status"`
	OwnerName     string          `json:"owner_name,omitempty"`
	OwnerCompany  string          `json:"owner_company,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Stats aggregates invoices for the dashboard.
type Stats struct {
	TotalInvoices int64           `json:"total_invoices"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	PaidCount     int64           `json:"paid"`
	DraftCount    int64           `json:"draft"`
	SentCount     int64           `json:"sent"`
}

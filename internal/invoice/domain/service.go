package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Actor is the authenticated caller. Role is only used as a gate for which
// invoices the caller may see.
type Actor struct {
	UserID snowflake.ID
	Role   string
}

type DraftRequest struct {
	ClientName    string     `json:"client_name"`
	ClientAddress string     `json:"client_address"`
	ClientEmail   string     `json:"client_email"`
	ClientPhone   string     `json:"client_phone"`
	IssueDate     string     `json:"issue_date"`
	DueDate       string     `json:"due_date"`
	Items         []LineItem `json:"items"`
	Template      string     `json:"template"`
}

type NextNumber struct {
	InvoiceNumber string `json:"invoice_number"`
	Counter       int64  `json:"counter"`
}

type ListFilter struct {
	Query     string `form:"q"`
	Status    string `form:"status"`
	PageSize  int    `form:"page_size"`
	PageToken string `form:"page_token"`
}

type ListResult struct {
	Invoices      []InvoiceSummary `json:"invoices"`
	NextPageToken string           `json:"next_page_token,omitempty"`
	HasMore       bool             `json:"has_more"`
}

// PDF is a finished export ready for download.
type PDF struct {
	Filename string
	Content  []byte
}

type Service interface {
	Preview(ctx context.Context, userID snowflake.ID) (NextNumber, error)
	Build(ctx context.Context, userID snowflake.ID, req DraftRequest) (Draft, error)
	PreviewHTML(ctx context.Context, userID snowflake.ID, req DraftRequest) ([]byte, error)
	Save(ctx context.Context, userID snowflake.ID, req DraftRequest) (Invoice, error)
	List(ctx context.Context, actor Actor, filter ListFilter) (ListResult, error)
	Get(ctx context.Context, actor Actor, id snowflake.ID) (Invoice, error)
	UpdateStatus(ctx context.Context, actor Actor, id snowflake.ID, status string) error
	RenderHTML(ctx context.Context, actor Actor, id snowflake.ID, templateID string) ([]byte, error)
	ExportPDF(ctx context.Context, actor Actor, id snowflake.ID) (PDF, error)
	Dashboard(ctx context.Context, actor Actor) (Stats, error)
}

var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrNumberTaken     = errors.New("invoice_number_taken")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrAmountTooLarge  = errors.New("invalid_amount")
	ErrForbidden       = errors.New("forbidden")
	ErrExportFailed    = errors.New("export_failed")
	ErrExportThrottled = errors.New("export_throttled")
	ErrSaveInProgress  = errors.New("invoice_save_in_progress")
)

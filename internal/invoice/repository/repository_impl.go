package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	"github.com/smallbiznis/invoicely/pkg/db/option"
	"github.com/smallbiznis/invoicely/pkg/db/pagination"
	"gorm.io/gorm"
)

const summaryColumns = `invoices.id, invoices.user_id, invoices.invoice_number, invoices.client_name,
	invoices.issue_date, invoices.due_date, invoices.subtotal, invoices.grand_total,
	invoices.template, invoices.invoice_status, invoices.created_at`

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inv *invoicedomain.Invoice) error {
	return db.WithContext(ctx).Create(inv).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var inv invoicedomain.Invoice
	err := db.WithContext(ctx).Where("id = ?", id).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter invoicedomain.ListFilter) (invoicedomain.ListResult, error) {
	stmt := db.WithContext(ctx).
		Table("invoices").
		Select(summaryColumns).
		Where("invoices.user_id = ?", userID)
	return r.list(stmt, filter)
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, filter invoicedomain.ListFilter) (invoicedomain.ListResult, error) {
	stmt := db.WithContext(ctx).
		Table("invoices").
		Select(summaryColumns + `, COALESCE(users.full_name, '') AS owner_name, COALESCE(users.company_name, '') AS owner_company`).
		Joins("LEFT JOIN users ON users.id = invoices.user_id")
	return r.list(stmt, filter)
}

func (r *repo) list(stmt *gorm.DB, filter invoicedomain.ListFilter) (invoicedomain.ListResult, error) {
	page := pagination.Pagination{PageToken: filter.PageToken, PageSize: filter.PageSize}
	opts := []option.QueryOption{
		option.ApplySearch(filter.Query, "invoices.client_name", "invoices.invoice_number"),
		option.ApplyPagination(page, "invoices.id"),
	}
	if filter.Status != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "invoices.invoice_status",
			Operator: option.EQ,
			Value:    filter.Status,
		}))
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var rows []*invoicedomain.InvoiceSummary
	if err := stmt.Scan(&rows).Error; err != nil {
		return invoicedomain.ListResult{}, err
	}

	result := pagination.Trim(rows, page.Size(), func(row *invoicedomain.InvoiceSummary) string {
		return row.ID.String()
	})

	out := make([]invoicedomain.InvoiceSummary, 0, len(result.Items))
	for _, row := range result.Items {
		out = append(out, *row)
	}
	return invoicedomain.ListResult{
		Invoices:      out,
		NextPageToken: result.NextPageToken,
		HasMore:       result.HasMore,
	}, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status invoicedomain.Status, now time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices SET invoice_status = ?, updated_at = ? WHERE id = ?`,
		string(status),
		now,
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return invoicedomain.ErrInvoiceNotFound
	}
	return nil
}

type statsRow struct {
	TotalInvoices int64
	TotalRevenue  decimal.Decimal
	PaidCount     int64
	DraftCount    int64
	SentCount     int64
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, userID *snowflake.ID) (invoicedomain.Stats, error) {
	stmt := db.WithContext(ctx).
		Table("invoices").
		Select(`COUNT(*) AS total_invoices,
			COALESCE(SUM(grand_total), 0) AS total_revenue,
			COALESCE(SUM(CASE WHEN invoice_status = ? THEN 1 ELSE 0 END), 0) AS paid_count,
			COALESCE(SUM(CASE WHEN invoice_status = ? THEN 1 ELSE 0 END), 0) AS draft_count,
			COALESCE(SUM(CASE WHEN invoice_status = ? THEN 1 ELSE 0 END), 0) AS sent_count`,
			string(invoicedomain.StatusPaid),
			string(invoicedomain.StatusDraft),
			string(invoicedomain.StatusSent),
		)
	if userID != nil {
		stmt = stmt.Where("user_id = ?", *userID)
	}

	var row statsRow
	if err := stmt.Scan(&row).Error; err != nil {
		return invoicedomain.Stats{}, err
	}
	return invoicedomain.Stats{
		TotalInvoices: row.TotalInvoices,
		TotalRevenue:  row.TotalRevenue.Round(2),
		PaidCount:     row.PaidCount,
		DraftCount:    row.DraftCount,
		SentCount:     row.SentCount,
	}, nil
}

package domain

import "github.com/bwmarrin/snowflake"

// Branding is the settings snapshot an invoice is rendered with.
type Branding struct {
	CompanyName  string
	InvoiceTitle string
	Logo         []byte
	LogoMIME     string
	Phone        string
	Website      string
	Email        string
}

// Draft is the in-memory invoice: branding snapshot plus client, dates,
// items, number and tax. It is built for preview and for save.
type Draft struct {
	Branding      Branding
	InvoiceNumber string
	ClientName    string
	ClientAddress string
	ClientEmail   string
	ClientPhone   string
	IssueDate     string
	DueDate       string
	Items         []LineItem
	Columns       Schema
	Tax           TaxConfig
	Totals        Totals
	Terms         string
	Template      string
	Status        Status
}

// Recompute refreshes Totals from Items and Tax.
func (d *Draft) Recompute() {
	d.Totals = ComputeTotals(d.Items, d.Tax)
}

// Record converts the draft into a persisted invoice owned by userID.
func (d Draft) Record(id, userID snowflake.ID) Invoice {
	items := make([]LineItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, item.Normalize(d.Columns))
	}
	totals := d.Totals.Rounded()
	status := d.Status
	if status == "" {
		status = StatusDraft
	}
	return Invoice{
		ID:              id,
		UserID:          userID,
		InvoiceNumber:   d.InvoiceNumber,
		ClientName:      d.ClientName,
		ClientAddress:   d.ClientAddress,
		ClientEmail:     d.ClientEmail,
		ClientPhone:     d.ClientPhone,
		IssueDate:       d.IssueDate,
		DueDate:         d.DueDate,
		Items:           newJSONItems(items),
		Columns:         newJSONSchema(d.Columns),
		Subtotal:        totals.Subtotal,
		CGSTAmount:      totals.CGSTAmount,
		SGSTAmount:      totals.SGSTAmount,
		GrandTotal:      totals.GrandTotal,
		GSTEnabled:      d.Tax.Enabled,
		CGSTPercent:     d.Tax.CGSTPercent,
		SGSTPercent:     d.Tax.SGSTPercent,
		TermsConditions: d.Terms,
		Template:        d.Template,
		Status:          status,
	}
}

// DraftFromRecord rebuilds a draft from a stored invoice and its owner's
// current branding. Stored fields take precedence over branding.
func DraftFromRecord(inv Invoice, branding Branding) Draft {
	d := Draft{
		Branding:      branding,
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		ClientAddress: inv.ClientAddress,
		ClientEmail:   inv.ClientEmail,
		ClientPhone:   inv.ClientPhone,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Items:         inv.LineItems(),
		Columns:       inv.Schema(),
		Tax:           inv.Tax(),
		Terms:         inv.TermsConditions,
		Template:      inv.Template,
		Status:        inv.Status,
	}
	d.Recompute()
	return d
}

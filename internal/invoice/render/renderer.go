package render

import (
	"encoding/base64"
	"html/template"
	"strconv"
	"strings"

	"github.com/smallbiznis/invoicely/internal/invoice/domain"
	"github.com/smallbiznis/invoicely/internal/invoice/format"
)

// Cell kinds decide alignment and formatting.
const (
	KindIndex    = "index"
	KindText     = "text"
	KindQuantity = "quantity"
	KindMoney    = "money"
)

// Keys for the two computed columns around the configurable ones.
const (
	KeyIndex  = domain.ColumnIndex
	KeyAmount = domain.ColumnAmount
)

// View is the fully resolved invoice handed to every template and to the PDF
// exporters. Nothing downstream looks anything else up.
type View struct {
	CompanyName   string
	InvoiceTitle  string
	InvoiceNumber string
	LogoURL       template.URL

	ClientName    string
	ClientAddress string
	ClientEmail   string
	ClientPhone   string
	IssueDate     string
	DueDate       string

	Columns []ColumnView
	Rows    []RowView

	Totals      domain.Totals
	TaxEnabled  bool
	CGSTPercent string
	SGSTPercent string
	Subtotal    string
	CGSTAmount  string
	SGSTAmount  string
	GrandTotal  string

	Terms  string
	Footer []string

	Template string
}

type ColumnView struct {
	Key  string
	Name string
	Kind string
}

type RowView struct {
	Index int
	Cells []CellView
}

type CellView struct {
	Key   string
	Kind  string
	Value string
}

// HasTerms reports whether the terms block is shown.
func (v View) HasTerms() bool {
	return strings.TrimSpace(v.Terms) != ""
}

// Resolve derives the view from a draft. Missing values render as empty text
// or zero; it never fails.
func Resolve(d domain.Draft) View {
	schema := d.Columns
	if len(schema) == 0 {
		schema = domain.DefaultSchema()
	}
	enabled := schema.EnabledColumns()

	columns := make([]ColumnView, 0, len(enabled)+2)
	columns = append(columns, ColumnView{Key: KeyIndex, Name: "#", Kind: KindIndex})
	for _, col := range enabled {
		columns = append(columns, ColumnView{Key: col.Key, Name: col.Name, Kind: kindOf(col)})
	}
	columns = append(columns, ColumnView{Key: KeyAmount, Name: "Amount", Kind: KindMoney})

	rows := make([]RowView, 0, len(d.Items))
	for i, item := range d.Items {
		cells := make([]CellView, 0, len(columns))
		cells = append(cells, CellView{Key: KeyIndex, Kind: KindIndex, Value: strconv.Itoa(i + 1)})
		for _, col := range enabled {
			cells = append(cells, resolveCell(col, item))
		}
		cells = append(cells, CellView{Key: KeyAmount, Kind: KindMoney, Value: format.Money(item.Amount())})
		rows = append(rows, RowView{Index: i + 1, Cells: cells})
	}

	tax := domain.NewTaxConfig(d.Tax.Enabled, d.Tax.CGSTPercent, d.Tax.SGSTPercent)
	totals := domain.ComputeTotals(d.Items, tax)

	return View{
		CompanyName:   d.Branding.CompanyName,
		InvoiceTitle:  d.Branding.InvoiceTitle,
		InvoiceNumber: d.InvoiceNumber,
		LogoURL:       logoURL(d.Branding.Logo, d.Branding.LogoMIME),
		ClientName:    d.ClientName,
		ClientAddress: normalizeNewlines(d.ClientAddress),
		ClientEmail:   d.ClientEmail,
		ClientPhone:   d.ClientPhone,
		IssueDate:     d.IssueDate,
		DueDate:       d.DueDate,
		Columns:       columns,
		Rows:          rows,
		Totals:        totals,
		TaxEnabled:    tax.Enabled,
		CGSTPercent:   format.Percent(tax.CGSTPercent),
		SGSTPercent:   format.Percent(tax.SGSTPercent),
		Subtotal:      format.Money(totals.Subtotal),
		CGSTAmount:    format.Money(totals.CGSTAmount),
		SGSTAmount:    format.Money(totals.SGSTAmount),
		GrandTotal:    format.Money(totals.GrandTotal),
		Terms:         d.Terms,
		Footer:        []string{d.Branding.Phone, d.Branding.Website, d.Branding.Email},
		Template:      NormalizeTemplateID(d.Template),
	}
}

func resolveCell(col domain.ColumnSpec, item domain.LineItem) CellView {
	switch {
	case col.IsQuantity():
		return CellView{Key: col.Key, Kind: KindQuantity, Value: format.Quantity(item.Quantity())}
	case col.IsUnitPrice():
		return CellView{Key: col.Key, Kind: KindMoney, Value: format.Money(item.UnitPrice())}
	default:
		return CellView{Key: col.Key, Kind: KindText, Value: item.Text(col.Key)}
	}
}

func kindOf(col domain.ColumnSpec) string {
	switch {
	case col.IsQuantity():
		return KindQuantity
	case col.IsUnitPrice():
		return KindMoney
	default:
		return KindText
	}
}

// logoURL builds a data URI for PNG and JPEG logos. Any other type is dropped
// so nothing unvetted reaches the src attribute.
func logoURL(logo []byte, mime string) template.URL {
	if len(logo) == 0 {
		return ""
	}
	switch mime {
	case "image/png", "image/jpeg":
	default:
		return ""
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(logo))
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

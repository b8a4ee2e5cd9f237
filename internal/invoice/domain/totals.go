package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// storedAmountLimit bounds every persisted total (numeric(18,2)).
var storedAmountLimit = decimal.New(1, 16)

// TaxConfig carries the GST split. When Enabled is false the percents are
// ignored entirely.
type TaxConfig struct {
	Enabled     bool            `json:"gst_enabled"`
	CGSTPercent decimal.Decimal `json:"cgst_percent"`
	SGSTPercent decimal.Decimal `json:"sgst_percent"`
}

// NewTaxConfig clamps negative percents to zero.
func NewTaxConfig(enabled bool, cgst, sgst decimal.Decimal) TaxConfig {
	return TaxConfig{
		Enabled:     enabled,
		CGSTPercent: clampNonNegative(cgst),
		SGSTPercent: clampNonNegative(sgst),
	}
}

// Totals holds unrounded values. Round with Rounded or format at the edge.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	CGSTAmount decimal.Decimal `json:"cgst_amount"`
	SGSTAmount decimal.Decimal `json:"sgst_amount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

func ComputeTotals(items []LineItem, tax TaxConfig) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount())
	}

	cgst, sgst := decimal.Zero, decimal.Zero
	if tax.Enabled {
		cgst = subtotal.Mul(clampNonNegative(tax.CGSTPercent)).Div(hundred)
		sgst = subtotal.Mul(clampNonNegative(tax.SGSTPercent)).Div(hundred)
	}

	return Totals{
		Subtotal:   subtotal,
		CGSTAmount: cgst,
		SGSTAmount: sgst,
		GrandTotal: subtotal.Add(cgst).Add(sgst),
	}
}

// Rounded returns a copy rounded half away from zero to two places.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:   t.Subtotal.Round(2),
		CGSTAmount: t.CGSTAmount.Round(2),
		SGSTAmount: t.SGSTAmount.Round(2),
		GrandTotal: t.GrandTotal.Round(2),
	}
}

// Storable reports whether every rounded total fits the stored precision.
func (t Totals) Storable() bool {
	r := t.Rounded()
	for _, v := range []decimal.Decimal{r.Subtotal, r.CGSTAmount, r.SGSTAmount, r.GrandTotal} {
		if v.Abs().GreaterThanOrEqual(storedAmountLimit) {
			return false
		}
	}
	return true
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

package format

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every money value in rendered documents.
const CurrencySymbol = "₹"

// NextInvoiceNumber formats the invoice number for counter: prefix followed by
// the counter padded to at least four digits. Wider counters are not truncated.
func NextInvoiceNumber(prefix string, counter int64) string {
	return fmt.Sprintf("%s%04d", prefix, counter)
}

// Advance returns the counter value after a commit.
func Advance(counter int64) int64 {
	return counter + 1
}

// Sequence is a read-only view of a user's numbering state. It has no
// mutator; the counter only moves through the settings store commit.
type Sequence struct {
	prefix  string
	counter int64
}

func NewSequence(prefix string, counter int64) Sequence {
	if counter < 1 {
		counter = 1
	}
	return Sequence{prefix: prefix, counter: counter}
}

// Preview is the number the next save will take.
func (s Sequence) Preview() string {
	return NextInvoiceNumber(s.prefix, s.counter)
}

// Counter is the value a commit must find in storage.
func (s Sequence) Counter() int64 {
	return s.counter
}

// Next is the counter value stored once the commit lands.
func (s Sequence) Next() int64 {
	return Advance(s.counter)
}

// Money formats an amount as rupees with two decimals, e.g. ₹1234.50.
func Money(d decimal.Decimal) string {
	return CurrencySymbol + d.StringFixed(2)
}

// Quantity formats a quantity with two decimals.
func Quantity(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Percent renders a tax percent without trailing zeros, e.g. 9 or 2.5.
func Percent(d decimal.Decimal) string {
	return d.String()
}

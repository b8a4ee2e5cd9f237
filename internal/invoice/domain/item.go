package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem maps column keys to values. Missing keys read as zero or empty text.
type LineItem map[string]any

// UnmarshalJSON keeps numbers as json.Number so quantities and prices are
// never routed through float64.
func (i *LineItem) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*i = raw
	return nil
}

func (i LineItem) Quantity() decimal.Decimal {
	return ToNumberOrZero(i[ColumnQuantity])
}

func (i LineItem) UnitPrice() decimal.Decimal {
	return ToNumberOrZero(i[ColumnUnitPrice])
}

// Amount is derived on every read and never stored.
func (i LineItem) Amount() decimal.Decimal {
	return i.Quantity().Mul(i.UnitPrice())
}

func (i LineItem) Text(key string) string {
	return ToStringOrEmpty(i[key])
}

// Normalize returns a copy holding a value for every column in the schema:
// exact decimal numbers for the reserved numeric keys and text for everything
// else.
// Keys outside the schema are kept so disabling a column loses nothing.
func (i LineItem) Normalize(schema Schema) LineItem {
	out := make(LineItem, len(i)+len(schema))
	for k, v := range i {
		out[k] = v
	}
	for _, col := range schema {
		switch {
		case col.IsQuantity(), col.IsUnitPrice():
			out[col.Key] = json.Number(ToNumberOrZero(i[col.Key]).String())
		default:
			out[col.Key] = ToStringOrEmpty(i[col.Key])
		}
	}
	return out
}

// ToNumberOrZero coerces v to a decimal. Numeric strings are parsed; nil,
// blanks and anything non-numeric become zero. It never fails, so drafts stay
// renderable mid-edit.
func ToNumberOrZero(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero
		}
		return *n
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(n)
	case float32:
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat32(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	case uint:
		return decimal.NewFromInt(int64(n))
	case uint32:
		return decimal.NewFromInt(int64(n))
	case uint64:
		return decimal.NewFromInt(int64(n))
	case json.Number:
		return parseDecimal(n.String())
	case string:
		return parseDecimal(n)
	default:
		return decimal.Zero
	}
}

// ToStringOrEmpty renders v as plain text; nil becomes "".
func ToStringOrEmpty(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case json.Number:
		return s.String()
	case decimal.Decimal:
		return s.String()
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func parseDecimal(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

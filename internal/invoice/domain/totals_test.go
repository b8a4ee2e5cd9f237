package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotalsTaxDisabled(t *testing.T) {
	items := []LineItem{{"description": "Widget", "quantity": 2, "unit_price": 100}}
	totals := ComputeTotals(items, NewTaxConfig(false, dec("9"), dec("9"))).Rounded()

	assert.Equal(t, "200.00", totals.Subtotal.StringFixed(2))
	assert.True(t, totals.CGSTAmount.IsZero())
	assert.True(t, totals.SGSTAmount.IsZero())
	assert.Equal(t, "200.00", totals.GrandTotal.StringFixed(2))
}

func TestComputeTotalsTaxEnabled(t *testing.T) {
	items := []LineItem{{"description": "Widget", "quantity": 2, "unit_price": 100}}
	totals := ComputeTotals(items, NewTaxConfig(true, dec("9"), dec("9"))).Rounded()

	assert.Equal(t, "18.00", totals.CGSTAmount.StringFixed(2))
	assert.Equal(t, "18.00", totals.SGSTAmount.StringFixed(2))
	assert.Equal(t, "236.00", totals.GrandTotal.StringFixed(2))
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := ComputeTotals(nil, NewTaxConfig(true, dec("9"), dec("9")))
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.CGSTAmount.IsZero())
	assert.True(t, totals.SGSTAmount.IsZero())
	assert.True(t, totals.GrandTotal.IsZero())
}

func TestComputeTotalsAdditivity(t *testing.T) {
	items := []LineItem{
		{"quantity": "1.5", "unit_price": "33.33"},
		{"quantity": 3, "unit_price": 0.1},
		{"quantity": "abc", "unit_price": 10},
		{"description": "no numbers"},
	}
	tax := NewTaxConfig(true, dec("2.5"), dec("6"))
	totals := ComputeTotals(items, tax)

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount())
	}
	assert.True(t, totals.Subtotal.Equal(sum))
	assert.True(t, totals.GrandTotal.Equal(totals.Subtotal.Add(totals.CGSTAmount).Add(totals.SGSTAmount)))
	assert.Equal(t, "50.2950", totals.Subtotal.StringFixed(4))
}

func TestNegativePercentsAreClamped(t *testing.T) {
	tax := NewTaxConfig(true, dec("-5"), dec("3"))
	assert.True(t, tax.CGSTPercent.IsZero())

	raw := TaxConfig{Enabled: true, CGSTPercent: dec("-5"), SGSTPercent: dec("-1")}
	totals := ComputeTotals([]LineItem{{"quantity": 1, "unit_price": 100}}, raw)
	assert.True(t, totals.CGSTAmount.IsZero())
	assert.True(t, totals.SGSTAmount.IsZero())
}

func TestAmountFromDecodedJSON(t *testing.T) {
	var items []LineItem
	require.NoError(t, json.Unmarshal([]byte(`[{"quantity": 2.5, "unit_price": "40", "serial_no": 12}]`), &items))

	assert.Equal(t, "100.00", items[0].Amount().StringFixed(2))
	assert.Equal(t, "12", items[0].Text(ColumnSerialNo))
	assert.Equal(t, "", items[0].Text(ColumnDescription))
}

func TestCoercion(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "0"},
		{"", "0"},
		{"  7.25 ", "7.25"},
		{"1e2", "100"},
		{"ten", "0"},
		{true, "0"},
		{int64(4), "4"},
		{json.Number("3.5"), "3.5"},
		{[]string{"1"}, "0"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToNumberOrZero(tc.in).String(), "input %#v", tc.in)
	}

	assert.Equal(t, "", ToStringOrEmpty(nil))
	assert.Equal(t, "2.5", ToStringOrEmpty(2.5))
	assert.Equal(t, "abc", ToStringOrEmpty("abc"))
	assert.Equal(t, "true", ToStringOrEmpty(true))
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Paid ")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, status)

	_, err = ParseStatus("void")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestNormalizeFillsEveryColumn(t *testing.T) {
	item := LineItem{"quantity": "2", "extra": "kept"}
	out := item.Normalize(DefaultSchema())

	assert.Equal(t, json.Number("2"), out[ColumnQuantity])
	assert.Equal(t, json.Number("0"), out[ColumnUnitPrice])
	assert.Equal(t, "", out[ColumnDescription])
	assert.Equal(t, "kept", out["extra"])
	assert.Equal(t, "2", item[ColumnQuantity], "receiver must not change")
}

func TestNonFiniteNumbersBecomeZero(t *testing.T) {
	for _, v := range []any{math.Inf(1), math.Inf(-1), math.NaN(), float32(math.Inf(1))} {
		assert.True(t, ToNumberOrZero(v).IsZero(), "input %v", v)
	}

	var items []LineItem
	require.NoError(t, json.Unmarshal([]byte(`[{"quantity": 1e400, "unit_price": 1}]`), &items))
	assert.NotPanics(t, func() {
		out := items[0].Normalize(DefaultSchema())
		ComputeTotals([]LineItem{out}, NewTaxConfig(true, dec("9"), dec("9")))
	})
}

func TestNormalizeKeepsExactValues(t *testing.T) {
	item := LineItem{"quantity": "1e400", "unit_price": 1}
	assert.NotPanics(t, func() {
		out := item.Normalize(DefaultSchema())
		totals := ComputeTotals([]LineItem{out}, NewTaxConfig(false, decimal.Zero, decimal.Zero))
		assert.False(t, totals.Storable())
	})

	precise := LineItem{"quantity": "1234567890123.456789", "unit_price": "1"}.Normalize(DefaultSchema())
	assert.Equal(t, "1234567890123.456789", precise.Quantity().String())

	raw, err := json.Marshal(precise)
	require.NoError(t, err)
	var back LineItem
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "1234567890123.456789", back.Amount().String())
}

func TestTotalsStorable(t *testing.T) {
	small := ComputeTotals([]LineItem{{"quantity": 1, "unit_price": "9999999999999999.99"}}, NewTaxConfig(false, decimal.Zero, decimal.Zero))
	assert.True(t, small.Storable())

	taxed := ComputeTotals([]LineItem{{"quantity": 1, "unit_price": "9999999999999999.99"}}, NewTaxConfig(true, dec("9"), dec("9")))
	assert.False(t, taxed.Storable())
}

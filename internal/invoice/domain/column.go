package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Reserved column keys with numeric formatting. Every other key renders as text.
const (
	ColumnDescription = "description"
	ColumnSerialNo    = "serial_no"
	ColumnQuantity    = "quantity"
	ColumnUnitPrice   = "unit_price"
)

// Keys of the computed columns every table carries around the schema. A
// configurable column may not take them.
const (
	ColumnIndex  = "#"
	ColumnAmount = "amount"
)

var (
	ErrDuplicateColumnKey = errors.New("duplicate_column_key")
	ErrInvalidColumnName  = errors.New("invalid_column_name")
	ErrColumnNotFound     = errors.New("column_not_found")
)

// ColumnSpec is one configurable line-item field.
type ColumnSpec struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// IsQuantity reports whether the column holds the 2-place quantity.
func (c ColumnSpec) IsQuantity() bool { return c.Key == ColumnQuantity }

// IsUnitPrice reports whether the column holds the 2-place currency price.
func (c ColumnSpec) IsUnitPrice() bool { return c.Key == ColumnUnitPrice }

// Schema is the ordered column configuration. Order is left-to-right output order.
//
// All methods return a new Schema and never modify the receiver.
type Schema []ColumnSpec

func DefaultSchema() Schema {
	return Schema{
		{Key: ColumnDescription, Name: "Description", Enabled: true},
		{Key: ColumnSerialNo, Name: "Part Serial No", Enabled: true},
		{Key: ColumnQuantity, Name: "Quantity", Enabled: true},
		{Key: ColumnUnitPrice, Name: "Unit Price", Enabled: true},
	}
}

// ColumnKey derives the storage key for a display name: lowercase with each
// whitespace character replaced by an underscore. "Part  No" is "part__no".
func ColumnKey(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return unicode.ToLower(r)
	}, name)
}

// AddColumn appends an enabled column derived from name.
func (s Schema) AddColumn(name string) (Schema, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.clone(), ErrInvalidColumnName
	}
	key := ColumnKey(name)
	if key == ColumnIndex || key == ColumnAmount {
		return s.clone(), fmt.Errorf("%w: %s is computed", ErrInvalidColumnName, key)
	}
	if s.indexOf(key) >= 0 {
		return s.clone(), fmt.Errorf("%w: %s", ErrDuplicateColumnKey, key)
	}
	out := s.clone()
	return append(out, ColumnSpec{Key: key, Name: name, Enabled: true}), nil
}

// SetEnabled toggles visibility. Unknown keys yield an unchanged copy.
func (s Schema) SetEnabled(key string, enabled bool) Schema {
	out := s.clone()
	if i := out.indexOf(key); i >= 0 {
		out[i].Enabled = enabled
	}
	return out
}

// Rename changes the display name only; the key stays fixed because stored
// items reference it. Unknown keys yield an unchanged copy.
func (s Schema) Rename(key, name string) Schema {
	out := s.clone()
	name = strings.TrimSpace(name)
	if name == "" {
		return out
	}
	if i := out.indexOf(key); i >= 0 {
		out[i].Name = name
	}
	return out
}

// Remove drops a column and keeps the order of the rest. Reserved numeric
// columns can be disabled but not removed.
func (s Schema) Remove(key string) (Schema, error) {
	i := s.indexOf(key)
	if i < 0 {
		return s.clone(), ErrColumnNotFound
	}
	if key == ColumnQuantity || key == ColumnUnitPrice {
		return s.clone(), fmt.Errorf("%w: %s is reserved", ErrInvalidColumnName, key)
	}
	out := make(Schema, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...), nil
}

// EnabledColumns is the only accessor downstream code uses for column order.
func (s Schema) EnabledColumns() []ColumnSpec {
	out := make([]ColumnSpec, 0, len(s))
	for _, col := range s {
		if col.Enabled {
			out = append(out, col)
		}
	}
	return out
}

// Has reports whether key is part of the schema, enabled or not.
func (s Schema) Has(key string) bool {
	return s.indexOf(key) >= 0
}

func (s Schema) indexOf(key string) int {
	for i, col := range s {
		if col.Key == key {
			return i
		}
	}
	return -1
}

func (s Schema) clone() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

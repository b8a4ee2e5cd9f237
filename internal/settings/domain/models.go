// Package domain holds a user's branding settings: company details, tax
// defaults, item columns and the invoice numbering counter.
package domain

import (
	"encoding/base64"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicely/internal/config"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	"github.com/smallbiznis/invoicely/internal/invoice/format"
	"gorm.io/datatypes"
)

// Settings is the per-user branding record. InvoiceCounter is the next unused
// sequence number and only moves through Repository.IncrementCounter.
type Settings struct {
	UserID          snowflake.ID                             `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CompanyName     string                                   `gorm:"type:text;not null;default:''" json:"company_name"`
	InvoiceTitle    string                                   `gorm:"type:text;not null;default:'INVOICE'" json:"invoice_title"`
	InvoicePrefix   string                                   `gorm:"type:text;not null;default:''" json:"invoice_prefix"`
	PhoneNumber     string                                   `gorm:"type:text;not null;default:''" json:"phone_number"`
	Website         string                                   `gorm:"type:text;not null;default:''" json:"website"`
	Email           string                                   `gorm:"type:text;not null;default:''" json:"email"`
	Logo            []byte                                   `json:"-"`
	LogoMIME        string                                   `gorm:"column:logo_mime;type:text;not null;default:''" json:"-"`
	GSTEnabled      bool                                     `gorm:"not null;default:false" json:"gst_enabled"`
	CGSTPercent     decimal.Decimal                          `gorm:"type:numeric(6,2);not null;default:0" json:"cgst_percent"`
	SGSTPercent     decimal.Decimal                          `gorm:"type:numeric(6,2);not null;default:0" json:"sgst_percent"`
	TermsConditions string                                   `gorm:"type:text;not null;default:''" json:"terms_conditions"`
	Template        string                                   `gorm:"column:invoice_template;type:text;not null;default:'classic'" json:"invoice_template"`
	InvoiceCounter  int64                                    `gorm:"not null;default:1" json:"invoice_counter"`
	Columns         datatypes.JSONType[invoicedomain.Schema] `gorm:"column:custom_columns;not null" json:"custom_columns"`
	CreatedAt       time.Time                                `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                                `gorm:"not null" json:"updated_at"`
}

func (Settings) TableName() string { return "branding_settings" }

// Defaults is the record created on a user's first access.
func Defaults(userID snowflake.ID, d config.BrandingDefaults, now time.Time) Settings {
	return Settings{
		UserID:          userID,
		CompanyName:     d.CompanyName,
		InvoiceTitle:    d.InvoiceTitle,
		InvoicePrefix:   d.InvoicePrefix,
		GSTEnabled:      d.GSTEnabled,
		CGSTPercent:     decimal.NewFromFloat(d.CGSTPercent),
		SGSTPercent:     decimal.NewFromFloat(d.SGSTPercent),
		TermsConditions: d.TermsConditions,
		Template:        d.Template,
		InvoiceCounter:  1,
		Columns:         datatypes.NewJSONType(invoicedomain.DefaultSchema()),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s Settings) Schema() invoicedomain.Schema {
	cols := s.Columns.Data()
	if len(cols) == 0 {
		return invoicedomain.DefaultSchema()
	}
	return cols
}

func (s *Settings) SetSchema(schema invoicedomain.Schema) {
	s.Columns = datatypes.NewJSONType(schema)
}

func (s Settings) Tax() invoicedomain.TaxConfig {
	return invoicedomain.NewTaxConfig(s.GSTEnabled, s.CGSTPercent, s.SGSTPercent)
}

// Sequence is the read-only numbering view used for previews.
func (s Settings) Sequence() format.Sequence {
	return format.NewSequence(s.InvoicePrefix, s.InvoiceCounter)
}

func (s Settings) Branding() invoicedomain.Branding {
	return invoicedomain.Branding{
		CompanyName:  s.CompanyName,
		InvoiceTitle: s.InvoiceTitle,
		Logo:         s.Logo,
		LogoMIME:     s.LogoMIME,
		Phone:        s.PhoneNumber,
		Website:      s.Website,
		Email:        s.Email,
	}
}

// Response is the API shape; the logo travels as a data URI.
type Response struct {
	Settings
	Logo         string `json:"company_logo,omitempty"`
	NextNumber   string `json:"next_invoice_number"`
	EnabledCount int    `json:"enabled_columns"`
}

func (s Settings) Response() Response {
	resp := Response{
		Settings:     s,
		NextNumber:   s.Sequence().Preview(),
		EnabledCount: len(s.Schema().EnabledColumns()),
	}
	if len(s.Logo) > 0 {
		resp.Logo = "data:" + s.LogoMIME + ";base64," + base64.StdEncoding.EncodeToString(s.Logo)
	}
	return resp
}

package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BrandingDefaults seeds the settings row created on a user's first access.
type BrandingDefaults struct {
	CompanyName     string  `mapstructure:"companyName"`
	InvoiceTitle    string  `mapstructure:"invoiceTitle"`
	InvoicePrefix   string  `mapstructure:"invoicePrefix"`
	GSTEnabled      bool    `mapstructure:"gstEnabled"`
	CGSTPercent     float64 `mapstructure:"cgstPercent"`
	SGSTPercent     float64 `mapstructure:"sgstPercent"`
	TermsConditions string  `mapstructure:"termsConditions"`
	Template        string  `mapstructure:"template"`
}

func DefaultBrandingDefaults() BrandingDefaults {
	return BrandingDefaults{
		CompanyName:     "Your Company Name",
		InvoiceTitle:    "INVOICE",
		InvoicePrefix:   "INV-",
		GSTEnabled:      false,
		CGSTPercent:     9,
		SGSTPercent:     9,
		TermsConditions: "Warranty will be valid only if the bill is present.",
		Template:        "classic",
	}
}

type BrandingDefaultsHolder struct {
	current atomic.Value // holds BrandingDefaults
}

// NewStaticBrandingDefaults returns a holder that never reloads.
func NewStaticBrandingDefaults(defaults BrandingDefaults) *BrandingDefaultsHolder {
	holder := &BrandingDefaultsHolder{}
	holder.current.Store(defaults)
	return holder
}

func NewBrandingDefaultsHolder(log *zap.Logger) (*BrandingDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("branding")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/invoicely")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICELY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBrandingDefaults()
	v.SetDefault("branding.companyName", defaults.CompanyName)
	v.SetDefault("branding.invoiceTitle", defaults.InvoiceTitle)
	v.SetDefault("branding.invoicePrefix", defaults.InvoicePrefix)
	v.SetDefault("branding.gstEnabled", defaults.GSTEnabled)
	v.SetDefault("branding.cgstPercent", defaults.CGSTPercent)
	v.SetDefault("branding.sgstPercent", defaults.SGSTPercent)
	v.SetDefault("branding.termsConditions", defaults.TermsConditions)
	v.SetDefault("branding.template", defaults.Template)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg BrandingDefaults
	if err := v.UnmarshalKey("branding", &cfg); err != nil {
		return nil, err
	}
	if err := validateBrandingDefaults(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBrandingDefaults(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BrandingDefaults
		if err := v.UnmarshalKey("branding", &updated); err != nil {
			log.Warn("branding defaults reload failed", zap.Error(err))
			return
		}
		if err := validateBrandingDefaults(updated); err != nil {
			log.Warn("invalid branding defaults ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("branding defaults reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BrandingDefaultsHolder) Get() BrandingDefaults {
	if h == nil {
		return DefaultBrandingDefaults()
	}
	return h.current.Load().(BrandingDefaults)
}

func validateBrandingDefaults(cfg BrandingDefaults) error {
	if strings.TrimSpace(cfg.InvoiceTitle) == "" {
		return errors.New("branding.invoiceTitle cannot be empty")
	}
	if cfg.CGSTPercent < 0 || cfg.SGSTPercent < 0 {
		return errors.New("branding tax percentages cannot be negative")
	}
	return nil
}

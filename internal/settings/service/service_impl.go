package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/cache"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/config"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	"github.com/smallbiznis/invoicely/internal/invoice/render"
	"github.com/smallbiznis/invoicely/internal/observability/metrics"
	settingsdomain "github.com/smallbiznis/invoicely/internal/settings/domain"
	"github.com/smallbiznis/invoicely/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Cached copies only serve rendering of stored invoices. Numbering and writes
// always go through Reload.
const settingsCacheTTL = 30 * time.Second

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Defaults *config.BrandingDefaultsHolder
	Repo     settingsdomain.Repository
	Metrics  *metrics.InvoiceMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	defaults *config.BrandingDefaultsHolder
	repo     settingsdomain.Repository
	metrics  *metrics.InvoiceMetrics
	cache    cache.Cache[snowflake.ID, settingsdomain.Settings]
}

func NewService(p Params) settingsdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settings.service"),
		clock:    p.Clock,
		defaults: p.Defaults,
		repo:     p.Repo,
		metrics:  p.Metrics,
		cache:    cache.NewTTLCacheWithClock[snowflake.ID, settingsdomain.Settings](p.Clock.Now),
	}
}

// Load returns the user's settings, creating the default record on first
// access. Storage failures are returned, never replaced by defaults.
func (s *Service) Load(ctx context.Context, userID snowflake.ID) (settingsdomain.Settings, error) {
	if cached, ok := s.cache.Get(userID); ok {
		s.metrics.RecordSettingsCache(true)
		return cached, nil
	}
	s.metrics.RecordSettingsCache(false)
	return s.Reload(ctx, userID)
}

func (s *Service) Reload(ctx context.Context, userID snowflake.ID) (settingsdomain.Settings, error) {
	found, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return settingsdomain.Settings{}, err
	}
	if found == nil {
		found, err = s.createDefaults(ctx, userID)
		if err != nil {
			return settingsdomain.Settings{}, err
		}
	}

	s.cache.Set(userID, *found, settingsCacheTTL)
	return *found, nil
}

func (s *Service) createDefaults(ctx context.Context, userID snowflake.ID) (*settingsdomain.Settings, error) {
	defaults := settingsdomain.Defaults(userID, s.defaults.Get(), s.clock.Now())
	err := s.repo.Insert(ctx, s.db, &defaults)
	if err == nil {
		s.log.Info("created default settings", zap.String("user_id", userID.String()))
		return &defaults, nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return nil, err
	}

	// A concurrent first access created the row.
	found, findErr := s.repo.FindByUser(ctx, s.db, userID)
	if findErr != nil {
		return nil, findErr
	}
	if found == nil {
		return nil, err
	}
	return found, nil
}

func (s *Service) Save(ctx context.Context, userID snowflake.ID, req settingsdomain.UpdateRequest) (settingsdomain.Settings, error) {
	return s.mutate(ctx, userID, func(current *settingsdomain.Settings) error {
		return applyUpdate(current, req)
	})
}

func (s *Service) AddColumn(ctx context.Context, userID snowflake.ID, req settingsdomain.AddColumnRequest) (settingsdomain.Settings, error) {
	return s.mutate(ctx, userID, func(current *settingsdomain.Settings) error {
		schema, err := current.Schema().AddColumn(req.Name)
		if err != nil {
			return err
		}
		current.SetSchema(schema)
		return nil
	})
}

func (s *Service) UpdateColumn(ctx context.Context, userID snowflake.ID, key string, req settingsdomain.ColumnUpdate) (settingsdomain.Settings, error) {
	return s.mutate(ctx, userID, func(current *settingsdomain.Settings) error {
		schema := current.Schema()
		if !schema.Has(key) {
			return invoicedomain.ErrColumnNotFound
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invoicedomain.ErrInvalidColumnName
			}
			schema = schema.Rename(key, name)
		}
		if req.Enabled != nil {
			schema = schema.SetEnabled(key, *req.Enabled)
		}
		current.SetSchema(schema)
		return nil
	})
}

func (s *Service) RemoveColumn(ctx context.Context, userID snowflake.ID, key string) (settingsdomain.Settings, error) {
	return s.mutate(ctx, userID, func(current *settingsdomain.Settings) error {
		schema, err := current.Schema().Remove(key)
		if err != nil {
			return err
		}
		current.SetSchema(schema)
		return nil
	})
}

func (s *Service) UploadLogo(ctx context.Context, userID snowflake.ID, data []byte) (settingsdomain.Settings, error) {
	mime, err := DetectLogo(data)
	if err != nil {
		return settingsdomain.Settings{}, err
	}
	return s.mutate(ctx, userID, func(current *settingsdomain.Settings) error {
		current.Logo = data
		current.LogoMIME = mime
		return nil
	})
}

func (s *Service) RemoveLogo(ctx context.Context, userID snowflake.ID) (settingsdomain.Settings, error) {
	return s.mutate(ctx, userID, func(current *settingsdomain.Settings) error {
		current.Logo = nil
		current.LogoMIME = ""
		return nil
	})
}

func (s *Service) Invalidate(userID snowflake.ID) {
	s.cache.Delete(userID)
}

// mutate loads the current record, applies fn and writes it back. The cache
// entry is dropped whatever the outcome.
func (s *Service) mutate(ctx context.Context, userID snowflake.ID, fn func(*settingsdomain.Settings) error) (settingsdomain.Settings, error) {
	defer s.Invalidate(userID)

	current, err := s.Reload(ctx, userID)
	if err != nil {
		return settingsdomain.Settings{}, err
	}
	if err := fn(&current); err != nil {
		return settingsdomain.Settings{}, err
	}
	current.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, &current); err != nil {
		s.log.Warn("save settings failed", zap.String("user_id", userID.String()), zap.Error(err))
		return settingsdomain.Settings{}, err
	}
	return current, nil
}

func applyUpdate(current *settingsdomain.Settings, req settingsdomain.UpdateRequest) error {
	if req.InvoiceTitle != nil {
		title := strings.TrimSpace(*req.InvoiceTitle)
		if title == "" {
			return settingsdomain.ErrInvalidTitle
		}
		current.InvoiceTitle = title
	}
	if req.Template != nil {
		id := strings.ToLower(strings.TrimSpace(*req.Template))
		if !isKnownTemplate(id) {
			return settingsdomain.ErrInvalidTemplate
		}
		current.Template = id
	}
	if req.CGSTPercent != nil {
		if req.CGSTPercent.IsNegative() {
			return settingsdomain.ErrInvalidTaxPercent
		}
		current.CGSTPercent = *req.CGSTPercent
	}
	if req.SGSTPercent != nil {
		if req.SGSTPercent.IsNegative() {
			return settingsdomain.ErrInvalidTaxPercent
		}
		current.SGSTPercent = *req.SGSTPercent
	}
	if req.GSTEnabled != nil {
		current.GSTEnabled = *req.GSTEnabled
	}
	assignTrimmed(&current.CompanyName, req.CompanyName)
	assignTrimmed(&current.InvoicePrefix, req.InvoicePrefix)
	assignTrimmed(&current.PhoneNumber, req.PhoneNumber)
	assignTrimmed(&current.Website, req.Website)
	assignTrimmed(&current.Email, req.Email)
	if req.TermsConditions != nil {
		current.TermsConditions = *req.TermsConditions
	}
	return nil
}

func assignTrimmed(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

func isKnownTemplate(id string) bool {
	for _, known := range render.TemplateIDs() {
		if id == known {
			return true
		}
	}
	return false
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	settingsdomain "github.com/smallbiznis/invoicely/internal/settings/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() settingsdomain.Repository {
	return &repo{}
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*settingsdomain.Settings, error) {
	var s settingsdomain.Settings
	err := db.WithContext(ctx).Where("user_id = ?", userID).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *settingsdomain.Settings) error {
	return db.WithContext(ctx).Create(s).Error
}

// Update writes every editable column. The counter is left alone.
func (r *repo) Update(ctx context.Context, db *gorm.DB, s *settingsdomain.Settings) error {
	res := db.WithContext(ctx).
		Model(&settingsdomain.Settings{}).
		Where("user_id = ?", s.UserID).
		Select(
			"company_name", "invoice_title", "invoice_prefix", "phone_number", "website", "email",
			"logo", "logo_mime", "gst_enabled", "cgst_percent", "sgst_percent",
			"terms_conditions", "invoice_template", "custom_columns", "updated_at",
		).
		Updates(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return settingsdomain.ErrSettingsNotFound
	}
	return nil
}

func (r *repo) IncrementCounter(ctx context.Context, db *gorm.DB, userID snowflake.ID, previous int64, now time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE branding_settings
		 SET invoice_counter = invoice_counter + 1, updated_at = ?
		 WHERE user_id = ? AND invoice_counter = ?`,
		now,
		userID,
		previous,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return settingsdomain.ErrCounterConflict
	}
	return nil
}

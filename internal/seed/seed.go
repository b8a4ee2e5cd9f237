package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
	"github.com/smallbiznis/invoicely/internal/auth/password"
	"github.com/smallbiznis/invoicely/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSuperAdminName = "Super Admin"

var ErrBootstrapPasswordRequired = errors.New("bootstrap superadmin password is required")

// EnsureSuperAdmin makes sure the configured bootstrap account exists, is
// active and holds the superadmin role. An existing password is never reset.
func EnsureSuperAdmin(db *gorm.DB, cfg config.BootstrapConfig, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	email := strings.ToLower(strings.TrimSpace(cfg.SuperAdminEmail))
	if email == "" {
		log.Info("bootstrap superadmin not configured")
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var user authdomain.User
		err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
		if err == nil {
			if user.Role == authdomain.RoleSuperAdmin && user.Status == authdomain.StatusActive && user.AccessExpiresAt == nil {
				return nil
			}
			log.Info("promoting bootstrap superadmin", zap.String("user_id", user.ID.String()))
			return tx.WithContext(ctx).
				Model(&authdomain.User{}).
				Where("id = ?", user.ID).
				Updates(map[string]any{
					"role":              authdomain.RoleSuperAdmin,
					"status":            authdomain.StatusActive,
					"access_expires_at": nil,
					"updated_at":        now,
				}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if strings.TrimSpace(cfg.SuperAdminPassword) == "" {
			return ErrBootstrapPasswordRequired
		}
		hashed, err := password.Hash(cfg.SuperAdminPassword)
		if err != nil {
			return err
		}
		user = authdomain.User{
			ID:           node.Generate(),
			Email:        email,
			FullName:     defaultSuperAdminName,
			PasswordHash: hashed,
			Role:         authdomain.RoleSuperAdmin,
			Status:       authdomain.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
		log.Info("bootstrap superadmin created", zap.String("user_id", user.ID.String()))
		return nil
	})
}

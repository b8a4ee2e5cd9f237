package migration

import (
	"github.com/smallbiznis/invoicely/internal/config"
	"github.com/smallbiznis/invoicely/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates the schema and seeds the bootstrap superadmin before the
// server starts taking requests.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Apply(conn, cfg.DBType, log); err != nil {
			return err
		}
		return seed.EnsureSuperAdmin(conn, cfg.Bootstrap, log)
	}),
)

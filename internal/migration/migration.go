package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	settingsdomain "github.com/smallbiznis/invoicely/internal/settings/domain"
	signupdomain "github.com/smallbiznis/invoicely/internal/signup/domain"
	"github.com/smallbiznis/invoicely/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var sqlFiles embed.FS

var errNoDatabase = errors.New("migration database handle is required")

// Apply brings the schema up to date. Postgres runs the versioned SQL files;
// sqlite and mysql are built from the gorm models.
func Apply(conn *gorm.DB, dbType string, log *zap.Logger) error {
	if conn == nil {
		return errNoDatabase
	}
	if log == nil {
		log = zap.NewNop()
	}
	if dbType != db.TypePostgres {
		if err := AutoMigrate(conn); err != nil {
			return err
		}
		log.Info("schema synced from models", zap.String("db_type", dbType))
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB, log)
}

// RunMigrations applies the embedded Postgres migrations and logs the
// resulting version.
func RunMigrations(sqlDB *sql.DB, log *zap.Logger) error {
	if sqlDB == nil {
		return errNoDatabase
	}

	source, err := iofs.New(sqlFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	m.Log = migrateLogger{log: log.Named("migrate")}

	// m.Close would also close the shared *sql.DB, so it is never called.
	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Models lists the tables owned by the application, in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.Session{},
		&signupdomain.SignupRequest{},
		&settingsdomain.Settings{},
		&invoicedomain.Invoice{},
	}
}

func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errNoDatabase
	}
	return conn.AutoMigrate(Models()...)
}

// migrateLogger routes golang-migrate output into zap at debug level.
type migrateLogger struct {
	log *zap.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.log.Core().Enabled(zap.DebugLevel)
}

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
)

var dialectors = map[string]func(dsn string) gorm.Dialector{
	TypePostgres: postgres.Open,
	TypeMySQL:    mysql.Open,
	TypeSQLite:   sqlite.Open,
}

// Dialect picks the gorm driver for cfg.Type.
func Dialect(cfg Config) (gorm.Dialector, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	return dialectors[cfg.Type](dsn), nil
}

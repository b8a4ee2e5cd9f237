package db

import (
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/smallbiznis/invoicely/internal/config"
)

// Config is the connection and pool setup for one database.
type Config struct {
	Type     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	// Path is the sqlite file; other drivers ignore it.
	Path string

	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func FromAppConfig(cfg config.Config) Config {
	return Config{
		Type:            strings.ToLower(strings.TrimSpace(cfg.DBType)),
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		Path:            cfg.DBPath,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Second,
	}
}

// DSN renders the driver-specific connection string. All drivers are pinned
// to UTC so stored issue and due dates never shift.
func (c Config) DSN() (string, error) {
	switch c.Type {
	case TypePostgres:
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			c.Host, c.User, c.Password, c.Name, c.Port, sslMode), nil
	case TypeMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, net.JoinHostPort(c.Host, c.Port), c.Name), nil
	case TypeSQLite:
		if c.Path == "" {
			return "invoicely.db", nil
		}
		return c.Path, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", c.Type)
	}
}

// applyPool copies the pool limits onto sqlDB. sqlite serialises writers, so
// it always gets a single connection to keep the invoice counter update from
// failing with SQLITE_BUSY.
func (c Config) applyPool(sqlDB *sql.DB) {
	if c.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdleConn)
	}
	switch {
	case c.Type == TypeSQLite:
		sqlDB.SetMaxOpenConns(1)
	case c.MaxOpenConn > 0:
		sqlDB.SetMaxOpenConns(c.MaxOpenConn)
	}
	if c.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
	if c.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(c.ConnMaxIdleTime)
	}
}

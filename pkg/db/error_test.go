package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":             {nil, false},
		"gorm translated": {fmt.Errorf("save: %w", gorm.ErrDuplicatedKey), true},
		"pg typed":        {&pgconn.PgError{Code: "23505"}, true},
		"pg other code":   {&pgconn.PgError{Code: "23503"}, false},
		"mysql text":      {errors.New("Error 1062 (23000): Duplicate entry"), true},
		"sqlite text":     {errors.New("UNIQUE constraint failed: invoices.invoice_number"), true},
		"unrelated":       {errors.New("connection refused"), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestIsRetryableTxErr(t *testing.T) {
	assert.True(t, IsRetryableTxErr(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryableTxErr(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsRetryableTxErr(errors.New("database is locked")))
	assert.False(t, IsRetryableTxErr(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryableTxErr(nil))
}

func TestConfigDSN(t *testing.T) {
	pg, err := Config{Type: TypePostgres, Host: "db", Port: "5432", Name: "inv", User: "u", Password: "p"}.DSN()
	assert.NoError(t, err)
	assert.Equal(t, "host=db user=u password=p dbname=inv port=5432 sslmode=disable TimeZone=UTC", pg)

	my, err := Config{Type: TypeMySQL, Host: "db", Port: "3306", Name: "inv", User: "u", Password: "p"}.DSN()
	assert.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/inv?charset=utf8mb4&parseTime=True&loc=UTC", my)

	lite, err := Config{Type: TypeSQLite}.DSN()
	assert.NoError(t, err)
	assert.Equal(t, "invoicely.db", lite)

	_, err = Config{Type: "oracle"}.DSN()
	assert.Error(t, err)
	_, err = Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

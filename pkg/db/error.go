package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type errKind int

const (
	kindOther errKind = iota
	kindDuplicate
	kindRetryable
)

var pgCodes = map[string]errKind{
	"23505": kindDuplicate, // unique_violation
	"40001": kindRetryable, // serialization_failure
	"40P01": kindRetryable, // deadlock_detected
	"55P03": kindRetryable, // lock_not_available
}

// Drivers that do not expose typed errors through gorm are matched on text.
var messageKinds = []struct {
	fragment string
	kind     errKind
}{
	{"duplicate key value violates unique constraint", kindDuplicate},
	{"Error 1062", kindDuplicate},
	{"UNIQUE constraint failed", kindDuplicate},
	{"Error 1213", kindRetryable},
	{"database is locked", kindRetryable},
}

func classify(err error) errKind {
	if err == nil {
		return kindOther
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return kindDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgCodes[pgErr.Code]
	}
	msg := err.Error()
	for _, m := range messageKinds {
		if strings.Contains(msg, m.fragment) {
			return m.kind
		}
	}
	return kindOther
}

// IsDuplicateKeyErr reports a unique constraint violation on any supported
// driver, e.g. two saves claiming the same invoice number.
func IsDuplicateKeyErr(err error) bool {
	return classify(err) == kindDuplicate
}

// IsRetryableTxErr reports serialization, deadlock and lock failures that a
// caller may retry.
func IsRetryableTxErr(err error) bool {
	return classify(err) == kindRetryable
}

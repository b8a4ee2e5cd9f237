package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicely/internal/config"
)

const (
	keyPDFExport   = "invoicely:pdf:export:%s"
	keyInvoiceSave = "invoicely:invoice:save:%s"

	defaultSaveLockTTL = 10 * time.Second
)

// InvoiceGuard throttles PDF exports and serialises invoice saves per user.
// A nil or disabled guard allows everything; the database remains the
// authority on counter state.
type InvoiceGuard struct {
	bucket *TokenBucket
	locker *Locker

	exportRate  float64
	exportBurst int
	lockTTL     time.Duration
}

func NewInvoiceGuard(cfg config.Config, client redis.UniversalClient) *InvoiceGuard {
	if client == nil {
		return nil
	}
	return &InvoiceGuard{
		bucket:      NewTokenBucket(client),
		locker:      NewLocker(client),
		exportRate:  cfg.PDF.ExportRate,
		exportBurst: cfg.PDF.ExportBurst,
		lockTTL:     defaultSaveLockTTL,
	}
}

func (g *InvoiceGuard) Enabled() bool {
	return g != nil && g.bucket != nil
}

// AllowExport takes a token from the user's export bucket.
func (g *InvoiceGuard) AllowExport(ctx context.Context, userID snowflake.ID) (*RateLimitResult, error) {
	if !g.Enabled() || g.exportRate <= 0 || g.exportBurst <= 0 {
		return &RateLimitResult{Allowed: true}, nil
	}
	return g.bucket.Allow(ctx, fmt.Sprintf(keyPDFExport, userID.String()), g.exportRate, g.exportBurst)
}

// LockSave takes the per-user save lease. It fails with ErrLockHeld while
// another save for the same user is running. A disabled guard returns a nil
// lease.
func (g *InvoiceGuard) LockSave(ctx context.Context, userID snowflake.ID) (*Lease, error) {
	if !g.Enabled() {
		return nil, nil
	}
	return g.locker.Acquire(ctx, fmt.Sprintf(keyInvoiceSave, userID.String()), g.lockTTL)
}

package authorization

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRoleMatrix(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		role    string
		object  string
		action  string
		allowed bool
	}{
		{"user creates invoice", "user", ObjectInvoice, ActionInvoiceCreate, true},
		{"user updates settings", "user", ObjectSettings, ActionSettingsUpdate, true},
		{"user cannot view all invoices", "user", ObjectInvoice, ActionInvoiceViewAll, false},
		{"user cannot open dashboard", "user", ObjectDashboard, ActionDashboardView, false},
		{"admin views all invoices", "admin", ObjectInvoice, ActionInvoiceViewAll, true},
		{"admin inherits user actions", "admin", ObjectInvoice, ActionInvoiceExport, true},
		{"admin cannot review signups", "admin", ObjectAccount, ActionAccountReview, false},
		{"superadmin reviews signups", "superadmin", ObjectAccount, ActionAccountReview, true},
		{"superadmin inherits admin actions", "superadmin", ObjectDashboard, ActionDashboardView, true},
		{"unknown role gets nothing", "guest", ObjectInvoice, ActionInvoiceView, false},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userID := snowflake.ID(1000 + i)
			err := svc.Authorize(ctx, userID, tc.role, tc.object, tc.action)
			if tc.allowed {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestAuthorizeFollowsRoleChange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := snowflake.ID(42)

	require.NoError(t, svc.Authorize(ctx, userID, "admin", ObjectInvoice, ActionInvoiceViewAll))

	err := svc.Authorize(ctx, userID, "user", ObjectInvoice, ActionInvoiceViewAll)
	require.ErrorIs(t, err, ErrForbidden)
	require.True(t, svc.Allowed(ctx, userID, "user", ObjectInvoice, ActionInvoiceView))
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		userID snowflake.ID
		role   string
		object string
		action string
		want   error
	}{
		{0, "user", ObjectInvoice, ActionInvoiceView, ErrInvalidActor},
		{1, " ", ObjectInvoice, ActionInvoiceView, ErrInvalidRole},
		{1, "user", "", ActionInvoiceView, ErrInvalidObject},
		{1, "user", ObjectInvoice, "", ErrInvalidAction},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, tc.userID, tc.role, tc.object, tc.action)
		if !errors.Is(err, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, err)
		}
	}
}

func TestNewEnforcerIsIdempotent(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	first, err := NewEnforcer(conn)
	require.NoError(t, err)
	second, err := NewEnforcer(conn)
	require.NoError(t, err)

	p1, err := first.GetPolicy()
	require.NoError(t, err)
	p2, err := second.GetPolicy()
	require.NoError(t, err)
	require.Len(t, p2, len(p1))
}

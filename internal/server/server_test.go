package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
	authrepository "github.com/smallbiznis/invoicely/internal/auth/repository"
	authservice "github.com/smallbiznis/invoicely/internal/auth/service"
	"github.com/smallbiznis/invoicely/internal/auth/session"
	"github.com/smallbiznis/invoicely/internal/authorization"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/config"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	"github.com/smallbiznis/invoicely/internal/invoice/render"
	invoicerepository "github.com/smallbiznis/invoicely/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/invoicely/internal/invoice/service"
	"github.com/smallbiznis/invoicely/internal/providers/pdf"
	settingsdomain "github.com/smallbiznis/invoicely/internal/settings/domain"
	settingsrepository "github.com/smallbiznis/invoicely/internal/settings/repository"
	settingsservice "github.com/smallbiznis/invoicely/internal/settings/service"
	signupdomain "github.com/smallbiznis/invoicely/internal/signup/domain"
	signuprepository "github.com/smallbiznis/invoicely/internal/signup/repository"
	signupservice "github.com/smallbiznis/invoicely/internal/signup/service"
	"github.com/smallbiznis/invoicely/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedExporter struct{}

func (fixedExporter) Name() string { return "fixed" }

func (fixedExporter) Export(context.Context, pdf.Source) []byte {
	return []byte("%PDF-1.4 test")
}

type testServer struct {
	engine *gin.Engine
	auth   authdomain.Service
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&signupdomain.SignupRequest{},
		&settingsdomain.Settings{},
		&invoicedomain.Invoice{},
	))

	log := zap.NewNop()
	cfg := config.Config{SessionTTL: time.Hour}
	clk := clock.SystemClock{}
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	users, sessions := authrepository.New(conn)
	authSvc := authservice.New(authservice.Params{
		Log:         log,
		Cfg:         cfg,
		Clock:       clk,
		Repo:        users,
		SessionRepo: sessions,
		GenID:       node,
	})

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})

	settingsRepo := settingsrepository.Provide()
	settingsSvc := settingsservice.NewService(settingsservice.Params{
		DB:       conn,
		Log:      log,
		Clock:    clk,
		Defaults: config.NewStaticBrandingDefaults(config.DefaultBrandingDefaults()),
		Repo:     settingsRepo,
	})

	invoiceSvc := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:           conn,
		Log:          log,
		Clock:        clk,
		GenID:        node,
		Repo:         invoicerepository.Provide(),
		Settings:     settingsSvc,
		SettingsRepo: settingsRepo,
		Renderer:     render.NewRenderer(),
		Exporter:     fixedExporter{},
		Authz:        authz,
	})

	signupSvc := signupservice.New(signupservice.Params{
		DB:          conn,
		Log:         log,
		Clock:       clk,
		GenID:       node,
		Requests:    signuprepository.Provide(conn),
		Users:       users,
		SessionRepo: sessions,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		Log:         log,
		Authsvc:     authSvc,
		Sessions:    session.NewManager(cfg, clk),
		AuthzSvc:    authz,
		SettingsSvc: settingsSvc,
		InvoiceSvc:  invoiceSvc,
		SignupSvc:   signupSvc,
	})

	return testServer{engine: engine, auth: authSvc}
}

func (s testServer) createUser(t *testing.T, email, role string) {
	t.Helper()
	_, err := s.auth.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:       email,
		Password:    "correct-horse",
		FullName:    "Test " + role,
		CompanyName: "Test Co",
		Role:        role,
		Status:      authdomain.StatusActive,
	})
	require.NoError(t, err)
}

func (s testServer) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func (s testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	return decode[errorResponse](t, rec).Error
}

func invoiceBody() map[string]any {
	return map[string]any{
		"client_name": "Acme Traders",
		"issue_date":  "2024-03-15",
		"items": []map[string]any{
			{"description": "Widget", "quantity": 2, "unit_price": "150.50"},
			{"description": "Service", "quantity": 1, "unit_price": 99.5},
		},
	}
}

func TestLoginSetsCookieAndMeReturnsUser(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "owner@example.com", authdomain.RoleUser)

	cookie := srv.login(t, "owner@example.com", "correct-horse")
	assert.True(t, cookie.HttpOnly)

	rec := srv.do(t, http.MethodGet, "/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}](t, rec)
	assert.Equal(t, "owner@example.com", body.User.Email)
	assert.Equal(t, authdomain.RoleUser, body.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "owner@example.com", authdomain.RoleUser)

	rec := srv.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "owner@example.com", "password": "nope"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorType(t, rec).Type)
}

func TestAPIRequiresSession(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/invoices", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorType(t, rec).Type)

	rec = srv.do(t, http.MethodGet, "/api/invoices", nil, &http.Cookie{Name: session.DefaultCookieName, Value: "bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvoiceLifecycle(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "owner@example.com", authdomain.RoleUser)
	cookie := srv.login(t, "owner@example.com", "correct-horse")

	rec := srv.do(t, http.MethodGet, "/api/invoices/next-number", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	next := decode[invoicedomain.NextNumber](t, rec)
	assert.Equal(t, "INV-0001", next.InvoiceNumber)

	rec = srv.do(t, http.MethodPost, "/api/invoices/preview?format=json", invoiceBody(), cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[struct {
		InvoiceNumber string `json:"invoice_number"`
		DueDate       string `json:"due_date"`
		Totals        struct {
			Subtotal   string `json:"subtotal"`
			GrandTotal string `json:"grand_total"`
		} `json:"totals"`
	}](t, rec)
	assert.Equal(t, "INV-0001", preview.InvoiceNumber)
	assert.Equal(t, "2024-04-14", preview.DueDate)
	assert.Equal(t, "400.5", preview.Totals.Subtotal)
	assert.Equal(t, "400.5", preview.Totals.GrandTotal)

	rec = srv.do(t, http.MethodPost, "/api/invoices/preview", invoiceBody(), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Acme Traders")

	rec = srv.do(t, http.MethodPost, "/api/invoices", invoiceBody(), cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		ID            string `json:"id"`
		InvoiceNumber string `json:"invoice_number"`
		Status        string `json:"invoice_status"`
	}](t, rec)
	assert.Equal(t, "INV-0001", created.InvoiceNumber)
	assert.Equal(t, "draft", created.Status)

	rec = srv.do(t, http.MethodGet, "/api/invoices/next-number", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "INV-0002", decode[invoicedomain.NextNumber](t, rec).InvoiceNumber)

	rec = srv.do(t, http.MethodGet, "/api/invoices", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Invoices []struct {
			InvoiceNumber string `json:"invoice_number"`
		} `json:"invoices"`
	}](t, rec)
	require.Len(t, list.Invoices, 1)
	assert.Equal(t, "INV-0001", list.Invoices[0].InvoiceNumber)

	rec = srv.do(t, http.MethodPatch, "/api/invoices/"+created.ID+"/status", map[string]string{"status": "paid"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"invoice_status":"paid"`)

	rec = srv.do(t, http.MethodGet, "/api/invoices/"+created.ID+"/render?template=modern", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "INV-0001")

	rec = srv.do(t, http.MethodGet, "/api/invoices/"+created.ID+"/pdf", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="INV-0001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 test", rec.Body.String())
}

func TestInvoiceErrorsMapToStatusCodes(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "owner@example.com", authdomain.RoleUser)
	srv.createUser(t, "other@example.com", authdomain.RoleUser)
	owner := srv.login(t, "owner@example.com", "correct-horse")
	other := srv.login(t, "other@example.com", "correct-horse")

	rec := srv.do(t, http.MethodPost, "/api/invoices", invoiceBody(), owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[struct {
		ID string `json:"id"`
	}](t, rec)

	rec = srv.do(t, http.MethodGet, "/api/invoices/"+created.ID, nil, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorType(t, rec).Type)

	rec = srv.do(t, http.MethodGet, "/api/invoices/not-a-number", nil, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := errorType(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_id", payload.Errors[0].Code)

	rec = srv.do(t, http.MethodPatch, "/api/invoices/"+created.ID+"/status", map[string]string{"status": "void"}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload = errorType(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_status", payload.Errors[0].Code)

	body := invoiceBody()
	body["issue_date"] = "15/03/2024"
	rec = srv.do(t, http.MethodPost, "/api/invoices", body, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", errorType(t, rec).Errors[0].Code)

	body = invoiceBody()
	body["items"] = []map[string]any{{"description": "Huge", "quantity": "1e400", "unit_price": 1}}
	rec = srv.do(t, http.MethodPost, "/api/invoices/preview?format=json", body, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = srv.do(t, http.MethodPost, "/api/invoices", body, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_amount", errorType(t, rec).Errors[0].Code)
}

func TestSettingsColumns(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "owner@example.com", authdomain.RoleUser)
	cookie := srv.login(t, "owner@example.com", "correct-horse")

	rec := srv.do(t, http.MethodGet, "/api/settings", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/settings/columns", map[string]string{"name": "HSN Code"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"hsn_code"`)

	rec = srv.do(t, http.MethodPost, "/api/settings/columns", map[string]string{"name": "HSN Code"}, cookie)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorType(t, rec).Type)

	rec = srv.do(t, http.MethodPost, "/api/settings/columns", map[string]string{"name": "Amount"}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_column_name", errorType(t, rec).Errors[0].Code)

	rec = srv.do(t, http.MethodDelete, "/api/settings/columns/hsn_code", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"hsn_code"`)

	rec = srv.do(t, http.MethodPut, "/api/settings/logo", nil, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", errorType(t, rec).Errors[0].Code)
}

func TestAdminRoutesAreGated(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "owner@example.com", authdomain.RoleUser)
	srv.createUser(t, "admin@example.com", authdomain.RoleAdmin)
	user := srv.login(t, "owner@example.com", "correct-horse")
	admin := srv.login(t, "admin@example.com", "correct-horse")

	rec := srv.do(t, http.MethodGet, "/admin/dashboard", nil, user)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorType(t, rec).Type)

	rec = srv.do(t, http.MethodPost, "/api/invoices", invoiceBody(), user)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodGet, "/admin/dashboard", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decode[struct {
		TotalInvoices int64 `json:"total_invoices"`
		Draft         int64 `json:"draft"`
	}](t, rec)
	assert.EqualValues(t, 1, stats.TotalInvoices)
	assert.EqualValues(t, 1, stats.Draft)

	rec = srv.do(t, http.MethodGet, "/admin/signups", nil, admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSignupApprovalFlow(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "root@example.com", authdomain.RoleSuperAdmin)
	root := srv.login(t, "root@example.com", "correct-horse")

	rec := srv.do(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":        "new@example.com",
		"password":     "brand-new-pass",
		"full_name":    "Priya Sharma",
		"company_name": "Sharma Traders",
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
	submitted := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, rec)
	assert.Equal(t, signupdomain.RequestPending, submitted.Status)

	rec = srv.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "new@example.com", "password": "brand-new-pass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/admin/signups", nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "new@example.com")

	rec = srv.do(t, http.MethodPost, "/admin/signups/"+submitted.ID+"/approve", map[string]int{"months": 0}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/admin/signups/"+submitted.ID+"/approve", map[string]int{"months": 0}, root)
	assert.Equal(t, http.StatusConflict, rec.Code)

	cookie := srv.login(t, "new@example.com", "brand-new-pass")
	rec = srv.do(t, http.MethodGet, "/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sharma Traders")
}

func TestSuspendRevokesAccess(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "root@example.com", authdomain.RoleSuperAdmin)
	srv.createUser(t, "owner@example.com", authdomain.RoleUser)
	root := srv.login(t, "root@example.com", "correct-horse")
	user := srv.login(t, "owner@example.com", "correct-horse")

	rec := srv.do(t, http.MethodGet, "/admin/users?role=user", nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[struct {
		Users []struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"users"`
	}](t, rec)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "owner@example.com", users.Users[0].Email)

	rec = srv.do(t, http.MethodPost, "/admin/users/"+users.Users[0].ID+"/suspend", nil, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/auth/me", nil, user)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "owner@example.com", "password": "correct-horse"}, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "account_suspended", errorType(t, rec).Type)
}

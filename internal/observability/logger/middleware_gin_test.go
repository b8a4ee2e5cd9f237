package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedEngine(t *testing.T, classifier func(error) (string, string)) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		Logger:          zap.New(core),
		ErrorClassifier: classifier,
	}))
	return r, logs
}

func TestGinMiddlewareSetsRequestID(t *testing.T) {
	r, logs := newLoggedEngine(t, nil)
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	requestID := w.Header().Get("X-Request-Id")
	require.NotEmpty(t, requestID)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, requestID, entry.ContextMap()["request_id"])
}

func TestGinMiddlewareKeepsInboundRequestID(t *testing.T) {
	r, _ := newLoggedEngine(t, nil)
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
}

func TestGinMiddlewareLogsInvoiceAndErrorFields(t *testing.T) {
	r, logs := newLoggedEngine(t, func(error) (string, string) {
		return "not_found", "invoice_not_found"
	})
	r.GET("/api/invoices/:id", func(c *gin.Context) {
		c.Set("user_id", "77")
		c.Set("template_id", "modern")
		_ = c.Error(errors.New("invoice_not_found"))
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/invoices/123", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "/api/invoices/:id", fields["route"])
	assert.Equal(t, "123", fields["invoice_id"])
	assert.Equal(t, "modern", fields["template_id"])
	assert.Equal(t, "77", fields["user_id"])
	assert.Equal(t, "not_found", fields["error_type"])
	assert.Equal(t, "invoice_not_found", fields["error_code"])
}

func TestGinMiddlewareProbesLogAtDebug(t *testing.T) {
	r, logs := newLoggedEngine(t, nil)
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
}

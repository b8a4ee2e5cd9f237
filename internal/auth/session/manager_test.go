package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	return c, rec
}

func TestReadTokenFromCookie(t *testing.T) {
	m := NewManager(config.Config{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: " abc "})
	c, _ := newContext(req)

	token, ok := m.ReadToken(c)
	require.True(t, ok)
	assert.Equal(t, "abc", token)
}

func TestReadTokenFromBearerHeader(t *testing.T) {
	m := NewManager(config.Config{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer xyz")
	c, _ := newContext(req)

	token, ok := m.ReadToken(c)
	require.True(t, ok)
	assert.Equal(t, "xyz", token)
}

func TestReadTokenMissing(t *testing.T) {
	m := NewManager(config.Config{}, nil)
	for _, header := range []string{"", "Bearer ", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		c, _ := newContext(req)
		_, ok := m.ReadToken(c)
		assert.False(t, ok, header)
	}
}

func TestSetUsesClockForMaxAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(config.Config{AuthCookieSecure: true}, clock.NewFakeClock(now))
	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	m.Set(c, "tok", now.Add(2*time.Hour))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.Equal(t, 7200, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
}

func TestClearExpiresCookie(t *testing.T) {
	m := NewManager(config.Config{}, nil)
	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	m.Clear(c)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

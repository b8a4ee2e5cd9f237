package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	obscontext "github.com/smallbiznis/invoicely/internal/observability/context"
)

const (
	contextUserIDKey    = "user_id"
	contextPrincipalKey = "principal"
)

// AuthRequired resolves the session cookie into a principal. Accounts that
// are pending, suspended or past their access period are rejected here too.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		userID := principal.User.ID.String()
		c.Set(contextUserIDKey, userID)
		c.Set(contextPrincipalKey, principal)
		ctx := obscontext.WithUserID(c.Request.Context(), userID)
		ctx = obscontext.WithActor(ctx, principal.User.Role, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorizeAction gates a route on a casbin permission for the caller's role.
func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal.User.ID, principal.User.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) redirectIfLoggedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			c.Next()
			return
		}
		if _, err := s.authsvc.Authenticate(c.Request.Context(), token); err != nil {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, "/invoices")
		c.Abort()
	}
}

func principalFromContext(c *gin.Context) (*authdomain.Principal, bool) {
	raw, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := raw.(*authdomain.Principal)
	if !ok || principal == nil || principal.User == nil {
		return nil, false
	}
	return principal, true
}

func currentUserID(c *gin.Context) (snowflake.ID, bool) {
	principal, ok := principalFromContext(c)
	if !ok {
		return 0, false
	}
	return principal.User.ID, true
}

func currentActor(c *gin.Context) (invoicedomain.Actor, bool) {
	principal, ok := principalFromContext(c)
	if !ok {
		return invoicedomain.Actor{}, false
	}
	return invoicedomain.Actor{UserID: principal.User.ID, Role: principal.User.Role}, true
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil || id == 0 {
		return 0, newValidationError(name, "invalid_id", "invalid id")
	}
	return id, nil
}

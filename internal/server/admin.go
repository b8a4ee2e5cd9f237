package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
	signupdomain "github.com/smallbiznis/invoicely/internal/signup/domain"
)

type accessPeriodRequest struct {
	Months int `json:"months"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) GetDashboard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	stats, err := s.invoiceSvc.Dashboard(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) ListSignupRequests(c *gin.Context) {
	status := strings.TrimSpace(c.DefaultQuery("status", signupdomain.RequestPending))
	requests, err := s.signupsvc.List(c.Request.Context(), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signups": requests})
}

func (s *Server) ApproveSignupRequest(c *gin.Context) {
	reviewerID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req accessPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.signupsvc.Approve(c.Request.Context(), reviewerID, id, req.Months)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) RejectSignupRequest(c *gin.Context) {
	reviewerID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rejected, err := s.signupsvc.Reject(c.Request.Context(), reviewerID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signup": rejected})
}

func (s *Server) ListUsers(c *gin.Context) {
	users, err := s.authsvc.ListUsers(c.Request.Context(), authdomain.UserFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Role:   strings.TrimSpace(c.Query("role")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) SetUserRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.manageUser(c, func(actorID, userID snowflake.ID) (*authdomain.User, error) {
		return s.signupsvc.SetRole(c.Request.Context(), actorID, userID, strings.TrimSpace(req.Role))
	})
}

func (s *Server) SuspendUser(c *gin.Context) {
	s.manageUser(c, func(actorID, userID snowflake.ID) (*authdomain.User, error) {
		return s.signupsvc.Suspend(c.Request.Context(), actorID, userID)
	})
}

func (s *Server) ReactivateUser(c *gin.Context) {
	s.manageUser(c, func(actorID, userID snowflake.ID) (*authdomain.User, error) {
		return s.signupsvc.Reactivate(c.Request.Context(), actorID, userID)
	})
}

func (s *Server) ExtendUserAccess(c *gin.Context) {
	var req accessPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.manageUser(c, func(actorID, userID snowflake.ID) (*authdomain.User, error) {
		return s.signupsvc.Extend(c.Request.Context(), actorID, userID, req.Months)
	})
}

func (s *Server) manageUser(c *gin.Context, fn func(actorID, userID snowflake.ID) (*authdomain.User, error)) {
	actorID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	userID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	user, err := fn(actorID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

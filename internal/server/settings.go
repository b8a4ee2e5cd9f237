package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/smallbiznis/invoicely/internal/settings/domain"
	settingsservice "github.com/smallbiznis/invoicely/internal/settings/service"
)

const logoFormField = "logo"

func (s *Server) GetSettings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	settings, err := s.settingsSvc.Load(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.Response())
}

func (s *Server) UpdateSettings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req settingsdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	settings, err := s.settingsSvc.Save(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.Response())
}

func (s *Server) AddColumn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req settingsdomain.AddColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	settings, err := s.settingsSvc.AddColumn(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, settings.Response())
}

func (s *Server) UpdateColumn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req settingsdomain.ColumnUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	settings, err := s.settingsSvc.UpdateColumn(c.Request.Context(), userID, c.Param("key"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.Response())
}

func (s *Server) RemoveColumn(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	settings, err := s.settingsSvc.RemoveColumn(c.Request.Context(), userID, c.Param("key"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.Response())
}

// UploadLogo takes a multipart "logo" file. Reading stops one byte past the
// limit so oversized uploads are refused without buffering them whole.
func (s *Server) UploadLogo(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	header, err := c.FormFile(logoFormField)
	if err != nil {
		AbortWithError(c, newValidationError(logoFormField, "required", "logo file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(file, settingsservice.MaxLogoBytes+1))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	settings, err := s.settingsSvc.UploadLogo(c.Request.Context(), userID, data)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.Response())
}

func (s *Server) RemoveLogo(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	settings, err := s.settingsSvc.RemoveLogo(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.Response())
}

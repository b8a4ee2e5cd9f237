package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
)

const htmlContentType = "text/html; charset=utf-8"

type draftResponse struct {
	InvoiceNumber string                   `json:"invoice_number"`
	ClientName    string                   `json:"client_name"`
	IssueDate     string                   `json:"issue_date"`
	DueDate       string                   `json:"due_date"`
	Template      string                   `json:"template"`
	Columns       invoicedomain.Schema     `json:"columns"`
	Items         []invoicedomain.LineItem `json:"items"`
	Tax           invoicedomain.TaxConfig  `json:"tax"`
	Totals        invoicedomain.Totals     `json:"totals"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) NextInvoiceNumber(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	next, err := s.invoiceSvc.Preview(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, next)
}

// PreviewInvoice renders the unsaved draft as HTML. With ?format=json it
// returns the computed draft instead.
func (s *Server) PreviewInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req invoicedomain.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if strings.EqualFold(c.Query("format"), "json") {
		d, err := s.invoiceSvc.Build(c.Request.Context(), userID, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, draftResponse{
			InvoiceNumber: d.InvoiceNumber,
			ClientName:    d.ClientName,
			IssueDate:     d.IssueDate,
			DueDate:       d.DueDate,
			Template:      d.Template,
			Columns:       d.Columns,
			Items:         d.Items,
			Tax:           d.Tax,
			Totals:        d.Totals.Rounded(),
		})
		return
	}

	html, err := s.invoiceSvc.PreviewHTML(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, html)
}

func (s *Server) CreateInvoice(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req invoicedomain.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	saved, err := s.invoiceSvc.Save(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (s *Server) ListInvoices(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var filter invoicedomain.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.invoiceSvc.List(c.Request.Context(), actor, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	inv, err := s.invoiceSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	if err := s.invoiceSvc.UpdateStatus(ctx, actor, id, req.Status); err != nil {
		AbortWithError(c, err)
		return
	}
	inv, err := s.invoiceSvc.Get(ctx, actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) RenderInvoice(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	templateID := strings.TrimSpace(c.Query("template"))
	if templateID != "" {
		c.Set("template_id", templateID)
	}

	html, err := s.invoiceSvc.RenderHTML(c.Request.Context(), actor, id, templateID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, html)
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out, err := s.invoiceSvc.ExportPDF(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, "application/pdf", out.Content)
}

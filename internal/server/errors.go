package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
	"github.com/smallbiznis/invoicely/internal/authorization"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	settingsdomain "github.com/smallbiznis/invoicely/internal/settings/domain"
	signupdomain "github.com/smallbiznis/invoicely/internal/signup/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger the same type and code the
// client receives.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if err != nil && payload.Type != "internal_error" {
		code = err.Error()
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(err, code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authdomain.ErrAccountPending):
		return http.StatusForbidden, errorPayload{
			Type:    "account_pending",
			Message: "account is awaiting approval",
		}
	case errors.Is(err, authdomain.ErrAccountSuspended):
		return http.StatusForbidden, errorPayload{
			Type:    "account_suspended",
			Message: "account is suspended",
		}
	case errors.Is(err, authdomain.ErrAccessExpired):
		return http.StatusForbidden, errorPayload{
			Type:    "access_expired",
			Message: "access period has ended",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, invoicedomain.ErrForbidden),
		errors.Is(err, signupdomain.ErrProtectedUser),
		errors.Is(err, signupdomain.ErrSelfManagement):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, invoicedomain.ErrNumberTaken):
		return http.StatusConflict, errorPayload{
			Type:    "invoice_number_taken",
			Message: "invoice number was taken by another save, retry",
		}
	case errors.Is(err, invoicedomain.ErrSaveInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "invoice_save_in_progress",
			Message: "another save is in progress",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, signupdomain.ErrRequestPending),
		errors.Is(err, signupdomain.ErrAlreadyReviewed),
		errors.Is(err, invoicedomain.ErrDuplicateColumnKey):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, invoicedomain.ErrExportThrottled):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many exports, try again shortly",
		}
	case errors.Is(err, settingsdomain.ErrLogoTooLarge):
		return http.StatusRequestEntityTooLarge, errorPayload{
			Type:    "logo_too_large",
			Message: "logo is too large",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, invoicedomain.ErrExportFailed):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "export_failed",
			Message: "pdf export failed",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, authdomain.ErrUserExists):
		return "an account with this email already exists"
	case errors.Is(err, signupdomain.ErrRequestPending):
		return "a signup request for this email is already pending"
	case errors.Is(err, signupdomain.ErrAlreadyReviewed):
		return "signup request was already reviewed"
	case errors.Is(err, invoicedomain.ErrDuplicateColumnKey):
		return "a column with this key already exists"
	default:
		return "conflict"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// validationSentinels are reported as 400s whose code is the sentinel's text,
// even when wrapped with extra detail.
var validationSentinels = []error{
	ErrInvalidRequest,
	signupdomain.ErrInvalidRequest,
	signupdomain.ErrInvalidAccessPeriod,
	authdomain.ErrWeakPassword,
	authdomain.ErrInvalidRole,
	invoicedomain.ErrInvalidStatus,
	invoicedomain.ErrInvalidDate,
	invoicedomain.ErrAmountTooLarge,
	invoicedomain.ErrInvalidColumnName,
	settingsdomain.ErrInvalidTemplate,
	settingsdomain.ErrInvalidTaxPercent,
	settingsdomain.ErrInvalidTitle,
	settingsdomain.ErrInvalidLogo,
}

func matchValidation(err error) error {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func isValidationError(err error) bool {
	return matchValidation(err) != nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, signupdomain.ErrRequestNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, invoicedomain.ErrColumnNotFound),
		errors.Is(err, settingsdomain.ErrSettingsNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch sentinel := matchValidation(err); {
	case sentinel == nil:
		return err.Error()
	case sentinel == signupdomain.ErrInvalidRequest:
		return "invalid_request"
	default:
		return sentinel.Error()
	}
}

func validationErrorField(err error, code string) string {
	switch {
	case errors.Is(err, authdomain.ErrWeakPassword):
		return "password"
	case errors.Is(err, signupdomain.ErrInvalidAccessPeriod):
		return "months"
	case errors.Is(err, settingsdomain.ErrInvalidLogo):
		return "logo"
	case errors.Is(err, settingsdomain.ErrInvalidTitle):
		return "invoice_title"
	case errors.Is(err, settingsdomain.ErrInvalidTemplate):
		return "invoice_template"
	}
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "weak_password":
		return "password must be at least 8 characters"
	case "invalid_date":
		return "dates must use YYYY-MM-DD"
	case "invalid_status":
		return "status must be draft, sent or paid"
	case "invalid_amount":
		return "invoice totals must stay below 10^16"
	default:
		return "invalid value"
	}
}

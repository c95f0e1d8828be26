package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/haulbase/freightpay/internal/payment/domain"
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
	Success bool         `json:"success"`
	Error   errorPayload `json:"error"`
}

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
		c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: payload})
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

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, paymentdomain.ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidCredentials),
		errors.Is(err, paymentdomain.ErrInvalidPreferences),
		errors.Is(err, paymentdomain.ErrProviderNotConnected):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, paymentdomain.ErrConfigNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotConfigured),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errors.Is(err, paymentdomain.ErrCannotRemoveLastProvider):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, paymentdomain.ErrProviderCallFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "provider_call_failed",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// statusForResponse maps a routed invoice response onto a transport status:
// 400 for malformed requests, 404 for unknown tenant or provider,
// gateway-class codes for provider failures.
func statusForResponse(resp paymentdomain.UnifiedInvoiceResponse) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.ErrorCode {
	case paymentdomain.CodeInvalidRequest:
		return http.StatusBadRequest
	case paymentdomain.CodeConfigNotFound, paymentdomain.CodeProviderNotFound, paymentdomain.CodeProviderNotConfigured:
		return http.StatusNotFound
	case paymentdomain.CodeTimeout:
		return http.StatusGatewayTimeout
	case paymentdomain.CodeProviderCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

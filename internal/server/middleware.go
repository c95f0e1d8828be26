package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/haulbase/freightpay/pkg/tenantctx"
	"go.uber.org/zap"
)

// TenantRequired resolves the tenant from the X-Tenant-ID header, falling
// back to the tenant_id query parameter, and stores it on the request
// context. Requests without a tenant never reach a handler.
func TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
		if tenantID == "" {
			tenantID = strings.TrimSpace(c.Query("tenant_id"))
		}
		if tenantID == "" {
			AbortWithError(c, newValidationError("tenant_id", "required", "tenant is required"))
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogMiddleware logs each request with a correlation id and safe
// fields. Credential material never appears here.
func RequestLogMiddleware(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http.request")
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		c.Next()

		route := c.FullPath()
		if route == "/metrics" || route == "/health" {
			return
		}
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if tenantID, ok := tenantctx.TenantID(c.Request.Context()); ok {
			fields = append(fields, zap.String("tenant_id", tenantID))
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.String("error", lastErr.Error()))
		}

		if status >= http.StatusInternalServerError {
			log.Error("http_request", fields...)
			return
		}
		log.Info("http_request", fields...)
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-Id", requestID)
	return requestID
}

func tenantFromRequest(c *gin.Context) (string, bool) {
	return tenantctx.TenantID(c.Request.Context())
}

package tenantctx

import (
	"context"
	"strings"
)

// TenantContextKey is the request context key for the active tenant ID.
type TenantContextKey struct{}

// WithTenantID stores the tenant ID in the context.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantContextKey{}, strings.TrimSpace(tenantID))
}

// TenantID returns the tenant ID from context, if set.
func TenantID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(TenantContextKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

package domain

import (
	"context"

	paymentdomain "github.com/haulbase/freightpay/internal/payment/domain"
)

// PreferencesPatch merges into existing preferences field by field. A nil
// field leaves the current value untouched; an empty FallbackProvider clears
// the fallback.
type PreferencesPatch struct {
	DefaultProvider     *paymentdomain.Provider `json:"default_provider,omitempty"`
	FallbackProvider    *paymentdomain.Provider `json:"fallback_provider,omitempty"`
	AutoSwitchOnFailure *bool                   `json:"auto_switch_on_failure,omitempty"`
}

// Service owns all reads of tenant payment configuration and is the only
// component allowed to persist changes to it. Mutations for the same tenant
// are serialized; reads are not.
type Service interface {
	Get(ctx context.Context, tenantID string) (*TenantPaymentConfig, error)
	Redacted(ctx context.Context, tenantID string) (*RedactedConfig, error)
	ActiveProviders(ctx context.Context, tenantID string) ([]paymentdomain.Provider, error)

	EnableProvider(ctx context.Context, tenantID string, creds paymentdomain.ProviderCredentials) (*RedactedConfig, error)
	DisableProvider(ctx context.Context, tenantID string, provider paymentdomain.Provider) (*RedactedConfig, error)
	RemoveProvider(ctx context.Context, tenantID string, provider paymentdomain.Provider) (*RedactedConfig, error)
	SetPrimaryProvider(ctx context.Context, tenantID string, provider paymentdomain.Provider) (*RedactedConfig, error)
	SetConnected(ctx context.Context, tenantID string, provider paymentdomain.Provider, connected bool) (*RedactedConfig, error)
	UpdatePreferences(ctx context.Context, tenantID string, patch PreferencesPatch) (*RedactedConfig, error)
}

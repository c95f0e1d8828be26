package domain

import (
	"time"

	paymentdomain "github.com/haulbase/freightpay/internal/payment/domain"
	"gorm.io/datatypes"
)

// Preferences controls default provider selection and failover behavior.
type Preferences struct {
	DefaultProvider     paymentdomain.Provider  `json:"default_provider"`
	FallbackProvider    *paymentdomain.Provider `json:"fallback_provider,omitempty"`
	AutoSwitchOnFailure bool                    `json:"auto_switch_on_failure"`
}

// TenantPaymentConfig is the decrypted per-tenant payment configuration.
// Providers carries full credential bundles and must never cross the HTTP
// boundary unredacted.
type TenantPaymentConfig struct {
	TenantID        string
	PrimaryProvider paymentdomain.Provider
	Providers       map[paymentdomain.Provider]paymentdomain.ProviderCredentials
	Preferences     Preferences
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Credentials returns the bundle for a provider, if configured.
func (c *TenantPaymentConfig) Credentials(provider paymentdomain.Provider) (paymentdomain.ProviderCredentials, bool) {
	if c == nil {
		return paymentdomain.ProviderCredentials{}, false
	}
	creds, ok := c.Providers[provider]
	return creds, ok
}

// ConfigRecord is the persisted row. The providers column holds the
// credential map AES-GCM encrypted; preferences are stored as plain JSON.
type ConfigRecord struct {
	TenantID        string         `json:"tenant_id" gorm:"primaryKey;type:text"`
	PrimaryProvider string         `json:"primary_provider" gorm:"type:text"`
	Providers       datatypes.JSON `json:"providers" gorm:"type:jsonb;not null"`
	Preferences     datatypes.JSON `json:"preferences" gorm:"type:jsonb;not null"`
	CreatedAt       time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ConfigRecord) TableName() string { return "tenant_payment_configs" }

// RedactedProvider is the per-provider view allowed across the HTTP boundary.
type RedactedProvider struct {
	Provider    paymentdomain.Provider    `json:"provider"`
	Enabled     bool                      `json:"enabled"`
	Connected   bool                      `json:"connected"`
	Environment paymentdomain.Environment `json:"environment"`
}

// RedactedConfig is TenantPaymentConfig with credentials stripped.
type RedactedConfig struct {
	TenantID        string                 `json:"tenant_id"`
	PrimaryProvider paymentdomain.Provider `json:"primary_provider,omitempty"`
	Providers       []RedactedProvider     `json:"providers"`
	Preferences     Preferences            `json:"preferences"`
}

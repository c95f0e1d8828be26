package domain

import "errors"

var (
	ErrConfigNotFound           = errors.New("config_not_found")
	ErrProviderNotFound         = errors.New("provider_not_found")
	ErrProviderNotConfigured    = errors.New("provider_not_configured")
	ErrInvalidRequest           = errors.New("invalid_request")
	ErrInvalidCredentials       = errors.New("invalid_credentials")
	ErrProviderCallFailed       = errors.New("provider_call_failed")
	ErrCannotRemoveLastProvider = errors.New("cannot_remove_last_provider")
	ErrInvalidPreferences       = errors.New("invalid_preferences")
	ErrProviderNotConnected     = errors.New("provider_not_connected")
	ErrEncryptionKeyMissing     = errors.New("encryption_key_missing")
)

// Error codes carried on failed UnifiedInvoiceResponse values. They mirror
// the sentinel errors above so transport layers can map them uniformly.
const (
	CodeConfigNotFound        = "config_not_found"
	CodeProviderNotFound      = "provider_not_found"
	CodeProviderNotConfigured = "provider_not_configured"
	CodeInvalidRequest        = "invalid_request"
	CodeProviderCallFailed    = "provider_call_failed"
	CodeTimeout               = "timeout"
	CodeInternal              = "internal_error"
)

package domain

import "context"

// Adapter translates unified invoice requests into one processor's API.
//
// Adapters never return an error across this boundary: every failure,
// including misconfiguration, is reported through the response value so the
// router can apply fallback uniformly.
type Adapter interface {
	Provider() Provider
	CreateInvoice(ctx context.Context, req UnifiedInvoiceRequest, creds ProviderCredentials) UnifiedInvoiceResponse
	TestConnection(ctx context.Context, creds ProviderCredentials) ConnectionResult
}

// AdapterRegistry resolves the adapter for a provider.
type AdapterRegistry interface {
	Adapter(provider Provider) (Adapter, bool)
}

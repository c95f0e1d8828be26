package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies a supported payment processor.
type Provider string

const (
	ProviderSquare     Provider = "square"
	ProviderBillCom    Provider = "billcom"
	ProviderQuickBooks Provider = "quickbooks"
	ProviderStripe     Provider = "stripe"
)

// ParseProvider normalizes a raw provider name. The empty string is
// returned as-is so callers can treat it as "use tenant default".
func ParseProvider(raw string) (Provider, bool) {
	value := Provider(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case "", ProviderSquare, ProviderBillCom, ProviderQuickBooks, ProviderStripe:
		return value, true
	default:
		return "", false
	}
}

// Environment selects the provider API endpoint set.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// LineItem is one billable line of a unified invoice.
type LineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	Taxable     bool            `json:"taxable,omitempty"`
}

// UnifiedInvoiceRequest is the provider-agnostic invoice creation request.
type UnifiedInvoiceRequest struct {
	TenantID      string            `json:"tenant_id"`
	Provider      Provider          `json:"provider,omitempty"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Currency      string            `json:"currency,omitempty"`
	LineItems     []LineItem        `json:"line_items"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	CustomFields  map[string]string `json:"custom_fields,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Total sums line-item amounts. Line-item amounts are trusted as-is;
// quantity*rate consistency is not enforced here.
func (r UnifiedInvoiceRequest) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.LineItems {
		total = total.Add(item.Amount)
	}
	return total
}

// Validate rejects requests that must never reach a provider.
func (r UnifiedInvoiceRequest) Validate() error {
	if strings.TrimSpace(r.TenantID) == "" {
		return ErrInvalidRequest
	}
	if len(r.LineItems) == 0 {
		return ErrInvalidRequest
	}
	for _, item := range r.LineItems {
		if strings.TrimSpace(item.Name) == "" {
			return ErrInvalidRequest
		}
	}
	if strings.TrimSpace(r.CustomerName) == "" && strings.TrimSpace(r.CustomerEmail) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// MismatchedLineItems reports line items whose amount differs from
// quantity*rate. Mismatches are logged, not rejected.
func (r UnifiedInvoiceRequest) MismatchedLineItems() []int {
	var indexes []int
	for i, item := range r.LineItems {
		if !item.Amount.Equal(item.Quantity.Mul(item.Rate)) {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// UnifiedInvoiceResponse is the provider-agnostic invoice creation result.
// Provider reflects the processor that actually handled the request, which
// differs from the requested one when fallback occurred.
type UnifiedInvoiceResponse struct {
	Success       bool            `json:"success"`
	Provider      Provider        `json:"provider"`
	TenantID      string          `json:"tenant_id"`
	InvoiceID     string          `json:"invoice_id,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	PublicURL     string          `json:"public_url,omitempty"`
	Status        string          `json:"status,omitempty"`
	Amount        decimal.Decimal `json:"amount,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	Error         string          `json:"error,omitempty"`
	ErrorCode     string          `json:"error_code,omitempty"`
}

// Failure builds a failed response for the given provider and tenant.
func Failure(provider Provider, tenantID, code, message string) UnifiedInvoiceResponse {
	return UnifiedInvoiceResponse{
		Success:   false,
		Provider:  provider,
		TenantID:  tenantID,
		Error:     message,
		ErrorCode: code,
	}
}

// ConnectionResult is the outcome of a credential liveness check.
type ConnectionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

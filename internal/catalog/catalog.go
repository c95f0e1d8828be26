package catalog

import "github.com/haulbase/freightpay/internal/payment/domain"

// Feature names a capability a processor integration exposes.
type Feature string

const (
	FeatureInvoicing     Feature = "invoicing"
	FeaturePayments      Feature = "payments"
	FeatureSubscriptions Feature = "subscriptions"
	FeatureCustomers     Feature = "customers"
	FeatureReporting     Feature = "reporting"
)

// Entry describes one supported payment processor. Entries are static and
// process-wide; they are never mutated after startup.
type Entry struct {
	Provider    domain.Provider  `json:"provider"`
	DisplayName string           `json:"display_name"`
	Features    map[Feature]bool `json:"supported_features"`
}

// entries is the catalog in its canonical order. ActiveProviders ordering and
// replacement-primary selection both derive from this order.
var entries = []Entry{
	{
		Provider:    domain.ProviderSquare,
		DisplayName: "Square",
		Features: map[Feature]bool{
			FeatureInvoicing: true,
			FeaturePayments:  true,
			FeatureCustomers: true,
			FeatureReporting: true,
		},
	},
	{
		Provider:    domain.ProviderBillCom,
		DisplayName: "Bill.com",
		Features: map[Feature]bool{
			FeatureInvoicing: true,
			FeaturePayments:  true,
			FeatureCustomers: true,
		},
	},
	{
		Provider:    domain.ProviderQuickBooks,
		DisplayName: "QuickBooks Online",
		Features: map[Feature]bool{
			FeatureInvoicing: true,
			FeaturePayments:  true,
			FeatureCustomers: true,
			FeatureReporting: true,
		},
	},
	{
		Provider:    domain.ProviderStripe,
		DisplayName: "Stripe",
		Features: map[Feature]bool{
			FeatureInvoicing:     true,
			FeaturePayments:      true,
			FeatureSubscriptions: true,
			FeatureCustomers:     true,
			FeatureReporting:     true,
		},
	},
}

// Providers returns the catalog entries in canonical order.
func Providers() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Order returns provider names in canonical catalog order.
func Order() []domain.Provider {
	out := make([]domain.Provider, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Provider)
	}
	return out
}

// Exists reports whether the provider is in the catalog.
func Exists(provider domain.Provider) bool {
	for _, entry := range entries {
		if entry.Provider == provider {
			return true
		}
	}
	return false
}

package domain

import "strings"

// SquareCredentials carries the fields the Square adapter requires.
type SquareCredentials struct {
	ApplicationID string `json:"application_id"`
	AccessToken   string `json:"access_token"`
	LocationID    string `json:"location_id"`
}

func (c SquareCredentials) validate() error {
	if blank(c.ApplicationID) || blank(c.AccessToken) || blank(c.LocationID) {
		return ErrInvalidCredentials
	}
	return nil
}

// BillComCredentials carries the fields the Bill.com adapter requires.
// Bill.com sessions are established per call from these fields.
type BillComCredentials struct {
	DevKey   string `json:"dev_key"`
	Username string `json:"username"`
	Password string `json:"password"`
	OrgID    string `json:"org_id"`
}

func (c BillComCredentials) validate() error {
	if blank(c.DevKey) || blank(c.Username) || blank(c.Password) || blank(c.OrgID) {
		return ErrInvalidCredentials
	}
	return nil
}

// QuickBooksCredentials carries the fields the QuickBooks adapter requires.
type QuickBooksCredentials struct {
	RealmID     string `json:"realm_id"`
	AccessToken string `json:"access_token"`
}

func (c QuickBooksCredentials) validate() error {
	if blank(c.RealmID) || blank(c.AccessToken) {
		return ErrInvalidCredentials
	}
	return nil
}

// StripeCredentials carries the fields the Stripe adapter requires.
type StripeCredentials struct {
	SecretKey string `json:"secret_key"`
	AccountID string `json:"account_id,omitempty"`
}

func (c StripeCredentials) validate() error {
	if blank(c.SecretKey) {
		return ErrInvalidCredentials
	}
	return nil
}

// ProviderCredentials is the per-tenant credential bundle for one provider.
// Exactly one variant must be set and must match Provider, so a bundle with
// missing processor fields is rejected before any network call.
type ProviderCredentials struct {
	Provider    Provider    `json:"provider"`
	Enabled     bool        `json:"enabled"`
	Connected   bool        `json:"connected"`
	Environment Environment `json:"environment"`

	Square     *SquareCredentials     `json:"square,omitempty"`
	BillCom    *BillComCredentials    `json:"billcom,omitempty"`
	QuickBooks *QuickBooksCredentials `json:"quickbooks,omitempty"`
	Stripe     *StripeCredentials     `json:"stripe,omitempty"`
}

// Validate checks that the variant matching Provider is present and complete.
func (c ProviderCredentials) Validate() error {
	switch c.Environment {
	case EnvironmentSandbox, EnvironmentProduction:
	default:
		return ErrInvalidCredentials
	}

	switch c.Provider {
	case ProviderSquare:
		if c.Square == nil {
			return ErrInvalidCredentials
		}
		return c.Square.validate()
	case ProviderBillCom:
		if c.BillCom == nil {
			return ErrInvalidCredentials
		}
		return c.BillCom.validate()
	case ProviderQuickBooks:
		if c.QuickBooks == nil {
			return ErrInvalidCredentials
		}
		return c.QuickBooks.validate()
	case ProviderStripe:
		if c.Stripe == nil {
			return ErrInvalidCredentials
		}
		return c.Stripe.validate()
	default:
		return ErrProviderNotFound
	}
}

func blank(value string) bool {
	return strings.TrimSpace(value) == ""
}

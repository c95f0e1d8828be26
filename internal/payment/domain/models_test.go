package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseProvider(t *testing.T) {
	got, ok := ParseProvider("  Square ")
	assert.True(t, ok)
	assert.Equal(t, ProviderSquare, got)

	got, ok = ParseProvider("")
	assert.True(t, ok, "empty means use the tenant default")
	assert.Equal(t, Provider(""), got)

	_, ok = ParseProvider("paypal")
	assert.False(t, ok)
}

func TestRequestValidate(t *testing.T) {
	valid := UnifiedInvoiceRequest{
		TenantID:     "tenant-1",
		CustomerName: "Shipper Co",
		LineItems: []LineItem{{
			Name:   "Linehaul",
			Amount: decimal.NewFromInt(100),
		}},
	}
	assert.NoError(t, valid.Validate())

	noTenant := valid
	noTenant.TenantID = " "
	assert.ErrorIs(t, noTenant.Validate(), ErrInvalidRequest)

	noLines := valid
	noLines.LineItems = nil
	assert.ErrorIs(t, noLines.Validate(), ErrInvalidRequest)

	unnamedLine := valid
	unnamedLine.LineItems = []LineItem{{Amount: decimal.NewFromInt(1)}}
	assert.ErrorIs(t, unnamedLine.Validate(), ErrInvalidRequest)

	// Email alone is enough to identify the customer.
	noName := valid
	noName.CustomerName = ""
	noName.CustomerEmail = "ap@shipper.test"
	assert.NoError(t, noName.Validate())

	anonymous := valid
	anonymous.CustomerName = ""
	assert.ErrorIs(t, anonymous.Validate(), ErrInvalidRequest)
}

func TestMismatchedLineItemsAreReportedNotRejected(t *testing.T) {
	req := UnifiedInvoiceRequest{
		TenantID:     "tenant-1",
		CustomerName: "Shipper Co",
		LineItems: []LineItem{
			{Name: "Linehaul", Quantity: decimal.NewFromInt(2), Rate: decimal.NewFromInt(100), Amount: decimal.NewFromInt(200)},
			{Name: "Detention", Quantity: decimal.NewFromInt(3), Rate: decimal.NewFromInt(50), Amount: decimal.NewFromInt(100)},
		},
	}
	assert.NoError(t, req.Validate())
	assert.Equal(t, []int{1}, req.MismatchedLineItems())
	assert.True(t, req.Total().Equal(decimal.NewFromInt(300)), "amounts are trusted as given")
}

func TestCredentialsValidate(t *testing.T) {
	creds := ProviderCredentials{
		Provider:    ProviderSquare,
		Environment: EnvironmentSandbox,
		Square: &SquareCredentials{
			ApplicationID: "app",
			AccessToken:   "token",
			LocationID:    "loc",
		},
	}
	assert.NoError(t, creds.Validate())

	wrongVariant := creds
	wrongVariant.Provider = ProviderStripe
	assert.ErrorIs(t, wrongVariant.Validate(), ErrInvalidCredentials)

	badEnv := creds
	badEnv.Environment = "staging"
	assert.ErrorIs(t, badEnv.Validate(), ErrInvalidCredentials)

	incomplete := creds
	incomplete.Square = &SquareCredentials{ApplicationID: "app"}
	assert.ErrorIs(t, incomplete.Validate(), ErrInvalidCredentials)

	unknown := creds
	unknown.Provider = "paypal"
	assert.ErrorIs(t, unknown.Validate(), ErrProviderNotFound)
}

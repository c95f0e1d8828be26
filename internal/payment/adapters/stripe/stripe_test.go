package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haulbase/freightpay/internal/payment/domain"
	"github.com/shopspring/decimal"
)

func testCreds() domain.ProviderCredentials {
	return domain.ProviderCredentials{
		Provider:    domain.ProviderStripe,
		Enabled:     true,
		Environment: domain.EnvironmentProduction,
		Stripe: &domain.StripeCredentials{
			SecretKey: "sk_live_123",
			AccountID: "acct_42",
		},
	}
}

func testRequest() domain.UnifiedInvoiceRequest {
	return domain.UnifiedInvoiceRequest{
		TenantID:      "acme-logistics",
		CustomerName:  "Shipper Co",
		CustomerEmail: "ap@shipper.test",
		Currency:      "USD",
		LineItems: []domain.LineItem{
			{
				Name:     "Linehaul",
				Quantity: decimal.NewFromInt(1),
				Rate:     decimal.NewFromInt(2000),
				Amount:   decimal.NewFromInt(2000),
			},
			{
				Name:        "Fuel surcharge",
				Description: "FSC 12%",
				Quantity:    decimal.NewFromInt(1),
				Rate:        decimal.NewFromInt(240),
				Amount:      decimal.NewFromInt(240),
			},
		},
	}
}

func newStubAdapter(handler http.Handler) (*Adapter, *httptest.Server) {
	srv := httptest.NewServer(handler)
	adapter := New(5 * time.Second)
	adapter.baseURL = srv.URL
	return adapter, srv
}

func TestCreateInvoiceFlow(t *testing.T) {
	var itemAmounts []string
	var invoiceForm map[string][]string

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/customers", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk_live_123" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("Stripe-Account"); got != "acct_42" {
			t.Errorf("expected Stripe-Account header, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "cus_1"})
	})
	mux.HandleFunc("/v1/invoiceitems", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		itemAmounts = append(itemAmounts, r.PostFormValue("amount"))
		if r.PostFormValue("customer") != "cus_1" {
			t.Errorf("expected cus_1, got %q", r.PostFormValue("customer"))
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "ii_1"})
	})
	mux.HandleFunc("/v1/invoices", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		invoiceForm = r.PostForm
		if r.Header.Get("Idempotency-Key") == "" {
			t.Errorf("expected idempotency key on invoice creation")
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "in_1", "status": "draft"})
	})
	mux.HandleFunc("/v1/invoices/in_1/finalize", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":                 "in_1",
			"number":             "F-0042",
			"hosted_invoice_url": "https://invoice.stripe.com/i/in_1",
			"status":             "open",
			"amount_due":         224000,
			"currency":           "usd",
		})
	})

	adapter, srv := newStubAdapter(mux)
	defer srv.Close()

	resp := adapter.CreateInvoice(context.Background(), testRequest(), testCreds())
	if !resp.Success {
		t.Fatalf("expected success, got %s: %s", resp.ErrorCode, resp.Error)
	}
	if resp.InvoiceID != "in_1" || resp.InvoiceNumber != "F-0042" {
		t.Fatalf("unexpected identifiers: %+v", resp)
	}
	if resp.PublicURL != "https://invoice.stripe.com/i/in_1" {
		t.Fatalf("expected hosted url, got %q", resp.PublicURL)
	}
	if resp.Amount.Cmp(decimal.NewFromInt(2240)) != 0 {
		t.Fatalf("expected 2240.00 from amount_due cents, got %s", resp.Amount)
	}
	if resp.Currency != "USD" {
		t.Fatalf("expected USD, got %q", resp.Currency)
	}

	if len(itemAmounts) != 2 || itemAmounts[0] != "200000" || itemAmounts[1] != "24000" {
		t.Fatalf("expected cent amounts [200000 24000], got %v", itemAmounts)
	}
	if got := invoiceForm["collection_method"]; len(got) != 1 || got[0] != "send_invoice" {
		t.Fatalf("expected send_invoice collection, got %v", got)
	}
	if got := invoiceForm["pending_invoice_items_behavior"]; len(got) != 1 || got[0] != "include" {
		t.Fatalf("expected pending items included, got %v", got)
	}
	if got := invoiceForm["days_until_due"]; len(got) != 1 || got[0] != "30" {
		t.Fatalf("expected default 30 days until due, got %v", got)
	}
	if got := invoiceForm["metadata[tenant_id]"]; len(got) != 1 || got[0] != "acme-logistics" {
		t.Fatalf("expected tenant metadata, got %v", got)
	}
}

func TestCreateInvoiceMissingCredentials(t *testing.T) {
	var hits int32
	adapter, srv := newStubAdapter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	creds := testCreds()
	creds.Stripe.SecretKey = ""
	resp := adapter.CreateInvoice(context.Background(), testRequest(), creds)
	if resp.Success || resp.ErrorCode != domain.CodeProviderNotConfigured {
		t.Fatalf("expected provider_not_configured, got %+v", resp)
	}
	if hits != 0 {
		t.Fatalf("incomplete credentials must fail before any network call")
	}
}

func TestCreateInvoiceSurfacesProviderError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/customers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
			"message": "Your account cannot currently make live charges.",
			"code":    "account_invalid",
		}})
	})

	adapter, srv := newStubAdapter(mux)
	defer srv.Close()

	resp := adapter.CreateInvoice(context.Background(), testRequest(), testCreds())
	if resp.Success {
		t.Fatalf("expected failure")
	}
	if resp.ErrorCode != domain.CodeProviderCallFailed {
		t.Fatalf("expected provider_call_failed, got %s", resp.ErrorCode)
	}
	if resp.Error != "Your account cannot currently make live charges." {
		t.Fatalf("expected provider message, got %q", resp.Error)
	}
}

func TestTestConnection(t *testing.T) {
	var paths []string
	adapter, srv := newStubAdapter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"id": "acct_42"})
	}))
	defer srv.Close()

	result := adapter.TestConnection(context.Background(), testCreds())
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if len(paths) != 1 || paths[0] != "/v1/account" {
		t.Fatalf("expected a single account call, got %v", paths)
	}
}

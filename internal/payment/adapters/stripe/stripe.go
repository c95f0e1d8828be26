package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haulbase/freightpay/internal/payment/domain"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.stripe.com"

// Adapter creates Stripe invoices via the send_invoice collection flow:
// customer, invoice items, draft invoice, then finalize. A draft invoice has
// no hosted URL, so finalization happens before success is reported.
//
// Stripe routes sandbox traffic by key prefix rather than by host; the
// environment field on the credentials is validated but does not change the
// base URL.
type Adapter struct {
	client *http.Client

	baseURL string // overridable in tests
}

func New(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		client:  &http.Client{Timeout: timeout},
		baseURL: defaultBaseURL,
	}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderStripe
}

type stripeInvoice struct {
	ID               string `json:"id"`
	Number           string `json:"number"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
	Status           string `json:"status"`
	AmountDue        int64  `json:"amount_due"`
	Currency         string `json:"currency"`
	Customer         string `json:"customer"`
}

func (a *Adapter) CreateInvoice(ctx context.Context, req domain.UnifiedInvoiceRequest, creds domain.ProviderCredentials) domain.UnifiedInvoiceResponse {
	if err := creds.Validate(); err != nil || creds.Provider != domain.ProviderStripe {
		return domain.Failure(domain.ProviderStripe, req.TenantID, domain.CodeProviderNotConfigured, "stripe credentials missing or incomplete")
	}
	sk := creds.Stripe
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}

	customerID := strings.TrimSpace(req.Metadata["stripe_customer_id"])
	if customerID == "" {
		id, err := a.createCustomer(ctx, sk, req)
		if err != nil {
			return domain.Failure(domain.ProviderStripe, req.TenantID, domain.CodeProviderCallFailed, err.Error())
		}
		customerID = id
	}

	for _, item := range req.LineItems {
		if err := a.createInvoiceItem(ctx, sk, customerID, currency, item); err != nil {
			return domain.Failure(domain.ProviderStripe, req.TenantID, domain.CodeProviderCallFailed, err.Error())
		}
	}

	draft, err := a.createDraftInvoice(ctx, sk, customerID, req)
	if err != nil {
		return domain.Failure(domain.ProviderStripe, req.TenantID, domain.CodeProviderCallFailed, err.Error())
	}

	finalized, err := a.finalizeInvoice(ctx, sk, draft.ID)
	if err != nil {
		return domain.Failure(domain.ProviderStripe, req.TenantID, domain.CodeProviderCallFailed, err.Error())
	}

	return domain.UnifiedInvoiceResponse{
		Success:       true,
		Provider:      domain.ProviderStripe,
		TenantID:      req.TenantID,
		InvoiceID:     finalized.ID,
		InvoiceNumber: finalized.Number,
		PublicURL:     finalized.HostedInvoiceURL,
		Status:        strings.ToLower(finalized.Status),
		Amount:        decimal.NewFromInt(finalized.AmountDue).Div(decimal.NewFromInt(100)),
		Currency:      strings.ToUpper(finalized.Currency),
	}
}

// TestConnection retrieves the account, which is read-only.
func (a *Adapter) TestConnection(ctx context.Context, creds domain.ProviderCredentials) domain.ConnectionResult {
	if err := creds.Validate(); err != nil || creds.Provider != domain.ProviderStripe {
		return domain.ConnectionResult{Success: false, Error: "stripe credentials missing or incomplete"}
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := a.doRequest(ctx, creds.Stripe, http.MethodGet, "/v1/account", nil, "", &out); err != nil {
		return domain.ConnectionResult{Success: false, Error: err.Error()}
	}
	return domain.ConnectionResult{Success: true}
}

func (a *Adapter) createCustomer(ctx context.Context, creds *domain.StripeCredentials, req domain.UnifiedInvoiceRequest) (string, error) {
	values := url.Values{}
	values.Set("name", req.CustomerName)
	values.Set("email", req.CustomerEmail)
	values.Set("metadata[tenant_id]", req.TenantID)

	var out struct {
		ID string `json:"id"`
	}
	if err := a.doRequest(ctx, creds, http.MethodPost, "/v1/customers", values, "", &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("stripe customer response missing id")
	}
	return out.ID, nil
}

func (a *Adapter) createInvoiceItem(ctx context.Context, creds *domain.StripeCredentials, customerID, currency string, item domain.LineItem) error {
	values := url.Values{}
	values.Set("customer", customerID)
	values.Set("amount", strconv.FormatInt(toCents(item.Amount), 10))
	values.Set("currency", currency)
	description := item.Name
	if item.Description != "" {
		description = item.Name + " - " + item.Description
	}
	values.Set("description", description)

	var out struct {
		ID string `json:"id"`
	}
	return a.doRequest(ctx, creds, http.MethodPost, "/v1/invoiceitems", values, "", &out)
}

func (a *Adapter) createDraftInvoice(ctx context.Context, creds *domain.StripeCredentials, customerID string, req domain.UnifiedInvoiceRequest) (stripeInvoice, error) {
	values := url.Values{}
	values.Set("customer", customerID)
	values.Set("collection_method", "send_invoice")
	values.Set("auto_advance", "false")
	values.Set("pending_invoice_items_behavior", "include")
	if req.DueDate != nil {
		values.Set("due_date", strconv.FormatInt(req.DueDate.Unix(), 10))
	} else {
		values.Set("days_until_due", "30")
	}
	values.Set("metadata[tenant_id]", req.TenantID)
	for key, value := range req.Metadata {
		if key == "stripe_customer_id" {
			continue
		}
		values.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	var out stripeInvoice
	if err := a.doRequest(ctx, creds, http.MethodPost, "/v1/invoices", values, "invoice:"+uuid.NewString(), &out); err != nil {
		return stripeInvoice{}, err
	}
	if out.ID == "" {
		return stripeInvoice{}, errors.New("stripe invoice response missing id")
	}
	return out, nil
}

func (a *Adapter) finalizeInvoice(ctx context.Context, creds *domain.StripeCredentials, invoiceID string) (stripeInvoice, error) {
	var out stripeInvoice
	if err := a.doRequest(ctx, creds, http.MethodPost, "/v1/invoices/"+invoiceID+"/finalize", url.Values{}, "", &out); err != nil {
		return stripeInvoice{}, err
	}
	if out.ID == "" {
		return stripeInvoice{}, errors.New("stripe finalize response missing id")
	}
	return out, nil
}

func (a *Adapter) doRequest(ctx context.Context, creds *domain.StripeCredentials, method, path string, values url.Values, idempotencyKey string, out any) error {
	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.SecretKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if creds.AccountID != "" {
		req.Header.Set("Stripe-Account", creds.AccountID)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return errors.New(message)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

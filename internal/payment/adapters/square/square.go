package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haulbase/freightpay/internal/payment/domain"
	"github.com/shopspring/decimal"
)

const (
	productionBaseURL = "https://connect.squareup.com"
	sandboxBaseURL    = "https://connect.squareupsandbox.com"
	apiVersion        = "2024-01-18"
)

// Adapter creates Square invoices. Square invoicing is multi-step: the line
// items live on an order, the invoice references the order, and a draft
// invoice is not visible to the customer until published.
type Adapter struct {
	client *http.Client

	// overridable in tests
	productionURL string
	sandboxURL    string
}

func New(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		client:        &http.Client{Timeout: timeout},
		productionURL: productionBaseURL,
		sandboxURL:    sandboxBaseURL,
	}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderSquare
}

func (a *Adapter) CreateInvoice(ctx context.Context, req domain.UnifiedInvoiceRequest, creds domain.ProviderCredentials) domain.UnifiedInvoiceResponse {
	if err := creds.Validate(); err != nil || creds.Provider != domain.ProviderSquare {
		return domain.Failure(domain.ProviderSquare, req.TenantID, domain.CodeProviderNotConfigured, "square credentials missing or incomplete")
	}
	sq := creds.Square
	base := a.baseURL(creds.Environment)
	currency := currencyOrDefault(req.Currency)

	customerID := strings.TrimSpace(req.Metadata["square_customer_id"])
	if customerID == "" {
		id, err := a.createCustomer(ctx, base, sq.AccessToken, req)
		if err != nil {
			return domain.Failure(domain.ProviderSquare, req.TenantID, domain.CodeProviderCallFailed, err.Error())
		}
		customerID = id
	}

	orderID, err := a.createOrder(ctx, base, sq, req, customerID, currency)
	if err != nil {
		return domain.Failure(domain.ProviderSquare, req.TenantID, domain.CodeProviderCallFailed, err.Error())
	}

	inv, err := a.createDraftInvoice(ctx, base, sq, req, orderID, customerID)
	if err != nil {
		return domain.Failure(domain.ProviderSquare, req.TenantID, domain.CodeProviderCallFailed, err.Error())
	}

	published, err := a.publishInvoice(ctx, base, sq.AccessToken, inv)
	if err != nil {
		return domain.Failure(domain.ProviderSquare, req.TenantID, domain.CodeProviderCallFailed, err.Error())
	}

	return domain.UnifiedInvoiceResponse{
		Success:       true,
		Provider:      domain.ProviderSquare,
		TenantID:      req.TenantID,
		InvoiceID:     published.ID,
		InvoiceNumber: published.InvoiceNumber,
		PublicURL:     published.PublicURL,
		Status:        strings.ToLower(published.Status),
		Amount:        req.Total(),
		Currency:      currency,
	}
}

// TestConnection lists locations, which is free of billable side effects.
func (a *Adapter) TestConnection(ctx context.Context, creds domain.ProviderCredentials) domain.ConnectionResult {
	if err := creds.Validate(); err != nil || creds.Provider != domain.ProviderSquare {
		return domain.ConnectionResult{Success: false, Error: "square credentials missing or incomplete"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL(creds.Environment)+"/v2/locations", nil)
	if err != nil {
		return domain.ConnectionResult{Success: false, Error: err.Error()}
	}
	a.setHeaders(req, creds.Square.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.ConnectionResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.ConnectionResult{Success: false, Error: decodeError(resp)}
	}
	return domain.ConnectionResult{Success: true}
}

func (a *Adapter) baseURL(env domain.Environment) string {
	if env == domain.EnvironmentProduction {
		return a.productionURL
	}
	return a.sandboxURL
}

func (a *Adapter) setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Square-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
}

type squareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type squareInvoice struct {
	ID            string `json:"id"`
	Version       int    `json:"version"`
	InvoiceNumber string `json:"invoice_number"`
	PublicURL     string `json:"public_url"`
	Status        string `json:"status"`
}

func (a *Adapter) createCustomer(ctx context.Context, base, token string, req domain.UnifiedInvoiceRequest) (string, error) {
	payload := map[string]any{
		"idempotency_key": uuid.NewString(),
		"given_name":      req.CustomerName,
		"email_address":   req.CustomerEmail,
	}
	var out struct {
		Customer struct {
			ID string `json:"id"`
		} `json:"customer"`
	}
	if err := a.doJSON(ctx, http.MethodPost, base+"/v2/customers", token, payload, &out); err != nil {
		return "", err
	}
	if out.Customer.ID == "" {
		return "", fmt.Errorf("square customer response missing id")
	}
	return out.Customer.ID, nil
}

func (a *Adapter) createOrder(ctx context.Context, base string, creds *domain.SquareCredentials, req domain.UnifiedInvoiceRequest, customerID, currency string) (string, error) {
	lines := make([]map[string]any, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		line := map[string]any{
			"name":     item.Name,
			"quantity": item.Quantity.String(),
			"base_price_money": squareMoney{
				Amount:   toCents(item.Rate),
				Currency: currency,
			},
		}
		if item.Description != "" {
			line["note"] = item.Description
		}
		lines = append(lines, line)
	}

	payload := map[string]any{
		"idempotency_key": uuid.NewString(),
		"order": map[string]any{
			"location_id": creds.LocationID,
			"customer_id": customerID,
			"line_items":  lines,
		},
	}
	var out struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	if err := a.doJSON(ctx, http.MethodPost, base+"/v2/orders", creds.AccessToken, payload, &out); err != nil {
		return "", err
	}
	if out.Order.ID == "" {
		return "", fmt.Errorf("square order response missing id")
	}
	return out.Order.ID, nil
}

func (a *Adapter) createDraftInvoice(ctx context.Context, base string, creds *domain.SquareCredentials, req domain.UnifiedInvoiceRequest, orderID, customerID string) (squareInvoice, error) {
	paymentRequest := map[string]any{
		"request_type": "BALANCE",
	}
	if req.DueDate != nil {
		paymentRequest["due_date"] = req.DueDate.Format("2006-01-02")
	}

	payload := map[string]any{
		"idempotency_key": uuid.NewString(),
		"invoice": map[string]any{
			"location_id":       creds.LocationID,
			"order_id":          orderID,
			"delivery_method":   "EMAIL",
			"primary_recipient": map[string]any{"customer_id": customerID},
			"payment_requests":  []any{paymentRequest},
		},
	}
	var out struct {
		Invoice squareInvoice `json:"invoice"`
	}
	if err := a.doJSON(ctx, http.MethodPost, base+"/v2/invoices", creds.AccessToken, payload, &out); err != nil {
		return squareInvoice{}, err
	}
	if out.Invoice.ID == "" {
		return squareInvoice{}, fmt.Errorf("square invoice response missing id")
	}
	return out.Invoice, nil
}

func (a *Adapter) publishInvoice(ctx context.Context, base, token string, inv squareInvoice) (squareInvoice, error) {
	payload := map[string]any{
		"idempotency_key": uuid.NewString(),
		"version":         inv.Version,
	}
	var out struct {
		Invoice squareInvoice `json:"invoice"`
	}
	if err := a.doJSON(ctx, http.MethodPost, base+"/v2/invoices/"+inv.ID+"/publish", token, payload, &out); err != nil {
		return squareInvoice{}, err
	}
	if out.Invoice.ID == "" {
		return squareInvoice{}, fmt.Errorf("square publish response missing invoice")
	}
	return out.Invoice, nil
}

func (a *Adapter) doJSON(ctx context.Context, method, url, token string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	a.setHeaders(req, token)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s", decodeError(resp))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) string {
	var squareErr struct {
		Errors []struct {
			Code   string `json:"code"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&squareErr); err == nil && len(squareErr.Errors) > 0 {
		first := squareErr.Errors[0]
		if first.Detail != "" {
			return first.Detail
		}
		if first.Code != "" {
			return first.Code
		}
	}
	return fmt.Sprintf("square request failed with status %d", resp.StatusCode)
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func currencyOrDefault(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "USD"
	}
	return currency
}

package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haulbase/freightpay/internal/payment/domain"
	"github.com/shopspring/decimal"
)

const (
	productionBaseURL = "https://quickbooks.api.intuit.com"
	sandboxBaseURL    = "https://sandbox-quickbooks.api.intuit.com"
	minorVersion      = "70"
)

// Adapter creates QuickBooks Online invoices. The invoice is created first
// and then delivered with the send endpoint, so success means the customer
// was actually emailed, matching the other adapters' publish semantics.
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
	return domain.ProviderQuickBooks
}

type qbInvoice struct {
	ID        string      `json:"Id"`
	DocNumber string      `json:"DocNumber"`
	TotalAmt  json.Number `json:"TotalAmt"`
	Balance   json.Number `json:"Balance"`
}

type qbInvoiceEnvelope struct {
	Invoice qbInvoice `json:"Invoice"`
}

func (a *Adapter) CreateInvoice(ctx context.Context, req domain.UnifiedInvoiceRequest, creds domain.ProviderCredentials) domain.UnifiedInvoiceResponse {
	if err := creds.Validate(); err != nil || creds.Provider != domain.ProviderQuickBooks {
		return domain.Failure(domain.ProviderQuickBooks, req.TenantID, domain.CodeProviderNotConfigured, "quickbooks credentials missing or incomplete")
	}
	qb := creds.QuickBooks
	base := a.baseURL(creds.Environment)

	customerRef := strings.TrimSpace(req.Metadata["quickbooks_customer_id"])
	if customerRef == "" {
		ref, err := a.createCustomer(ctx, base, qb, req)
		if err != nil {
			return domain.Failure(domain.ProviderQuickBooks, req.TenantID, domain.CodeProviderCallFailed, err.Error())
		}
		customerRef = ref
	}

	lines := make([]map[string]any, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		lines = append(lines, map[string]any{
			"Amount":      item.Amount.InexactFloat64(),
			"Description": item.Name,
			"DetailType":  "SalesItemLineDetail",
			"SalesItemLineDetail": map[string]any{
				"Qty":       item.Quantity.InexactFloat64(),
				"UnitPrice": item.Rate.InexactFloat64(),
			},
		})
	}

	payload := map[string]any{
		"Line":        lines,
		"CustomerRef": map[string]any{"value": customerRef},
	}
	if req.CustomerEmail != "" {
		payload["BillEmail"] = map[string]any{"Address": req.CustomerEmail}
	}
	if req.DueDate != nil {
		payload["DueDate"] = req.DueDate.Format("2006-01-02")
	}

	var created qbInvoiceEnvelope
	if err := a.doJSON(ctx, qb, http.MethodPost, base+companyPath(qb.RealmID, "/invoice"), payload, &created); err != nil {
		return domain.Failure(domain.ProviderQuickBooks, req.TenantID, domain.CodeProviderCallFailed, err.Error())
	}
	if created.Invoice.ID == "" {
		return domain.Failure(domain.ProviderQuickBooks, req.TenantID, domain.CodeProviderCallFailed, "quickbooks invoice response missing id")
	}

	status := "created"
	if req.CustomerEmail != "" {
		sendURL := base + companyPath(qb.RealmID, "/invoice/"+created.Invoice.ID+"/send") + "&sendTo=" + url.QueryEscape(req.CustomerEmail)
		var sent qbInvoiceEnvelope
		if err := a.doJSON(ctx, qb, http.MethodPost, sendURL, nil, &sent); err != nil {
			return domain.Failure(domain.ProviderQuickBooks, req.TenantID, domain.CodeProviderCallFailed, err.Error())
		}
		status = "sent"
	}

	amount := req.Total()
	if total, err := decimal.NewFromString(created.Invoice.TotalAmt.String()); err == nil {
		amount = total
	}

	return domain.UnifiedInvoiceResponse{
		Success:       true,
		Provider:      domain.ProviderQuickBooks,
		TenantID:      req.TenantID,
		InvoiceID:     created.Invoice.ID,
		InvoiceNumber: created.Invoice.DocNumber,
		Status:        status,
		Amount:        amount,
		Currency:      currencyOrDefault(req.Currency),
	}
}

// TestConnection reads company info, which is read-only.
func (a *Adapter) TestConnection(ctx context.Context, creds domain.ProviderCredentials) domain.ConnectionResult {
	if err := creds.Validate(); err != nil || creds.Provider != domain.ProviderQuickBooks {
		return domain.ConnectionResult{Success: false, Error: "quickbooks credentials missing or incomplete"}
	}
	qb := creds.QuickBooks
	endpoint := a.baseURL(creds.Environment) + companyPath(qb.RealmID, "/companyinfo/"+qb.RealmID)

	var out struct {
		CompanyInfo struct {
			CompanyName string `json:"CompanyName"`
		} `json:"CompanyInfo"`
	}
	if err := a.doJSON(ctx, qb, http.MethodGet, endpoint, nil, &out); err != nil {
		return domain.ConnectionResult{Success: false, Error: err.Error()}
	}
	return domain.ConnectionResult{Success: true}
}

func (a *Adapter) createCustomer(ctx context.Context, base string, creds *domain.QuickBooksCredentials, req domain.UnifiedInvoiceRequest) (string, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = req.CustomerEmail
	}
	payload := map[string]any{
		"DisplayName": name,
	}
	if req.CustomerEmail != "" {
		payload["PrimaryEmailAddr"] = map[string]any{"Address": req.CustomerEmail}
	}

	var out struct {
		Customer struct {
			ID string `json:"Id"`
		} `json:"Customer"`
	}
	if err := a.doJSON(ctx, creds, http.MethodPost, base+companyPath(creds.RealmID, "/customer"), payload, &out); err != nil {
		return "", err
	}
	if out.Customer.ID == "" {
		return "", errors.New("quickbooks customer response missing id")
	}
	return out.Customer.ID, nil
}

func (a *Adapter) baseURL(env domain.Environment) string {
	if env == domain.EnvironmentProduction {
		return a.productionURL
	}
	return a.sandboxURL
}

func (a *Adapter) doJSON(ctx context.Context, creds *domain.QuickBooksCredentials, method, endpoint string, payload any, out any) error {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var fault struct {
			Fault struct {
				Error []struct {
					Message string `json:"Message"`
					Detail  string `json:"Detail"`
					Code    string `json:"code"`
				} `json:"Error"`
			} `json:"Fault"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&fault); err == nil && len(fault.Fault.Error) > 0 {
			first := fault.Fault.Error[0]
			if first.Detail != "" {
				return fmt.Errorf("%s", first.Detail)
			}
			if first.Message != "" {
				return fmt.Errorf("%s", first.Message)
			}
		}
		return fmt.Errorf("quickbooks request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func companyPath(realmID, suffix string) string {
	return "/v3/company/" + realmID + suffix + "?minorversion=" + minorVersion
}

func currencyOrDefault(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "USD"
	}
	return currency
}

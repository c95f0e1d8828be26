package billcom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haulbase/freightpay/internal/payment/domain"
)

const (
	productionBaseURL = "https://api.bill.com/api/v2"
	sandboxBaseURL    = "https://api-sandbox.bill.com/api/v2"
)

// Adapter creates Bill.com invoices. The Bill.com API is session-based:
// every flow starts with Login.json, and all payloads are form-encoded with
// the record JSON in a `data` field. An invoice is created as a draft and
// then sent with SendInvoice.json.
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
	return domain.ProviderBillCom
}

func (a *Adapter) CreateInvoice(ctx context.Context, req domain.UnifiedInvoiceRequest, creds domain.ProviderCredentials) domain.UnifiedInvoiceResponse {
	if err := creds.Validate(); err != nil || creds.Provider != domain.ProviderBillCom {
		return domain.Failure(domain.ProviderBillCom, req.TenantID, domain.CodeProviderNotConfigured, "bill.com credentials missing or incomplete")
	}
	bc := creds.BillCom
	base := a.baseURL(creds.Environment)

	sessionID, err := a.login(ctx, base, bc)
	if err != nil {
		return domain.Failure(domain.ProviderBillCom, req.TenantID, domain.CodeProviderCallFailed, err.Error())
	}

	invoiceNumber := strings.TrimSpace(req.Metadata["invoice_number"])
	if invoiceNumber == "" {
		invoiceNumber = "INV-" + strings.ToUpper(uuid.NewString()[:8])
	}

	lines := make([]map[string]any, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		lines = append(lines, map[string]any{
			"entity":      "InvoiceLineItem",
			"quantity":    item.Quantity.InexactFloat64(),
			"price":       item.Rate.InexactFloat64(),
			"amount":      item.Amount.InexactFloat64(),
			"description": lineDescription(item),
		})
	}

	record := map[string]any{
		"obj": map[string]any{
			"entity":           "Invoice",
			"invoiceNumber":    invoiceNumber,
			"invoiceDate":      time.Now().UTC().Format("2006-01-02"),
			"customerId":       strings.TrimSpace(req.Metadata["billcom_customer_id"]),
			"invoiceLineItems": lines,
		},
	}
	if req.DueDate != nil {
		record["obj"].(map[string]any)["dueDate"] = req.DueDate.Format("2006-01-02")
	}

	created, err := a.crud(ctx, base, bc.DevKey, sessionID, "/Crud/Create/Invoice.json", record)
	if err != nil {
		return domain.Failure(domain.ProviderBillCom, req.TenantID, domain.CodeProviderCallFailed, err.Error())
	}

	status := "draft"
	if req.CustomerEmail != "" {
		send := map[string]any{
			"invoiceId": created.ID,
			"headers": map[string]any{
				"toEmailAddresses": []string{req.CustomerEmail},
			},
		}
		if _, err := a.crud(ctx, base, bc.DevKey, sessionID, "/SendInvoice.json", send); err != nil {
			return domain.Failure(domain.ProviderBillCom, req.TenantID, domain.CodeProviderCallFailed, err.Error())
		}
		status = "sent"
	}

	return domain.UnifiedInvoiceResponse{
		Success:       true,
		Provider:      domain.ProviderBillCom,
		TenantID:      req.TenantID,
		InvoiceID:     created.ID,
		InvoiceNumber: invoiceNumber,
		Status:        status,
		Amount:        req.Total(),
		Currency:      currencyOrDefault(req.Currency),
	}
}

// TestConnection logs in and discards the session, creating nothing.
func (a *Adapter) TestConnection(ctx context.Context, creds domain.ProviderCredentials) domain.ConnectionResult {
	if err := creds.Validate(); err != nil || creds.Provider != domain.ProviderBillCom {
		return domain.ConnectionResult{Success: false, Error: "bill.com credentials missing or incomplete"}
	}
	if _, err := a.login(ctx, a.baseURL(creds.Environment), creds.BillCom); err != nil {
		return domain.ConnectionResult{Success: false, Error: err.Error()}
	}
	return domain.ConnectionResult{Success: true}
}

func (a *Adapter) baseURL(env domain.Environment) string {
	if env == domain.EnvironmentProduction {
		return a.productionURL
	}
	return a.sandboxURL
}

type billcomResponse struct {
	ResponseStatus int             `json:"response_status"`
	ResponseData   json.RawMessage `json:"response_data"`
}

type billcomError struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type billcomRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
}

func (a *Adapter) login(ctx context.Context, base string, creds *domain.BillComCredentials) (string, error) {
	values := url.Values{}
	values.Set("devKey", creds.DevKey)
	values.Set("userName", creds.Username)
	values.Set("password", creds.Password)
	values.Set("orgId", creds.OrgID)

	record, err := a.post(ctx, base+"/Login.json", values)
	if err != nil {
		return "", err
	}
	if record.SessionID == "" {
		return "", errors.New("bill.com login response missing session")
	}
	return record.SessionID, nil
}

func (a *Adapter) crud(ctx context.Context, base, devKey, sessionID, path string, data map[string]any) (billcomRecord, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return billcomRecord{}, err
	}

	values := url.Values{}
	values.Set("devKey", devKey)
	values.Set("sessionId", sessionID)
	values.Set("data", string(payload))

	return a.post(ctx, base+path, values)
}

func (a *Adapter) post(ctx context.Context, endpoint string, values url.Values) (billcomRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return billcomRecord{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return billcomRecord{}, err
	}
	defer resp.Body.Close()

	var envelope billcomResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return billcomRecord{}, errors.New("billcom_response_invalid")
	}

	// Bill.com reports failure in-band: response_status 1 with an error
	// object in response_data, regardless of HTTP status.
	if envelope.ResponseStatus != 0 {
		var apiErr billcomError
		if err := json.Unmarshal(envelope.ResponseData, &apiErr); err == nil && apiErr.ErrorMessage != "" {
			return billcomRecord{}, fmt.Errorf("%s", apiErr.ErrorMessage)
		}
		return billcomRecord{}, errors.New("billcom_request_failed")
	}

	var record billcomRecord
	if err := json.Unmarshal(envelope.ResponseData, &record); err != nil {
		return billcomRecord{}, errors.New("billcom_response_invalid")
	}
	return record, nil
}

func lineDescription(item domain.LineItem) string {
	if item.Description != "" {
		return item.Name + " - " + item.Description
	}
	return item.Name
}

func currencyOrDefault(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "USD"
	}
	return currency
}

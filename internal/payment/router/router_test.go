package router

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/haulbase/freightpay/internal/payment/adapters"
	paymentdomain "github.com/haulbase/freightpay/internal/payment/domain"
	tenantconfigdomain "github.com/haulbase/freightpay/internal/tenantconfig/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeConfigService struct {
	cfg *tenantconfigdomain.TenantPaymentConfig
	err error
}

func (f *fakeConfigService) Get(ctx context.Context, tenantID string) (*tenantconfigdomain.TenantPaymentConfig, error) {
	_ = ctx
	_ = tenantID
	if f.err != nil {
		return nil, f.err
	}
	return f.cfg, nil
}

func (f *fakeConfigService) Redacted(ctx context.Context, tenantID string) (*tenantconfigdomain.RedactedConfig, error) {
	_ = ctx
	_ = tenantID
	return nil, nil
}

func (f *fakeConfigService) ActiveProviders(ctx context.Context, tenantID string) ([]paymentdomain.Provider, error) {
	_ = ctx
	_ = tenantID
	return nil, nil
}

func (f *fakeConfigService) EnableProvider(ctx context.Context, tenantID string, creds paymentdomain.ProviderCredentials) (*tenantconfigdomain.RedactedConfig, error) {
	return nil, nil
}

func (f *fakeConfigService) DisableProvider(ctx context.Context, tenantID string, provider paymentdomain.Provider) (*tenantconfigdomain.RedactedConfig, error) {
	return nil, nil
}

func (f *fakeConfigService) RemoveProvider(ctx context.Context, tenantID string, provider paymentdomain.Provider) (*tenantconfigdomain.RedactedConfig, error) {
	return nil, nil
}

func (f *fakeConfigService) SetPrimaryProvider(ctx context.Context, tenantID string, provider paymentdomain.Provider) (*tenantconfigdomain.RedactedConfig, error) {
	return nil, nil
}

func (f *fakeConfigService) SetConnected(ctx context.Context, tenantID string, provider paymentdomain.Provider, connected bool) (*tenantconfigdomain.RedactedConfig, error) {
	return nil, nil
}

func (f *fakeConfigService) UpdatePreferences(ctx context.Context, tenantID string, patch tenantconfigdomain.PreferencesPatch) (*tenantconfigdomain.RedactedConfig, error) {
	return nil, nil
}

type fakeAdapter struct {
	provider     paymentdomain.Provider
	invoiceCalls int
	connCalls    int
	lastReq      paymentdomain.UnifiedInvoiceRequest
	failCode     string
	conn         paymentdomain.ConnectionResult
}

func (f *fakeAdapter) Provider() paymentdomain.Provider {
	return f.provider
}

func (f *fakeAdapter) CreateInvoice(ctx context.Context, req paymentdomain.UnifiedInvoiceRequest, creds paymentdomain.ProviderCredentials) paymentdomain.UnifiedInvoiceResponse {
	_ = ctx
	_ = creds
	f.invoiceCalls++
	f.lastReq = req
	if f.failCode != "" {
		return paymentdomain.Failure(f.provider, req.TenantID, f.failCode, "simulated failure")
	}
	return paymentdomain.UnifiedInvoiceResponse{
		Success:   true,
		Provider:  f.provider,
		TenantID:  req.TenantID,
		InvoiceID: "inv_" + string(f.provider),
		Status:    "sent",
		Amount:    req.Total(),
	}
}

func (f *fakeAdapter) TestConnection(ctx context.Context, creds paymentdomain.ProviderCredentials) paymentdomain.ConnectionResult {
	_ = ctx
	_ = creds
	f.connCalls++
	return f.conn
}

func newTestRouter(t *testing.T, configs tenantconfigdomain.Service, registered ...paymentdomain.Adapter) *Router {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return New(Params{
		Log:      zap.NewNop(),
		Configs:  configs,
		Adapters: adapters.NewRegistry(registered...),
		GenID:    node,
	})
}

func squareCreds(enabled bool) paymentdomain.ProviderCredentials {
	return paymentdomain.ProviderCredentials{
		Provider:    paymentdomain.ProviderSquare,
		Enabled:     enabled,
		Connected:   enabled,
		Environment: paymentdomain.EnvironmentSandbox,
		Square: &paymentdomain.SquareCredentials{
			ApplicationID: "app",
			AccessToken:   "token",
			LocationID:    "loc",
		},
	}
}

func billcomCreds(enabled bool) paymentdomain.ProviderCredentials {
	return paymentdomain.ProviderCredentials{
		Provider:    paymentdomain.ProviderBillCom,
		Enabled:     enabled,
		Connected:   enabled,
		Environment: paymentdomain.EnvironmentSandbox,
		BillCom: &paymentdomain.BillComCredentials{
			DevKey:   "dev",
			Username: "user",
			Password: "pass",
			OrgID:    "org",
		},
	}
}

func testTenantConfig(autoSwitch bool) *tenantconfigdomain.TenantPaymentConfig {
	fallback := paymentdomain.ProviderBillCom
	cfg := &tenantconfigdomain.TenantPaymentConfig{
		TenantID:        "acme-logistics",
		PrimaryProvider: paymentdomain.ProviderSquare,
		Providers: map[paymentdomain.Provider]paymentdomain.ProviderCredentials{
			paymentdomain.ProviderSquare:  squareCreds(true),
			paymentdomain.ProviderBillCom: billcomCreds(true),
		},
		Preferences: tenantconfigdomain.Preferences{
			DefaultProvider:     paymentdomain.ProviderSquare,
			AutoSwitchOnFailure: autoSwitch,
		},
	}
	if autoSwitch {
		cfg.Preferences.FallbackProvider = &fallback
	}
	return cfg
}

func freightInvoiceRequest() paymentdomain.UnifiedInvoiceRequest {
	return paymentdomain.UnifiedInvoiceRequest{
		TenantID:     "acme-logistics",
		CustomerName: "Shipper Co",
		Currency:     "USD",
		LineItems: []paymentdomain.LineItem{{
			Name:     "Freight charge - load #4512",
			Quantity: decimal.NewFromInt(1),
			Rate:     decimal.NewFromInt(2500),
			Amount:   decimal.NewFromInt(2500),
		}},
	}
}

func TestCreateInvoiceUsesTenantDefault(t *testing.T) {
	square := &fakeAdapter{provider: paymentdomain.ProviderSquare}
	billcom := &fakeAdapter{provider: paymentdomain.ProviderBillCom}
	r := newTestRouter(t, &fakeConfigService{cfg: testTenantConfig(false)}, square, billcom)

	resp := r.CreateInvoice(context.Background(), freightInvoiceRequest())
	if !resp.Success {
		t.Fatalf("expected success, got %s: %s", resp.ErrorCode, resp.Error)
	}
	if resp.Provider != paymentdomain.ProviderSquare {
		t.Fatalf("expected square, got %s", resp.Provider)
	}
	if square.invoiceCalls != 1 || billcom.invoiceCalls != 0 {
		t.Fatalf("expected square only, got square=%d billcom=%d", square.invoiceCalls, billcom.invoiceCalls)
	}
	if square.lastReq.Metadata["routing_id"] == "" {
		t.Fatalf("expected routing id on adapter request")
	}
}

func TestCreateInvoiceExplicitProviderWins(t *testing.T) {
	square := &fakeAdapter{provider: paymentdomain.ProviderSquare}
	billcom := &fakeAdapter{provider: paymentdomain.ProviderBillCom}
	r := newTestRouter(t, &fakeConfigService{cfg: testTenantConfig(false)}, square, billcom)

	req := freightInvoiceRequest()
	req.Provider = paymentdomain.ProviderBillCom
	resp := r.CreateInvoice(context.Background(), req)
	if !resp.Success || resp.Provider != paymentdomain.ProviderBillCom {
		t.Fatalf("expected billcom success, got provider=%s success=%v", resp.Provider, resp.Success)
	}
	if square.invoiceCalls != 0 {
		t.Fatalf("square should not be called")
	}
}

func TestCreateInvoiceFallsBackExactlyOnce(t *testing.T) {
	square := &fakeAdapter{provider: paymentdomain.ProviderSquare, failCode: paymentdomain.CodeProviderCallFailed}
	billcom := &fakeAdapter{provider: paymentdomain.ProviderBillCom}
	r := newTestRouter(t, &fakeConfigService{cfg: testTenantConfig(true)}, square, billcom)

	resp := r.CreateInvoice(context.Background(), freightInvoiceRequest())
	if !resp.Success {
		t.Fatalf("expected fallback success, got %s: %s", resp.ErrorCode, resp.Error)
	}
	if resp.Provider != paymentdomain.ProviderBillCom {
		t.Fatalf("response provider must reflect the processor that handled it, got %s", resp.Provider)
	}
	if square.invoiceCalls != 1 || billcom.invoiceCalls != 1 {
		t.Fatalf("expected one attempt each, got square=%d billcom=%d", square.invoiceCalls, billcom.invoiceCalls)
	}
	if resp.Amount.Cmp(decimal.NewFromInt(2500)) != 0 {
		t.Fatalf("expected amount 2500, got %s", resp.Amount)
	}
}

func TestCreateInvoiceBothAttemptsFail(t *testing.T) {
	square := &fakeAdapter{provider: paymentdomain.ProviderSquare, failCode: paymentdomain.CodeProviderCallFailed}
	billcom := &fakeAdapter{provider: paymentdomain.ProviderBillCom, failCode: paymentdomain.CodeProviderCallFailed}
	r := newTestRouter(t, &fakeConfigService{cfg: testTenantConfig(true)}, square, billcom)

	resp := r.CreateInvoice(context.Background(), freightInvoiceRequest())
	if resp.Success {
		t.Fatalf("expected failure")
	}
	if resp.Provider != paymentdomain.ProviderBillCom {
		t.Fatalf("failure should report the last provider tried, got %s", resp.Provider)
	}
	if resp.ErrorCode != paymentdomain.CodeProviderCallFailed {
		t.Fatalf("expected provider_call_failed, got %s", resp.ErrorCode)
	}
	// The fallback never hops again.
	if square.invoiceCalls != 1 || billcom.invoiceCalls != 1 {
		t.Fatalf("expected one attempt each, got square=%d billcom=%d", square.invoiceCalls, billcom.invoiceCalls)
	}
}

func TestCreateInvoiceNoFallbackWithoutAutoSwitch(t *testing.T) {
	square := &fakeAdapter{provider: paymentdomain.ProviderSquare, failCode: paymentdomain.CodeProviderCallFailed}
	billcom := &fakeAdapter{provider: paymentdomain.ProviderBillCom}
	r := newTestRouter(t, &fakeConfigService{cfg: testTenantConfig(false)}, square, billcom)

	resp := r.CreateInvoice(context.Background(), freightInvoiceRequest())
	if resp.Success || billcom.invoiceCalls != 0 {
		t.Fatalf("expected terminal failure without fallback, billcom=%d", billcom.invoiceCalls)
	}
}

func TestCreateInvoiceConfigErrorsAreTerminal(t *testing.T) {
	cfg := testTenantConfig(true)
	cfg.Providers[paymentdomain.ProviderSquare] = squareCreds(false)
	square := &fakeAdapter{provider: paymentdomain.ProviderSquare}
	billcom := &fakeAdapter{provider: paymentdomain.ProviderBillCom}
	r := newTestRouter(t, &fakeConfigService{cfg: cfg}, square, billcom)

	resp := r.CreateInvoice(context.Background(), freightInvoiceRequest())
	if resp.ErrorCode != paymentdomain.CodeProviderNotConfigured {
		t.Fatalf("expected provider_not_configured, got %s", resp.ErrorCode)
	}
	if square.invoiceCalls != 0 || billcom.invoiceCalls != 0 {
		t.Fatalf("no adapter should be called, got square=%d billcom=%d", square.invoiceCalls, billcom.invoiceCalls)
	}
}

func TestCreateInvoiceRejectsEmptyLineItems(t *testing.T) {
	square := &fakeAdapter{provider: paymentdomain.ProviderSquare}
	r := newTestRouter(t, &fakeConfigService{cfg: testTenantConfig(false)}, square)

	req := freightInvoiceRequest()
	req.LineItems = nil
	resp := r.CreateInvoice(context.Background(), req)
	if resp.ErrorCode != paymentdomain.CodeInvalidRequest {
		t.Fatalf("expected invalid_request, got %s", resp.ErrorCode)
	}
	if square.invoiceCalls != 0 {
		t.Fatalf("invalid requests must never reach an adapter")
	}
}

func TestCreateInvoiceUnknownTenant(t *testing.T) {
	r := newTestRouter(t, &fakeConfigService{err: paymentdomain.ErrConfigNotFound})

	resp := r.CreateInvoice(context.Background(), freightInvoiceRequest())
	if resp.ErrorCode != paymentdomain.CodeConfigNotFound {
		t.Fatalf("expected config_not_found, got %s", resp.ErrorCode)
	}
}

func TestCreateInvoiceNoResolvableProvider(t *testing.T) {
	cfg := testTenantConfig(false)
	cfg.PrimaryProvider = ""
	cfg.Preferences.DefaultProvider = ""
	r := newTestRouter(t, &fakeConfigService{cfg: cfg})

	resp := r.CreateInvoice(context.Background(), freightInvoiceRequest())
	if resp.ErrorCode != paymentdomain.CodeProviderNotConfigured {
		t.Fatalf("expected provider_not_configured, got %s", resp.ErrorCode)
	}
}

func TestCreateInvoiceTimeoutBeforeFallback(t *testing.T) {
	square := &fakeAdapter{provider: paymentdomain.ProviderSquare, failCode: paymentdomain.CodeProviderCallFailed}
	billcom := &fakeAdapter{provider: paymentdomain.ProviderBillCom}
	r := newTestRouter(t, &fakeConfigService{cfg: testTenantConfig(true)}, square, billcom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := r.CreateInvoice(ctx, freightInvoiceRequest())
	if resp.ErrorCode != paymentdomain.CodeTimeout {
		t.Fatalf("expected timeout, got %s", resp.ErrorCode)
	}
	if billcom.invoiceCalls != 0 {
		t.Fatalf("fallback must not run once the budget is exhausted")
	}
}

func TestTestConnectionNeverCreatesInvoices(t *testing.T) {
	square := &fakeAdapter{provider: paymentdomain.ProviderSquare, conn: paymentdomain.ConnectionResult{Success: true}}
	r := newTestRouter(t, &fakeConfigService{cfg: testTenantConfig(false)}, square)

	result := r.TestConnection(context.Background(), "acme-logistics", paymentdomain.ProviderSquare)
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if square.connCalls != 1 || square.invoiceCalls != 0 {
		t.Fatalf("expected connection check only, got conn=%d invoices=%d", square.connCalls, square.invoiceCalls)
	}
}

func TestTestConnectionUnconfiguredProvider(t *testing.T) {
	r := newTestRouter(t, &fakeConfigService{cfg: testTenantConfig(false)})

	result := r.TestConnection(context.Background(), "acme-logistics", paymentdomain.ProviderStripe)
	if result.Success {
		t.Fatalf("expected failure for unconfigured provider")
	}
}

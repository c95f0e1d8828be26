package router

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/haulbase/freightpay/internal/observability/metrics"
	paymentdomain "github.com/haulbase/freightpay/internal/payment/domain"
	tenantconfigdomain "github.com/haulbase/freightpay/internal/tenantconfig/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// maxAttempts bounds the routing loop: one primary attempt plus at most one
// fallback hop. The bound is structural, not dependent on tenant data.
const maxAttempts = 2

type Params struct {
	fx.In

	Log      *zap.Logger
	Configs  tenantconfigdomain.Service
	Adapters paymentdomain.AdapterRegistry
	GenID    *snowflake.Node
	Metrics  *metrics.PaymentMetrics `optional:"true"`
}

// Router resolves the provider for a unified invoice request, invokes the
// matching adapter and applies the tenant's failover policy. It reads tenant
// configuration but never writes it.
type Router struct {
	log      *zap.Logger
	configs  tenantconfigdomain.Service
	adapters paymentdomain.AdapterRegistry
	genID    *snowflake.Node
	metrics  *metrics.PaymentMetrics
}

func New(p Params) *Router {
	return &Router{
		log:      p.Log.Named("payment.router"),
		configs:  p.Configs,
		adapters: p.Adapters,
		genID:    p.GenID,
		metrics:  p.Metrics,
	}
}

func (r *Router) CreateInvoice(ctx context.Context, req paymentdomain.UnifiedInvoiceRequest) paymentdomain.UnifiedInvoiceResponse {
	if err := req.Validate(); err != nil {
		return paymentdomain.Failure(req.Provider, req.TenantID, paymentdomain.CodeInvalidRequest, "invalid invoice request")
	}
	if mismatched := req.MismatchedLineItems(); len(mismatched) > 0 {
		// Permissive on purpose: amounts are forwarded as given, the
		// mismatch is only surfaced for diagnostics.
		r.log.Warn("line item amount differs from quantity*rate",
			zap.String("tenant_id", req.TenantID),
			zap.Ints("line_items", mismatched),
		)
	}

	cfg, err := r.configs.Get(ctx, req.TenantID)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrConfigNotFound) {
			return paymentdomain.Failure(req.Provider, req.TenantID, paymentdomain.CodeConfigNotFound, "tenant has no payment configuration")
		}
		return paymentdomain.Failure(req.Provider, req.TenantID, paymentdomain.CodeInternal, err.Error())
	}

	provider, ok := r.resolveProvider(req, cfg)
	if !ok {
		return paymentdomain.Failure("", req.TenantID, paymentdomain.CodeProviderNotConfigured, "no provider requested and tenant has no default")
	}

	routingID := r.genID.Generate().String()

	var resp paymentdomain.UnifiedInvoiceResponse
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp = r.attempt(ctx, req, cfg, provider, routingID)
		if r.metrics != nil {
			r.metrics.InvoiceAttempts.WithLabelValues(string(provider), outcome(resp.Success)).Inc()
		}
		if resp.Success {
			r.log.Info("invoice created",
				zap.String("tenant_id", req.TenantID),
				zap.String("provider", string(provider)),
				zap.String("routing_id", routingID),
				zap.Int("attempt", attempt+1),
			)
			return resp
		}

		fallback, ok := r.fallbackCandidate(cfg, provider, attempt, resp)
		if !ok {
			break
		}
		if ctx.Err() != nil {
			return paymentdomain.Failure(provider, req.TenantID, paymentdomain.CodeTimeout, "request budget exhausted before fallback attempt")
		}

		r.log.Warn("provider call failed, switching to fallback",
			zap.String("tenant_id", req.TenantID),
			zap.String("provider", string(provider)),
			zap.String("fallback", string(fallback)),
			zap.String("routing_id", routingID),
			zap.String("error", resp.Error),
		)
		if r.metrics != nil {
			r.metrics.Fallbacks.Inc()
		}
		provider = fallback
	}

	r.log.Warn("invoice creation failed",
		zap.String("tenant_id", req.TenantID),
		zap.String("provider", string(resp.Provider)),
		zap.String("routing_id", routingID),
		zap.String("error_code", resp.ErrorCode),
		zap.String("error", resp.Error),
	)
	return resp
}

// TestConnection runs the adapter's credential liveness check. It creates no
// invoice and never mutates tenant configuration; recording the result is the
// mutation API's job.
func (r *Router) TestConnection(ctx context.Context, tenantID string, provider paymentdomain.Provider) paymentdomain.ConnectionResult {
	cfg, err := r.configs.Get(ctx, tenantID)
	if err != nil {
		return paymentdomain.ConnectionResult{Success: false, Error: err.Error()}
	}

	creds, ok := cfg.Credentials(provider)
	if !ok {
		return paymentdomain.ConnectionResult{Success: false, Error: paymentdomain.ErrProviderNotConfigured.Error()}
	}

	adapter, ok := r.adapters.Adapter(provider)
	if !ok {
		return paymentdomain.ConnectionResult{Success: false, Error: paymentdomain.ErrProviderNotFound.Error()}
	}

	result := adapter.TestConnection(ctx, creds)
	if r.metrics != nil {
		r.metrics.ConnectionTests.WithLabelValues(string(provider), outcome(result.Success)).Inc()
	}
	return result
}

func (r *Router) resolveProvider(req paymentdomain.UnifiedInvoiceRequest, cfg *tenantconfigdomain.TenantPaymentConfig) (paymentdomain.Provider, bool) {
	if req.Provider != "" {
		return req.Provider, true
	}
	if cfg.Preferences.DefaultProvider != "" {
		return cfg.Preferences.DefaultProvider, true
	}
	if cfg.PrimaryProvider != "" {
		return cfg.PrimaryProvider, true
	}
	return "", false
}

func (r *Router) attempt(ctx context.Context, req paymentdomain.UnifiedInvoiceRequest, cfg *tenantconfigdomain.TenantPaymentConfig, provider paymentdomain.Provider, routingID string) paymentdomain.UnifiedInvoiceResponse {
	creds, ok := cfg.Credentials(provider)
	if !ok || !creds.Enabled {
		return paymentdomain.Failure(provider, req.TenantID, paymentdomain.CodeProviderNotConfigured, "provider not configured for tenant")
	}

	adapter, ok := r.adapters.Adapter(provider)
	if !ok {
		return paymentdomain.Failure(provider, req.TenantID, paymentdomain.CodeProviderNotFound, "unknown provider")
	}

	attempt := req
	attempt.Provider = provider
	attempt.Metadata = withRoutingID(req.Metadata, routingID)

	return adapter.CreateInvoice(ctx, attempt, creds)
}

// fallbackCandidate returns the provider for the second attempt. Fallback is
// only a reaction to a provider call failing; configuration errors are
// terminal, and only the first attempt may trigger a hop.
func (r *Router) fallbackCandidate(cfg *tenantconfigdomain.TenantPaymentConfig, tried paymentdomain.Provider, attempt int, resp paymentdomain.UnifiedInvoiceResponse) (paymentdomain.Provider, bool) {
	if attempt > 0 {
		return "", false
	}
	if resp.ErrorCode != paymentdomain.CodeProviderCallFailed {
		return "", false
	}
	prefs := cfg.Preferences
	if !prefs.AutoSwitchOnFailure || prefs.FallbackProvider == nil {
		return "", false
	}
	fallback := *prefs.FallbackProvider
	if fallback == "" || fallback == tried {
		return "", false
	}
	return fallback, true
}

func withRoutingID(metadata map[string]string, routingID string) map[string]string {
	out := make(map[string]string, len(metadata)+1)
	for key, value := range metadata {
		out[key] = value
	}
	out["routing_id"] = routingID
	return out
}

func outcome(success bool) string {
	if success {
		return metrics.OutcomeSuccess
	}
	return metrics.OutcomeFailure
}

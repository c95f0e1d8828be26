package payment

import (
	"github.com/haulbase/freightpay/internal/config"
	"github.com/haulbase/freightpay/internal/payment/adapters"
	"github.com/haulbase/freightpay/internal/payment/adapters/billcom"
	"github.com/haulbase/freightpay/internal/payment/adapters/quickbooks"
	"github.com/haulbase/freightpay/internal/payment/adapters/square"
	"github.com/haulbase/freightpay/internal/payment/adapters/stripe"
	"github.com/haulbase/freightpay/internal/payment/domain"
	"github.com/haulbase/freightpay/internal/payment/router"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(func(cfg config.Config) domain.AdapterRegistry {
		timeout := cfg.ProviderTimeout
		return adapters.NewRegistry(
			square.New(timeout),
			billcom.New(timeout),
			quickbooks.New(timeout),
			stripe.New(timeout),
		)
	}),
	fx.Provide(router.New),
)

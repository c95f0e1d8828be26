package adapters

import (
	"github.com/haulbase/freightpay/internal/payment/domain"
)

type Registry struct {
	adapters map[domain.Provider]domain.Adapter
}

func NewRegistry(adapters ...domain.Adapter) *Registry {
	registry := &Registry{adapters: map[domain.Provider]domain.Adapter{}}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		provider := adapter.Provider()
		if provider == "" {
			continue
		}
		registry.adapters[provider] = adapter
	}
	return registry
}

func (r *Registry) Adapter(provider domain.Provider) (domain.Adapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[provider]
	return adapter, ok
}

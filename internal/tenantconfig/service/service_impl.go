package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/haulbase/freightpay/internal/catalog"
	"github.com/haulbase/freightpay/internal/config"
	paymentdomain "github.com/haulbase/freightpay/internal/payment/domain"
	"github.com/haulbase/freightpay/internal/tenantconfig/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
	Cfg  config.Config
}

// Service implements domain.Service. Mutations take a per-tenant lock across
// the read-modify-write cycle; the row itself is written in a single upsert,
// so readers see either the old or the new config, never a torn one.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	encKey []byte

	mu          sync.Mutex
	tenantLocks map[string]*sync.Mutex
}

func New(p Params) domain.Service {
	secret := strings.TrimSpace(p.Cfg.PaymentConfigSecret)
	var key []byte
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}

	return &Service{
		db:          p.DB,
		log:         p.Log.Named("tenantconfig.service"),
		repo:        p.Repo,
		encKey:      key,
		tenantLocks: map[string]*sync.Mutex{},
	}
}

func (s *Service) Get(ctx context.Context, tenantID string) (*domain.TenantPaymentConfig, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, paymentdomain.ErrInvalidRequest
	}
	return s.load(ctx, tenantID)
}

func (s *Service) Redacted(ctx context.Context, tenantID string) (*domain.RedactedConfig, error) {
	cfg, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return redact(cfg), nil
}

func (s *Service) ActiveProviders(ctx context.Context, tenantID string) ([]paymentdomain.Provider, error) {
	cfg, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return activeProviders(cfg), nil
}

func (s *Service) EnableProvider(ctx context.Context, tenantID string, creds paymentdomain.ProviderCredentials) (*domain.RedactedConfig, error) {
	if !catalog.Exists(creds.Provider) {
		return nil, paymentdomain.ErrProviderNotFound
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	// A freshly enabled provider is never trusted as connected; a
	// connection test must flip the flag explicitly.
	creds.Enabled = true
	creds.Connected = false

	return s.mutate(ctx, tenantID, true, func(cfg *domain.TenantPaymentConfig) error {
		cfg.Providers[creds.Provider] = creds
		if cfg.PrimaryProvider == "" {
			cfg.PrimaryProvider = creds.Provider
			cfg.Preferences.DefaultProvider = creds.Provider
		}
		return nil
	})
}

func (s *Service) DisableProvider(ctx context.Context, tenantID string, provider paymentdomain.Provider) (*domain.RedactedConfig, error) {
	if !catalog.Exists(provider) {
		return nil, paymentdomain.ErrProviderNotFound
	}

	return s.mutate(ctx, tenantID, false, func(cfg *domain.TenantPaymentConfig) error {
		creds, ok := cfg.Providers[provider]
		if !ok {
			return paymentdomain.ErrProviderNotConfigured
		}
		creds.Enabled = false
		creds.Connected = false
		cfg.Providers[provider] = creds

		s.repairAfterRemoval(cfg, provider)
		return nil
	})
}

func (s *Service) RemoveProvider(ctx context.Context, tenantID string, provider paymentdomain.Provider) (*domain.RedactedConfig, error) {
	if !catalog.Exists(provider) {
		return nil, paymentdomain.ErrProviderNotFound
	}

	return s.mutate(ctx, tenantID, false, func(cfg *domain.TenantPaymentConfig) error {
		creds, ok := cfg.Providers[provider]
		if !ok {
			return paymentdomain.ErrProviderNotConfigured
		}

		// Disable may leave a tenant with zero active providers, but
		// deleting the configuration of the last active one would leave
		// the tenant unroutable with no record of why.
		if creds.Enabled && creds.Connected {
			active := activeProviders(cfg)
			if len(active) == 1 && active[0] == provider {
				return paymentdomain.ErrCannotRemoveLastProvider
			}
		}

		delete(cfg.Providers, provider)
		s.repairAfterRemoval(cfg, provider)
		return nil
	})
}

func (s *Service) SetPrimaryProvider(ctx context.Context, tenantID string, provider paymentdomain.Provider) (*domain.RedactedConfig, error) {
	if !catalog.Exists(provider) {
		return nil, paymentdomain.ErrProviderNotFound
	}

	return s.mutate(ctx, tenantID, false, func(cfg *domain.TenantPaymentConfig) error {
		creds, ok := cfg.Providers[provider]
		if !ok {
			return paymentdomain.ErrProviderNotConfigured
		}
		if !creds.Enabled || !creds.Connected {
			return paymentdomain.ErrProviderNotConnected
		}
		cfg.PrimaryProvider = provider
		cfg.Preferences.DefaultProvider = provider
		return validatePreferences(cfg)
	})
}

func (s *Service) SetConnected(ctx context.Context, tenantID string, provider paymentdomain.Provider, connected bool) (*domain.RedactedConfig, error) {
	if !catalog.Exists(provider) {
		return nil, paymentdomain.ErrProviderNotFound
	}

	return s.mutate(ctx, tenantID, false, func(cfg *domain.TenantPaymentConfig) error {
		creds, ok := cfg.Providers[provider]
		if !ok {
			return paymentdomain.ErrProviderNotConfigured
		}
		creds.Connected = connected && creds.Enabled
		cfg.Providers[provider] = creds

		if creds.Connected && cfg.PrimaryProvider == "" {
			cfg.PrimaryProvider = provider
			cfg.Preferences.DefaultProvider = provider
		}
		if !creds.Connected {
			s.repairAfterRemoval(cfg, provider)
		}
		return nil
	})
}

func (s *Service) UpdatePreferences(ctx context.Context, tenantID string, patch domain.PreferencesPatch) (*domain.RedactedConfig, error) {
	return s.mutate(ctx, tenantID, false, func(cfg *domain.TenantPaymentConfig) error {
		if patch.DefaultProvider != nil {
			provider := *patch.DefaultProvider
			if !catalog.Exists(provider) {
				return paymentdomain.ErrProviderNotFound
			}
			creds, ok := cfg.Providers[provider]
			if !ok || !creds.Enabled {
				return paymentdomain.ErrProviderNotConfigured
			}
			cfg.Preferences.DefaultProvider = provider
		}
		if patch.FallbackProvider != nil {
			provider := *patch.FallbackProvider
			if provider == "" {
				cfg.Preferences.FallbackProvider = nil
			} else {
				if !catalog.Exists(provider) {
					return paymentdomain.ErrProviderNotFound
				}
				if _, ok := cfg.Providers[provider]; !ok {
					return paymentdomain.ErrProviderNotConfigured
				}
				cfg.Preferences.FallbackProvider = &provider
			}
		}
		if patch.AutoSwitchOnFailure != nil {
			cfg.Preferences.AutoSwitchOnFailure = *patch.AutoSwitchOnFailure
		}
		return validatePreferences(cfg)
	})
}

// repairAfterRemoval reassigns primary/default to the first remaining active
// provider in catalog order after one was disabled, disconnected or removed,
// and drops failover settings that now reference it.
func (s *Service) repairAfterRemoval(cfg *domain.TenantPaymentConfig, removed paymentdomain.Provider) {
	if fallback := cfg.Preferences.FallbackProvider; fallback != nil && *fallback == removed {
		cfg.Preferences.FallbackProvider = nil
		cfg.Preferences.AutoSwitchOnFailure = false
	}

	if cfg.PrimaryProvider != removed {
		return
	}

	active := activeProviders(cfg)
	if len(active) == 0 {
		// Degraded but explicit state: the tenant keeps its config and
		// cannot route until a provider is reconnected.
		cfg.PrimaryProvider = ""
		cfg.Preferences.DefaultProvider = ""
		return
	}
	cfg.PrimaryProvider = active[0]
	cfg.Preferences.DefaultProvider = active[0]
}

func validatePreferences(cfg *domain.TenantPaymentConfig) error {
	prefs := cfg.Preferences
	if prefs.AutoSwitchOnFailure {
		if prefs.FallbackProvider == nil || *prefs.FallbackProvider == "" {
			return paymentdomain.ErrInvalidPreferences
		}
		if *prefs.FallbackProvider == cfg.PrimaryProvider {
			return paymentdomain.ErrInvalidPreferences
		}
	}
	return nil
}

func activeProviders(cfg *domain.TenantPaymentConfig) []paymentdomain.Provider {
	var active []paymentdomain.Provider
	for _, provider := range catalog.Order() {
		creds, ok := cfg.Providers[provider]
		if ok && creds.Enabled && creds.Connected {
			active = append(active, provider)
		}
	}
	return active
}

func redact(cfg *domain.TenantPaymentConfig) *domain.RedactedConfig {
	out := &domain.RedactedConfig{
		TenantID:        cfg.TenantID,
		PrimaryProvider: cfg.PrimaryProvider,
		Providers:       []domain.RedactedProvider{},
		Preferences:     cfg.Preferences,
	}
	for _, provider := range catalog.Order() {
		creds, ok := cfg.Providers[provider]
		if !ok {
			continue
		}
		out.Providers = append(out.Providers, domain.RedactedProvider{
			Provider:    provider,
			Enabled:     creds.Enabled,
			Connected:   creds.Connected,
			Environment: creds.Environment,
		})
	}
	return out
}

func (s *Service) load(ctx context.Context, tenantID string) (*domain.TenantPaymentConfig, error) {
	record, err := s.repo.Find(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, paymentdomain.ErrConfigNotFound
	}
	return s.toDomain(record)
}

func (s *Service) toDomain(record *domain.ConfigRecord) (*domain.TenantPaymentConfig, error) {
	providers, err := s.decryptProviders(record.Providers)
	if err != nil {
		return nil, err
	}

	var prefs domain.Preferences
	if len(record.Preferences) > 0 {
		if err := json.Unmarshal(record.Preferences, &prefs); err != nil {
			return nil, err
		}
	}

	return &domain.TenantPaymentConfig{
		TenantID:        record.TenantID,
		PrimaryProvider: paymentdomain.Provider(record.PrimaryProvider),
		Providers:       providers,
		Preferences:     prefs,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}, nil
}

func (s *Service) toRecord(cfg *domain.TenantPaymentConfig) (*domain.ConfigRecord, error) {
	providers, err := s.encryptProviders(cfg.Providers)
	if err != nil {
		return nil, err
	}
	prefs, err := json.Marshal(cfg.Preferences)
	if err != nil {
		return nil, err
	}
	return &domain.ConfigRecord{
		TenantID:        cfg.TenantID,
		PrimaryProvider: string(cfg.PrimaryProvider),
		Providers:       providers,
		Preferences:     datatypes.JSON(prefs),
		CreatedAt:       cfg.CreatedAt,
		UpdatedAt:       cfg.UpdatedAt,
	}, nil
}

func (s *Service) mutate(ctx context.Context, tenantID string, createIfMissing bool, apply func(cfg *domain.TenantPaymentConfig) error) (*domain.RedactedConfig, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, paymentdomain.ErrInvalidRequest
	}
	if len(s.encKey) == 0 {
		return nil, paymentdomain.ErrEncryptionKeyMissing
	}

	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	record, err := s.repo.Find(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	var cfg *domain.TenantPaymentConfig
	switch {
	case record != nil:
		cfg, err = s.toDomain(record)
		if err != nil {
			return nil, err
		}
	case createIfMissing:
		cfg = &domain.TenantPaymentConfig{
			TenantID:  tenantID,
			Providers: map[paymentdomain.Provider]paymentdomain.ProviderCredentials{},
			CreatedAt: now,
		}
	default:
		return nil, paymentdomain.ErrConfigNotFound
	}

	if err := apply(cfg); err != nil {
		return nil, err
	}
	cfg.UpdatedAt = now

	updated, err := s.toRecord(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, s.db, updated); err != nil {
		return nil, err
	}

	s.log.Info("tenant payment config updated",
		zap.String("tenant_id", tenantID),
		zap.String("primary_provider", string(cfg.PrimaryProvider)),
	)

	return redact(cfg), nil
}

func (s *Service) tenantLock(tenantID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.tenantLocks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		s.tenantLocks[tenantID] = lock
	}
	return lock
}

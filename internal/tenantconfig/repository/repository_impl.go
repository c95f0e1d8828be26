package repository

import (
	"context"

	"github.com/haulbase/freightpay/internal/tenantconfig/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, tenantID string) (*domain.ConfigRecord, error) {
	var record domain.ConfigRecord
	err := db.WithContext(ctx).Raw(
		`SELECT tenant_id, primary_provider, providers, preferences, created_at, updated_at
		 FROM tenant_payment_configs
		 WHERE tenant_id = ?
		 LIMIT 1`,
		tenantID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.TenantID == "" {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, record *domain.ConfigRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenant_payment_configs (
			tenant_id, primary_provider, providers, preferences, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id)
		DO UPDATE SET primary_provider = EXCLUDED.primary_provider,
			providers = EXCLUDED.providers,
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at`,
		record.TenantID,
		record.PrimaryProvider,
		record.Providers,
		record.Preferences,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

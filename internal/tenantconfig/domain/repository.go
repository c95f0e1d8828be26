package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Find returns nil when the tenant has no configuration.
	Find(ctx context.Context, db *gorm.DB, tenantID string) (*ConfigRecord, error)
	// Upsert writes the whole record in one statement so a reader never
	// observes a partially applied mutation.
	Upsert(ctx context.Context, db *gorm.DB, record *ConfigRecord) error
}

package tenantconfig

import (
	"github.com/haulbase/freightpay/internal/tenantconfig/domain"
	"github.com/haulbase/freightpay/internal/tenantconfig/repository"
	"github.com/haulbase/freightpay/internal/tenantconfig/service"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.ConfigRecord{})
}

var Module = fx.Module("tenantconfig.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Invoke(migrate),
)

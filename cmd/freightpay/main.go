package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/haulbase/freightpay/internal/config"
	"github.com/haulbase/freightpay/internal/logger"
	"github.com/haulbase/freightpay/internal/observability/metrics"
	"github.com/haulbase/freightpay/internal/payment"
	"github.com/haulbase/freightpay/internal/server"
	"github.com/haulbase/freightpay/internal/tenantconfig"
	"github.com/haulbase/freightpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		metrics.Module,

		// Functional domains
		tenantconfig.Module,
		payment.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

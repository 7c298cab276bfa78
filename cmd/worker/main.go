package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"creditshop/pkg/config"
	"creditshop/pkg/db"
	"creditshop/pkg/gen"
	"creditshop/pkg/hashistack/secretmanager"
	"creditshop/pkg/logger"
	"creditshop/pkg/otelcol"
	"creditshop/pkg/profiling"
	"creditshop/pkg/redis"
	"creditshop/pkg/task"
	"creditshop/services/address"
	"creditshop/services/ledger"
	"creditshop/services/order"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		fx.Provide(address.NewService),
		ledger.Worker,
		order.Worker,
		task.Server,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

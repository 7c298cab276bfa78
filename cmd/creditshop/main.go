package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"creditshop/pkg/accesscontrol"
	"creditshop/pkg/config"
	"creditshop/pkg/db"
	"creditshop/pkg/gen"
	"creditshop/pkg/hashistack/secretmanager"
	"creditshop/pkg/health"
	"creditshop/pkg/httpapi"
	"creditshop/pkg/identity"
	"creditshop/pkg/logger"
	"creditshop/pkg/otelcol"
	"creditshop/pkg/profiling"
	"creditshop/pkg/redis"
	"creditshop/pkg/sequence"
	"creditshop/pkg/server"
	"creditshop/pkg/task"
	"creditshop/services/account"
	"creditshop/services/address"
	"creditshop/services/catalog"
	"creditshop/services/ledger"
	"creditshop/services/order"
	"creditshop/services/schema"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		schema.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		gen.Module,
		identity.Module,
		accesscontrol.Module,
		health.Module,
		httpapi.Module,
		account.Module,
		catalog.Module,
		address.Module,
		ledger.Module,
		order.Module,
		server.ProvideGRPCServer,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "development" {
		return &fxevent.ZapLogger{Logger: logger}
	}
	return fxevent.NopLogger
})

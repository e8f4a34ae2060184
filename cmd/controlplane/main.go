package main

import (
	"log"

	"clinic-controlplane/pkg/config"
	"clinic-controlplane/pkg/db"
	"clinic-controlplane/pkg/gen"
	"clinic-controlplane/pkg/health"
	"clinic-controlplane/pkg/httpapi"
	"clinic-controlplane/pkg/idempotency"
	"clinic-controlplane/pkg/logger"
	"clinic-controlplane/pkg/otelcol"
	"clinic-controlplane/pkg/profiling"
	"clinic-controlplane/pkg/redis"
	"clinic-controlplane/pkg/server"
	"clinic-controlplane/services/license"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		idempotency.Module,
		health.Module,
		httpapi.Module,
		license.ServerModule,
		server.ProvideGRPCServer,
		health.GRPCModule,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

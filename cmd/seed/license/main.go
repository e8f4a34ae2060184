package main

import (
	"context"
	"errors"
	"log"

	"clinic-controlplane/pkg/config"
	"clinic-controlplane/pkg/db"
	"clinic-controlplane/pkg/gen"
	"clinic-controlplane/pkg/logger"
	"clinic-controlplane/services/license"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var demo = license.IssueRequest{
	ClinicName:   "Demo Clinic",
	ContactEmail: "demo@clinic.com",
	LicenseType:  license.TierTrial,
}

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		gen.Module,
		license.Module,
		fx.Invoke(seed),
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

func seed(lc fx.Lifecycle, shutdown fx.Shutdowner, cfg *config.Config, svc *license.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.UsesRelationalStore() {
				zap.L().Warn("DATABASE.TYPE is memory, seeded license will not persist")
			}

			res, err := svc.Issue(ctx, demo)
			switch {
			case errors.Is(err, license.ErrDuplicateEmail):
				zap.L().Info("demo clinic already seeded", zap.String("contact_email", demo.ContactEmail))
			case err != nil:
				zap.L().Error("failed to seed demo license", zap.Error(err))
				return err
			default:
				zap.L().Info("seeded demo license",
					zap.String("customer_id", res.CustomerID),
					zap.String("license_key", res.LicenseKey),
					zap.Timep("expires_at", res.ExpiresAt),
				)
			}

			return shutdown.Shutdown()
		},
	})
}

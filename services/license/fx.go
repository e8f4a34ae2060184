package license

import (
	"context"
	"errors"
	"time"

	"clinic-controlplane/pkg/config"
	"clinic-controlplane/pkg/health"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("license.module",
	fx.Provide(
		ProvideStore,
		NewMetrics,
		NewService,
		health.AsChecker(storeChecker),
	),
)

var ServerModule = fx.Module("license.server",
	Module,
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)

type StoreParams struct {
	fx.In
	Config *config.Config
	DB     *gorm.DB `optional:"true"`
}

// ProvideStore selects the storage backend from DATABASE.TYPE and migrates
// the relational schema.
func ProvideStore(p StoreParams) (Store, error) {
	if !p.Config.UsesRelationalStore() {
		zap.L().Info("license records kept in memory")
		return NewMemoryStore(), nil
	}
	if p.DB == nil {
		return nil, errors.New("relational database configured but no connection provided")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := NewGormStore(p.DB)
	if err := store.Migrate(ctx); err != nil {
		zap.L().Error("failed to migrate license schema", zap.Error(err))
		return nil, err
	}
	return store, nil
}

func storeChecker(s Store) health.Checker {
	return health.NewChecker("license_store", s.Ping)
}

func registerRoutes(engine *gin.Engine, h *Handler) {
	h.Register(engine)
}

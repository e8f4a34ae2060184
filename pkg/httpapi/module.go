package httpapi

import (
	"clinic-controlplane/pkg/config"
	"clinic-controlplane/pkg/health"
	"clinic-controlplane/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		NewEngine,
		provideRegisterer,
		provideGatherer,
	),
	fx.Invoke(registerOperational),
)

// NewEngine builds the router every HTTP surface registers on.
func NewEngine(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.Logger(),
		gin.Recovery(),
		middleware.Error(),
	)
	return r
}

func provideRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

func provideGatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}

type operationalParams struct {
	fx.In
	Engine   *gin.Engine
	Health   *health.Health
	Gatherer prometheus.Gatherer
}

func registerOperational(p operationalParams) {
	Register(p.Engine, p.Health, p.Gatherer)
}

// Register mounts the probes and the metrics scrape endpoint.
func Register(r gin.IRouter, h *health.Health, g prometheus.Gatherer) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	checkTimeout = 2 * time.Second
)

var Module = fx.Module("health",
	fx.Provide(ProvideHealth),
)

// GRPCModule additionally serves the standard gRPC health protocol.
var GRPCModule = fx.Module("health.grpc",
	fx.Invoke(RegisterGRPC),
)

// Checker is one dependency probed by readiness.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkFunc) Name() string                   { return c.name }
func (c checkFunc) Ping(ctx context.Context) error { return c.fn(ctx) }

func NewChecker(name string, fn func(ctx context.Context) error) Checker {
	return checkFunc{name: name, fn: fn}
}

// AsChecker tags a provider returning a Checker so its result joins the
// readiness probes.
func AsChecker(f any) any {
	return fx.Annotate(f, fx.ResultTags(`group:"health.checkers"`))
}

type Dependency struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Report struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Deps    []Dependency `json:"deps"`
}

func (r Report) Healthy() bool { return r.Status == StatusHealthy }

type Health struct {
	checkers []Checker
}

type HealthParams struct {
	fx.In
	Checkers []Checker     `group:"health.checkers"`
	Redis    *redis.Client `optional:"true"`
}

func ProvideHealth(p HealthParams) *Health {
	checkers := make([]Checker, 0, len(p.Checkers)+1)
	for _, c := range p.Checkers {
		if c != nil {
			checkers = append(checkers, c)
		}
	}
	if p.Redis != nil {
		rdb := p.Redis
		checkers = append(checkers, NewChecker("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	return New(checkers...)
}

func New(checkers ...Checker) *Health {
	return &Health{checkers: checkers}
}

// Check probes every dependency.
func (h *Health) Check(ctx context.Context) Report {
	report := Report{Status: StatusHealthy, Message: "OK", Deps: make([]Dependency, 0, len(h.checkers))}

	for _, c := range h.checkers {
		dep := Dependency{Name: c.Name(), Status: StatusHealthy, Message: "OK"}

		pctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Ping(pctx)
		cancel()

		if err != nil {
			zap.L().Warn("dependency unhealthy", zap.String("dependency", c.Name()), zap.Error(err))
			dep.Status = StatusUnhealthy
			dep.Message = "unavailable"
			report.Status = StatusUnhealthy
			report.Message = "dependency unavailable"
		}
		report.Deps = append(report.Deps, dep)
	}

	return report
}

func (h *Health) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, &Report{
		Status:  StatusHealthy,
		Message: "OK",
		Deps:    []Dependency{},
	})
}

func (h *Health) Readiness(c *gin.Context) {
	report := h.Check(c.Request.Context())
	code := http.StatusOK
	if !report.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

// grpcStatus answers the gRPC health protocol. An empty service name
// covers the whole server.
func (h *Health) grpcStatus(ctx context.Context, service string) (*healthv1.HealthCheckResponse, error) {
	if service != "" {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", service)
	}
	if !h.Check(ctx).Healthy() {
		return &healthv1.HealthCheckResponse{Status: healthv1.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthv1.HealthCheckResponse{Status: healthv1.HealthCheckResponse_SERVING}, nil
}

type grpcHealth struct {
	healthv1.UnimplementedHealthServer
	h *Health
}

func (g *grpcHealth) Check(ctx context.Context, req *healthv1.HealthCheckRequest) (*healthv1.HealthCheckResponse, error) {
	return g.h.grpcStatus(ctx, req.GetService())
}

func (h *Health) GRPCServer() healthv1.HealthServer {
	return &grpcHealth{h: h}
}

func RegisterGRPC(srv *grpc.Server, h *Health) {
	healthv1.RegisterHealthServer(srv, h.GRPCServer())
}

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func init() {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
}

func ok(context.Context) error { return nil }

func down(context.Context) error { return errors.New("dial tcp: connection refused") }

func serve(h *Health, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReadinessHealthy(t *testing.T) {
	h := New(NewChecker("store", ok))

	w := serve(h, "/readyz")
	require.Equal(t, http.StatusOK, w.Code)

	var report Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.True(t, report.Healthy())
	require.Equal(t, []Dependency{{Name: "store", Status: StatusHealthy, Message: "OK"}}, report.Deps)
}

func TestReadinessUnhealthyHidesCause(t *testing.T) {
	h := New(NewChecker("store", ok), NewChecker("redis", down))

	w := serve(h, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotContains(t, w.Body.String(), "connection refused")

	var report Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Equal(t, StatusUnhealthy, report.Status)
	require.Equal(t, StatusUnhealthy, report.Deps[1].Status)
}

func TestLivenessIgnoresDependencies(t *testing.T) {
	h := New(NewChecker("store", down))

	w := serve(h, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProvideHealthAddsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := ProvideHealth(HealthParams{Checkers: []Checker{NewChecker("store", ok)}, Redis: rdb})
	report := h.Check(context.Background())
	require.True(t, report.Healthy())
	require.Len(t, report.Deps, 2)
	require.Equal(t, "redis", report.Deps[1].Name)

	mr.Close()
	require.False(t, h.Check(context.Background()).Healthy())
}

func TestGRPCHealthCheck(t *testing.T) {
	ctx := context.Background()

	res, err := New(NewChecker("store", ok)).GRPCServer().Check(ctx, &healthv1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthv1.HealthCheckResponse_SERVING, res.Status)

	res, err = New(NewChecker("store", down)).GRPCServer().Check(ctx, &healthv1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthv1.HealthCheckResponse_NOT_SERVING, res.Status)

	_, err = New().GRPCServer().Check(ctx, &healthv1.HealthCheckRequest{Service: "billing"})
	require.Equal(t, codes.NotFound, status.Code(err))
}

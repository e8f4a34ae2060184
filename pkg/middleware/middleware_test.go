package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"clinic-controlplane/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
}

func newEngine(h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(Error())
	r.GET("/", h)
	return r
}

func TestErrorRendersBaseError(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(errutil.Conflict("already exists", errors.New("pq: duplicate key")))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusConflict, w.Code)
	require.JSONEq(t, `{"error":{"code":"conflict","message":"already exists"}}`, w.Body.String())
}

func TestErrorHidesUnknownErrors(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp 10.0.0.1:5432: connection refused"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":{"code":"internal","message":"internal error"}}`, w.Body.String())
	require.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestErrorLeavesWrittenResponses(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		c.String(http.StatusAccepted, "done")
		_ = c.Error(errors.New("late"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "done", w.Body.String())
}

func TestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(Logger())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/ok", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zap.InfoLevel, entries[0].Level)
	require.Equal(t, zap.WarnLevel, entries[1].Level)
	require.EqualValues(t, http.StatusNotFound, entries[1].ContextMap()["status"])
}

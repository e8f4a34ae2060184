package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-controlplane/pkg/idempotency"
	"clinic-controlplane/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerFixture struct {
	engine *gin.Engine
	store  Store
	clock  *testClock
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	store := NewMemoryStore()
	svc, clock := newTestService(t, store)
	h := &Handler{
		service:        svc,
		idempotency:    idempotency.NewMemoryStore(),
		idempotencyTTL: time.Hour,
	}

	engine := gin.New()
	engine.Use(middleware.Error())
	h.Register(engine)

	return &handlerFixture{engine: engine, store: store, clock: clock}
}

func (f *handlerFixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func TestHandlerIssueAndValidate(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/licenses",
		`{"clinicName":"Demo Clinic","contactEmail":"demo@clinic.com","licenseType":"trial"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	issued := decode[map[string]any](t, w)
	key, _ := issued["licenseKey"].(string)
	require.Regexp(t, KeyPattern, key)
	require.NotEmpty(t, issued["customerId"])
	require.EqualValues(t, 1, issued["maxUsers"])
	require.EqualValues(t, 50, issued["maxPatients"])

	expiresAt, err := time.Parse(time.RFC3339, issued["expiresAt"].(string))
	require.NoError(t, err)
	require.Equal(t, serviceEpoch.Add(30*24*time.Hour), expiresAt)

	w = f.do(http.MethodPost, "/licenses/validate", `{"licenseKey":"`+key+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"isValid": true,
		"customerName": "Demo Clinic",
		"licenseType": "trial",
		"status": "active",
		"expiresAt": "2026-04-09T09:30:00Z",
		"features": {"basic_features": true}
	}`, w.Body.String())
}

func TestHandlerValidateUnknownKey(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/licenses/validate", `{"licenseKey":"TRL-2026-NOTAREALKY"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"isValid": false,
		"customerName": "",
		"licenseType": "",
		"status": "not_found",
		"expiresAt": null,
		"features": {}
	}`, w.Body.String())
}

func TestHandlerValidateMalformedBody(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/licenses/validate", `{"licenseKey":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "bad_request", decode[errorBody](t, w).Error.Code)
}

func TestHandlerIssueValidationError(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/licenses", `{"clinicName":"","contactEmail":"nope","licenseType":"gold"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode[errorBody](t, w)
	require.Equal(t, "validation_failed", body.Error.Code)
	fields := map[string]bool{}
	for _, d := range body.Error.Details {
		fields[d.Field] = true
	}
	require.Equal(t, map[string]bool{"clinicName": true, "contactEmail": true, "licenseType": true}, fields)
}

func TestHandlerIssueRejectsTierCasing(t *testing.T) {
	f := newHandlerFixture(t)

	for _, tier := range []string{"TRIAL", "Premium", "trial "} {
		w := f.do(http.MethodPost, "/licenses",
			`{"clinicName":"X","contactEmail":"x@clinic.com","licenseType":"`+tier+`"}`)
		if tier == "trial " {
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			continue
		}
		require.Equal(t, http.StatusBadRequest, w.Code, tier)

		body := decode[errorBody](t, w)
		require.Equal(t, "validation_failed", body.Error.Code)
		require.Len(t, body.Error.Details, 1)
		require.Equal(t, "licenseType", body.Error.Details[0].Field)
	}
}

func TestHandlerIssueMalformedBody(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/licenses", `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/licenses", `{"clinicName":"A","contactEmail":"a@clinic.com","licenseType":"trial","durationDays":"ten"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerIssueDuplicateEmail(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{"clinicName":"Demo Clinic","contactEmail":"demo@clinic.com","licenseType":"trial"}`

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/licenses", body).Code)

	w := f.do(http.MethodPost, "/licenses", body)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "conflict", decode[errorBody](t, w).Error.Code)
}

func TestHandlerIdempotentIssue(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{"clinicName":"Demo Clinic","contactEmail":"demo@clinic.com","licenseType":"premium"}`

	first := f.do(http.MethodPost, "/licenses", body, idempotency.HeaderKey, "req-1")
	require.Equal(t, http.StatusOK, first.Code)

	// same payload, different formatting
	replay := f.do(http.MethodPost, "/licenses",
		`{ "licenseType":"premium", "contactEmail":"demo@clinic.com", "clinicName":"Demo Clinic" }`,
		idempotency.HeaderKey, "req-1")
	require.Equal(t, http.StatusOK, replay.Code)
	require.JSONEq(t, first.Body.String(), replay.Body.String())

	w := f.do(http.MethodPost, "/licenses",
		`{"clinicName":"Other Clinic","contactEmail":"other@clinic.com","licenseType":"trial"}`,
		idempotency.HeaderKey, "req-1")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "idempotency_conflict", decode[errorBody](t, w).Error.Code)

	w = f.do(http.MethodGet, "/licenses", "")
	require.Len(t, decode[[]map[string]any](t, w), 1)
}

func TestHandlerIdempotencyReleasedOnFailure(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/licenses", `{"clinicName":"Demo","contactEmail":"bad","licenseType":"trial"}`,
		idempotency.HeaderKey, "req-2")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/licenses", `{"clinicName":"Demo","contactEmail":"demo@clinic.com","licenseType":"trial"}`,
		idempotency.HeaderKey, "req-2")
	require.Equal(t, http.StatusOK, w.Code)
}

type unavailableIdempotency struct{}

func (unavailableIdempotency) Reserve(context.Context, idempotency.Record, time.Duration) (*idempotency.Record, bool, error) {
	return nil, false, errors.New("dial tcp 10.0.0.2:6379: connection refused")
}

func (unavailableIdempotency) Complete(context.Context, idempotency.Record, time.Duration) error {
	return nil
}

func (unavailableIdempotency) Release(context.Context, string) error { return nil }

func TestHandlerIdempotencyStoreDown(t *testing.T) {
	f := newHandlerFixture(t)
	svc, _ := newTestService(t, f.store)
	h := &Handler{service: svc, idempotency: unavailableIdempotency{}, idempotencyTTL: time.Hour}
	engine := gin.New()
	engine.Use(middleware.Error())
	h.Register(engine)
	f.engine = engine

	w := f.do(http.MethodPost, "/licenses", `{"clinicName":"Demo","contactEmail":"demo@clinic.com","licenseType":"trial"}`,
		idempotency.HeaderKey, "req-3")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	body := decode[errorBody](t, w)
	require.Equal(t, "internal", body.Error.Code)
	require.NotContains(t, w.Body.String(), "10.0.0.2")
}

func TestHandlerList(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodGet, "/licenses", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	for _, email := range []string{"a@clinic.com", "b@clinic.com", "c@clinic.com"} {
		res := f.do(http.MethodPost, "/licenses", `{"clinicName":"Clinic","contactEmail":"`+email+`","licenseType":"trial"}`)
		require.Equal(t, http.StatusOK, res.Code)
		f.clock.Advance(time.Minute)
	}

	w = f.do(http.MethodGet, "/licenses?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[[]map[string]any](t, w)
	require.Len(t, page, 2)
	require.Equal(t, "a@clinic.com", page[0]["contactEmail"])
	require.Equal(t, "Clinic", page[0]["customerName"])
	require.Equal(t, "trial", page[0]["licenseType"])
	require.Equal(t, "active", page[0]["status"])
	require.EqualValues(t, 1, page[0]["maxUsers"])
	require.NotEmpty(t, page[0]["licenseId"])
	require.NotEmpty(t, page[0]["createdAt"])

	next := w.Header().Get(HeaderNextCursor)
	require.NotEmpty(t, next)

	w = f.do(http.MethodGet, "/licenses?limit=2&cursor="+next, "")
	require.Equal(t, http.StatusOK, w.Code)
	rest := decode[[]map[string]any](t, w)
	require.Len(t, rest, 1)
	require.Equal(t, "c@clinic.com", rest[0]["contactEmail"])
	require.Empty(t, w.Header().Get(HeaderNextCursor))
}

func TestHandlerListRejectsBadLimit(t *testing.T) {
	f := newHandlerFixture(t)

	for _, q := range []string{"limit=-1", "limit=251", "limit=abc", "cursor=%25%25"} {
		w := f.do(http.MethodGet, "/licenses?"+q, "")
		require.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

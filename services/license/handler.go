package license

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"clinic-controlplane/pkg/config"
	"clinic-controlplane/pkg/db/pagination"
	"clinic-controlplane/pkg/errutil"
	"clinic-controlplane/pkg/idempotency"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	HeaderNextCursor = "X-Next-Cursor"

	defaultIdempotencyTTL = 24 * time.Hour
)

type Handler struct {
	service        *Service
	idempotency    idempotency.Store
	idempotencyTTL time.Duration
}

type HandlerParams struct {
	fx.In
	Service     *Service
	Idempotency idempotency.Store
	Config      *config.Config
}

func NewHandler(p HandlerParams) *Handler {
	ttl := p.Config.License.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &Handler{
		service:        p.Service,
		idempotency:    p.Idempotency,
		idempotencyTTL: ttl,
	}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/licenses", h.Issue)
	r.GET("/licenses", h.List)
	r.POST("/licenses/validate", h.Validate)
}

type issueLicenseResponse struct {
	CustomerID  string     `json:"customerId"`
	LicenseID   string     `json:"licenseId"`
	LicenseKey  string     `json:"licenseKey"`
	LicenseType Tier       `json:"licenseType"`
	Status      Status     `json:"status"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	MaxUsers    int        `json:"maxUsers"`
	MaxPatients int        `json:"maxPatients"`
	Features    Features   `json:"features"`
}

func newIssueLicenseResponse(r *IssueResult) issueLicenseResponse {
	return issueLicenseResponse{
		CustomerID:  r.CustomerID,
		LicenseID:   r.LicenseID,
		LicenseKey:  r.LicenseKey,
		LicenseType: r.LicenseType,
		Status:      r.Status,
		ExpiresAt:   utc(r.ExpiresAt),
		MaxUsers:    r.MaxUsers,
		MaxPatients: r.MaxPatients,
		Features:    r.Features,
	}
}

type validateLicenseRequest struct {
	LicenseKey string `json:"licenseKey"`
}

type validateLicenseResponse struct {
	IsValid      bool       `json:"isValid"`
	CustomerName string     `json:"customerName"`
	LicenseType  string     `json:"licenseType"`
	Status       Status     `json:"status"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	Features     Features   `json:"features"`
}

type licenseListItem struct {
	LicenseID    string     `json:"licenseId"`
	CustomerID   string     `json:"customerId"`
	CustomerName string     `json:"customerName"`
	ContactEmail string     `json:"contactEmail"`
	LicenseKey   string     `json:"licenseKey"`
	LicenseType  Tier       `json:"licenseType"`
	Status       Status     `json:"status"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	MaxUsers     *int       `json:"maxUsers"`
	MaxPatients  *int       `json:"maxPatients"`
	Features     Features   `json:"features"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func newLicenseListItem(l *License) licenseListItem {
	item := licenseListItem{
		LicenseID:    l.ID,
		CustomerID:   l.CustomerID,
		CustomerName: l.CustomerName(),
		LicenseKey:   l.LicenseKey,
		LicenseType:  l.Tier,
		Status:       l.Status,
		ExpiresAt:    utc(l.ExpiresAt),
		MaxUsers:     l.MaxUsers,
		MaxPatients:  l.MaxPatients,
		Features:     l.FeatureSet(),
		CreatedAt:    l.CreatedAt.UTC(),
	}
	if l.Customer != nil {
		item.ContactEmail = l.Customer.ContactEmail
	}
	return item
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func (h *Handler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", err))
		return
	}

	key := strings.TrimSpace(c.GetHeader(idempotency.HeaderKey))
	if key == "" {
		res, err := h.service.Issue(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(ToAPIError(err))
			return
		}
		c.JSON(http.StatusOK, newIssueLicenseResponse(res))
		return
	}

	h.issueIdempotent(c, key, req)
}

// issueIdempotent replays the stored response when key was already used
// with the same request. Failed issuances release the key so the client can
// retry with it.
func (h *Handler) issueIdempotent(c *gin.Context, key string, req IssueRequest) {
	ctx := c.Request.Context()

	canonical, err := json.Marshal(req)
	if err != nil {
		_ = c.Error(errutil.Internal("internal error", err))
		return
	}
	hash := idempotency.HashRequest(canonical)

	existing, reserved, err := h.idempotency.Reserve(ctx, idempotency.Record{
		Key:         key,
		RequestHash: hash,
		CreatedAt:   time.Now().UTC(),
	}, h.idempotencyTTL)
	if err != nil {
		zap.L().Error("failed to reserve idempotency key", zap.String("key", key), zap.Error(err))
		_ = c.Error(errutil.Internal("internal error", err))
		return
	}

	if !reserved {
		rec, err := idempotency.Replay(existing, hash)
		switch {
		case errors.Is(err, idempotency.ErrConflict):
			_ = c.Error(errutil.New(errutil.StatusIdempotencyConflict, err.Error(), errutil.WithErr(err)))
		case errors.Is(err, idempotency.ErrInProgress):
			_ = c.Error(errutil.Conflict(err.Error(), err))
		default:
			c.Data(rec.StatusCode, gin.MIMEJSON, rec.Body)
		}
		return
	}

	res, err := h.service.Issue(ctx, req)
	if err != nil {
		if rerr := h.idempotency.Release(ctx, key); rerr != nil {
			zap.L().Warn("failed to release idempotency key", zap.String("key", key), zap.Error(rerr))
		}
		_ = c.Error(ToAPIError(err))
		return
	}

	body, err := json.Marshal(newIssueLicenseResponse(res))
	if err != nil {
		_ = c.Error(errutil.Internal("internal error", err))
		return
	}

	if err := h.idempotency.Complete(ctx, idempotency.Record{
		Key:         key,
		RequestHash: hash,
		StatusCode:  http.StatusOK,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}, h.idempotencyTTL); err != nil {
		zap.L().Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
	}

	c.Data(http.StatusOK, gin.MIMEJSON, body)
}

func (h *Handler) Validate(c *gin.Context) {
	var req validateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", err))
		return
	}

	res, err := h.service.Validate(c.Request.Context(), req.LicenseKey)
	if err != nil {
		_ = c.Error(ToAPIError(err))
		return
	}

	c.JSON(http.StatusOK, validateLicenseResponse{
		IsValid:      res.IsValid,
		CustomerName: res.CustomerName,
		LicenseType:  res.LicenseType,
		Status:       res.Status,
		ExpiresAt:    utc(res.ExpiresAt),
		Features:     res.Features,
	})
}

func (h *Handler) List(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid pagination parameters", err, errutil.WithDetails(
			errutil.Detail{Field: "limit", Message: pagination.ErrInvalidLimit.Error()},
		)))
		return
	}

	res, err := h.service.List(c.Request.Context(), ListRequest{Limit: page.Limit, Cursor: page.Cursor})
	if err != nil {
		_ = c.Error(ToAPIError(err))
		return
	}

	if res.NextCursor != "" {
		c.Header(HeaderNextCursor, res.NextCursor)
	}

	items := make([]licenseListItem, 0, len(res.Items))
	for _, l := range res.Items {
		items = append(items, newLicenseListItem(l))
	}
	c.JSON(http.StatusOK, items)
}

package license

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"clinic-controlplane/pkg/config"
	"clinic-controlplane/pkg/db/pagination"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
)

const DefaultInsertRetryLimit = 3

const (
	outcomeValid    = "valid"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
)

var tracer = otel.Tracer("clinic-controlplane/services/license")

type Service struct {
	store            Store
	resolver         *Resolver
	node             *snowflake.Node
	metrics          *Metrics
	insertRetryLimit int
	nowFn            func() time.Time
	group            singleflight.Group
}

type ServiceParams struct {
	fx.In
	Store     Store
	Node      *snowflake.Node
	Config    *config.Config
	Metrics   *Metrics  `optional:"true"`
	Generator Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	gen := p.Generator
	if gen == nil {
		gen = NewKeyGenerator()
	}

	insertRetryLimit := p.Config.License.InsertRetryLimit
	if insertRetryLimit < 1 {
		insertRetryLimit = DefaultInsertRetryLimit
	}

	return &Service{
		store:            p.Store,
		resolver:         NewResolver(gen, p.Config.License.KeyRetryLimit),
		node:             p.Node,
		metrics:          p.Metrics,
		insertRetryLimit: insertRetryLimit,
		nowFn:            time.Now,
	}
}

// now is truncated to microseconds so every backend stores the same instant.
func (s *Service) now() time.Time {
	return s.nowFn().UTC().Truncate(time.Microsecond)
}

func spanLogger(ctx context.Context) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

type IssueRequest struct {
	ClinicName   string  `json:"clinicName"`
	ContactEmail string  `json:"contactEmail"`
	ContactPhone *string `json:"contactPhone,omitempty"`
	Address      *string `json:"address,omitempty"`
	LicenseType  Tier    `json:"licenseType"`
	DurationDays *int    `json:"durationDays,omitempty"`
}

func (r IssueRequest) normalize() IssueRequest {
	r.ClinicName = strings.TrimSpace(r.ClinicName)
	r.ContactEmail = strings.ToLower(strings.TrimSpace(r.ContactEmail))
	r.ContactPhone = trimOptional(r.ContactPhone)
	r.Address = trimOptional(r.Address)
	r.LicenseType = Tier(strings.TrimSpace(string(r.LicenseType)))
	return r
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Validate reports every offending field in one error. It expects a
// normalized request.
func (r IssueRequest) Validate() error {
	var fields []FieldError

	if r.ClinicName == "" {
		fields = append(fields, FieldError{Field: "clinicName", Reason: "is required"})
	}

	switch {
	case r.ContactEmail == "":
		fields = append(fields, FieldError{Field: "contactEmail", Reason: "is required"})
	case !validEmail(r.ContactEmail):
		fields = append(fields, FieldError{Field: "contactEmail", Reason: "is not a valid email address"})
	}

	switch {
	case r.LicenseType == "":
		fields = append(fields, FieldError{Field: "licenseType", Reason: "is required"})
	case r.LicenseType.String() == "":
		fields = append(fields, FieldError{Field: "licenseType", Reason: "must be one of trial, premium"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// validEmail accepts a bare addr-spec only, no display name or brackets.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}

type IssueResult struct {
	CustomerID  string
	LicenseID   string
	LicenseKey  string
	LicenseType Tier
	Status      Status
	ExpiresAt   *time.Time
	MaxUsers    int
	MaxPatients int
	Features    Features
	CreatedAt   time.Time
}

// Issue registers a new customer and grants it one license. Either both rows
// are stored or neither is.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	ctx, span := tracer.Start(ctx, "license.Issue")
	defer span.End()

	zapLog := spanLogger(ctx)

	req = req.normalize()
	if err := req.Validate(); err != nil {
		s.metrics.observeIssueFailure(err)
		return nil, err
	}

	ent, err := DeriveEntitlements(req.LicenseType, req.DurationDays)
	if err != nil {
		s.metrics.observeIssueFailure(err)
		return nil, err
	}

	now := s.now()
	var result *IssueResult

	err = s.store.Transaction(ctx, func(tx Store) error {
		existing, err := tx.FindCustomerByEmail(ctx, req.ContactEmail)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateEmail
		}

		customer := &Customer{
			ID:           s.node.Generate().String(),
			CreatedAt:    now,
			UpdatedAt:    now,
			ClinicName:   req.ClinicName,
			Slug:         slug.Make(req.ClinicName),
			ContactEmail: req.ContactEmail,
			ContactPhone: req.ContactPhone,
			Address:      req.Address,
		}
		if err := tx.CreateCustomer(ctx, customer); err != nil {
			return err
		}

		lic, err := s.createLicense(ctx, tx, customer, req.LicenseType, ent, now)
		if err != nil {
			return err
		}

		result = &IssueResult{
			CustomerID:  customer.ID,
			LicenseID:   lic.ID,
			LicenseKey:  lic.LicenseKey,
			LicenseType: lic.Tier,
			Status:      lic.Status,
			ExpiresAt:   lic.ExpiresAt,
			MaxUsers:    ent.MaxUsers,
			MaxPatients: ent.MaxPatients,
			Features:    ent.Features.Clone(),
			CreatedAt:   lic.CreatedAt,
		}
		return nil
	})
	if err != nil {
		s.metrics.observeIssueFailure(err)
		if errors.Is(err, ErrDuplicateEmail) {
			zapLog.Info("license issuance rejected, email already registered", zap.String("email", req.ContactEmail))
		} else {
			zapLog.Error("failed to issue license", zap.String("tier", string(req.LicenseType)), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.observeIssued(result.LicenseType)
	zapLog.Info("license issued",
		zap.String("customer_id", result.CustomerID),
		zap.String("license_id", result.LicenseID),
		zap.String("tier", string(result.LicenseType)),
	)

	return result, nil
}

// createLicense reserves a key and inserts the license. A unique violation
// means another issuer took the key after the check, so the pair is retried.
// Each insert runs in a nested transaction to keep the outer one usable.
func (s *Service) createLicense(ctx context.Context, tx Store, customer *Customer, tier Tier, ent Entitlements, now time.Time) (*License, error) {
	expiresAt := now.Add(time.Duration(ent.DurationDays) * 24 * time.Hour)

	for attempt := 1; ; attempt++ {
		key, err := s.resolver.ReserveUniqueKey(ctx, tx, tier)
		if err != nil {
			return nil, err
		}

		maxUsers, maxPatients := ent.MaxUsers, ent.MaxPatients
		lic := &License{
			ID:          s.node.Generate().String(),
			CreatedAt:   now,
			UpdatedAt:   now,
			CustomerID:  customer.ID,
			LicenseKey:  key,
			Tier:        tier,
			Status:      StatusActive,
			ExpiresAt:   &expiresAt,
			MaxUsers:    &maxUsers,
			MaxPatients: &maxPatients,
			Features:    datatypes.NewJSONType(ent.Features.Clone()),
		}

		err = tx.Transaction(ctx, func(inner Store) error {
			return inner.CreateLicense(ctx, lic)
		})
		if err == nil {
			return lic, nil
		}
		if !errors.Is(err, ErrDuplicateKey) || attempt >= s.insertRetryLimit {
			return nil, err
		}

		zap.L().Warn("license key taken between check and insert, retrying",
			zap.String("tier", string(tier)),
			zap.Int("attempt", attempt),
		)
	}
}

type ValidationResult struct {
	IsValid      bool
	CustomerName string
	LicenseType  string
	Status       Status
	ExpiresAt    *time.Time
	Features     Features
}

func notFoundResult() *ValidationResult {
	return &ValidationResult{
		IsValid:  false,
		Status:   StatusNotFound,
		Features: Features{},
	}
}

// NormalizeKey trims and upper-cases a key as typed by a user.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Validate never fails for an unknown key; it reports a not_found status
// instead. Concurrent lookups of the same key share one store read.
func (s *Service) Validate(ctx context.Context, key string) (*ValidationResult, error) {
	ctx, span := tracer.Start(ctx, "license.Validate")
	defer span.End()

	zapLog := spanLogger(ctx)

	key = NormalizeKey(key)
	if key == "" {
		s.metrics.observeValidation(outcomeNotFound)
		return notFoundResult(), nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		l, err := s.store.FindLicenseByKey(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		if l == nil {
			return nil, ErrNotFound
		}
		return l, nil
	})
	if errors.Is(err, ErrNotFound) {
		s.metrics.observeValidation(outcomeNotFound)
		return notFoundResult(), nil
	}
	if err != nil {
		zapLog.Error("failed to look up license", zap.Error(err))
		return nil, err
	}

	l := v.(*License)
	valid := l.IsValidAt(s.now())
	if valid {
		s.metrics.observeValidation(outcomeValid)
	} else {
		s.metrics.observeValidation(outcomeInvalid)
	}

	return &ValidationResult{
		IsValid:      valid,
		CustomerName: l.CustomerName(),
		LicenseType:  string(l.Tier),
		Status:       l.Status,
		ExpiresAt:    cloneTime(l.ExpiresAt),
		Features:     l.FeatureSet(),
	}, nil
}

// ListRequest pages through licenses. A zero Limit returns everything after
// Cursor.
type ListRequest struct {
	Limit  int
	Cursor string
}

type ListResult struct {
	Items      []*License
	NextCursor string
}

func (s *Service) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	ctx, span := tracer.Start(ctx, "license.List")
	defer span.End()

	zapLog := spanLogger(ctx)

	var fields []FieldError
	if req.Limit < 0 || req.Limit > pagination.MaxLimit {
		fields = append(fields, FieldError{Field: "limit", Reason: pagination.ErrInvalidLimit.Error()})
	}

	var after *pagination.Cursor
	if req.Cursor != "" {
		c, err := pagination.DecodeCursor(req.Cursor)
		if err != nil {
			fields = append(fields, FieldError{Field: "cursor", Reason: "is malformed"})
		}
		after = c
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	fetch := 0
	if req.Limit > 0 {
		fetch = req.Limit + 1
	}

	rows, err := s.store.ListLicensesWithCustomer(ctx, ListParams{After: after, Limit: fetch})
	if err != nil {
		zapLog.Error("failed to list licenses", zap.Error(err))
		return nil, err
	}

	rows, more := pagination.Trim(rows, req.Limit)
	result := &ListResult{Items: rows}
	if more {
		last := rows[len(rows)-1]
		result.NextCursor, err = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

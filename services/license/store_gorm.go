package license

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Customer{}, &License{}); err != nil {
		return storageErr("migrate", err)
	}
	return nil
}

func (s *GormStore) CreateCustomer(ctx context.Context, c *Customer) error {
	err := s.db.WithContext(ctx).Create(c).Error
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return storageErr("create customer", err)
}

func (s *GormStore) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	var c Customer
	err := s.db.WithContext(ctx).Where("contact_email = ?", email).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find customer", err)
	}
	return &c, nil
}

func (s *GormStore) CreateLicense(ctx context.Context, l *License) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return storageErr("create license", err)
}

func (s *GormStore) FindLicenseByKey(ctx context.Context, key string) (*License, error) {
	var l License
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Where("license_key = ?", key).
		Take(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find license", err)
	}
	return &l, nil
}

func (s *GormStore) ListLicensesWithCustomer(ctx context.Context, p ListParams) ([]*License, error) {
	q := s.db.WithContext(ctx).
		Preload("Customer").
		Order("created_at ASC").
		Order("id ASC")

	if p.After != nil {
		q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", p.After.CreatedAt, p.After.CreatedAt, p.After.ID)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}

	var out []*License
	if err := q.Find(&out).Error; err != nil {
		return nil, storageErr("list licenses", err)
	}
	return out, nil
}

// Transaction nests as a savepoint when s is already transactional, so a
// failed insert can be retried without aborting the outer transaction.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
	if err == nil || isTyped(err) {
		return err
	}
	return storageErr("transaction", err)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storageErr("ping", err)
	}
	return storageErr("ping", sqlDB.PingContext(ctx))
}

func isTyped(err error) bool {
	for _, target := range []error{ErrValidation, ErrDuplicateEmail, ErrDuplicateKey, ErrExhaustedKeyspace, ErrStorage} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// isUniqueViolation relies on gorm's error translation and falls back to the
// driver message for dialects that do not translate.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

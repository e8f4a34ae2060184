package license

import (
	"maps"
	"time"

	"gorm.io/datatypes"
)

type Tier string

const (
	TierTrial   Tier = "trial"
	TierPremium Tier = "premium"
)

func (t Tier) String() string {
	switch t {
	case TierTrial, TierPremium:
		return string(t)
	default:
		return ""
	}
}

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"

	// StatusNotFound is only ever reported by validation, never stored.
	StatusNotFound Status = "not_found"
)

// Features maps a feature name to whether the license grants it.
type Features map[string]bool

func (f Features) Clone() Features {
	out := make(Features, len(f))
	maps.Copy(out, f)
	return out
}

type Customer struct {
	ID           string    `gorm:"column:id;primaryKey"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
	ClinicName   string    `gorm:"column:clinic_name;not null"`
	Slug         string    `gorm:"column:slug;index"`
	ContactEmail string    `gorm:"column:contact_email;uniqueIndex;not null"`
	ContactPhone *string   `gorm:"column:contact_phone"`
	Address      *string   `gorm:"column:address"`
}

func (Customer) TableName() string { return "customers" }

type License struct {
	ID          string                       `gorm:"column:id;primaryKey"`
	CreatedAt   time.Time                    `gorm:"column:created_at;index"`
	UpdatedAt   time.Time                    `gorm:"column:updated_at"`
	CustomerID  string                       `gorm:"column:customer_id;index;not null"`
	Customer    *Customer                    `gorm:"foreignKey:CustomerID"`
	LicenseKey  string                       `gorm:"column:license_key;uniqueIndex;not null"`
	Tier        Tier                         `gorm:"column:license_type;not null"`
	Status      Status                       `gorm:"column:status;not null"`
	ExpiresAt   *time.Time                   `gorm:"column:expires_at"`
	MaxUsers    *int                         `gorm:"column:max_users"`
	MaxPatients *int                         `gorm:"column:max_patients"`
	Features    datatypes.JSONType[Features] `gorm:"column:features"`
}

func (License) TableName() string { return "licenses" }

// IsValidAt reports effective validity: active and not past its expiry.
// Expiry is evaluated lazily; the stored status never moves on its own.
func (l *License) IsValidAt(now time.Time) bool {
	if l.Status != StatusActive {
		return false
	}
	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}

func (l *License) CustomerName() string {
	if l.Customer == nil {
		return ""
	}
	return l.Customer.ClinicName
}

func (l *License) FeatureSet() Features {
	f := l.Features.Data()
	if f == nil {
		return Features{}
	}
	return f.Clone()
}

func (l *License) clone() *License {
	out := *l
	out.ExpiresAt = cloneTime(l.ExpiresAt)
	out.MaxUsers = cloneInt(l.MaxUsers)
	out.MaxPatients = cloneInt(l.MaxPatients)
	out.Features = datatypes.NewJSONType(l.FeatureSet())
	if l.Customer != nil {
		out.Customer = l.Customer.clone()
	}
	return &out
}

func (c *Customer) clone() *Customer {
	out := *c
	out.ContactPhone = cloneString(c.ContactPhone)
	out.Address = cloneString(c.Address)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

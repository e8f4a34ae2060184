package license

import (
	"context"

	"clinic-controlplane/pkg/db/pagination"
)

//go:generate mockgen -destination=mock/store.go -package=mock . Store

// Store persists customers and licenses. Find methods return (nil, nil)
// when nothing matches. Unique violations surface as ErrDuplicateEmail or
// ErrDuplicateKey; every other backend failure matches ErrStorage.
type Store interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CreateLicense(ctx context.Context, l *License) error
	FindLicenseByKey(ctx context.Context, key string) (*License, error)
	ListLicensesWithCustomer(ctx context.Context, p ListParams) ([]*License, error)

	// Transaction runs fn against a transactional view of the store. Writes
	// made through it become visible together, or not at all if fn fails.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// ListParams selects licenses ordered by (created_at, id). A zero Limit
// means no limit.
type ListParams struct {
	After *pagination.Cursor
	Limit int
}

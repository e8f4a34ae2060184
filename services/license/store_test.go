package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinic-controlplane/pkg/db/pagination"
	"clinic-controlplane/services/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var storeBackends = map[string]func(t *testing.T) Store{
	"memory": func(*testing.T) Store { return NewMemoryStore() },
	"gorm": func(t *testing.T) Store {
		return NewGormStore(testutil.NewTestDB(t, &Customer{}, &License{}))
	},
}

func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	for name, newStore := range storeBackends {
		t.Run(name, func(t *testing.T) {
			fn(t, newStore(t))
		})
	}
}

var storeEpoch = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func seedCustomer(t *testing.T, store Store, id, email string) *Customer {
	t.Helper()
	c := &Customer{
		ID:           id,
		CreatedAt:    storeEpoch,
		UpdatedAt:    storeEpoch,
		ClinicName:   "Clinic " + id,
		Slug:         "clinic-" + id,
		ContactEmail: email,
	}
	require.NoError(t, store.CreateCustomer(context.Background(), c))
	return c
}

func newStoredLicense(id, customerID, key string, createdAt time.Time) *License {
	expires := createdAt.Add(30 * 24 * time.Hour)
	users, patients := 1, 50
	return &License{
		ID:          id,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		CustomerID:  customerID,
		LicenseKey:  key,
		Tier:        TierTrial,
		Status:      StatusActive,
		ExpiresAt:   &expires,
		MaxUsers:    &users,
		MaxPatients: &patients,
		Features:    datatypes.NewJSONType(Features{FeatureBasic: true}),
	}
}

func TestStoreCustomerRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		phone := "+1 555 0100"
		c := &Customer{
			ID:           "c1",
			CreatedAt:    storeEpoch,
			UpdatedAt:    storeEpoch,
			ClinicName:   "Demo Clinic",
			Slug:         "demo-clinic",
			ContactEmail: "demo@clinic.com",
			ContactPhone: &phone,
		}
		require.NoError(t, store.CreateCustomer(ctx, c))

		got, err := store.FindCustomerByEmail(ctx, "demo@clinic.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "c1", got.ID)
		require.Equal(t, "Demo Clinic", got.ClinicName)
		require.Equal(t, phone, *got.ContactPhone)
		require.Nil(t, got.Address)

		missing, err := store.FindCustomerByEmail(ctx, "nobody@clinic.com")
		require.NoError(t, err)
		require.Nil(t, missing)
	})
}

func TestStoreDuplicateEmail(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seedCustomer(t, store, "c1", "demo@clinic.com")

		err := store.CreateCustomer(context.Background(), &Customer{
			ID:           "c2",
			CreatedAt:    storeEpoch,
			UpdatedAt:    storeEpoch,
			ClinicName:   "Other",
			ContactEmail: "demo@clinic.com",
		})
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})
}

func TestStoreLicenseRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		seedCustomer(t, store, "c1", "demo@clinic.com")
		require.NoError(t, store.CreateLicense(ctx, newStoredLicense("l1", "c1", "TRL-2026-AAAAAAAAAA", storeEpoch)))

		got, err := store.FindLicenseByKey(ctx, "TRL-2026-AAAAAAAAAA")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "l1", got.ID)
		require.Equal(t, TierTrial, got.Tier)
		require.Equal(t, StatusActive, got.Status)
		require.Equal(t, 1, *got.MaxUsers)
		require.Equal(t, 50, *got.MaxPatients)
		require.True(t, got.ExpiresAt.Equal(storeEpoch.Add(30*24*time.Hour)))
		require.Equal(t, Features{FeatureBasic: true}, got.FeatureSet())
		require.NotNil(t, got.Customer)
		require.Equal(t, "Clinic c1", got.CustomerName())

		missing, err := store.FindLicenseByKey(ctx, "TRL-2026-ZZZZZZZZZZ")
		require.NoError(t, err)
		require.Nil(t, missing)
	})
}

func TestStoreDuplicateKey(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		seedCustomer(t, store, "c1", "a@clinic.com")
		seedCustomer(t, store, "c2", "b@clinic.com")
		require.NoError(t, store.CreateLicense(ctx, newStoredLicense("l1", "c1", "TRL-2026-AAAAAAAAAA", storeEpoch)))

		err := store.CreateLicense(ctx, newStoredLicense("l2", "c2", "TRL-2026-AAAAAAAAAA", storeEpoch))
		require.ErrorIs(t, err, ErrDuplicateKey)
	})
}

func TestStoreListOrderAndCursor(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		seedCustomer(t, store, "c1", "a@clinic.com")

		// l3 shares l2's timestamp; the id breaks the tie.
		require.NoError(t, store.CreateLicense(ctx, newStoredLicense("l3", "c1", "TRL-2026-CCCCCCCCCC", storeEpoch.Add(time.Minute))))
		require.NoError(t, store.CreateLicense(ctx, newStoredLicense("l1", "c1", "TRL-2026-AAAAAAAAAA", storeEpoch)))
		require.NoError(t, store.CreateLicense(ctx, newStoredLicense("l2", "c1", "TRL-2026-BBBBBBBBBB", storeEpoch.Add(time.Minute))))
		require.NoError(t, store.CreateLicense(ctx, newStoredLicense("l4", "c1", "TRL-2026-DDDDDDDDDD", storeEpoch.Add(time.Hour))))

		all, err := store.ListLicensesWithCustomer(ctx, ListParams{})
		require.NoError(t, err)
		require.Equal(t, []string{"l1", "l2", "l3", "l4"}, licenseIDs(all))
		for _, l := range all {
			require.NotNil(t, l.Customer)
		}

		page, err := store.ListLicensesWithCustomer(ctx, ListParams{Limit: 2})
		require.NoError(t, err)
		require.Equal(t, []string{"l1", "l2"}, licenseIDs(page))

		last := page[len(page)-1]
		rest, err := store.ListLicensesWithCustomer(ctx, ListParams{
			After: &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID},
		})
		require.NoError(t, err)
		require.Equal(t, []string{"l3", "l4"}, licenseIDs(rest))
	})
}

func TestStoreTransactionRollback(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		boom := errors.New("boom")

		err := store.Transaction(ctx, func(tx Store) error {
			seedCustomer(t, tx, "c1", "demo@clinic.com")
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := store.FindCustomerByEmail(ctx, "demo@clinic.com")
		require.NoError(t, err)
		require.Nil(t, got)
	})
}

func TestStoreNestedTransactionKeepsOuter(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		seedCustomer(t, store, "c0", "first@clinic.com")
		require.NoError(t, store.CreateLicense(ctx, newStoredLicense("l0", "c0", "TRL-2026-AAAAAAAAAA", storeEpoch)))

		err := store.Transaction(ctx, func(tx Store) error {
			seedCustomer(t, tx, "c1", "demo@clinic.com")

			err := tx.Transaction(ctx, func(inner Store) error {
				return inner.CreateLicense(ctx, newStoredLicense("l1", "c1", "TRL-2026-AAAAAAAAAA", storeEpoch))
			})
			require.ErrorIs(t, err, ErrDuplicateKey)

			return tx.Transaction(ctx, func(inner Store) error {
				return inner.CreateLicense(ctx, newStoredLicense("l1", "c1", "TRL-2026-BBBBBBBBBB", storeEpoch))
			})
		})
		require.NoError(t, err)

		got, err := store.FindLicenseByKey(ctx, "TRL-2026-BBBBBBBBBB")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "demo@clinic.com", got.Customer.ContactEmail)
	})
}

func TestStorePing(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		require.NoError(t, store.Ping(context.Background()))
	})
}

func TestGormStoreWrapsBackendFailures(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewGormStore(db)

	// no tables migrated
	_, err := store.FindLicenseByKey(context.Background(), "TRL-2026-AAAAAAAAAA")
	require.ErrorIs(t, err, ErrStorage)
}

func licenseIDs(ls []*License) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

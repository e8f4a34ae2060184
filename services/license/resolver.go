package license

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultKeyRetryLimit = 20

// Resolver finds a key no stored license uses yet.
//
// The check and the later insert are not atomic. Two issuers can both see a
// key as free; the unique index on license_key settles that race and the
// service retries the insert.
type Resolver struct {
	gen   Generator
	limit int
	nowFn func() time.Time
}

func NewResolver(gen Generator, limit int) *Resolver {
	if limit < 1 {
		limit = DefaultKeyRetryLimit
	}
	return &Resolver{gen: gen, limit: limit, nowFn: time.Now}
}

func (r *Resolver) ReserveUniqueKey(ctx context.Context, store Store, tier Tier) (string, error) {
	for attempt := 1; attempt <= r.limit; attempt++ {
		candidate, err := r.gen.Generate(tier, r.nowFn().UTC())
		if err != nil {
			return "", err
		}

		existing, err := store.FindLicenseByKey(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}

		zap.L().Debug("license key collision",
			zap.String("tier", string(tier)),
			zap.Int("attempt", attempt),
		)
	}

	zap.L().Error("license keyspace exhausted",
		zap.String("tier", string(tier)),
		zap.Int("attempts", r.limit),
	)
	return "", ErrExhaustedKeyspace
}

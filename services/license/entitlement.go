package license

import "fmt"

const (
	DefaultTrialDays = 30
	MinDurationDays  = 1
	MaxDurationDays  = 365
	PremiumDays      = 365
)

const (
	FeatureBasic             = "basic_features"
	FeatureReports           = "reports"
	FeatureBackup            = "backup"
	FeatureAPIAccess         = "api_access"
	FeaturePrioritySupport   = "priority_support"
	FeatureAdvancedAnalytics = "advanced_analytics"
)

type Entitlements struct {
	MaxUsers     int
	MaxPatients  int
	Features     Features
	DurationDays int
}

// DeriveEntitlements maps a tier to its limits and duration.
//
//	trial:   1 user, 50 patients, basic features, requested days (default 30) clamped to [1,365]
//	premium: 20 users, 10000 patients, all features, always 365 days
func DeriveEntitlements(tier Tier, requestedDurationDays *int) (Entitlements, error) {
	switch tier {
	case TierTrial:
		days := DefaultTrialDays
		// 0 and omitted both select the default; only non-zero values are
		// clamped.
		if requestedDurationDays != nil && *requestedDurationDays != 0 {
			days = clampDays(*requestedDurationDays)
		}
		return Entitlements{
			MaxUsers:     1,
			MaxPatients:  50,
			Features:     Features{FeatureBasic: true},
			DurationDays: days,
		}, nil
	case TierPremium:
		return Entitlements{
			MaxUsers:    20,
			MaxPatients: 10000,
			Features: Features{
				FeatureBasic:             true,
				FeatureReports:           true,
				FeatureBackup:            true,
				FeatureAPIAccess:         true,
				FeaturePrioritySupport:   true,
				FeatureAdvancedAnalytics: true,
			},
			DurationDays: PremiumDays,
		}, nil
	default:
		return Entitlements{}, fmt.Errorf("%w: unknown license type %q", ErrValidation, tier)
	}
}

func clampDays(days int) int {
	return max(MinDurationDays, min(days, MaxDurationDays))
}

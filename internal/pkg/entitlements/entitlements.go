package entitlements

import (
	"github.com/affirmly/affirmly-backend/app/models"
)

type Plan string

const (
	PlanFree     Plan = "free"
	PlanMonthly  Plan = "monthly"
	PlanYearly   Plan = "yearly"
	PlanLifetime Plan = "lifetime"
)

// lifetimeStorageGb is the display-only storage figure shown to lifetime users.
const lifetimeStorageGb = 10

// ClientSubscription is the UI-facing subscription shape returned to the app.
type ClientSubscription struct {
	Plan           string `json:"plan"`
	Status         string `json:"status"`
	AutoRenew      bool   `json:"auto_renew"`
	PeriodEnd      *int64 `json:"period_end"`
	StorageLimitGb *int   `json:"storage_limit_gb,omitempty"`
}

// Project derives the client-facing subscription shape from stored state.
// A nil state is the free tier. It never mutates its input and is safe to
// call concurrently.
func Project(sub *models.Subscription) ClientSubscription {
	if sub == nil {
		return ClientSubscription{
			Plan:   models.PlanFree,
			Status: models.StatusInactive,
		}
	}

	out := ClientSubscription{
		Plan:   sub.Plan,
		Status: sub.Status,
	}
	if sub.RenewsAt != nil {
		ms := sub.RenewsAt.UnixMilli()
		out.PeriodEnd = &ms
	}
	// Lifetime plans never auto-renew and free plans have nothing to renew.
	out.AutoRenew = sub.Plan != models.PlanFree &&
		sub.Plan != models.PlanLifetime &&
		sub.Status == models.StatusActive
	if sub.Plan == models.PlanLifetime {
		gb := lifetimeStorageGb
		out.StorageLimitGb = &gb
	}
	return out
}

// DailyAffirmationLimit returns how many affirmations a plan may create per
// day. Zero means unlimited.
func DailyAffirmationLimit(plan Plan) int {
	switch plan {
	case PlanMonthly, PlanYearly, PlanLifetime:
		return 0
	default:
		return 5
	}
}

// DeviceSyncLimit returns how many devices a plan may sync across.
func DeviceSyncLimit(plan Plan) int {
	switch plan {
	case PlanMonthly, PlanYearly, PlanLifetime:
		return 10
	default:
		return 1
	}
}

// CanUseCustomCategories reports whether the plan may create custom
// affirmation categories.
func CanUseCustomCategories(plan Plan) bool {
	switch plan {
	case PlanMonthly, PlanYearly, PlanLifetime:
		return true
	default:
		return false
	}
}

package billing

import (
	"strings"

	"github.com/affirmly/affirmly-backend/app/models"
)

// Action is the closed set of entitlement actions an event maps to.
type Action int

const (
	// ActionIgnore acknowledges an event without touching any state.
	ActionIgnore Action = iota
	// ActionPurchase grants or renews entitlement.
	ActionPurchase
	// ActionRefund revokes entitlement immediately.
	ActionRefund
	// ActionCancel turns auto-renew off; entitlement persists until renews_at.
	ActionCancel
	// ActionExpire downgrades a lapsed subscription now.
	ActionExpire
)

func (a Action) String() string {
	switch a {
	case ActionPurchase:
		return "purchase"
	case ActionRefund:
		return "refund"
	case ActionCancel:
		return "cancel"
	case ActionExpire:
		return "expire"
	default:
		return "ignore"
	}
}

const cancelReasonCustomerSupport = "CUSTOMER_SUPPORT"

// ClassifyEvent maps an event type to exactly one action. Unknown types fall
// through to ActionIgnore so new upstream event types degrade safely.
func ClassifyEvent(ev *Event) Action {
	switch ev.Type {
	case "INITIAL_PURCHASE", "RENEWAL", "NON_RENEWING_PURCHASE", "UNCANCELLATION", "PRODUCT_CHANGE":
		return ActionPurchase
	case "REFUND", "REVOCATION":
		return ActionRefund
	case "CANCELLATION":
		// Support-initiated cancellations revoke entitlement immediately,
		// voluntary ones only stop the renewal.
		if ev.CancelReason == cancelReasonCustomerSupport {
			return ActionRefund
		}
		return ActionCancel
	case "EXPIRATION":
		return ActionExpire
	default:
		return ActionIgnore
	}
}

// DerivePlan resolves the plan from a catalog product id. The declared plan is
// only a fallback for events without a product id; a present product id always
// wins so clients cannot self-upgrade by lying about their plan.
func DerivePlan(productID, declaredPlan string) string {
	id := strings.ToLower(strings.TrimSpace(productID))
	if id == "" {
		return normalizePlan(declaredPlan)
	}
	for _, marker := range []struct {
		suffix string
		plan   string
	}{
		{".monthly", models.PlanMonthly},
		{".yearly", models.PlanYearly},
		{".lifetime", models.PlanLifetime},
	} {
		if strings.Contains(id, marker.suffix) {
			return marker.plan
		}
	}
	return models.PlanFree
}

func normalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case models.PlanMonthly:
		return models.PlanMonthly
	case models.PlanYearly:
		return models.PlanYearly
	case models.PlanLifetime:
		return models.PlanLifetime
	default:
		return models.PlanFree
	}
}

// InferProvider maps a store name reported by the relay to a payment provider.
func InferProvider(store string) string {
	s := strings.ToLower(strings.TrimSpace(store))
	switch {
	case strings.Contains(s, "play") || strings.Contains(s, "google"):
		return models.ProviderGooglePlay
	case strings.Contains(s, "app_store") || strings.Contains(s, "apple") || strings.Contains(s, "ios"):
		return models.ProviderAppStore
	case strings.Contains(s, "stripe"):
		return models.ProviderStripe
	default:
		return models.ProviderPromo
	}
}

// PlatformForProvider maps a provider to the purchase platform.
func PlatformForProvider(provider string) string {
	switch provider {
	case models.ProviderGooglePlay:
		return models.PlatformAndroid
	case models.ProviderAppStore:
		return models.PlatformIOS
	default:
		return models.PlatformWeb
	}
}

// SourceForProvider maps a provider to the subscription source enum.
func SourceForProvider(provider string) string {
	switch provider {
	case models.ProviderGooglePlay:
		return models.SourceGooglePlay
	case models.ProviderAppStore:
		return models.SourceAppStore
	case models.ProviderStripe:
		return models.SourceStripe
	default:
		return models.SourceAdmin
	}
}

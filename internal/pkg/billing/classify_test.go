package billing

import (
	"testing"

	"github.com/affirmly/affirmly-backend/app/models"
)

func TestClassifyEvent(t *testing.T) {
	tests := []struct {
		eventType    string
		cancelReason string
		want         Action
	}{
		{eventType: "INITIAL_PURCHASE", want: ActionPurchase},
		{eventType: "RENEWAL", want: ActionPurchase},
		{eventType: "NON_RENEWING_PURCHASE", want: ActionPurchase},
		{eventType: "UNCANCELLATION", want: ActionPurchase},
		{eventType: "PRODUCT_CHANGE", want: ActionPurchase},
		{eventType: "REFUND", want: ActionRefund},
		{eventType: "REVOCATION", want: ActionRefund},
		{eventType: "CANCELLATION", cancelReason: "CUSTOMER_SUPPORT", want: ActionRefund},
		{eventType: "CANCELLATION", cancelReason: "UNSUBSCRIBE", want: ActionCancel},
		{eventType: "CANCELLATION", want: ActionCancel},
		{eventType: "EXPIRATION", want: ActionExpire},
		{eventType: "BILLING_ISSUE", want: ActionIgnore},
		{eventType: "TRANSFER", want: ActionIgnore},
		{eventType: "SOME_FUTURE_TYPE", want: ActionIgnore},
		{eventType: "", want: ActionIgnore},
	}

	for _, tt := range tests {
		ev := &Event{Type: tt.eventType, CancelReason: tt.cancelReason}
		if got := ClassifyEvent(ev); got != tt.want {
			t.Fatalf("ClassifyEvent(%q, reason=%q) = %v, want %v", tt.eventType, tt.cancelReason, got, tt.want)
		}
	}
}

func TestDerivePlan(t *testing.T) {
	tests := []struct {
		productID    string
		declaredPlan string
		want         string
	}{
		{productID: "com.affirmly.premium.monthly", want: models.PlanMonthly},
		{productID: "com.affirmly.premium.yearly", want: models.PlanYearly},
		{productID: "com.affirmly.premium.lifetime", want: models.PlanLifetime},
		{productID: "PKG.Yearly.Promo2024", want: models.PlanYearly},
		// A product id without a marker is free regardless of the declared plan.
		{productID: "com.affirmly.consumable.pack", declaredPlan: "lifetime", want: models.PlanFree},
		// The declared plan never outranks a present product id.
		{productID: "pkg.yearly", declaredPlan: "free", want: models.PlanYearly},
		// Declared plan is only a fallback without a product id.
		{productID: "", declaredPlan: "monthly", want: models.PlanMonthly},
		{productID: "", declaredPlan: "nonsense", want: models.PlanFree},
		{productID: "", declaredPlan: "", want: models.PlanFree},
	}

	for _, tt := range tests {
		if got := DerivePlan(tt.productID, tt.declaredPlan); got != tt.want {
			t.Fatalf("DerivePlan(%q, %q) = %q, want %q", tt.productID, tt.declaredPlan, got, tt.want)
		}
	}
}

func TestDerivePlanMarkerOrder(t *testing.T) {
	// Monthly is checked before yearly; first match wins.
	if got := DerivePlan("pkg.monthly.yearly", ""); got != models.PlanMonthly {
		t.Fatalf("expected monthly marker to win, got %q", got)
	}
}

func TestInferProvider(t *testing.T) {
	tests := []struct {
		store string
		want  string
	}{
		{store: "PLAY_STORE", want: models.ProviderGooglePlay},
		{store: "google", want: models.ProviderGooglePlay},
		{store: "APP_STORE", want: models.ProviderAppStore},
		{store: "apple", want: models.ProviderAppStore},
		{store: "ios", want: models.ProviderAppStore},
		{store: "stripe", want: models.ProviderStripe},
		{store: "promotional", want: models.ProviderPromo},
		{store: "", want: models.ProviderPromo},
	}

	for _, tt := range tests {
		if got := InferProvider(tt.store); got != tt.want {
			t.Fatalf("InferProvider(%q) = %q, want %q", tt.store, got, tt.want)
		}
	}
}

func TestPlatformForProvider(t *testing.T) {
	if got := PlatformForProvider(models.ProviderGooglePlay); got != models.PlatformAndroid {
		t.Fatalf("expected android, got %q", got)
	}
	if got := PlatformForProvider(models.ProviderAppStore); got != models.PlatformIOS {
		t.Fatalf("expected ios, got %q", got)
	}
	if got := PlatformForProvider(models.ProviderStripe); got != models.PlatformWeb {
		t.Fatalf("expected web, got %q", got)
	}
	if got := PlatformForProvider(models.ProviderPromo); got != models.PlatformWeb {
		t.Fatalf("expected web for promo, got %q", got)
	}
}

func TestSourceForProvider(t *testing.T) {
	if got := SourceForProvider(models.ProviderPromo); got != models.SourceAdmin {
		t.Fatalf("expected promo purchases to carry the admin source, got %q", got)
	}
	if got := SourceForProvider(models.ProviderGooglePlay); got != models.SourceGooglePlay {
		t.Fatalf("expected google_play source, got %q", got)
	}
}

package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/affirmly/affirmly-backend/internal/pkg/billing"
	"github.com/affirmly/affirmly-backend/internal/pkg/cache"
	"github.com/affirmly/affirmly-backend/internal/pkg/database"
	"github.com/affirmly/affirmly-backend/internal/pkg/entitlements"
	"github.com/affirmly/affirmly-backend/internal/pkg/usercontext"
)

const subscriptionCacheTTL = 5 * time.Minute

// HandleGetSubscription returns the caller's entitlement projection.
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	if cached, err := cache.Get(cache.SubscriptionKey(userCtx.UserID)); err == nil && cached != "" {
		var projection entitlements.ClientSubscription
		if err := json.Unmarshal([]byte(cached), &projection); err == nil {
			return c.JSON(projection)
		}
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	sub, err := svc.CurrentSubscription(c.Context(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}

	projection := entitlements.Project(sub)
	if encoded, err := json.Marshal(projection); err == nil {
		if err := cache.Set(cache.SubscriptionKey(userCtx.UserID), string(encoded), subscriptionCacheTTL); err != nil {
			log.Printf("subscription cache write failed for user %d: %v", userCtx.UserID, err)
		}
	}
	return c.JSON(projection)
}

// HandleActivateSubscription applies a client-reported purchase. Unlike the
// webhook path, a malformed payload is rejected rather than skipped.
func HandleActivateSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var in billing.ActivationInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	sub, err := svc.Activate(c.Context(), userCtx.UserID, in, string(c.BodyRaw()))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidActivation) {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
		log.Printf("activation failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Activation failed")
	}

	_ = cache.Delete(cache.SubscriptionKey(userCtx.UserID))
	return c.JSON(entitlements.Project(sub))
}

type cancelRequest struct {
	PeriodEnd *int64 `json:"period_end"`
}

// HandleCancelSubscription turns auto-renew off for the caller.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var req cancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
		}
	}
	var periodEnd *time.Time
	if req.PeriodEnd != nil && *req.PeriodEnd > 0 {
		t := time.UnixMilli(*req.PeriodEnd).UTC()
		periodEnd = &t
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	sub, err := svc.CancelAutoRenew(c.Context(), userCtx.UserID, periodEnd)
	if err != nil {
		if errors.Is(err, billing.ErrNoSubscription) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No subscription to cancel")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Cancellation failed")
	}

	_ = cache.Delete(cache.SubscriptionKey(userCtx.UserID))
	return c.JSON(entitlements.Project(sub))
}

// HandleResumeSubscription turns auto-renew back on.
func HandleResumeSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	sub, err := svc.ResumeAutoRenew(c.Context(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, billing.ErrNoSubscription) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No subscription to resume")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Resume failed")
	}

	_ = cache.Delete(cache.SubscriptionKey(userCtx.UserID))
	return c.JSON(entitlements.Project(sub))
}

// HandleSwitchToFree downgrades the caller to the free tier.
func HandleSwitchToFree(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	sub, err := svc.SwitchToFree(c.Context(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Downgrade failed")
	}

	_ = cache.Delete(cache.SubscriptionKey(userCtx.UserID))
	return c.JSON(entitlements.Project(sub))
}

// HandleGetBillingHistory returns ledger entries plus items from the legacy
// billing system. Legacy lookups never influence entitlement state.
func HandleGetBillingHistory(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	payments, err := svc.ListPayments(c.Context(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load payments")
	}

	items := make([]fiber.Map, 0, len(payments))
	for _, p := range payments {
		items = append(items, fiber.Map{
			"transaction_id": p.TransactionID,
			"provider":       p.Provider,
			"platform":       p.Platform,
			"product_id":     p.ProductID,
			"amount_cents":   p.AmountCents,
			"currency":       p.Currency,
			"purchased_at":   p.PurchasedAt.UnixMilli(),
			"expires_at":     timePtrToMs(p.ExpiresAt),
		})
	}

	legacy := make([]billing.LegacyPayment, 0)
	if client := billing.NewHistoryClientFromEnv(); client != nil {
		fetched, err := client.FetchHistory(c.Context(), userCtx.AppUserID)
		if err != nil {
			log.Printf("legacy billing lookup failed for user %d: %v", userCtx.UserID, err)
			return jsonError(c, fiber.StatusServiceUnavailable, "upstream_failure", "Legacy billing system unavailable")
		}
		legacy = fetched
	}

	return c.JSON(fiber.Map{"payments": items, "legacy": legacy})
}

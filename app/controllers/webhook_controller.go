package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/affirmly/affirmly-backend/app/repository"
	"github.com/affirmly/affirmly-backend/internal/pkg/billing"
	"github.com/affirmly/affirmly-backend/internal/pkg/cache"
	"github.com/affirmly/affirmly-backend/internal/pkg/database"
	"github.com/affirmly/affirmly-backend/internal/pkg/env"
)

const relayProvider = "relay"

// HandleBillingWebhook ingests purchase lifecycle events from the billing
// relay. Deliveries are at-least-once and possibly out of order, so the
// handler acknowledges everything it can classify and only returns 5xx for
// real infrastructure failures; an error response makes the relay retry.
func HandleBillingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	secret := env.GetEnv("RELAY_WEBHOOK_SECRET", "")
	if !billing.VerifyRelaySecret(c.Get(fiber.HeaderAuthorization), secret) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid webhook secret")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ev, parseErr := billing.ParseRelayEvent(rawBody)
	eventType := ""
	provider := relayProvider
	if parseErr == nil {
		eventType = ev.Type
		provider = ev.Provider
	}

	created, stored, err := svc.RecordWebhookEvent(ctx, provider, billing.RelayEventID(rawBody), eventType, string(rawBody))
	if err != nil {
		log.Printf("webhook event persist failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "webhook_persist_failed", "Failed to record event")
	}
	if !created {
		// Only a successfully processed delivery short-circuits. A retry of
		// one that failed mid-apply (or is still in flight) runs the full
		// pipeline again; every write below is an idempotent upsert.
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			return c.JSON(fiber.Map{"ok": true, "duplicate": true})
		}
	}

	if parseErr != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, parseErr)
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Malformed relay payload")
	}

	action := billing.ClassifyEvent(ev)
	if action == billing.ActionIgnore {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.JSON(fiber.Map{"ok": true, "ignored": true})
	}

	// Events without a resolvable user are acknowledged, not rejected: the
	// relay treats errors as retry signals and an unlinked app user id would
	// retry forever.
	if strings.TrimSpace(ev.AppUserID) == "" {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("event missing app_user_id"))
		return c.JSON(fiber.Map{"ok": true, "skipped": true})
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByAppUserID(ev.AppUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("no account for app_user_id"))
			return c.JSON(fiber.Map{"ok": true, "skipped": true})
		}
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "account_lookup_failed", "User lookup failed")
	}

	if _, err := svc.Apply(ctx, user.ID, action, ev); err != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
		log.Printf("webhook apply failed for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "apply_failed", "Event processing failed")
	}

	_ = cache.Delete(cache.SubscriptionKey(user.ID))
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
	return c.JSON(fiber.Map{"ok": true, "action": action.String()})
}

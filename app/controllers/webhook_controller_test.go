package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/affirmly/affirmly-backend/app/models"
	"github.com/affirmly/affirmly-backend/app/repository"
	"github.com/affirmly/affirmly-backend/internal/pkg/database"
)

var (
	webhookTestOnce sync.Once
	webhookTestApp  *fiber.App
)

// setupWebhookApp wires the webhook route against a shared in-memory SQLite
// database. The repository factory is a process-wide singleton, so every test
// in this package works on the same handle.
func setupWebhookApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	webhookTestOnce.Do(func() {
		db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
		if err != nil {
			panic(err)
		}
		if err := db.AutoMigrate(
			&models.User{},
			&models.Subscription{},
			&models.PaymentRecord{},
			&models.BillingWebhookEvent{},
		); err != nil {
			panic(err)
		}
		database.DB = db
		repository.InitializeFactory(db)

		app := fiber.New()
		app.Post("/webhooks/billing", HandleBillingWebhook)
		webhookTestApp = app
	})
	return webhookTestApp, database.GetDB()
}

func postWebhook(t *testing.T, app *fiber.App, body string, authorization string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var payload map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func relayBody(eventID, eventType, appUserID, transactionID string) string {
	return fmt.Sprintf(`{"event":{"type":%q,"id":%q,"app_user_id":%q,"product_id":"com.affirmly.premium.yearly","transaction_id":%q,"store":"PLAY_STORE","purchased_at_ms":1735689600000,"expiration_at_ms":1767225600000,"currency":"USD","price":39.99}}`,
		eventType, eventID, appUserID, transactionID)
}

func createWebhookTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	account := models.NewUser("auth0|"+t.Name(), t.Name()+"@example.com", "Webhook Test")
	require.NoError(t, db.Create(account).Error)
	return account
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	app, _ := setupWebhookApp(t)
	t.Setenv("RELAY_WEBHOOK_SECRET", "relay-secret")

	body := relayBody("evt_secret_1", "TRANSFER", "", "")

	resp, _ := postWebhook(t, app, body, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = postWebhook(t, app, body, "Bearer wrong")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, payload := postWebhook(t, app, body, "Bearer relay-secret")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["ignored"])
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	app, _ := setupWebhookApp(t)

	resp, _ := postWebhook(t, app, `{"event"`, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookSkipsEventWithoutAppUserID(t *testing.T) {
	app, db := setupWebhookApp(t)

	var subsBefore, paymentsBefore int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&subsBefore).Error)
	require.NoError(t, db.Model(&models.PaymentRecord{}).Count(&paymentsBefore).Error)

	resp, payload := postWebhook(t, app, relayBody("evt_no_user", "INITIAL_PURCHASE", "", "txn_no_user"), "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["skipped"])

	var subsAfter, paymentsAfter int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&subsAfter).Error)
	require.NoError(t, db.Model(&models.PaymentRecord{}).Count(&paymentsAfter).Error)
	assert.Equal(t, subsBefore, subsAfter, "skipped events must not write subscription state")
	assert.Equal(t, paymentsBefore, paymentsAfter, "skipped events must not write ledger rows")
}

func TestWebhookSkipsUnknownAppUserID(t *testing.T) {
	app, db := setupWebhookApp(t)

	var subsBefore int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&subsBefore).Error)

	body := relayBody("evt_unknown_user", "INITIAL_PURCHASE", "00000000-0000-0000-0000-000000000000", "txn_unknown_user")
	resp, payload := postWebhook(t, app, body, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["skipped"])

	var subsAfter int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&subsAfter).Error)
	assert.Equal(t, subsBefore, subsAfter)
}

func TestWebhookAppliesPurchaseAndAcksDuplicate(t *testing.T) {
	app, db := setupWebhookApp(t)
	account := createWebhookTestUser(t, db)

	body := relayBody("evt_apply_1", "INITIAL_PURCHASE", account.AppUserID, "txn_apply_1")

	resp, payload := postWebhook(t, app, body, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "purchase", payload["action"])

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", account.ID).First(&sub).Error)
	assert.Equal(t, models.PlanYearly, sub.Plan)
	assert.Equal(t, models.StatusActive, sub.Status)

	// The identical delivery again is acknowledged without reprocessing.
	resp, payload = postWebhook(t, app, body, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["duplicate"])

	var paymentCount int64
	require.NoError(t, db.Model(&models.PaymentRecord{}).
		Where("transaction_id = ?", "txn_apply_1").Count(&paymentCount).Error)
	assert.Equal(t, int64(1), paymentCount)
}

func TestWebhookRetryAfterFailedApplyReprocesses(t *testing.T) {
	app, db := setupWebhookApp(t)
	account := createWebhookTestUser(t, db)

	body := relayBody("evt_retry_1", "INITIAL_PURCHASE", account.AppUserID, "txn_retry_1")

	// First delivery fails mid-apply: the subscription table is gone, so the
	// event is recorded but state is never written.
	require.NoError(t, db.Migrator().DropTable(&models.Subscription{}))
	resp, _ := postWebhook(t, app, body, "")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var stored models.BillingWebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_retry_1").First(&stored).Error)
	assert.NotEmpty(t, stored.ProcessingError)

	// The relay retries once storage is healthy again; the retry must run the
	// full pipeline instead of short-circuiting as a duplicate.
	require.NoError(t, db.AutoMigrate(&models.Subscription{}))
	resp, payload := postWebhook(t, app, body, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "purchase", payload["action"])

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", account.ID).First(&sub).Error)
	assert.Equal(t, models.StatusActive, sub.Status)
	assert.Equal(t, models.PlanYearly, sub.Plan)

	require.NoError(t, db.Where("provider_event_id = ?", "evt_retry_1").First(&stored).Error)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.ProcessingError)
}

package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/affirmly/affirmly-backend/app/models"
)

// ErrNoSubscription is returned by operations that require an existing
// subscription row (resume, client cancel) when none exists yet.
var ErrNoSubscription = errors.New("no subscription exists for user")

// ErrInvalidActivation marks a client activation payload that failed
// validation. No state is mutated when it is returned.
var ErrInvalidActivation = errors.New("invalid activation payload")

// Service is the reconciliation engine. It is the sole writer of the payment
// ledger and the per-user subscription state, and every write is a single
// idempotent upsert so replayed deliveries converge instead of double-applying.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService creates a reconciliation service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// NewServiceFromDB creates a reconciliation service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// ActivationInput is the client-initiated purchase payload. Unlike webhook
// deliveries it is validated strictly and rejected on failure, because it is
// a direct request rather than a best-effort relay delivery.
type ActivationInput struct {
	Plan          string `json:"plan" validate:"omitempty,oneof=free monthly yearly lifetime"`
	ProductID     string `json:"product_id" validate:"required"`
	TransactionID string `json:"transaction_id" validate:"required"`
	Platform      string `json:"platform" validate:"required,oneof=android ios web"`
	Provider      string `json:"provider" validate:"required,oneof=google_play app_store stripe promo"`
	AmountCents   int64  `json:"amount_cents" validate:"gte=0"`
	Currency      string `json:"currency" validate:"required,min=3,max=3"`
	PeriodEnd     *int64 `json:"period_end"`
}

// Apply runs one classified action against the ledger and subscription state.
// ActionIgnore is a no-op; all other actions upsert-create the subscription
// row when absent and fully overwrite the fields the action owns.
func (s *Service) Apply(ctx context.Context, userID uint, action Action, ev *Event) (*models.Subscription, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user id is required")
	}
	if ev == nil {
		return nil, errors.New("event is required")
	}

	switch action {
	case ActionPurchase:
		return s.applyPurchase(userID, ev)
	case ActionRefund:
		return s.applyRefund(userID, ev)
	case ActionCancel:
		return s.applyCancel(userID, ev)
	case ActionExpire:
		return s.applyExpire(userID, ev)
	default:
		return s.currentOrNil(userID)
	}
}

func (s *Service) applyPurchase(userID uint, ev *Event) (*models.Subscription, error) {
	plan := DerivePlan(ev.ProductID, ev.DeclaredPlan)

	if strings.TrimSpace(ev.TransactionID) != "" {
		startedAt := time.Now().UTC()
		if ev.PurchasedAt != nil {
			startedAt = *ev.PurchasedAt
		}
		rec := &models.PaymentRecord{
			TransactionID:         ev.TransactionID,
			UserID:                userID,
			Platform:              ev.Platform,
			Provider:              ev.Provider,
			ProductID:             ev.ProductID,
			OriginalTransactionID: ev.OriginalTransactionID,
			AmountCents:           ev.AmountCents,
			Currency:              ev.Currency,
			PurchasedAt:           startedAt,
			ExpiresAt:             ev.ExpiresAt,
			RawPayloadJSON:        ev.RawPayloadJSON,
		}
		if err := s.repo.UpsertPaymentRecord(rec); err != nil {
			return nil, fmt.Errorf("ledger upsert failed: %w", err)
		}
	}

	startedAt := time.Now().UTC()
	if ev.PurchasedAt != nil {
		startedAt = *ev.PurchasedAt
	}
	sub := &models.Subscription{
		UserID:          userID,
		Plan:            plan,
		Status:          models.StatusActive,
		Source:          SourceForProvider(ev.Provider),
		StartedAt:       &startedAt,
		RenewsAt:        ev.ExpiresAt,
		CanceledAt:      nil,
		LatestPaymentID: ev.TransactionID,
	}
	overwrite := []string{"plan", "status", "source", "renews_at", "canceled_at"}
	// A purchase without a transaction keeps the stored back-reference to the
	// last payment that changed state.
	if strings.TrimSpace(ev.TransactionID) != "" {
		overwrite = append(overwrite, "latest_payment_id")
	}
	if err := s.repo.UpsertSubscription(sub, overwrite); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) applyRefund(userID uint, ev *Event) (*models.Subscription, error) {
	now := time.Now().UTC()
	sub := &models.Subscription{
		UserID:     userID,
		Plan:       models.PlanFree,
		Status:     models.StatusInactive,
		Source:     SourceForProvider(ev.Provider),
		RenewsAt:   nil,
		CanceledAt: &now,
	}
	err := s.repo.UpsertSubscription(sub, []string{
		"plan", "status", "renews_at", "canceled_at",
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) applyCancel(userID uint, ev *Event) (*models.Subscription, error) {
	now := time.Now().UTC()
	sub := &models.Subscription{
		UserID:     userID,
		Plan:       DerivePlan(ev.ProductID, ev.DeclaredPlan),
		Status:     models.StatusCanceled,
		Source:     SourceForProvider(ev.Provider),
		RenewsAt:   ev.ExpiresAt,
		CanceledAt: &now,
	}
	// Renewal date only moves when the event carries one; plan stays as is
	// for existing rows because the entitlement persists until period end.
	overwrite := []string{"status", "canceled_at"}
	if ev.ExpiresAt != nil {
		overwrite = append(overwrite, "renews_at")
	}
	if err := s.repo.UpsertSubscription(sub, overwrite); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) applyExpire(userID uint, ev *Event) (*models.Subscription, error) {
	now := time.Now().UTC()
	sub := &models.Subscription{
		UserID:     userID,
		Plan:       models.PlanFree,
		Status:     models.StatusExpired,
		Source:     SourceForProvider(ev.Provider),
		RenewsAt:   nil,
		CanceledAt: &now,
	}
	err := s.repo.UpsertSubscription(sub, []string{
		"plan", "status", "renews_at", "canceled_at",
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Activate applies a client-initiated purchase. It validates the payload and
// then runs the same purchase path as a relay event, so a replayed activation
// converges exactly like a replayed webhook.
func (s *Service) Activate(ctx context.Context, userID uint, in ActivationInput, rawPayload string) (*models.Subscription, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActivation, err)
	}

	ev := &Event{
		Type:           "ACTIVATION",
		ProductID:      strings.TrimSpace(in.ProductID),
		TransactionID:  strings.TrimSpace(in.TransactionID),
		Provider:       in.Provider,
		Platform:       in.Platform,
		DeclaredPlan:   in.Plan,
		ExpiresAt:      msToTime(derefInt64(in.PeriodEnd)),
		AmountCents:    in.AmountCents,
		Currency:       normalizeCurrency(in.Currency),
		RawPayloadJSON: rawPayload,
	}
	return s.Apply(ctx, userID, ActionPurchase, ev)
}

// CancelAutoRenew is the voluntary client cancellation: auto-renew stops but
// the paid period keeps running. Fails with ErrNoSubscription when the user
// has no subscription row.
func (s *Service) CancelAutoRenew(ctx context.Context, userID uint, periodEnd *time.Time) (*models.Subscription, error) {
	_ = ctx
	existing, err := s.repo.GetSubscriptionByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}

	now := time.Now().UTC()
	existing.Status = models.StatusCanceled
	existing.CanceledAt = &now
	overwrite := []string{"status", "canceled_at"}
	if periodEnd != nil {
		existing.RenewsAt = periodEnd
		overwrite = append(overwrite, "renews_at")
	}
	if err := s.repo.UpsertSubscription(existing, overwrite); err != nil {
		return nil, err
	}
	return existing, nil
}

// ResumeAutoRenew flips a canceled subscription back to active. It never
// creates a row; resuming without one is a not-found condition.
func (s *Service) ResumeAutoRenew(ctx context.Context, userID uint) (*models.Subscription, error) {
	_ = ctx
	existing, err := s.repo.GetSubscriptionByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}

	existing.Status = models.StatusActive
	existing.CanceledAt = nil
	if err := s.repo.UpsertSubscription(existing, []string{"status", "canceled_at"}); err != nil {
		return nil, err
	}
	return existing, nil
}

// SwitchToFree is the only consumer-triggerable downgrade. It always succeeds,
// creating the row at the free tier when absent.
func (s *Service) SwitchToFree(ctx context.Context, userID uint) (*models.Subscription, error) {
	_ = ctx
	now := time.Now().UTC()
	sub := &models.Subscription{
		UserID:     userID,
		Plan:       models.PlanFree,
		Status:     models.StatusInactive,
		Source:     models.SourceAdmin,
		RenewsAt:   nil,
		CanceledAt: &now,
	}
	err := s.repo.UpsertSubscription(sub, []string{
		"plan", "status", "renews_at", "canceled_at",
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// CurrentSubscription returns the stored state, or nil when the user has
// never had a subscription row (equivalent to the free tier).
func (s *Service) CurrentSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	_ = ctx
	return s.currentOrNil(userID)
}

// ListPayments returns the user's ledger entries, newest first.
func (s *Service) ListPayments(ctx context.Context, userID uint) ([]models.PaymentRecord, error) {
	_ = ctx
	return s.repo.ListPaymentsByUserID(userID)
}

// DropSubscription removes the subscription row during account deletion.
// The payment ledger is intentionally kept for audit.
func (s *Service) DropSubscription(ctx context.Context, userID uint) error {
	_ = ctx
	return s.repo.DeleteSubscriptionByUserID(userID)
}

// RecordWebhookEvent persists a webhook delivery idempotently. Deliveries
// without a provider event id are deduplicated by payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, provider, eventID, eventType, payloadJSON string) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		return false, nil, errors.New("provider is required")
	}
	id := strings.TrimSpace(eventID)
	if id == "" {
		sum := sha256.Sum256([]byte(payloadJSON))
		id = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        p,
		ProviderEventID: id,
		EventType:       strings.TrimSpace(eventType),
		PayloadJSON:     payloadJSON,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook event id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func (s *Service) currentOrNil(userID uint) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscriptionByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

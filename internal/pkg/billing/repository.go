package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/affirmly/affirmly-backend/app/models"
)

// Repository provides the DB operations used by the reconciliation engine.
// All writes are single atomic upserts keyed on natural keys so the database
// serializes concurrent deliveries without application-level locking.
type Repository interface {
	UpsertPaymentRecord(rec *models.PaymentRecord) error
	UpsertSubscription(sub *models.Subscription, overwrite []string) error
	GetSubscriptionByUserID(userID uint) (*models.Subscription, error)
	ListPaymentsByUserID(userID uint) ([]models.PaymentRecord, error)
	DeleteSubscriptionByUserID(userID uint) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// UpsertPaymentRecord inserts one ledger row per transaction id. Identity
// fields (user, platform, provider, product, origin chain) are set only on
// first insert; amount, timestamps and the raw payload track the latest
// delivery of the same transaction.
func (r *gormRepository) UpsertPaymentRecord(rec *models.PaymentRecord) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "transaction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount_cents",
			"currency",
			"purchased_at",
			"expires_at",
			"raw_payload_json",
			"updated_at",
		}),
	}).Create(rec).Error; err != nil {
		return err
	}

	// Ensure ID and identity fields reflect the stored row after a replay.
	return r.db.Where("transaction_id = ?", rec.TransactionID).First(rec).Error
}

// UpsertSubscription writes the target subscription state for a user. The
// overwrite list names the columns the action fully owns; columns outside it
// keep their stored values when the row already exists.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription, overwrite []string) error {
	columns := append(append([]string{}, overwrite...), "updated_at")
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(sub).Error; err != nil {
		return err
	}

	return r.db.Where("user_id = ?", sub.UserID).First(sub).Error
}

func (r *gormRepository) GetSubscriptionByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ListPaymentsByUserID(userID uint) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.Where("user_id = ?", userID).Order("purchased_at DESC").Find(&records).Error
	return records, err
}

func (r *gormRepository) DeleteSubscriptionByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Subscription{}).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

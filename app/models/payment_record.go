package models

import "time"

// Platforms a purchase can originate from.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWeb     = "web"
)

// Payment providers recognized by the billing pipeline.
const (
	ProviderGooglePlay = "google_play"
	ProviderAppStore   = "app_store"
	ProviderStripe     = "stripe"
	ProviderPromo      = "promo"
)

// PaymentRecord is one immutable ledger entry per provider transaction.
// The reconciliation engine is the only writer; rows are never deleted.
// Identity fields are written once on first insert, the remaining fields
// reflect the latest delivery of the same transaction.
type PaymentRecord struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	TransactionID         string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_payment_records_transaction" json:"transaction_id"`
	UserID                uint       `gorm:"not null;index" json:"user_id"`
	Platform              string     `gorm:"type:varchar(16);not null" json:"platform"`
	Provider              string     `gorm:"type:varchar(20);not null;index" json:"provider"`
	ProductID             string     `gorm:"type:varchar(191);not null;default:''" json:"product_id"`
	OriginalTransactionID string     `gorm:"type:varchar(191);default:'';index" json:"original_transaction_id,omitempty"`
	AmountCents           int64      `gorm:"not null;default:0" json:"amount_cents"`
	Currency              string     `gorm:"type:char(3);not null;default:'USD'" json:"currency"`
	PurchasedAt           time.Time  `gorm:"type:timestamp;not null" json:"purchased_at"`
	ExpiresAt             *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	RawPayloadJSON        string     `gorm:"type:longtext" json:"raw_payload_json"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

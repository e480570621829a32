package models

import "time"

// Subscription plans in ascending order of tier.
const (
	PlanFree     = "free"
	PlanMonthly  = "monthly"
	PlanYearly   = "yearly"
	PlanLifetime = "lifetime"
)

// Subscription statuses. Only StatusActive grants entitlement.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusCanceled = "canceled"
	StatusExpired  = "expired"
)

// Subscription sources (where the current state came from).
const (
	SourceGooglePlay = "google_play"
	SourceAppStore   = "app_store"
	SourceStripe     = "stripe"
	SourceAdmin      = "admin"
)

// Subscription is the single mutable entitlement record per user. An absent
// row is equivalent to {plan: free, status: inactive}. Only the reconciliation
// engine writes it; callers gate purely on Status, never on Plan.
type Subscription struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;uniqueIndex:ux_subscriptions_user" json:"user_id"`
	Plan            string     `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	Status          string     `gorm:"type:varchar(20);not null;default:'inactive';index" json:"status"`
	Source          string     `gorm:"type:varchar(20);not null;default:'admin'" json:"source"`
	StartedAt       *time.Time `gorm:"type:timestamp;default:null" json:"started_at,omitempty"`
	RenewsAt        *time.Time `gorm:"type:timestamp;default:null" json:"renews_at,omitempty"`
	CanceledAt      *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	LatestPaymentID string     `gorm:"type:varchar(191);default:''" json:"latest_payment_id"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEntitled reports whether the subscription currently grants paid features.
func (s *Subscription) IsEntitled() bool {
	return s != nil && s.Status == StatusActive
}

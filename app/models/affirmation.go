package models

import (
	"time"

	"gorm.io/gorm"
)

// Affirmation is a user-authored affirmation synced across devices.
type Affirmation struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       string         `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	UserID     uint           `gorm:"not null;index:idx_affirmations_user_created,priority:1" json:"user_id"`
	Text       string         `gorm:"type:text;not null" json:"text"`
	Category   string         `gorm:"type:varchar(100);default:''" json:"category"`
	IsFavorite bool           `gorm:"default:false;index" json:"is_favorite"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index:idx_affirmations_user_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

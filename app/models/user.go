package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	STATUS_ACTIVE   = "active"
	STATUS_DISABLED = "disabled"
)

// User is a mobile app account. Authentication happens at the identity
// provider; we only store the verified subject and the app user id that the
// billing relay reports purchases under.
type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	IdentitySubject string         `gorm:"type:varchar(191);uniqueIndex" json:"-"`
	AppUserID       string         `gorm:"type:char(36);uniqueIndex" json:"app_user_id"`
	Name            string         `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email           string         `gorm:"type:varchar(200);index" json:"email" validate:"omitempty,email,max=200"`
	Bio             string         `gorm:"type:text" json:"bio" validate:"max=1000"`
	AvatarURL       string         `gorm:"type:varchar(255);default:''" json:"avatar_url"`
	Status          string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active disabled"`
	ReminderTime    string         `gorm:"type:varchar(5);default:''" json:"reminder_time" validate:"omitempty,len=5"`
	PushEnabled     bool           `gorm:"default:true" json:"push_enabled"`
	LastSeenAt      *time.Time     `gorm:"type:timestamp;default:null" json:"last_seen_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NewUser builds an account for a freshly verified identity subject.
func NewUser(subject, email, name string) *User {
	return &User{
		IdentitySubject: subject,
		AppUserID:       uuid.NewString(),
		Name:            name,
		Email:           email,
		Status:          STATUS_ACTIVE,
	}
}

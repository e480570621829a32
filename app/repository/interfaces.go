package repository

import (
	"github.com/affirmly/affirmly-backend/app/models"
)

// UserRepository defines data access for user accounts.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetBySubject(subject string) (*models.User, error)
	GetByAppUserID(appUserID string) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	Delete(id uint) error
}

// AffirmationRepository defines data access for cloud-synced affirmations.
// All queries are owner-scoped; there is no cross-user read path.
type AffirmationRepository interface {
	ListByUser(userID uint) ([]models.Affirmation, error)
	GetByUUID(userID uint, uuid string) (*models.Affirmation, error)
	Create(aff *models.Affirmation) error
	Update(aff *models.Affirmation) error
	Delete(userID uint, uuid string) error
	DeleteAllByUser(userID uint) error
}

// Repositories bundles all repository implementations.
type Repositories struct {
	User        UserRepository
	Affirmation AffirmationRepository
}

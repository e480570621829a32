package repository

import (
	"gorm.io/gorm"

	"github.com/affirmly/affirmly-backend/app/models"
)

type affirmationRepository struct {
	db *gorm.DB
}

// NewAffirmationRepository creates an affirmation repository backed by GORM.
func NewAffirmationRepository(db *gorm.DB) AffirmationRepository {
	return &affirmationRepository{db: db}
}

func (r *affirmationRepository) ListByUser(userID uint) ([]models.Affirmation, error) {
	var affirmations []models.Affirmation
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&affirmations).Error
	return affirmations, err
}

func (r *affirmationRepository) GetByUUID(userID uint, uuid string) (*models.Affirmation, error) {
	var aff models.Affirmation
	if err := r.db.Where("user_id = ? AND uuid = ?", userID, uuid).First(&aff).Error; err != nil {
		return nil, err
	}
	return &aff, nil
}

func (r *affirmationRepository) Create(aff *models.Affirmation) error {
	return r.db.Create(aff).Error
}

func (r *affirmationRepository) Update(aff *models.Affirmation) error {
	return r.db.Save(aff).Error
}

func (r *affirmationRepository) Delete(userID uint, uuid string) error {
	return r.db.Where("user_id = ? AND uuid = ?", userID, uuid).Delete(&models.Affirmation{}).Error
}

func (r *affirmationRepository) DeleteAllByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Affirmation{}).Error
}

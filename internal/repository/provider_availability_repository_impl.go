package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type providerAvailabilityRepository struct{}

func NewProviderAvailabilityRepository() domainRepo.ProviderAvailabilityRepository {
	return &providerAvailabilityRepository{}
}

func (r *providerAvailabilityRepository) FindByProviderIDs(db *gorm.DB, providerIDs []uuid.UUID) ([]entity.ProviderAvailability, error) {
	var windows []entity.ProviderAvailability
	if len(providerIDs) == 0 {
		return windows, nil
	}
	err := db.Where("provider_id IN ?", providerIDs).
		Order("provider_id ASC, start_time ASC").
		Find(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

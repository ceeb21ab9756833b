package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type providerServiceRepository struct{}

func NewProviderServiceRepository() domainRepo.ProviderServiceRepository {
	return &providerServiceRepository{}
}

func (r *providerServiceRepository) FindOffers(db *gorm.DB, providerIDs []uuid.UUID, serviceIDs []uuid.UUID) ([]entity.ProviderService, error) {
	var offers []entity.ProviderService
	if len(providerIDs) == 0 || len(serviceIDs) == 0 {
		return offers, nil
	}
	err := db.Preload("Service").
		Where("provider_id IN ? AND service_id IN ?", providerIDs, serviceIDs).
		Order("provider_id ASC, service_id ASC, start_date DESC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

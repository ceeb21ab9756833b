package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"gorm.io/gorm"
)

type serviceRepository struct{}

func NewServiceRepository() domainRepo.ServiceRepository {
	return &serviceRepository{}
}

func (r *serviceRepository) FindAllActive(db *gorm.DB) ([]entity.Service, error) {
	var services []entity.Service
	err := db.Where("is_active = ?", true).Order("category ASC, name ASC").Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}

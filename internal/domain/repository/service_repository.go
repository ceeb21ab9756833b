package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"gorm.io/gorm"
)

type ServiceRepository interface {
	FindAllActive(db *gorm.DB) ([]entity.Service, error)
}

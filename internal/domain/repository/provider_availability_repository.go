package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderAvailabilityRepository interface {
	FindByProviderIDs(db *gorm.DB, providerIDs []uuid.UUID) ([]entity.ProviderAvailability, error)
}

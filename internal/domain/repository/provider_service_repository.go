package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderServiceRepository interface {
	// FindOffers returns every offer row (all versions) of the given providers
	// for the given services. Selecting the current row is up to the caller.
	FindOffers(db *gorm.DB, providerIDs []uuid.UUID, serviceIDs []uuid.UUID) ([]entity.ProviderService, error)
}

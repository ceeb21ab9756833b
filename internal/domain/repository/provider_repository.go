package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderRepository interface {
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Provider, error)
	// FindCandidates returns active providers inside the filter's bounding box.
	FindCandidates(db *gorm.DB, filter *entity.ProviderFilter) ([]entity.Provider, error)
	FindServiceAreas(db *gorm.DB, providerIDs []uuid.UUID) ([]entity.ProviderServiceArea, error)
	UpdateRatingStats(db *gorm.DB, id uuid.UUID, stats entity.RatingStats) error
}

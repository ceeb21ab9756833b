package repository

import (
	"errors"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type providerRepository struct{}

func NewProviderRepository() domainRepo.ProviderRepository {
	return &providerRepository{}
}

func (r *providerRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Provider, error) {
	var provider entity.Provider
	err := db.Where("id = ?", id).First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}

// FindCandidates is a cheap prefilter on the bounding box; exact distance
// filtering happens in the matcher.
func (r *providerRepository) FindCandidates(db *gorm.DB, filter *entity.ProviderFilter) ([]entity.Provider, error) {
	query := db.Where("status = ?", entity.ProviderStatusActive)

	if filter != nil {
		query = query.Where("latitude BETWEEN ? AND ?", filter.Min.Lat, filter.Max.Lat)
		if filter.Min.Lng <= filter.Max.Lng {
			query = query.Where("longitude BETWEEN ? AND ?", filter.Min.Lng, filter.Max.Lng)
		} else {
			// the box wraps across the antimeridian
			query = query.Where("(longitude >= ? OR longitude <= ?)", filter.Min.Lng, filter.Max.Lng)
		}
		if len(filter.Types) > 0 {
			query = query.Where("type IN ?", filter.Types)
		}
	}

	var providers []entity.Provider
	err := query.Order("id ASC").Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *providerRepository) FindServiceAreas(db *gorm.DB, providerIDs []uuid.UUID) ([]entity.ProviderServiceArea, error) {
	var areas []entity.ProviderServiceArea
	if len(providerIDs) == 0 {
		return areas, nil
	}
	err := db.Where("provider_id IN ?", providerIDs).Find(&areas).Error
	if err != nil {
		return nil, err
	}
	return areas, nil
}

func (r *providerRepository) UpdateRatingStats(db *gorm.DB, id uuid.UUID, stats entity.RatingStats) error {
	return db.Model(&entity.Provider{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"average_rating": stats.AverageRating,
			"review_count":   stats.ReviewCount,
		}).Error
}

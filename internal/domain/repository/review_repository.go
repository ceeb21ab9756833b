package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(db *gorm.DB, review *entity.Review) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Review, error)
	FindByBookingID(db *gorm.DB, bookingID uuid.UUID) (*entity.Review, error)
	Update(db *gorm.DB, review *entity.Review) error
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
	// RatingStats aggregates the published reviews of a provider.
	RatingStats(db *gorm.DB, providerID uuid.UUID) (entity.RatingStats, error)
}

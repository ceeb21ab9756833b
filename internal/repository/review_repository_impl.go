package repository

import (
	"errors"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reviewRepository struct{}

func NewReviewRepository() domainRepo.ReviewRepository {
	return &reviewRepository{}
}

func (r *reviewRepository) Create(db *gorm.DB, review *entity.Review) error {
	return db.Create(review).Error
}

func (r *reviewRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Review, error) {
	var review entity.Review
	err := db.Where("id = ?", id).First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) FindByBookingID(db *gorm.DB, bookingID uuid.UUID) (*entity.Review, error) {
	var review entity.Review
	err := db.Where("booking_id = ?", bookingID).First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) Update(db *gorm.DB, review *entity.Review) error {
	return db.Model(review).Select("rating", "comment", "is_published").Updates(review).Error
}

func (r *reviewRepository) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Where("id = ?", id).Delete(&entity.Review{})
	return result.RowsAffected, result.Error
}

func (r *reviewRepository) RatingStats(db *gorm.DB, providerID uuid.UUID) (entity.RatingStats, error) {
	var row struct {
		Average float64
		Count   int
	}
	err := db.Model(&entity.Review{}).
		Select("COALESCE(ROUND(AVG(rating)::numeric, 2), 0) AS average, COUNT(*) AS count").
		Where("provider_id = ? AND is_published = ?", providerID, true).
		Scan(&row).Error
	if err != nil {
		return entity.RatingStats{}, err
	}
	return entity.RatingStats{AverageRating: row.Average, ReviewCount: row.Count}, nil
}

package converter

import (
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
)

func ReviewToResponse(review *entity.Review) *dto.ReviewResponse {
	if review == nil {
		return nil
	}
	return &dto.ReviewResponse{
		ID:          review.ID,
		BookingID:   review.BookingID,
		ProviderID:  review.ProviderID,
		Rating:      review.Rating,
		Comment:     review.Comment,
		IsPublished: review.IsPublished,
		CreatedAt:   review.CreatedAt,
		UpdatedAt:   review.UpdatedAt,
	}
}

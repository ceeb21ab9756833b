package entity

import (
	"time"

	"github.com/google/uuid"
)

// Review is a patient's rating of the provider of a completed booking
type Review struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BookingID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	ProviderID  uuid.UUID `gorm:"type:uuid;not null;index" json:"provider_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Rating      int       `gorm:"type:smallint;not null" json:"rating"`
	Comment     string    `gorm:"type:text" json:"comment,omitempty"`
	IsPublished bool      `gorm:"not null;default:true" json:"is_published"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// RatingStats is the aggregate written back onto a provider
type RatingStats struct {
	AverageRating float64
	ReviewCount   int
}

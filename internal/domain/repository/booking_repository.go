package repository

import (
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingRepository interface {
	// Create inserts the booking with its items.
	Create(db *gorm.DB, booking *entity.Booking) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error)
	FindByDraftID(db *gorm.DB, draftID uuid.UUID) (*entity.Booking, error)
	FindByConfirmationNumber(db *gorm.DB, number string) (*entity.Booking, error)
	FindByOwner(db *gorm.DB, owner entity.OwnerKey) ([]entity.Booking, error)
	// CancelBooking cancels only a pending or confirmed booking. Returns affected
	// rows: 1 = success, 0 = already cancelled or completed.
	CancelBooking(db *gorm.DB, id uuid.UUID, at time.Time, reason, by string) (int64, error)
	CompleteBooking(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error)
	UpdateProvider(db *gorm.DB, id uuid.UUID, providerID uuid.UUID) (int64, error)
}

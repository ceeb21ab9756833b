package repository

import (
	"errors"
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type bookingRepository struct{}

func NewBookingRepository() domainRepo.BookingRepository {
	return &bookingRepository{}
}

func (r *bookingRepository) Create(db *gorm.DB, booking *entity.Booking) error {
	return db.Omit("Provider", "Payments", "Settlement").Create(booking).Error
}

func (r *bookingRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(db, "id = ?", id)
}

func (r *bookingRepository) FindByDraftID(db *gorm.DB, draftID uuid.UUID) (*entity.Booking, error) {
	return r.findOne(db, "draft_id = ?", draftID)
}

func (r *bookingRepository) FindByConfirmationNumber(db *gorm.DB, number string) (*entity.Booking, error) {
	return r.findOne(db, "confirmation_number = ?", number)
}

func (r *bookingRepository) FindByOwner(db *gorm.DB, owner entity.OwnerKey) ([]entity.Booking, error) {
	query := db.Preload("Items").Where("owner_key = ?", owner)
	if uid, ok := owner.UserID(); ok {
		query = db.Preload("Items").Where("owner_key = ? OR user_id = ?", owner, uid)
	}

	var bookings []entity.Booking
	err := query.Order("created_at DESC").Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// CancelBooking atomically cancels a booking ONLY if it's still pending or confirmed.
// Returns affected rows: 1 = success, 0 = already cancelled/completed (prevents double-cancel race).
func (r *bookingRepository) CancelBooking(db *gorm.DB, id uuid.UUID, at time.Time, reason, by string) (int64, error) {
	result := db.Model(&entity.Booking{}).
		Where("id = ? AND status IN ?", id, []entity.BookingStatus{entity.BookingStatusPending, entity.BookingStatusConfirmed}).
		Updates(map[string]interface{}{
			"status":              entity.BookingStatusCancelled,
			"cancelled_at":        at,
			"cancellation_reason": reason,
			"cancelled_by":        by,
		})
	return result.RowsAffected, result.Error
}

func (r *bookingRepository) CompleteBooking(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error) {
	result := db.Model(&entity.Booking{}).
		Where("id = ? AND status = ?", id, entity.BookingStatusConfirmed).
		Updates(map[string]interface{}{
			"status":       entity.BookingStatusCompleted,
			"completed_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *bookingRepository) UpdateProvider(db *gorm.DB, id uuid.UUID, providerID uuid.UUID) (int64, error) {
	result := db.Model(&entity.Booking{}).
		Where("id = ? AND status IN ?", id, []entity.BookingStatus{entity.BookingStatusPending, entity.BookingStatusConfirmed}).
		Update("provider_id", providerID)
	return result.RowsAffected, result.Error
}

func (r *bookingRepository) findOne(db *gorm.DB, query string, args ...interface{}) (*entity.Booking, error) {
	var booking entity.Booking
	err := db.Preload("Items").Preload("Payments.TaxBreakdown").Preload("Settlement").
		Where(query, args...).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

package repository

import (
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	// Create inserts the payment with its tax breakdown rows.
	Create(db *gorm.DB, payment *entity.Payment) error
	FindByBookingID(db *gorm.DB, bookingID uuid.UUID) ([]entity.Payment, error)
	// MarkRefunded moves a completed payment to refunded. Returns affected rows.
	MarkRefunded(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error)
}

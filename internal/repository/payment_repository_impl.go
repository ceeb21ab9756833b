package repository

import (
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type paymentRepository struct{}

func NewPaymentRepository() domainRepo.PaymentRepository {
	return &paymentRepository{}
}

func (r *paymentRepository) Create(db *gorm.DB, payment *entity.Payment) error {
	return db.Create(payment).Error
}

func (r *paymentRepository) FindByBookingID(db *gorm.DB, bookingID uuid.UUID) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := db.Preload("TaxBreakdown").Where("booking_id = ?", bookingID).Order("created_at ASC").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) MarkRefunded(db *gorm.DB, id uuid.UUID, at time.Time) (int64, error) {
	result := db.Model(&entity.Payment{}).
		Where("id = ? AND status = ?", id, entity.PaymentStatusCompleted).
		Updates(map[string]interface{}{
			"status":      entity.PaymentStatusRefunded,
			"refunded_at": at,
		})
	return result.RowsAffected, result.Error
}

package repository

import (
	"errors"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type settlementRepository struct{}

func NewSettlementRepository() domainRepo.SettlementRepository {
	return &settlementRepository{}
}

func (r *settlementRepository) Create(db *gorm.DB, settlement *entity.ProviderSettlement) error {
	return db.Create(settlement).Error
}

func (r *settlementRepository) FindByBookingID(db *gorm.DB, bookingID uuid.UUID) (*entity.ProviderSettlement, error) {
	var settlement entity.ProviderSettlement
	err := db.Where("booking_id = ?", bookingID).First(&settlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settlement, nil
}

func (r *settlementRepository) UpdatePayee(db *gorm.DB, bookingID uuid.UUID, providerID uuid.UUID) (int64, error) {
	result := db.Model(&entity.ProviderSettlement{}).
		Where("booking_id = ? AND status = ?", bookingID, entity.SettlementStatusPending).
		Update("provider_id", providerID)
	return result.RowsAffected, result.Error
}

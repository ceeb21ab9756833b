package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettlementRepository interface {
	Create(db *gorm.DB, settlement *entity.ProviderSettlement) error
	FindByBookingID(db *gorm.DB, bookingID uuid.UUID) (*entity.ProviderSettlement, error)
	// UpdatePayee moves a pending settlement to another provider. Returns affected rows.
	UpdatePayee(db *gorm.DB, bookingID uuid.UUID, providerID uuid.UUID) (int64, error)
}

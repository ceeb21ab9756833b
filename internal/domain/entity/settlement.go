package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementStatusPending SettlementStatus = "pending"
	SettlementStatusPaid    SettlementStatus = "paid"
)

// ProviderSettlement is what the provider is owed for a booking. The amounts
// are sums of the booking's item-level figures.
type ProviderSettlement struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BookingID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	ProviderID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"provider_id"`
	CollectedAmount   decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"collected_amount"`
	CommissionPercent decimal.Decimal  `gorm:"type:decimal(5,2);not null" json:"commission_percent"`
	CommissionAmount  decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"commission_amount"`
	PayoutAmount      decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"payout_amount"`
	Status            SettlementStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ProviderSettlement) TableName() string {
	return "provider_settlements"
}

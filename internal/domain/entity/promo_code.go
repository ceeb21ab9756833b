package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// PromoCode is a discount code. UsageCount is only ever changed by the
// booking commit, with a conditional increment.
type PromoCode struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code           string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	DiscountType   DiscountType     `gorm:"type:varchar(20);not null" json:"discount_type"`
	Value          decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"value"`
	MinOrderAmount *decimal.Decimal `gorm:"type:decimal(10,2)" json:"min_order_amount,omitempty"`
	MaxDiscount    *decimal.Decimal `gorm:"type:decimal(10,2)" json:"max_discount,omitempty"`
	UsageLimit     *int             `json:"usage_limit,omitempty"`
	UsageCount     int              `gorm:"not null;default:0" json:"usage_count"`
	PerUserLimit   *int             `json:"per_user_limit,omitempty"`
	ValidFrom      time.Time        `gorm:"not null" json:"valid_from"`
	ValidUntil     *time.Time       `json:"valid_until,omitempty"`
	IsActive       bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}

// PromoCodeUsage is the append-only ledger of applied codes
type PromoCodeUsage struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PromoCodeID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"promo_code_id"`
	BookingID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	OwnerKey       OwnerKey        `gorm:"type:varchar(100);not null;index" json:"-"`
	PatientEmail   string          `gorm:"type:varchar(255);not null;default:''" json:"-"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (PromoCodeUsage) TableName() string {
	return "promo_code_usages"
}

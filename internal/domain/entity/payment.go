package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment records the outcome of one payment attempt for a booking
type Payment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BookingID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"booking_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	TaxTotal          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_total"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	ExternalReference string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"external_reference"`
	Status            PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	TaxBreakdown []PaymentTaxBreakdown `gorm:"foreignKey:PaymentID" json:"tax_breakdown,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) MarkCompleted(now time.Time) error {
	if p.Status != PaymentStatusPending {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusCompleted
	p.PaidAt = &now
	return nil
}

// MarkRefunded records a refund issued outside the engine
func (p *Payment) MarkRefunded(now time.Time) error {
	if p.Status != PaymentStatusCompleted {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusRefunded
	p.RefundedAt = &now
	return nil
}

// TaxSum totals the breakdown rows
func (p *Payment) TaxSum() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range p.TaxBreakdown {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// PaymentTaxBreakdown is one tax component of a payment
type PaymentTaxBreakdown struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PaymentID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"payment_id"`
	Name        string          `gorm:"type:varchar(50);not null" json:"name"`
	RatePercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"rate_percent"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
}

func (PaymentTaxBreakdown) TableName() string {
	return "payment_tax_breakdowns"
}

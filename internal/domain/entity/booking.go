package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is the committed result of a paid draft. Money fields are frozen
// at commit and never recomputed from offers.
type Booking struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConfirmationNumber string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"confirmation_number"`
	DraftID            *uuid.UUID     `gorm:"type:uuid;uniqueIndex" json:"draft_id,omitempty"`
	OwnerKey           OwnerKey       `gorm:"type:varchar(100);not null;index" json:"-"`
	UserID             *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ProviderID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"provider_id"`
	CollectionType     CollectionType `gorm:"type:varchar(20);not null" json:"collection_type"`
	ScheduledDate      time.Time      `gorm:"type:date;not null;index" json:"scheduled_date"`
	SlotStart          time.Time      `gorm:"not null" json:"slot_start"`
	SlotEnd            time.Time      `gorm:"not null" json:"slot_end"`
	Postcode           string         `gorm:"type:varchar(10)" json:"postcode,omitempty"`
	AddressLine        string         `gorm:"type:varchar(255)" json:"address_line,omitempty"`
	Latitude           float64        `gorm:"type:double precision;not null" json:"latitude"`
	Longitude          float64        `gorm:"type:double precision;not null" json:"longitude"`

	PatientName  string `gorm:"type:varchar(255);not null" json:"patient_name"`
	PatientDOB   string `gorm:"column:patient_dob;type:varchar(10);not null" json:"patient_dob"`
	PatientEmail string `gorm:"type:varchar(255);not null" json:"patient_email"`
	PatientPhone string `gorm:"type:varchar(20);not null" json:"patient_phone"`
	Notes        string `gorm:"type:text" json:"notes,omitempty"`

	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ServiceFee  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"service_fee"`
	VAT         decimal.Decimal `gorm:"column:vat;type:decimal(12,2);not null" json:"vat"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	GrandTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"grand_total"`
	Currency    string          `gorm:"type:varchar(3);not null" json:"currency"`
	PromoCodeID *uuid.UUID      `gorm:"type:uuid" json:"promo_code_id,omitempty"`

	Status             BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CancellationReason string        `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CancelledBy        string        `gorm:"type:varchar(100)" json:"cancelled_by,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
	CreatedAt          time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Items      []BookingItem       `gorm:"foreignKey:BookingID" json:"items,omitempty"`
	Payments   []Payment           `gorm:"foreignKey:BookingID" json:"payments,omitempty"`
	Settlement *ProviderSettlement `gorm:"foreignKey:BookingID" json:"settlement,omitempty"`
	Provider   *Provider           `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

// IsPending checks if booking is in pending status
func (b *Booking) IsPending() bool {
	return b.Status == BookingStatusPending
}

// IsConfirmed checks if booking is confirmed
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// IsCancelled checks if booking is cancelled
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

func (b *Booking) IsCompleted() bool {
	return b.Status == BookingStatusCompleted
}

// Confirm moves a pending booking to confirmed
func (b *Booking) Confirm() error {
	if !b.IsPending() {
		return ErrInvalidTransition
	}
	b.Status = BookingStatusConfirmed
	return nil
}

// Cancel moves a pending or confirmed booking to cancelled
func (b *Booking) Cancel(now time.Time, reason, by string) error {
	if !b.IsPending() && !b.IsConfirmed() {
		return ErrInvalidTransition
	}
	b.Status = BookingStatusCancelled
	b.CancelledAt = &now
	b.CancellationReason = reason
	b.CancelledBy = by
	return nil
}

// Complete marks a confirmed booking as done
func (b *Booking) Complete(now time.Time) error {
	if !b.IsConfirmed() {
		return ErrInvalidTransition
	}
	b.Status = BookingStatusCompleted
	b.CompletedAt = &now
	return nil
}

// Reassign hands a live booking to another provider. Items keep their frozen prices.
func (b *Booking) Reassign(providerID uuid.UUID) error {
	if !b.IsPending() && !b.IsConfirmed() {
		return ErrInvalidTransition
	}
	if providerID == uuid.Nil || providerID == b.ProviderID {
		return ErrInvalidTransition
	}
	b.ProviderID = providerID
	return nil
}

// OwnedBy reports whether owner may see this booking. An authenticated user
// also owns bookings they made as a guest and later claimed.
func (b *Booking) OwnedBy(owner OwnerKey) bool {
	if owner == "" {
		return false
	}
	if b.OwnerKey == owner {
		return true
	}
	uid, ok := owner.UserID()
	return ok && b.UserID != nil && *b.UserID == uid
}

// BookingItem is one priced line of a booking, frozen at commit time
type BookingItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BookingID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"booking_id"`
	ServiceID         uuid.UUID       `gorm:"type:uuid;not null" json:"service_id"`
	ProviderServiceID uuid.UUID       `gorm:"type:uuid;not null" json:"provider_service_id"`
	ServiceName       string          `gorm:"type:varchar(255);not null" json:"service_name"`
	Cost              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cost"`
	CommissionPercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_percent"`
	CommissionAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"commission_amount"`
	PayoutAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"payout_amount"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (BookingItem) TableName() string {
	return "booking_items"
}

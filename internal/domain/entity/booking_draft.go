package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDraftExpired          = errors.New("booking draft has expired")
	ErrDraftAlreadyCommitted = errors.New("booking draft is already committed")
	ErrDraftIncomplete       = errors.New("booking draft is missing required steps")
)

type DraftStatus string

const (
	DraftStatusOpen      DraftStatus = "open"
	DraftStatusCommitted DraftStatus = "committed"
	// DraftStatusExpired is never stored; it is derived from ExpiresAt.
	DraftStatusExpired DraftStatus = "expired"
)

// BookingDraft carries a multi-step booking until it is paid and committed.
// Only one open draft exists per owner.
type BookingDraft struct {
	ID                  uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OwnerKey            OwnerKey    `gorm:"type:varchar(100);not null;index" json:"-"`
	CurrentStep         int         `gorm:"not null;default:0" json:"current_step"`
	StepData            StepData    `gorm:"type:jsonb;not null" json:"step_data"`
	Status              DraftStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	ExpiresAt           time.Time   `gorm:"not null;index" json:"expires_at"`
	PaymentIntentID     *string     `gorm:"type:varchar(255)" json:"payment_intent_id,omitempty"`
	PaymentIntentAmount *int64      `json:"payment_intent_amount,omitempty"`
	PaymentIntentSeq    int         `gorm:"not null;default:0" json:"-"`
	BookingID           *uuid.UUID  `gorm:"type:uuid" json:"booking_id,omitempty"`
	CommittedAt         *time.Time  `json:"committed_at,omitempty"`
	CreatedAt           time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BookingDraft) TableName() string {
	return "booking_drafts"
}

// NewBookingDraft creates an open draft for owner expiring ttl after now
func NewBookingDraft(owner OwnerKey, now time.Time, ttl time.Duration) *BookingDraft {
	return &BookingDraft{
		ID:        uuid.New(),
		OwnerKey:  owner,
		Status:    DraftStatusOpen,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether an uncommitted draft is past its expiry
func (d *BookingDraft) IsExpired(now time.Time) bool {
	return d.Status == DraftStatusOpen && now.After(d.ExpiresAt)
}

func (d *BookingDraft) IsCommitted() bool {
	return d.Status == DraftStatusCommitted
}

// State returns the effective status at now, with expiry applied lazily.
func (d *BookingDraft) State(now time.Time) DraftStatus {
	if d.IsExpired(now) {
		return DraftStatusExpired
	}
	return d.Status
}

// EnsureOpen returns the terminal-state error for drafts that cannot change.
func (d *BookingDraft) EnsureOpen(now time.Time) error {
	switch d.State(now) {
	case DraftStatusCommitted:
		return ErrDraftAlreadyCommitted
	case DraftStatusExpired:
		return ErrDraftExpired
	}
	return nil
}

func (d *BookingDraft) OwnedBy(owner OwnerKey) bool {
	return owner != "" && d.OwnerKey == owner
}

// Touch slides the expiry forward
func (d *BookingDraft) Touch(now time.Time, ttl time.Duration) {
	d.ExpiresAt = now.Add(ttl)
}

// MergeResult describes what a merge did to later steps
type MergeResult struct {
	Step    int
	Changed bool
	Cleared []int
}

// Merge writes the payload into its step and sets CurrentStep to that step.
// Earlier steps are never touched. When the service selection or the
// location/date changes, the provider/slot step is cleared because it was
// chosen against the old inputs and has to be picked again.
func (d *BookingDraft) Merge(p StepPayload, now time.Time, ttl time.Duration) (MergeResult, error) {
	if err := d.EnsureOpen(now); err != nil {
		return MergeResult{}, err
	}
	if p == nil {
		return MergeResult{}, ErrInvalidStepPayload
	}

	res := MergeResult{Step: p.Step()}
	sd := &d.StepData

	switch v := p.(type) {
	case *ServicesStep:
		res.Changed = !v.SameSelection(sd.Services)
		sd.Services = v
		if res.Changed && sd.Provider != nil {
			sd.Provider = nil
			res.Cleared = append(res.Cleared, StepProvider)
		}
	case *LocationStep:
		res.Changed = !v.SameLocation(sd.Location)
		sd.Location = v
		if res.Changed && sd.Provider != nil {
			sd.Provider = nil
			res.Cleared = append(res.Cleared, StepProvider)
		}
	case *ProviderStep:
		res.Changed = !v.Equal(sd.Provider)
		sd.Provider = v
	case *PatientStep:
		res.Changed = sd.Patient == nil || *sd.Patient != *v
		sd.Patient = v
	case *PaymentStep:
		res.Changed = sd.Payment == nil || sd.Payment.PromoCode != v.PromoCode
		sd.Payment = v
	default:
		return MergeResult{}, ErrUnknownStep
	}

	d.CurrentStep = res.Step
	d.Touch(now, ttl)
	return res, nil
}

// CommitReady checks that every step a booking needs is present.
func (d *BookingDraft) CommitReady() error {
	var missing []int
	for _, s := range []int{StepServices, StepLocation, StepProvider, StepPatient} {
		if !d.StepData.Has(s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrDraftIncomplete, missing)
	}
	if _, ok := d.StepData.Location.Point(); !ok {
		return fmt.Errorf("%w: location has no coordinates", ErrDraftIncomplete)
	}
	return nil
}

// PromoCode returns the entered promo code, or "" when none.
func (d *BookingDraft) PromoCode() string {
	if d.StepData.Payment == nil {
		return ""
	}
	return d.StepData.Payment.PromoCode
}

// PatientEmail returns the normalised patient email, or "" before the patient step.
func (d *BookingDraft) PatientEmail() string {
	if d.StepData.Patient == nil {
		return ""
	}
	return d.StepData.Patient.Email
}

// HasIntentFor reports whether the stored payment intent was opened for amountMinor
func (d *BookingDraft) HasIntentFor(amountMinor int64) bool {
	return d.PaymentIntentID != nil && d.PaymentIntentAmount != nil && *d.PaymentIntentAmount == amountMinor
}

// MarkCommitted links the draft to its booking
func (d *BookingDraft) MarkCommitted(bookingID uuid.UUID, now time.Time) {
	d.Status = DraftStatusCommitted
	d.BookingID = &bookingID
	d.CommittedAt = &now
}

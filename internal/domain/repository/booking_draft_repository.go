package repository

import (
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingDraftRepository interface {
	Create(db *gorm.DB, draft *entity.BookingDraft) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.BookingDraft, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.BookingDraft, error)
	FindOpenByOwner(db *gorm.DB, owner entity.OwnerKey) (*entity.BookingDraft, error)
	Save(db *gorm.DB, draft *entity.BookingDraft) error
	// UpdateIntent stores a new payment intent only if the intent sequence is
	// still expectedSeq. Returns affected rows: 0 means another request won.
	UpdateIntent(db *gorm.DB, id uuid.UUID, expectedSeq int, intentID string, amountMinor int64) (int64, error)
	// MarkCommitted flips an open draft to committed. Returns affected rows.
	MarkCommitted(db *gorm.DB, id uuid.UUID, bookingID uuid.UUID, at time.Time) (int64, error)
	ChangeOwner(db *gorm.DB, id uuid.UUID, from, to entity.OwnerKey) (int64, error)
	Delete(db *gorm.DB, id uuid.UUID) error
	// DeleteExpired removes open drafts that expired before the cutoff.
	DeleteExpired(db *gorm.DB, before time.Time) (int64, error)
}

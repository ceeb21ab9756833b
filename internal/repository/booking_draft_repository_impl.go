package repository

import (
	"errors"
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type bookingDraftRepository struct{}

func NewBookingDraftRepository() domainRepo.BookingDraftRepository {
	return &bookingDraftRepository{}
}

func (r *bookingDraftRepository) Create(db *gorm.DB, draft *entity.BookingDraft) error {
	return db.Create(draft).Error
}

func (r *bookingDraftRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.BookingDraft, error) {
	return r.first(db.Where("id = ?", id))
}

func (r *bookingDraftRepository) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.BookingDraft, error) {
	return r.first(db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// FindOpenByOwner returns the owner's open draft, expired or not; the caller
// decides what to do with an expired one.
func (r *bookingDraftRepository) FindOpenByOwner(db *gorm.DB, owner entity.OwnerKey) (*entity.BookingDraft, error) {
	return r.first(db.Where("owner_key = ? AND status = ?", owner, entity.DraftStatusOpen).Order("created_at DESC"))
}

func (r *bookingDraftRepository) Save(db *gorm.DB, draft *entity.BookingDraft) error {
	return db.Model(draft).Select("current_step", "step_data", "expires_at").Updates(draft).Error
}

func (r *bookingDraftRepository) UpdateIntent(db *gorm.DB, id uuid.UUID, expectedSeq int, intentID string, amountMinor int64) (int64, error) {
	result := db.Model(&entity.BookingDraft{}).
		Where("id = ? AND status = ? AND payment_intent_seq = ?", id, entity.DraftStatusOpen, expectedSeq).
		Updates(map[string]interface{}{
			"payment_intent_id":     intentID,
			"payment_intent_amount": amountMinor,
			"payment_intent_seq":    gorm.Expr("payment_intent_seq + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *bookingDraftRepository) MarkCommitted(db *gorm.DB, id uuid.UUID, bookingID uuid.UUID, at time.Time) (int64, error) {
	result := db.Model(&entity.BookingDraft{}).
		Where("id = ? AND status = ?", id, entity.DraftStatusOpen).
		Updates(map[string]interface{}{
			"status":       entity.DraftStatusCommitted,
			"booking_id":   bookingID,
			"committed_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *bookingDraftRepository) ChangeOwner(db *gorm.DB, id uuid.UUID, from, to entity.OwnerKey) (int64, error) {
	result := db.Model(&entity.BookingDraft{}).
		Where("id = ? AND owner_key = ? AND status = ?", id, from, entity.DraftStatusOpen).
		Update("owner_key", to)
	return result.RowsAffected, result.Error
}

func (r *bookingDraftRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	return db.Where("id = ? AND status = ?", id, entity.DraftStatusOpen).Delete(&entity.BookingDraft{}).Error
}

func (r *bookingDraftRepository) DeleteExpired(db *gorm.DB, before time.Time) (int64, error) {
	result := db.Where("status = ? AND expires_at < ?", entity.DraftStatusOpen, before).Delete(&entity.BookingDraft{})
	return result.RowsAffected, result.Error
}

func (r *bookingDraftRepository) first(query *gorm.DB) (*entity.BookingDraft, error) {
	var draft entity.BookingDraft
	err := query.First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &draft, nil
}

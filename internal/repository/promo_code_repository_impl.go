package repository

import (
	"errors"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type promoCodeRepository struct{}

func NewPromoCodeRepository() domainRepo.PromoCodeRepository {
	return &promoCodeRepository{}
}

func (r *promoCodeRepository) FindByCode(db *gorm.DB, code string) (*entity.PromoCode, error) {
	var promo entity.PromoCode
	err := db.Where("UPPER(code) = UPPER(?)", code).First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

// IncrementUsage is the atomic check-and-increment: the row only changes while
// the limit still has room, so concurrent commits can never push the count
// past usage_limit.
func (r *promoCodeRepository) IncrementUsage(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.PromoCode{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	return result.RowsAffected, result.Error
}

// CountUserUsage matches on the patient email as well as the owner, so a
// guest cannot reset a per-user limit with a fresh guest token.
func (r *promoCodeRepository) CountUserUsage(db *gorm.DB, promoID uuid.UUID, owner entity.OwnerKey, email string) (int64, error) {
	query := db.Model(&entity.PromoCodeUsage{}).Where("promo_code_id = ?", promoID)
	if email != "" {
		query = query.Where("(owner_key = ? OR patient_email = ?)", owner, email)
	} else {
		query = query.Where("owner_key = ?", owner)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *promoCodeRepository) CreateUsage(db *gorm.DB, usage *entity.PromoCodeUsage) error {
	return db.Create(usage).Error
}

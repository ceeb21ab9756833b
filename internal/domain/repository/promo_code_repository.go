package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromoCodeRepository interface {
	FindByCode(db *gorm.DB, code string) (*entity.PromoCode, error)
	// IncrementUsage bumps usage_count only while it is below usage_limit.
	// Returns affected rows: 0 means the code is exhausted.
	IncrementUsage(db *gorm.DB, id uuid.UUID) (int64, error)
	// CountUserUsage counts earlier uses by owner or, when email is not
	// empty, for the same patient email.
	CountUserUsage(db *gorm.DB, promoID uuid.UUID, owner entity.OwnerKey, email string) (int64, error)
	CreateUsage(db *gorm.DB, usage *entity.PromoCodeUsage) error
}

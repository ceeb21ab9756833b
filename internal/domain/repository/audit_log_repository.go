package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"

	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(db *gorm.DB, log *entity.AuditLog) error
	// FindTrail returns the entries of every referenced record, oldest first.
	FindTrail(db *gorm.DB, refs ...entity.AuditRef) ([]entity.AuditLog, error)
}

package repository

import (
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	domainRepo "github.com/hisiddique/bloodathome/internal/domain/repository"

	"gorm.io/gorm"
)

type auditLogRepository struct{}

func NewAuditLogRepository() domainRepo.AuditLogRepository {
	return &auditLogRepository{}
}

// Create appends an entry inside the caller's transaction, so the trail
// commits or rolls back with the change it describes.
func (r *auditLogRepository) Create(db *gorm.DB, log *entity.AuditLog) error {
	return db.Create(log).Error
}

func (r *auditLogRepository) FindTrail(db *gorm.DB, refs ...entity.AuditRef) ([]entity.AuditLog, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	pairs := make([][]interface{}, 0, len(refs))
	for _, ref := range refs {
		pairs = append(pairs, []interface{}{ref.Entity, ref.EntityID})
	}

	var logs []entity.AuditLog
	err := db.Where("(entity, entity_id) IN ?", pairs).
		Order("created_at ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

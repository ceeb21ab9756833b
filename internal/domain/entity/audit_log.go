package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AuditLog is a trail entry for a state change on a booking or draft.
// Actor is an owner key, "admin:<uuid>" or "system".
type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Actor     string    `gorm:"type:varchar(100);not null;index" json:"actor"`
	Action    string    `gorm:"type:varchar(100);not null;index" json:"action"`
	Entity    string    `gorm:"type:varchar(50);not null" json:"entity"`
	EntityID  string    `gorm:"type:varchar(64);not null;index" json:"entity_id"`
	Metadata  JSON      `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditRef names one audited record.
type AuditRef struct {
	Entity   string
	EntityID string
}

// JSON type for GORM JSONB support
type JSON map[string]interface{}

// Value returns json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan scan value into Jsonb, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}

	result := map[string]interface{}{}
	err := json.Unmarshal(bytes, &result)
	*j = JSON(result)
	return err
}

// Audit actions
const (
	AuditActionDraftCreate     = "draft.create"
	AuditActionDraftClaim      = "draft.claim"
	AuditActionBookingConfirm  = "booking.confirm"
	AuditActionBookingCancel   = "booking.cancel"
	AuditActionBookingComplete = "booking.complete"
	AuditActionBookingReassign = "booking.reassign"
	AuditActionPaymentRefund   = "payment.refund"
	AuditActionReviewCreate    = "review.create"
	AuditActionReviewUpdate    = "review.update"
	AuditActionReviewDelete    = "review.delete"

	AuditActorSystem = "system"
)

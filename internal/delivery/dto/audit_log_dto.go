package dto

import (
	"time"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
)

// AuditLogResponse is one entry of a booking's history. ActorType is one of
// user, guest, admin or system.
type AuditLogResponse struct {
	ID        int64       `json:"id"`
	Actor     string      `json:"actor"`
	ActorType string      `json:"actor_type"`
	Action    string      `json:"action"`
	Entity    string      `json:"entity"`
	EntityID  string      `json:"entity_id"`
	Metadata  entity.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int                `json:"total"`
}

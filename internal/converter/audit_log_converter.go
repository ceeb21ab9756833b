package converter

import (
	"strings"

	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
)

// AuditTrailToResponse converts a booking's trail, keeping its order.
// Guest tokens are bearer credentials and are never echoed back.
func AuditTrailToResponse(logs []entity.AuditLog) *dto.AuditLogListResponse {
	out := make([]dto.AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		kind, _, _ := strings.Cut(l.Actor, ":")
		actor := l.Actor
		if kind == "guest" {
			actor = "guest"
		}
		out = append(out, dto.AuditLogResponse{
			ID:        l.ID,
			Actor:     actor,
			ActorType: kind,
			Action:    l.Action,
			Entity:    l.Entity,
			EntityID:  l.EntityID,
			Metadata:  l.Metadata,
			CreatedAt: l.CreatedAt,
		})
	}
	return &dto.AuditLogListResponse{Logs: out, Total: len(out)}
}

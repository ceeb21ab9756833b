package converter

import (
	"time"

	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
)

// DraftToResponse converts a BookingDraft to DraftResponse DTO. now decides
// whether an open draft is reported as expired.
func DraftToResponse(draft *entity.BookingDraft, now time.Time) *dto.DraftResponse {
	if draft == nil {
		return nil
	}

	completed := draft.StepData.Completed()
	if completed == nil {
		completed = []int{}
	}

	return &dto.DraftResponse{
		ID:              draft.ID,
		Status:          string(draft.State(now)),
		CurrentStep:     draft.CurrentStep,
		CompletedSteps:  completed,
		Steps:           draft.StepData,
		CommitReady:     draft.CommitReady() == nil,
		ExpiresAt:       draft.ExpiresAt,
		PaymentIntentID: draft.PaymentIntentID,
		BookingID:       draft.BookingID,
	}
}

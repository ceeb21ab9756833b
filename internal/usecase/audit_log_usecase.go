package usecase

import (
	"context"

	"github.com/hisiddique/bloodathome/internal/converter"
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AuditLogUsecase interface {
	// GetBookingHistory returns the trail of a booking, including the
	// entries of the draft it was committed from, oldest first.
	GetBookingHistory(ctx context.Context, bookingID uuid.UUID) (*dto.AuditLogListResponse, error)
}

type auditLogUsecase struct {
	transactor   repository.Transactor
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
	bookingRepo  repository.BookingRepository
}

func NewAuditLogUsecase(
	transactor repository.Transactor,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
	bookingRepo repository.BookingRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		transactor:   transactor,
		log:          log,
		auditLogRepo: auditLogRepo,
		bookingRepo:  bookingRepo,
	}
}

func (u *auditLogUsecase) GetBookingHistory(ctx context.Context, bookingID uuid.UUID) (*dto.AuditLogListResponse, error) {
	db := u.transactor.DB(ctx)

	booking, err := u.bookingRepo.FindByID(db, bookingID)
	if err != nil {
		u.log.Warnf("Failed to find booking %s: %+v", bookingID, err)
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	refs := []entity.AuditRef{{Entity: entityBooking, EntityID: booking.ID.String()}}
	if booking.DraftID != nil {
		refs = append(refs, entity.AuditRef{Entity: entityBookingDraft, EntityID: booking.DraftID.String()})
	}

	logs, err := u.auditLogRepo.FindTrail(db, refs...)
	if err != nil {
		u.log.Warnf("Failed to find audit trail for booking %s: %+v", bookingID, err)
		return nil, err
	}

	return converter.AuditTrailToResponse(logs), nil
}

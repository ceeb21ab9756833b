package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hisiddique/bloodathome/internal/converter"
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/repository"
	"github.com/hisiddique/bloodathome/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrBookingNotOwned  = errors.New("booking does not belong to you")
	ErrForbidden        = errors.New("you are not allowed to do this")
	ErrProviderNotFound = errors.New("provider not found")
)

// Actor is who performs a booking operation
type Actor struct {
	Owner   entity.OwnerKey
	AdminID *uuid.UUID
}

func (a Actor) IsAdmin() bool {
	return a.AdminID != nil
}

// AuditName is the actor as written to the audit trail
func (a Actor) AuditName() string {
	if a.AdminID != nil {
		return "admin:" + a.AdminID.String()
	}
	return a.Owner.String()
}

type BookingUsecase interface {
	GetBooking(ctx context.Context, actor Actor, id uuid.UUID) (*dto.BookingResponse, error)
	GetByConfirmationNumber(ctx context.Context, actor Actor, number string) (*dto.BookingResponse, error)
	ListMyBookings(ctx context.Context, owner entity.OwnerKey) (*dto.BookingListResponse, error)
	CancelBooking(ctx context.Context, actor Actor, id uuid.UUID, req *dto.CancelBookingRequest) (*dto.BookingResponse, error)
	CompleteBooking(ctx context.Context, actor Actor, id uuid.UUID) (*dto.BookingResponse, error)
	ReassignBooking(ctx context.Context, actor Actor, id uuid.UUID, req *dto.ReassignBookingRequest) (*dto.BookingResponse, error)
}

type bookingUsecase struct {
	transactor     repository.Transactor
	log            *logrus.Logger
	bookingRepo    repository.BookingRepository
	paymentRepo    repository.PaymentRepository
	settlementRepo repository.SettlementRepository
	providerRepo   repository.ProviderRepository
	auditService   service.AuditService
	now            func() time.Time
}

func NewBookingUsecase(
	transactor repository.Transactor,
	log *logrus.Logger,
	bookingRepo repository.BookingRepository,
	paymentRepo repository.PaymentRepository,
	settlementRepo repository.SettlementRepository,
	providerRepo repository.ProviderRepository,
	auditService service.AuditService,
) BookingUsecase {
	return &bookingUsecase{
		transactor:     transactor,
		log:            log,
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		settlementRepo: settlementRepo,
		providerRepo:   providerRepo,
		auditService:   auditService,
		now:            time.Now,
	}
}

func (u *bookingUsecase) GetBooking(ctx context.Context, actor Actor, id uuid.UUID) (*dto.BookingResponse, error) {
	booking, err := u.visibleBooking(u.transactor.DB(ctx), actor, id)
	if err != nil {
		return nil, err
	}
	return converter.BookingToResponse(booking), nil
}

func (u *bookingUsecase) GetByConfirmationNumber(ctx context.Context, actor Actor, number string) (*dto.BookingResponse, error) {
	booking, err := u.bookingRepo.FindByConfirmationNumber(u.transactor.DB(ctx), strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		u.log.Warnf("Failed to find booking %s: %+v", number, err)
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !actor.IsAdmin() && !booking.OwnedBy(actor.Owner) {
		return nil, ErrBookingNotOwned
	}
	return converter.BookingToResponse(booking), nil
}

// ListMyBookings returns every booking of the owner, newest first
func (u *bookingUsecase) ListMyBookings(ctx context.Context, owner entity.OwnerKey) (*dto.BookingListResponse, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	bookings, err := u.bookingRepo.FindByOwner(u.transactor.DB(ctx), owner)
	if err != nil {
		u.log.Warnf("Failed to find bookings for %s: %+v", owner, err)
		return nil, err
	}

	return &dto.BookingListResponse{
		Bookings: converter.BookingsToResponses(bookings),
		Total:    len(bookings),
	}, nil
}

// CancelBooking cancels a pending or confirmed booking. Recording a refund of
// the captured payment is reserved for admins; the refund itself is issued
// by operators outside the engine.
func (u *bookingUsecase) CancelBooking(ctx context.Context, actor Actor, id uuid.UUID, req *dto.CancelBookingRequest) (*dto.BookingResponse, error) {
	if req.Refund && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var booking *entity.Booking
	err := u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		b, err := u.visibleBooking(tx, actor, id)
		if err != nil {
			return err
		}

		now := u.now()
		old := map[string]interface{}{"status": b.Status}
		if err := b.Cancel(now, req.Reason, actor.AuditName()); err != nil {
			return err
		}

		// Atomic cancel, 0 rows means a concurrent cancel or completion won.
		rows, err := u.bookingRepo.CancelBooking(tx, b.ID, now, req.Reason, actor.AuditName())
		if err != nil {
			return err
		}
		if rows == 0 {
			return entity.ErrInvalidTransition
		}

		err = u.auditService.LogUpdate(ctx, tx, actor.AuditName(), entity.AuditActionBookingCancel, entityBooking, b.ID.String(),
			old, map[string]interface{}{"status": b.Status, "reason": req.Reason})
		if err != nil {
			return err
		}

		if req.Refund {
			if err := u.recordRefunds(ctx, tx, actor, b, now); err != nil {
				return err
			}
		}
		booking = b
		return nil
	})
	if err != nil {
		if !isBookingClientError(err) {
			u.log.Warnf("Failed to cancel booking %s: %+v", id, err)
		}
		return nil, err
	}

	u.log.Infof("Booking %s cancelled by %s", booking.ConfirmationNumber, actor.AuditName())
	return converter.BookingToResponse(booking), nil
}

func (u *bookingUsecase) recordRefunds(ctx context.Context, tx *gorm.DB, actor Actor, booking *entity.Booking, now time.Time) error {
	for i := range booking.Payments {
		p := &booking.Payments[i]
		if p.Status != entity.PaymentStatusCompleted {
			continue
		}
		if err := p.MarkRefunded(now); err != nil {
			return err
		}
		rows, err := u.paymentRepo.MarkRefunded(tx, p.ID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			continue
		}
		// Logged against the booking so it shows in the booking history.
		err = u.auditService.LogUpdate(ctx, tx, actor.AuditName(), entity.AuditActionPaymentRefund, entityBooking, booking.ID.String(),
			map[string]interface{}{"payment_id": p.ID.String(), "status": entity.PaymentStatusCompleted},
			map[string]interface{}{"payment_id": p.ID.String(), "status": p.Status, "amount": p.Amount.StringFixed(2)})
		if err != nil {
			return err
		}
	}
	return nil
}

func (u *bookingUsecase) CompleteBooking(ctx context.Context, actor Actor, id uuid.UUID) (*dto.BookingResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var booking *entity.Booking
	err := u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		b, err := u.visibleBooking(tx, actor, id)
		if err != nil {
			return err
		}

		now := u.now()
		if err := b.Complete(now); err != nil {
			return err
		}
		rows, err := u.bookingRepo.CompleteBooking(tx, b.ID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return entity.ErrInvalidTransition
		}

		booking = b
		return u.auditService.LogUpdate(ctx, tx, actor.AuditName(), entity.AuditActionBookingComplete, entityBooking, b.ID.String(),
			map[string]interface{}{"status": entity.BookingStatusConfirmed},
			map[string]interface{}{"status": b.Status})
	})
	if err != nil {
		if !isBookingClientError(err) {
			u.log.Warnf("Failed to complete booking %s: %+v", id, err)
		}
		return nil, err
	}
	return converter.BookingToResponse(booking), nil
}

// ReassignBooking hands the booking to another provider. The booking and
// its settlement move together; frozen item prices stay as they are.
func (u *bookingUsecase) ReassignBooking(ctx context.Context, actor Actor, id uuid.UUID, req *dto.ReassignBookingRequest) (*dto.BookingResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var booking *entity.Booking
	err := u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		b, err := u.visibleBooking(tx, actor, id)
		if err != nil {
			return err
		}

		provider, err := u.providerRepo.FindByID(tx, req.ProviderID)
		if err != nil {
			return err
		}
		if provider == nil {
			return ErrProviderNotFound
		}
		if !provider.IsActive() || !provider.Supports(b.CollectionType) {
			return ErrProviderNotEligible
		}

		from := b.ProviderID
		if err := b.Reassign(provider.ID); err != nil {
			return err
		}
		rows, err := u.bookingRepo.UpdateProvider(tx, b.ID, provider.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return entity.ErrInvalidTransition
		}
		if _, err := u.settlementRepo.UpdatePayee(tx, b.ID, provider.ID); err != nil {
			return err
		}
		if b.Settlement != nil {
			b.Settlement.ProviderID = provider.ID
		}

		booking = b
		return u.auditService.LogUpdate(ctx, tx, actor.AuditName(), entity.AuditActionBookingReassign, entityBooking, b.ID.String(),
			map[string]interface{}{"provider_id": from.String()},
			map[string]interface{}{"provider_id": provider.ID.String()})
	})
	if err != nil {
		if !isBookingClientError(err) {
			u.log.Warnf("Failed to reassign booking %s: %+v", id, err)
		}
		return nil, err
	}

	u.log.Infof("Booking %s reassigned to provider %s", booking.ConfirmationNumber, booking.ProviderID)
	return converter.BookingToResponse(booking), nil
}

func (u *bookingUsecase) visibleBooking(db *gorm.DB, actor Actor, id uuid.UUID) (*entity.Booking, error) {
	booking, err := u.bookingRepo.FindByID(db, id)
	if err != nil {
		u.log.Warnf("Failed to find booking %s: %+v", id, err)
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !actor.IsAdmin() && !booking.OwnedBy(actor.Owner) {
		return nil, ErrBookingNotOwned
	}
	return booking, nil
}

func isBookingClientError(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrBookingNotOwned) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrProviderNotFound) ||
		errors.Is(err, ErrProviderNotEligible) ||
		errors.Is(err, entity.ErrInvalidTransition)
}

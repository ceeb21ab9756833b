package usecase

import (
	"context"
	"errors"

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
	ErrReviewNotFound       = errors.New("review not found")
	ErrReviewNotOwned       = errors.New("review does not belong to you")
	ErrReviewExists         = errors.New("this booking has already been reviewed")
	ErrBookingNotReviewable = errors.New("only completed bookings can be reviewed")
)

const entityReview = "review"

type ReviewUsecase interface {
	CreateReview(ctx context.Context, userID uuid.UUID, req *dto.CreateReviewRequest) (*dto.ReviewResponse, error)
	UpdateReview(ctx context.Context, userID uuid.UUID, id uuid.UUID, req *dto.UpdateReviewRequest) (*dto.ReviewResponse, error)
	// DeleteReview removes a review. Admins may delete any review.
	DeleteReview(ctx context.Context, actor Actor, id uuid.UUID) error
}

type reviewUsecase struct {
	transactor   repository.Transactor
	log          *logrus.Logger
	reviewRepo   repository.ReviewRepository
	bookingRepo  repository.BookingRepository
	providerRepo repository.ProviderRepository
	auditService service.AuditService
}

func NewReviewUsecase(
	transactor repository.Transactor,
	log *logrus.Logger,
	reviewRepo repository.ReviewRepository,
	bookingRepo repository.BookingRepository,
	providerRepo repository.ProviderRepository,
	auditService service.AuditService,
) ReviewUsecase {
	return &reviewUsecase{
		transactor:   transactor,
		log:          log,
		reviewRepo:   reviewRepo,
		bookingRepo:  bookingRepo,
		providerRepo: providerRepo,
		auditService: auditService,
	}
}

func (u *reviewUsecase) CreateReview(ctx context.Context, userID uuid.UUID, req *dto.CreateReviewRequest) (*dto.ReviewResponse, error) {
	owner := entity.UserOwner(userID)
	review := &entity.Review{
		ID:          uuid.New(),
		BookingID:   req.BookingID,
		UserID:      userID,
		Rating:      req.Rating,
		Comment:     req.Comment,
		IsPublished: true,
	}

	err := u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		booking, err := u.bookingRepo.FindByID(tx, req.BookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return ErrBookingNotFound
		}
		if !booking.OwnedBy(owner) {
			return ErrBookingNotOwned
		}
		if !booking.IsCompleted() {
			return ErrBookingNotReviewable
		}

		existing, err := u.reviewRepo.FindByBookingID(tx, booking.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrReviewExists
		}

		review.ProviderID = booking.ProviderID
		if err := u.reviewRepo.Create(tx, review); err != nil {
			if isDuplicateKeyError(err, constraintReviewBooking) {
				return ErrReviewExists
			}
			return err
		}

		if err := u.recomputeProviderRating(tx, review.ProviderID); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, tx, owner.String(), entity.AuditActionReviewCreate, entityReview, review.ID.String(), review)
	})
	if err != nil {
		if !isReviewClientError(err) {
			u.log.Warnf("Failed to create review for booking %s: %+v", req.BookingID, err)
		}
		return nil, err
	}

	return converter.ReviewToResponse(review), nil
}

func (u *reviewUsecase) UpdateReview(ctx context.Context, userID uuid.UUID, id uuid.UUID, req *dto.UpdateReviewRequest) (*dto.ReviewResponse, error) {
	var review *entity.Review
	err := u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		r, err := u.reviewRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrReviewNotFound
		}
		if r.UserID != userID {
			return ErrReviewNotOwned
		}

		old := *r
		r.Rating = req.Rating
		r.Comment = req.Comment
		if err := u.reviewRepo.Update(tx, r); err != nil {
			return err
		}
		if err := u.recomputeProviderRating(tx, r.ProviderID); err != nil {
			return err
		}

		review = r
		return u.auditService.LogUpdate(ctx, tx, entity.UserOwner(userID).String(), entity.AuditActionReviewUpdate, entityReview, r.ID.String(),
			map[string]interface{}{"rating": old.Rating, "comment": old.Comment},
			map[string]interface{}{"rating": r.Rating, "comment": r.Comment})
	})
	if err != nil {
		if !isReviewClientError(err) {
			u.log.Warnf("Failed to update review %s: %+v", id, err)
		}
		return nil, err
	}

	return converter.ReviewToResponse(review), nil
}

func (u *reviewUsecase) DeleteReview(ctx context.Context, actor Actor, id uuid.UUID) error {
	err := u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		r, err := u.reviewRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrReviewNotFound
		}
		if !actor.IsAdmin() {
			uid, ok := actor.Owner.UserID()
			if !ok || uid != r.UserID {
				return ErrReviewNotOwned
			}
		}

		rows, err := u.reviewRepo.Delete(tx, r.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrReviewNotFound
		}
		if err := u.recomputeProviderRating(tx, r.ProviderID); err != nil {
			return err
		}
		return u.auditService.LogDelete(ctx, tx, actor.AuditName(), entity.AuditActionReviewDelete, entityReview, r.ID.String(), r)
	})
	if err != nil && !isReviewClientError(err) {
		u.log.Warnf("Failed to delete review %s: %+v", id, err)
	}
	return err
}

// recomputeProviderRating rewrites the provider's aggregate from its
// published reviews. It runs in the caller's transaction.
func (u *reviewUsecase) recomputeProviderRating(tx *gorm.DB, providerID uuid.UUID) error {
	stats, err := u.reviewRepo.RatingStats(tx, providerID)
	if err != nil {
		return err
	}
	return u.providerRepo.UpdateRatingStats(tx, providerID, stats)
}

func isReviewClientError(err error) bool {
	return errors.Is(err, ErrReviewNotFound) ||
		errors.Is(err, ErrReviewNotOwned) ||
		errors.Is(err, ErrReviewExists) ||
		errors.Is(err, ErrBookingNotReviewable) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrBookingNotOwned)
}

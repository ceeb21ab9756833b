package handler

import (
	"context"

	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockSearchUsecase struct{ mock.Mock }

func (m *mockSearchUsecase) Search(ctx context.Context, req *dto.ProviderSearchRequest) (*dto.ProviderSearchResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*dto.ProviderSearchResponse)
	return res, args.Error(1)
}

func (m *mockSearchUsecase) SearchMap(ctx context.Context, req *dto.ProviderSearchRequest, zoom int, selected string) (*dto.ProviderMapResponse, error) {
	args := m.Called(ctx, req, zoom, selected)
	res, _ := args.Get(0).(*dto.ProviderMapResponse)
	return res, args.Error(1)
}

type mockDraftUsecase struct{ mock.Mock }

func (m *mockDraftUsecase) CreateDraft(ctx context.Context, owner entity.OwnerKey, req *dto.CreateDraftRequest) (*dto.DraftResponse, error) {
	args := m.Called(ctx, owner, req)
	res, _ := args.Get(0).(*dto.DraftResponse)
	return res, args.Error(1)
}

func (m *mockDraftUsecase) GetDraft(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.DraftResponse, error) {
	args := m.Called(ctx, owner, draftID)
	res, _ := args.Get(0).(*dto.DraftResponse)
	return res, args.Error(1)
}

func (m *mockDraftUsecase) UpdateStep(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID, step int, payload []byte) (*dto.DraftResponse, error) {
	args := m.Called(ctx, owner, draftID, step, payload)
	res, _ := args.Get(0).(*dto.DraftResponse)
	return res, args.Error(1)
}

func (m *mockDraftUsecase) ClaimGuestDraft(ctx context.Context, guest, user entity.OwnerKey, draftID uuid.UUID) (*dto.DraftResponse, error) {
	args := m.Called(ctx, guest, user, draftID)
	res, _ := args.Get(0).(*dto.DraftResponse)
	return res, args.Error(1)
}

func (m *mockDraftUsecase) ReapExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockPricingUsecase struct{ mock.Mock }

func (m *mockPricingUsecase) PreviewQuote(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.QuoteResponse, error) {
	args := m.Called(ctx, owner, draftID)
	res, _ := args.Get(0).(*dto.QuoteResponse)
	return res, args.Error(1)
}

type mockPaymentUsecase struct{ mock.Mock }

func (m *mockPaymentUsecase) CreateIntent(ctx context.Context, owner entity.OwnerKey, draftID uuid.UUID) (*dto.PaymentIntentResponse, error) {
	args := m.Called(ctx, owner, draftID)
	res, _ := args.Get(0).(*dto.PaymentIntentResponse)
	return res, args.Error(1)
}

func (m *mockPaymentUsecase) Confirm(ctx context.Context, owner entity.OwnerKey, req *dto.ConfirmBookingRequest) (*dto.BookingResponse, error) {
	args := m.Called(ctx, owner, req)
	res, _ := args.Get(0).(*dto.BookingResponse)
	return res, args.Error(1)
}

type mockBookingUsecase struct{ mock.Mock }

func (m *mockBookingUsecase) GetBooking(ctx context.Context, actor usecase.Actor, id uuid.UUID) (*dto.BookingResponse, error) {
	args := m.Called(ctx, actor, id)
	res, _ := args.Get(0).(*dto.BookingResponse)
	return res, args.Error(1)
}

func (m *mockBookingUsecase) GetByConfirmationNumber(ctx context.Context, actor usecase.Actor, number string) (*dto.BookingResponse, error) {
	args := m.Called(ctx, actor, number)
	res, _ := args.Get(0).(*dto.BookingResponse)
	return res, args.Error(1)
}

func (m *mockBookingUsecase) ListMyBookings(ctx context.Context, owner entity.OwnerKey) (*dto.BookingListResponse, error) {
	args := m.Called(ctx, owner)
	res, _ := args.Get(0).(*dto.BookingListResponse)
	return res, args.Error(1)
}

func (m *mockBookingUsecase) CancelBooking(ctx context.Context, actor usecase.Actor, id uuid.UUID, req *dto.CancelBookingRequest) (*dto.BookingResponse, error) {
	args := m.Called(ctx, actor, id, req)
	res, _ := args.Get(0).(*dto.BookingResponse)
	return res, args.Error(1)
}

func (m *mockBookingUsecase) CompleteBooking(ctx context.Context, actor usecase.Actor, id uuid.UUID) (*dto.BookingResponse, error) {
	args := m.Called(ctx, actor, id)
	res, _ := args.Get(0).(*dto.BookingResponse)
	return res, args.Error(1)
}

func (m *mockBookingUsecase) ReassignBooking(ctx context.Context, actor usecase.Actor, id uuid.UUID, req *dto.ReassignBookingRequest) (*dto.BookingResponse, error) {
	args := m.Called(ctx, actor, id, req)
	res, _ := args.Get(0).(*dto.BookingResponse)
	return res, args.Error(1)
}

type mockReviewUsecase struct{ mock.Mock }

func (m *mockReviewUsecase) CreateReview(ctx context.Context, userID uuid.UUID, req *dto.CreateReviewRequest) (*dto.ReviewResponse, error) {
	args := m.Called(ctx, userID, req)
	res, _ := args.Get(0).(*dto.ReviewResponse)
	return res, args.Error(1)
}

func (m *mockReviewUsecase) UpdateReview(ctx context.Context, userID uuid.UUID, id uuid.UUID, req *dto.UpdateReviewRequest) (*dto.ReviewResponse, error) {
	args := m.Called(ctx, userID, id, req)
	res, _ := args.Get(0).(*dto.ReviewResponse)
	return res, args.Error(1)
}

func (m *mockReviewUsecase) DeleteReview(ctx context.Context, actor usecase.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

type mockAuditLogUsecase struct{ mock.Mock }

func (m *mockAuditLogUsecase) GetBookingHistory(ctx context.Context, bookingID uuid.UUID) (*dto.AuditLogListResponse, error) {
	args := m.Called(ctx, bookingID)
	res, _ := args.Get(0).(*dto.AuditLogListResponse)
	return res, args.Error(1)
}

type mockServiceCatalogueUsecase struct{ mock.Mock }

func (m *mockServiceCatalogueUsecase) ListServices(ctx context.Context) (*dto.ServiceListResponse, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*dto.ServiceListResponse)
	return res, args.Error(1)
}

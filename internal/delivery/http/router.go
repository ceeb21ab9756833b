package http

import (
	"net/http"

	"github.com/hisiddique/bloodathome/internal/delivery/http/handler"
	"github.com/hisiddique/bloodathome/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	router          *mux.Router
	providerHandler *handler.ProviderHandler
	draftHandler    *handler.DraftHandler
	bookingHandler  *handler.BookingHandler
	reviewHandler   *handler.ReviewHandler
	auditLogHandler *handler.AuditLogHandler
	serviceHandler  *handler.ServiceHandler
	authMiddleware  *middleware.AuthMiddleware
	corsMiddleware  *middleware.CORSMiddleware
	rateLimiter     *middleware.RateLimiter
}

func NewRouter(
	providerHandler *handler.ProviderHandler,
	draftHandler *handler.DraftHandler,
	bookingHandler *handler.BookingHandler,
	reviewHandler *handler.ReviewHandler,
	auditLogHandler *handler.AuditLogHandler,
	serviceHandler *handler.ServiceHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	rateLimiter *middleware.RateLimiter,
) *Router {
	return &Router{
		router:          mux.NewRouter(),
		providerHandler: providerHandler,
		draftHandler:    draftHandler,
		bookingHandler:  bookingHandler,
		reviewHandler:   reviewHandler,
		auditLogHandler: auditLogHandler,
		serviceHandler:  serviceHandler,
		authMiddleware:  authMiddleware,
		corsMiddleware:  corsMiddleware,
		rateLimiter:     rateLimiter,
	}
}

func (r *Router) Setup() *mux.Router {
	r.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Service catalogue
	api.HandleFunc("/services", r.serviceHandler.ListServices).Methods(http.MethodGet)

	// Provider search (public, rate limited)
	providers := api.PathPrefix("/providers").Subrouter()
	providers.Use(r.rateLimiter.Limit)
	providers.HandleFunc("/search", r.providerHandler.Search).Methods(http.MethodPost)
	providers.HandleFunc("/map", r.providerHandler.SearchMap).Methods(http.MethodPost)

	// Guests and users alike; the owner comes from the token or the guest header
	booking := api.NewRoute().Subrouter()
	booking.Use(r.authMiddleware.Identify)
	booking.HandleFunc("/drafts", r.draftHandler.CreateDraft).Methods(http.MethodPost)
	booking.HandleFunc("/drafts/{id}", r.draftHandler.GetDraft).Methods(http.MethodGet)
	booking.HandleFunc("/drafts/{id}/steps/{step:[0-9]+}", r.draftHandler.UpdateStep).Methods(http.MethodPut)
	booking.HandleFunc("/drafts/{id}/quote", r.draftHandler.GetQuote).Methods(http.MethodGet)
	booking.HandleFunc("/drafts/{id}/payment-intent", r.draftHandler.CreatePaymentIntent).Methods(http.MethodPost)
	booking.HandleFunc("/bookings/confirm", r.bookingHandler.ConfirmBooking).Methods(http.MethodPost)
	booking.HandleFunc("/bookings/lookup/{number}", r.bookingHandler.GetByConfirmationNumber).Methods(http.MethodGet)
	booking.HandleFunc("/bookings/{id}", r.bookingHandler.GetBooking).Methods(http.MethodGet)
	booking.HandleFunc("/bookings/{id}/cancel", r.bookingHandler.CancelBooking).Methods(http.MethodPost)

	// Signed-in users
	protected := api.NewRoute().Subrouter()
	protected.Use(r.authMiddleware.Identify)
	protected.Use(r.authMiddleware.Authenticate)
	protected.HandleFunc("/drafts/{id}/claim", r.draftHandler.ClaimDraft).Methods(http.MethodPost)
	protected.HandleFunc("/bookings", r.bookingHandler.GetMyBookings).Methods(http.MethodGet)
	protected.HandleFunc("/reviews", r.reviewHandler.CreateReview).Methods(http.MethodPost)
	protected.HandleFunc("/reviews/{id}", r.reviewHandler.UpdateReview).Methods(http.MethodPut)
	protected.HandleFunc("/reviews/{id}", r.reviewHandler.DeleteReview).Methods(http.MethodDelete)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Identify)
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/bookings/{id}/complete", r.bookingHandler.CompleteBooking).Methods(http.MethodPost)
	admin.HandleFunc("/bookings/{id}/reassign", r.bookingHandler.ReassignBooking).Methods(http.MethodPost)
	admin.HandleFunc("/bookings/{id}/history", r.auditLogHandler.GetBookingHistory).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

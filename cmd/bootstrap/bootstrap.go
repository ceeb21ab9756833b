package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hisiddique/bloodathome/config"
	deliveryHttp "github.com/hisiddique/bloodathome/internal/delivery/http"
	"github.com/hisiddique/bloodathome/internal/delivery/http/handler"
	"github.com/hisiddique/bloodathome/internal/delivery/http/middleware"
	"github.com/hisiddique/bloodathome/internal/infrastructure/cache"
	"github.com/hisiddique/bloodathome/internal/infrastructure/database"
	"github.com/hisiddique/bloodathome/internal/infrastructure/geocoding"
	"github.com/hisiddique/bloodathome/internal/infrastructure/payment"
	"github.com/hisiddique/bloodathome/internal/infrastructure/queue"
	"github.com/hisiddique/bloodathome/internal/infrastructure/telemetry"
	"github.com/hisiddique/bloodathome/internal/repository"
	"github.com/hisiddique/bloodathome/internal/service"
	"github.com/hisiddique/bloodathome/internal/usecase"
	"github.com/hisiddique/bloodathome/pkg/jwt"
	"github.com/hisiddique/bloodathome/pkg/logger"
	"github.com/hisiddique/bloodathome/pkg/validator"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	QueueClient *asynq.Client
	Telemetry   *telemetry.Provider

	locker   *service.DraftLockService
	usecases *usecases
}

type usecases struct {
	drafts    usecase.BookingDraftUsecase
	search    usecase.ProviderSearchUsecase
	pricing   usecase.PricingUsecase
	payments  usecase.PaymentUsecase
	bookings  usecase.BookingUsecase
	reviews   usecase.ReviewUsecase
	history   usecase.AuditLogUsecase
	catalogue usecase.ServiceCatalogueUsecase
}

// New loads configuration from cfgPath and connects every backing service.
func New(cfgPath string) (*App, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Setup(cfg.Log)
	log.Info("Configuration loaded successfully")

	app := &App{Config: cfg, Log: log}

	tel, err := telemetry.Init(context.Background(), cfg.App, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise telemetry: %w", err)
	}
	app.Telemetry = tel

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	log.Info("Redis connected successfully")

	app.QueueClient = queue.NewClient(cfg.Redis, cfg.Queue)
	app.locker = service.NewDraftLockService(redisClient, log, cfg.Draft.CommitLockTTL)

	uc, err := app.initializeUsecases()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.usecases = uc

	return app, nil
}

func (app *App) initializeUsecases() (*usecases, error) {
	cfg := app.Config
	log := app.Log
	tx := database.NewTransactor(app.DB)

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	// Initialize repositories
	draftRepo := repository.NewBookingDraftRepository()
	bookingRepo := repository.NewBookingRepository()
	paymentRepo := repository.NewPaymentRepository()
	promoRepo := repository.NewPromoCodeRepository()
	availabilityRepo := repository.NewProviderAvailabilityRepository()
	providerRepo := repository.NewProviderRepository()
	offerRepo := repository.NewProviderServiceRepository()
	reviewRepo := repository.NewReviewRepository()
	serviceRepo := repository.NewServiceRepository()
	settlementRepo := repository.NewSettlementRepository()
	auditRepo := repository.NewAuditLogRepository()

	// Outbound adapters
	geocoder := geocoding.NewPostcodesIOGeocoder(cfg.Geocoder, cache.NewJSONCache(app.RedisClient, "geocode"), log)
	gateway := payment.NewStripeGateway(cfg.Stripe)
	audit := service.NewAuditService(log, auditRepo)
	notifier := service.NewNotificationService(app.QueueClient, log)

	return &usecases{
		drafts: usecase.NewBookingDraftUsecase(tx, log, cfg.Draft, cfg.Geo, draftRepo, promoRepo, providerRepo,
			offerRepo, availabilityRepo, geocoder, gateway, audit, metrics),
		search: usecase.NewProviderSearchUsecase(tx, log, cfg.Geo, providerRepo, offerRepo, availabilityRepo,
			geocoder, metrics),
		pricing: usecase.NewPricingUsecase(tx, log, cfg.Pricing, draftRepo, offerRepo, promoRepo, metrics),
		payments: usecase.NewPaymentUsecase(tx, log, cfg.Pricing, draftRepo, bookingRepo, paymentRepo, offerRepo,
			promoRepo, settlementRepo, gateway, app.locker, audit, notifier, metrics),
		bookings:  usecase.NewBookingUsecase(tx, log, bookingRepo, paymentRepo, settlementRepo, providerRepo, audit),
		reviews:   usecase.NewReviewUsecase(tx, log, reviewRepo, bookingRepo, providerRepo, audit),
		history:   usecase.NewAuditLogUsecase(tx, log, auditRepo, bookingRepo),
		catalogue: usecase.NewServiceCatalogueUsecase(tx, log, serviceRepo),
	}, nil
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer() *http.Server {
	jwtService := jwt.NewJWTService(app.Config.JWT)
	customValidator := validator.NewValidator()
	uc := app.usecases

	// Initialize handlers
	providerHandler := handler.NewProviderHandler(uc.search, customValidator)
	draftHandler := handler.NewDraftHandler(uc.drafts, uc.pricing, uc.payments, customValidator)
	bookingHandler := handler.NewBookingHandler(uc.bookings, uc.payments, customValidator)
	reviewHandler := handler.NewReviewHandler(uc.reviews, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(uc.history)
	serviceHandler := handler.NewServiceHandler(uc.catalogue)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, app.RedisClient)
	corsMiddleware := middleware.NewCORSMiddleware(app.Config.App.AllowedOrigins)
	rateLimiter := middleware.NewRateLimiter(app.Config.RateLimit)

	router := deliveryHttp.NewRouter(providerHandler, draftHandler, bookingHandler, reviewHandler, auditLogHandler,
		serviceHandler, authMiddleware, corsMiddleware, rateLimiter)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", app.Config.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Serve runs the HTTP API until SIGINT or SIGTERM.
func (app *App) Serve() error {
	server := app.initializeServer()

	errCh := make(chan error, 1)
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if err := waitForShutdown(errCh); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	app.Log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	app.Log.Info("Server shutdown complete")
	return nil
}

// Work runs the background worker: queued notifications plus the periodic
// draft reaper.
func (app *App) Work() error {
	cfg := app.Config

	mux := asynq.NewServeMux()
	service.NewTaskHandler(app.Log, app.usecases.drafts, nil).Register(mux)

	srv := queue.NewServer(cfg.Redis, cfg.Queue, app.Log)
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	scheduler := queue.NewScheduler(cfg.Redis, cfg.Queue, app.Log)
	cronSpec := "@every " + cfg.Draft.ReapInterval.String()
	if _, err := scheduler.Register(cronSpec, service.NewDraftReapTask()); err != nil {
		srv.Shutdown()
		return fmt.Errorf("failed to schedule draft reaper: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	app.Log.Infof("Worker started; reaping expired drafts %s", cronSpec)

	waitForShutdown(nil)

	app.Log.Info("Shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()
	app.Log.Info("Worker shutdown complete")
	return nil
}

// waitForShutdown blocks until an interrupt signal is received or errCh
// yields an error.
func waitForShutdown(errCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		return nil
	case err := <-errCh:
		return err
	}
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	if app.locker != nil {
		app.locker.Stop()
	}

	if app.QueueClient != nil {
		if err := app.QueueClient.Close(); err != nil {
			app.Log.Warnf("Failed to close queue client: %v", err)
		}
	}

	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}

	if app.Telemetry != nil {
		if err := app.Telemetry.Shutdown(context.Background()); err != nil {
			app.Log.Warnf("Failed to shutdown telemetry: %v", err)
		}
	}
}

// Migrate applies pending migrations, or rolls back steps migrations when up is false.
func Migrate(cfgPath string, up bool, steps int) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.Log)

	if up {
		return database.MigrateUp(cfg.DB)
	}
	return database.MigrateDown(cfg.DB, steps)
}

// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/analytics"
	"github.com/fredrickBO/TwendeBus/internal/auth"
	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/cancellation"
	"github.com/fredrickBO/TwendeBus/internal/notifications"
	"github.com/fredrickBO/TwendeBus/internal/payments"
	"github.com/fredrickBO/TwendeBus/internal/reconciler"
	"github.com/fredrickBO/TwendeBus/internal/seats"
	"github.com/fredrickBO/TwendeBus/internal/shared/config"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/middleware"
	"github.com/fredrickBO/TwendeBus/internal/trips"
	"github.com/fredrickBO/TwendeBus/internal/users"
	"github.com/fredrickBO/TwendeBus/internal/wallet"
	"github.com/fredrickBO/TwendeBus/pkg/cache"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	cache     cache.Service
	runner    *database.TxRunner
	inventory *seats.Inventory
	ledger    *wallet.Ledger
	publisher notifications.Publisher
	gateway   payments.Gateway

	// Built while wiring the booking routes
	tripRepo    trips.Repository
	seatService seats.Service
	bookingRepo bookings.Repository
	jobs        *reconciler.JobProcessor
}

// NewRouter creates a new router instance. gateway may be nil, in which case
// the Daraja client is built from cfg.
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher, gateway payments.Gateway) *Router {
	cacheService := cache.NewService(db.GetRedisClient())
	if gateway == nil {
		gateway = payments.NewMpesaClient(cfg.Mpesa, cacheService)
	}
	return &Router{
		config:    cfg,
		db:        db,
		cache:     cacheService,
		runner:    database.NewTxRunner(db.GetPostgreSQL(), cfg.Booking.TxMaxRetries),
		inventory: seats.NewInventory(cfg.Booking.HoldTTL, cacheService),
		ledger:    wallet.NewLedger(),
		publisher: publisher,
		gateway:   gateway,
	}
}

// Models returns every table the API owns, in migration order
func Models() []interface{} {
	return []interface{}{
		&users.User{},
		&trips.Route{},
		&trips.RouteStop{},
		&trips.Trip{},
		&seats.TripSeat{},
		&bookings.Booking{},
		&bookings.BookingSeat{},
		&bookings.Checkout{},
		&wallet.Transaction{},
		&cancellation.Cancellation{},
		&notifications.Notification{},
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Identify the caller early so idempotency keys are scoped per user.
	// Protected routes still run the strict check below.
	engine.Use(middleware.OptionalAuthWithConfig(r.config))
	engine.Use(middleware.Idempotency(r.db.GetRedisClient(), r.config.Redis.IdempotencyTTL))

	authMW := middleware.JWTAuthWithConfig(r.config)
	adminMW := middleware.RequireAdmin()

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupAuthRoutes(api, authMW)
		r.setupUserRoutes(api, authMW, adminMW)
		r.setupTripRoutes(api, authMW, adminMW)
		r.setupSeatRoutes(api, authMW)
		r.setupBookingRoutes(api, authMW)
		r.setupCancellationRoutes(api, authMW)
		r.setupPaymentRoutes(api, authMW)
		r.setupWalletRoutes(api, authMW)
		r.setupNotificationRoutes(api, authMW)
		r.setupAnalyticsRoutes(api, authMW, adminMW)
	}

	r.setupHealthRoutes(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Jobs returns the expiry reconciler built by SetupRoutes
func (r *Router) Jobs() *reconciler.JobProcessor {
	return r.jobs
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "twendebus-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "twendebus-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET(r.config.GetAPIBasePath()+"/status", func(c *gin.Context) {
		status := gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		}
		if r.jobs != nil {
			status["reconciler"] = r.jobs.GetJobStatus()
		}
		c.JSON(http.StatusOK, status)
	})
}

func (r *Router) setupAuthRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	userRepo := users.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(userRepo, r.config)
	auth.SetupAuthRoutes(rg, auth.NewController(authService), authMW)
}

func (r *Router) setupUserRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	userService := users.NewService(users.NewRepository(r.db.GetPostgreSQL()))
	users.SetupUserRoutes(rg, users.NewController(userService), authMW, adminMW)
}

// setupTripRoutes configures route and trip browsing plus administration
func (r *Router) setupTripRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	r.tripRepo = trips.NewRepository(r.db.GetPostgreSQL())
	tripService := trips.NewService(r.tripRepo, r.runner, r.cache)
	trips.SetupTripRoutes(rg, trips.NewController(tripService), authMW, adminMW)
}

func (r *Router) setupSeatRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	seatRepo := seats.NewRepository(r.db.GetPostgreSQL())
	r.seatService = seats.NewService(seatRepo, r.tripRepo, r.runner, r.inventory, r.cache)
	seats.SetupSeatRoutes(rg, seats.NewController(r.seatService), authMW)
}

// setupBookingRoutes configures booking routes and the expiry reconciler that
// shares their repository and seat inventory
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	r.bookingRepo = bookings.NewRepository(r.db.GetPostgreSQL())
	bookingService := bookings.NewService(r.bookingRepo, r.runner, r.inventory, r.ledger, r.publisher)
	bookings.SetupBookingRoutes(rg, bookings.NewController(bookingService), authMW)

	rec := reconciler.New(r.bookingRepo, r.runner, r.inventory, r.seatService, r.publisher,
		r.config.Booking.PendingTTL, r.config.Booking.ReconcilerBatch)
	r.jobs = reconciler.NewJobProcessor(rec, &reconciler.JobConfig{Interval: r.config.Booking.ReconcilerInterval})
}

func (r *Router) setupCancellationRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	policy := cancellation.RefundPolicy{
		FullRefundHours:    r.config.Booking.FullRefundHours,
		PartialRefundHours: r.config.Booking.PartialRefundHours,
		PartialRefundRate:  r.config.Booking.PartialRefundRate,
	}
	cancellationService := cancellation.NewService(cancellation.NewRepository(r.db.GetPostgreSQL()),
		r.runner, r.inventory, r.ledger, r.publisher, policy)
	cancellation.SetupCancellationRoutes(rg, cancellation.NewController(cancellationService), authMW)
}

func (r *Router) setupPaymentRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	paymentService := payments.NewService(r.gateway, r.runner, r.ledger, r.publisher)
	payments.SetupPaymentRoutes(rg, payments.NewController(paymentService), authMW)
}

func (r *Router) setupWalletRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	walletService := wallet.NewService(wallet.NewRepository(r.db.GetPostgreSQL()))
	wallet.SetupWalletRoutes(rg, wallet.NewController(walletService), authMW)
}

func (r *Router) setupNotificationRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	notificationService := notifications.NewService(notifications.NewRepository(r.db.GetPostgreSQL()), r.runner)
	notifications.SetupNotificationRoutes(rg, notifications.NewController(notificationService), authMW)
}

func (r *Router) setupAnalyticsRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	analyticsService := analytics.NewService(analytics.NewRepository(r.db.GetPostgreSQL()), r.cache, r.inventory)
	analytics.SetupAnalyticsRoutes(rg, analytics.NewController(analyticsService), authMW, adminMW)
}

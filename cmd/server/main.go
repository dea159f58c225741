package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ethiobus/booking-backend/internal/cache"
	"github.com/ethiobus/booking-backend/internal/config"
	"github.com/ethiobus/booking-backend/internal/database"
	"github.com/ethiobus/booking-backend/internal/handlers"
	"github.com/ethiobus/booking-backend/internal/services"
	"github.com/ethiobus/booking-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting bus booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	loc, err := cfg.Booking.Location()
	if err != nil {
		logger.Fatalf("Failed to load booking timezone: %v", err)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Seat map cache is optional
	var availabilityCache services.AvailabilityCache
	var cachePinger handlers.Pinger
	seatMapCache, err := cache.NewSeatMapCache(context.Background(), cfg.Redis)
	switch {
	case err != nil:
		logger.WithError(err).Warn("Seat map cache unavailable, continuing without Redis")
	case seatMapCache != nil:
		defer seatMapCache.Close()
		availabilityCache = seatMapCache
		cachePinger = handlers.PingFunc(seatMapCache.Ping)
		logger.Info("Seat map cache enabled")
	default:
		logger.Info("REDIS_URL not set, seat map cache disabled")
	}

	// Repositories
	busRepository := database.NewBusRepository(db.DB)
	bookingRepository := database.NewBookingRepository(db.DB)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	auditService := services.NewAuditService(db.DB, logger)
	references := services.NewReferenceGenerator(cfg.Booking.ReferencePrefix, loc, nil)
	policy := services.NewCancellationPolicy(cfg.Booking.CancellationWindow, loc)

	availabilityService := services.NewAvailabilityService(busRepository, bookingRepository, availabilityCache, logger, loc, nil)
	reservationService := services.NewReservationService(
		busRepository,
		bookingRepository,
		references,
		availabilityCache,
		auditService,
		logger,
		services.ReservationConfig{
			MaxSeats: cfg.Booking.MaxSeats,
			Currency: cfg.Booking.Currency,
			Location: loc,
		},
		nil,
	)
	lifecycleService := services.NewLifecycleService(busRepository, bookingRepository, policy, availabilityCache, auditService, logger, nil)
	ticketService := services.NewTicketService(cfg.Booking.Currency, nil)

	// Scheduled jobs
	var cronService *services.CronService
	if cfg.Cron.Enabled {
		cronService = services.NewCronService(auditService, lifecycleService, services.CronConfig{
			AuditRetention:      time.Duration(cfg.Cron.AuditRetentionDays) * 24 * time.Hour,
			AutoCompleteEnabled: cfg.Cron.AutoCompleteEnabled,
			AutoCompleteAfter:   cfg.Cron.AutoCompleteAfter,
		}, logger)
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	}

	if cfg.Admin.APIKeyHash == "" {
		logger.Warn("ADMIN_API_KEY_HASH not set, admin routes will reject every request")
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:        logger,
		JWT:           jwtService,
		CORS:          cfg.CORS,
		AdminKeyHash:  cfg.Admin.APIKeyHash,
		Health:        handlers.NewHealthHandler(db, cachePinger, version),
		Buses:         handlers.NewBusHandler(availabilityService),
		Bookings:      handlers.NewBookingHandler(reservationService, lifecycleService, ticketService, logger),
		AdminBookings: handlers.NewAdminBookingHandler(lifecycleService),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cronService != nil {
		cronService.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

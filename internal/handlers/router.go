package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ethiobus/booking-backend/internal/config"
	"github.com/ethiobus/booking-backend/internal/middleware"
	"github.com/ethiobus/booking-backend/pkg/jwt"
)

// RouterDeps carries everything the HTTP surface is built from
type RouterDeps struct {
	Logger        *logrus.Logger
	JWT           *jwt.Service
	CORS          config.CORSConfig
	AdminKeyHash  string
	Health        *HealthHandler
	Buses         *BusHandler
	Bookings      *BookingHandler
	AdminBookings *AdminBookingHandler
}

// NewRouter wires middleware and routes
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	if len(deps.CORS.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORS.AllowedOrigins,
			AllowMethods:     deps.CORS.AllowedMethods,
			AllowHeaders:     deps.CORS.AllowedHeaders,
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
			AllowCredentials: !containsWildcard(deps.CORS.AllowedOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}

	if deps.Health != nil {
		router.GET("/health", deps.Health.Health)
	}

	v1 := router.Group("/api/v1")
	{
		// Public routes
		v1.GET("/buses/search", deps.Buses.SearchBuses)
		v1.GET("/buses/:id/seats", deps.Buses.GetSeatMap)
		v1.GET("/payment-methods", deps.Buses.ListPaymentMethods)

		// Passenger routes
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(deps.JWT, deps.Logger))
		{
			bookings.POST("", deps.Bookings.CreateBooking)
			bookings.GET("", deps.Bookings.ListMyBookings)
			bookings.GET("/:reference", deps.Bookings.GetBooking)
			bookings.POST("/:reference/pay", deps.Bookings.PayBooking)
			bookings.POST("/:reference/cancel", deps.Bookings.CancelBooking)
			bookings.GET("/:reference/ticket", deps.Bookings.DownloadTicket)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminMiddleware(deps.AdminKeyHash, deps.Logger))
		{
			admin.GET("/bookings", deps.AdminBookings.ListBookings)
			admin.PUT("/bookings/:reference/status", deps.AdminBookings.UpdateBookingStatus)
		}
	}

	return router
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // BOOKING_TIMEZONE must resolve on images without zoneinfo

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Redis configuration (seat map cache)
	Redis RedisConfig

	// Booking rules
	Booking BookingConfig

	// Admin boundary configuration
	Admin AdminConfig

	// CORS configuration
	CORS CORSConfig

	// Scheduled jobs configuration
	Cron CronConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// RedisConfig holds the optional cache connection. Empty URL disables the cache.
type RedisConfig struct {
	URL         string
	SeatMapTTL  time.Duration
	PoolSize    int
	DialTimeout time.Duration
}

// BookingConfig holds the reservation and cancellation rules
type BookingConfig struct {
	MaxSeats           int
	CancellationWindow time.Duration
	Timezone           string
	ReferencePrefix    string
	Currency           string
}

// AdminConfig holds the administrative boundary credentials
type AdminConfig struct {
	APIKeyHash string // bcrypt hash of the X-Admin-Key value
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// CronConfig holds scheduled job settings
type CronConfig struct {
	Enabled             bool
	AutoCompleteEnabled bool
	AutoCompleteAfter   time.Duration
	AuditRetentionDays  int
}

// Location resolves the configured booking timezone
func (b BookingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			SeatMapTTL:  time.Duration(getEnvAsInt("SEATMAP_CACHE_TTL_SECONDS", 30)) * time.Second,
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout: time.Duration(getEnvAsInt("REDIS_DIAL_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Booking: BookingConfig{
			MaxSeats:           getEnvAsInt("BOOKING_MAX_SEATS", 5),
			CancellationWindow: time.Duration(getEnvAsInt("BOOKING_CANCELLATION_WINDOW_HOURS", 24)) * time.Hour,
			Timezone:           getEnv("BOOKING_TIMEZONE", "Africa/Addis_Ababa"),
			ReferencePrefix:    getEnv("BOOKING_REFERENCE_PREFIX", "ETH"),
			Currency:           getEnv("CURRENCY", "ETB"),
		},
		Admin: AdminConfig{
			APIKeyHash: getEnv("ADMIN_API_KEY_HASH", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Admin-Key"}),
		},
		Cron: CronConfig{
			Enabled:             getEnvAsBool("CRON_ENABLED", true),
			AutoCompleteEnabled: getEnvAsBool("AUTO_COMPLETE_BOOKINGS", false),
			AutoCompleteAfter:   time.Duration(getEnvAsInt("AUTO_COMPLETE_AFTER_HOURS", 12)) * time.Hour,
			AuditRetentionDays:  getEnvAsInt("AUDIT_RETENTION_DAYS", 180),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Booking.MaxSeats < 1 {
		return fmt.Errorf("BOOKING_MAX_SEATS must be at least 1")
	}

	if c.Booking.CancellationWindow < 0 {
		return fmt.Errorf("BOOKING_CANCELLATION_WINDOW_HOURS must not be negative")
	}

	if _, err := c.Booking.Location(); err != nil {
		return fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.Booking.Timezone, err)
	}

	if c.Booking.ReferencePrefix == "" {
		return fmt.Errorf("BOOKING_REFERENCE_PREFIX must not be empty")
	}

	if c.Server.Environment == "production" && c.Admin.APIKeyHash == "" {
		return fmt.Errorf("ADMIN_API_KEY_HASH is required in production")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

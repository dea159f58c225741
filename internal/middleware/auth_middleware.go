package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ethiobus/booking-backend/internal/models"
	"github.com/ethiobus/booking-backend/internal/utils"
	"github.com/ethiobus/booking-backend/pkg/jwt"
)

// UserContextKey is the key used to store user information in Gin context
const UserContextKey = "user"

// requestContextKey holds the *models.RequestContext of the request
const requestContextKey = "request_context"

// UserContext represents the authenticated user's information
type UserContext struct {
	UserID string   `json:"user_id"`
	Phone  string   `json:"phone"`
	Roles  []string `json:"roles"`
}

// AuthMiddleware validates the bearer token and sets the user and request contexts
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := logrus.Fields{"path": c.Request.URL.Path, "ip": c.ClientIP()}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.WithFields(fields).Warn("AUTH FAILED: missing authorization header")
			abortUnauthorized(c, "Authorization header is required", "MISSING_AUTH_HEADER")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			logger.WithFields(fields).Warn("AUTH FAILED: invalid authorization format")
			abortUnauthorized(c, "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if jwt.IsExpiredError(err) {
				logger.WithFields(fields).WithError(err).Warn("AUTH FAILED: token expired")
				abortUnauthorized(c, "Access token has expired. Please log in again.", "TOKEN_EXPIRED")
				return
			}
			logger.WithFields(fields).WithError(err).Warn("AUTH FAILED: invalid token")
			abortUnauthorized(c, "Invalid access token", "INVALID_TOKEN")
			return
		}

		c.Set(UserContextKey, UserContext{
			UserID: claims.UserID,
			Phone:  claims.Phone,
			Roles:  claims.Roles,
		})
		c.Set("user_id", claims.UserID)
		setRequestContext(c, claims.UserID)

		c.Next()
	}
}

// GetUserContext retrieves the user context from Gin context
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}
	userCtx, ok := value.(UserContext)
	return userCtx, ok
}

// RequestContext returns the request context set by the auth or admin middleware.
// Public routes get an anonymous one.
func RequestContext(c *gin.Context) *models.RequestContext {
	if value, ok := c.Get(requestContextKey); ok {
		if rc, ok := value.(*models.RequestContext); ok {
			return rc
		}
	}
	return setRequestContext(c, "")
}

func setRequestContext(c *gin.Context, principalID string) *models.RequestContext {
	rc := &models.RequestContext{
		PrincipalID: principalID,
		IPAddress:   utils.GetRealIP(c),
		UserAgent:   utils.GetUserAgent(c),
	}
	c.Set(requestContextKey, rc)
	return rc
}

func abortUnauthorized(c *gin.Context, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"type":    models.NoticeError,
		"error":   "unauthorized",
		"message": message,
		"code":    code,
	})
}

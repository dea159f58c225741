package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ethiobus/booking-backend/internal/models"
)

// AdminKeyHeader carries the administrative API key
const AdminKeyHeader = "X-Admin-Key"

// AdminPrincipal is the principal id recorded for administrative operations
const AdminPrincipal = "admin"

// AdminMiddleware admits requests whose X-Admin-Key matches the configured bcrypt hash.
// An empty hash closes the administrative boundary entirely.
func AdminMiddleware(keyHash string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(AdminKeyHeader)
		if keyHash == "" || key == "" ||
			bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
			}).Warn("ADMIN AUTH FAILED")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"type":    models.NoticeError,
				"error":   "forbidden",
				"message": "Administrator access required",
				"code":    "ADMIN_REQUIRED",
			})
			return
		}

		c.Set("user_id", AdminPrincipal)
		setRequestContext(c, AdminPrincipal)
		c.Next()
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
)

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err):
		return http.StatusConflict
	case domain.IsPolicy(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondNotice writes the outcome recorded on rc, plus data on success
func respondNotice(c *gin.Context, rc *models.RequestContext, err error, successStatus int, data gin.H) {
	notice := rc.Outcome
	if notice == nil {
		notice = &models.Notice{Type: models.NoticeError, Message: "Something went wrong. Please try again."}
		if err == nil {
			notice = &models.Notice{Type: models.NoticeSuccess, Message: "OK"}
		}
	}

	body := gin.H{
		"type":      notice.Type,
		"message":   notice.Message,
		"return_to": notice.ReturnTo,
	}
	if err != nil {
		c.JSON(statusFor(err), body)
		return
	}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(successStatus, body)
}

// respondError writes a single error notice for read endpoints
func respondError(c *gin.Context, err error, message string, returnTo models.ReturnTo) {
	c.JSON(statusFor(err), gin.H{
		"type":      models.NoticeError,
		"message":   message,
		"return_to": returnTo,
	})
}

// badRequest is used when the body cannot be decoded at all
func badRequest(c *gin.Context, message string, returnTo models.ReturnTo) {
	c.JSON(http.StatusBadRequest, gin.H{
		"type":      models.NoticeError,
		"message":   message,
		"return_to": returnTo,
	})
}

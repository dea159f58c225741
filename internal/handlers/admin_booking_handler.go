package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ethiobus/booking-backend/internal/middleware"
	"github.com/ethiobus/booking-backend/internal/models"
	"github.com/ethiobus/booking-backend/internal/services"
)

// AdminBookingHandler serves the administrative booking screens
type AdminBookingHandler struct {
	lifecycle *services.LifecycleService
}

// NewAdminBookingHandler creates a new AdminBookingHandler
func NewAdminBookingHandler(lifecycle *services.LifecycleService) *AdminBookingHandler {
	return &AdminBookingHandler{lifecycle: lifecycle}
}

// ListBookings lists booking groups filtered by status, travel date and free text
// @Router /api/v1/admin/bookings [get]
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	returnTo := models.ReturnTo{View: models.ViewAdminBookings}

	filter := models.BookingFilter{Search: strings.TrimSpace(c.Query("search"))}
	if status := c.Query("status"); status != "" {
		filter.Status = models.BookingStatus(status)
		if !filter.Status.IsValid() {
			badRequest(c, "Status must be one of: confirmed cancelled completed", returnTo)
			return
		}
	}
	if date := c.Query("date"); date != "" {
		parsed, err := time.Parse(models.DateLayout, date)
		if err != nil {
			badRequest(c, "Date must be formatted as YYYY-MM-DD", returnTo)
			return
		}
		filter.TravelDate = &parsed
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			badRequest(c, "Limit must be a positive number", returnTo)
			return
		}
		filter.Limit = n
	}

	bookings, err := h.lifecycle.AdminList(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, services.NoticeMessage(err, "Bookings could not be loaded. Please try again."), returnTo)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// UpdateBookingStatus applies an administrative status change to a whole group
// @Router /api/v1/admin/bookings/{reference}/status [put]
func (h *AdminBookingHandler) UpdateBookingStatus(c *gin.Context) {
	rc := middleware.RequestContext(c)
	reference := c.Param("reference")

	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid status request", models.ReturnTo{View: models.ViewAdminBookings, Reference: reference})
		return
	}

	group, err := h.lifecycle.AdminSetStatus(c.Request.Context(), rc, reference, req)
	if err != nil {
		respondNotice(c, rc, err, 0, nil)
		return
	}

	respondNotice(c, rc, nil, http.StatusOK, gin.H{
		"booking_reference": group.Reference,
		"booking_status":    group.BookingStatus,
	})
}

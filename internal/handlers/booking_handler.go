package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ethiobus/booking-backend/internal/middleware"
	"github.com/ethiobus/booking-backend/internal/models"
	"github.com/ethiobus/booking-backend/internal/services"
)

// BookingHandler handles the passenger booking operations
type BookingHandler struct {
	reservations *services.ReservationService
	lifecycle    *services.LifecycleService
	tickets      *services.TicketService
	logger       *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(
	reservations *services.ReservationService,
	lifecycle *services.LifecycleService,
	tickets *services.TicketService,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		reservations: reservations,
		lifecycle:    lifecycle,
		tickets:      tickets,
		logger:       logger,
	}
}

// CreateBooking reserves one or more seats under a single reference
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	rc := middleware.RequestContext(c)

	var req models.CreateReservationRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid booking request", models.ReturnTo{View: models.ViewSeatSelection})
		return
	}

	group, err := h.reservations.Reserve(c.Request.Context(), rc, req)
	if err != nil {
		respondNotice(c, rc, err, 0, nil)
		return
	}

	respondNotice(c, rc, nil, http.StatusCreated, gin.H{
		"booking_reference": group.Reference,
		"seats":             group.SeatNumbers(),
		"total_amount":      group.TotalAmount(),
		"payment_status":    group.PaymentStatus,
		"booking_status":    group.BookingStatus,
	})
}

// ListMyBookings lists the caller's booking groups
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	rc := middleware.RequestContext(c)

	bookings, err := h.lifecycle.ListMine(c.Request.Context(), rc)
	if err != nil {
		respondError(c, err, services.NoticeMessage(err, "Bookings could not be loaded. Please try again."),
			models.ReturnTo{View: models.ViewMyBookings})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GetBooking returns one of the caller's booking groups with the payment options
// @Router /api/v1/bookings/{reference} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	rc := middleware.RequestContext(c)

	group, summary, err := h.lifecycle.GetMine(c.Request.Context(), rc, c.Param("reference"))
	if err != nil {
		respondError(c, err, services.NoticeMessage(err, "Booking could not be loaded. Please try again."),
			models.ReturnTo{View: models.ViewMyBookings})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking":         summary,
		"seats":           group.Bookings,
		"payment_methods": models.PaymentMethods,
	})
}

// PayBooking records a self-reported payment
// @Router /api/v1/bookings/{reference}/pay [post]
func (h *BookingHandler) PayBooking(c *gin.Context) {
	rc := middleware.RequestContext(c)
	reference := c.Param("reference")

	var req models.PaymentRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid payment request", models.ReturnTo{View: models.ViewPayment, Reference: reference})
		return
	}

	group, err := h.lifecycle.MarkPaid(c.Request.Context(), rc, reference, req)
	if err != nil {
		respondNotice(c, rc, err, 0, nil)
		return
	}

	respondNotice(c, rc, nil, http.StatusOK, gin.H{
		"booking_reference": group.Reference,
		"payment_status":    group.PaymentStatus,
		"booking_status":    group.BookingStatus,
		"total_amount":      group.TotalAmount(),
	})
}

// CancelBooking cancels the caller's booking group when the cancellation window allows it
// @Router /api/v1/bookings/{reference}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	rc := middleware.RequestContext(c)

	group, err := h.lifecycle.Cancel(c.Request.Context(), rc, c.Param("reference"))
	if err != nil {
		respondNotice(c, rc, err, 0, nil)
		return
	}

	respondNotice(c, rc, nil, http.StatusOK, gin.H{
		"booking_reference": group.Reference,
		"booking_status":    group.BookingStatus,
		"seats":             group.SeatNumbers(),
	})
}

// DownloadTicket streams the PDF ticket of a booking group
// @Router /api/v1/bookings/{reference}/ticket [get]
func (h *BookingHandler) DownloadTicket(c *gin.Context) {
	rc := middleware.RequestContext(c)
	returnTo := models.ReturnTo{View: models.ViewMyBookings, Reference: c.Param("reference")}

	group, _, err := h.lifecycle.GetMine(c.Request.Context(), rc, c.Param("reference"))
	if err != nil {
		respondError(c, err, services.NoticeMessage(err, "Ticket could not be generated. Please try again."), returnTo)
		return
	}

	pdf, filename, err := h.tickets.Render(group)
	if err != nil {
		h.logger.WithError(err).WithField("reference", group.Reference).Warn("Ticket rendering failed")
		respondError(c, err, services.NoticeMessage(err, "Ticket could not be generated. Please try again."), returnTo)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
	"github.com/ethiobus/booking-backend/internal/services"
)

// BusHandler serves the public search and seat map screens
type BusHandler struct {
	availability *services.AvailabilityService
}

// NewBusHandler creates a new BusHandler
func NewBusHandler(availability *services.AvailabilityService) *BusHandler {
	return &BusHandler{availability: availability}
}

// SearchBuses lists active buses for a route and date with their free seat counts
// @Router /api/v1/buses/search [get]
func (h *BusHandler) SearchBuses(c *gin.Context) {
	results, err := h.availability.Search(
		c.Request.Context(),
		c.Query("origin"),
		c.Query("destination"),
		c.Query("date"),
	)
	if err != nil {
		respondError(c, err, services.NoticeMessage(err, "Search failed. Please try again."),
			models.ReturnTo{View: "search"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"buses": results,
		"count": len(results),
	})
}

// GetSeatMap returns every seat of a bus with its occupied flag for the date
// @Router /api/v1/buses/{id}/seats [get]
func (h *BusHandler) GetSeatMap(c *gin.Context) {
	busID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || busID <= 0 {
		err := domain.NotFoundError{Resource: "bus", Msg: "Bus not found or inactive"}
		respondError(c, err, err.Error(), models.ReturnTo{View: "search"})
		return
	}

	date := c.Query("date")
	bus, availability, err := h.availability.SeatMap(c.Request.Context(), busID, date)
	if err != nil {
		respondError(c, err, services.NoticeMessage(err, "Seat map could not be loaded. Please try again."),
			models.ReturnTo{View: "search", BusID: busID, TravelDate: date})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bus":          bus,
		"availability": availability,
	})
}

// ListPaymentMethods returns the payment labels offered to passengers
// @Router /api/v1/payment-methods [get]
func (h *BusHandler) ListPaymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"payment_methods": models.PaymentMethods})
}

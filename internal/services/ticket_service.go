package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
)

const qrImageSize = 256

// TicketService renders the printable PDF ticket of a booking group
type TicketService struct {
	currency string
	now      Clock
}

// NewTicketService creates a new ticket service
func NewTicketService(currency string, now Clock) *TicketService {
	if now == nil {
		now = time.Now
	}
	return &TicketService{currency: currency, now: now}
}

// Render builds the PDF and its download file name. Cancelled groups have no ticket.
func (s *TicketService) Render(g *models.BookingGroup) ([]byte, string, error) {
	if g.BookingStatus == models.BookingStatusCancelled {
		return nil, "", domain.PolicyError{Reason: "Cancelled bookings have no ticket"}
	}

	qrPNG, err := qrcode.Encode(g.Reference, qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode ticket QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bus Ticket "+g.Reference, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range s.ticketLines(g) {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 45, 45, false, opts, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please arrive at the station 30 minutes before departure and show this ticket when boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render ticket: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("ticket_%s.pdf", g.Reference), nil
}

func (s *TicketService) ticketLines(g *models.BookingGroup) []string {
	route, busLabel, departure := "-", "-", "-"
	if g.Bus != nil {
		route = fmt.Sprintf("%s -> %s", g.Bus.Origin, g.Bus.Destination)
		busLabel = fmt.Sprintf("%s (%s)", g.Bus.BusName, g.Bus.BusNumber)
		departure = clockHM(g.Bus.DepartureTime)
	}

	return []string{
		fmt.Sprintf("Reference      : %s", g.Reference),
		fmt.Sprintf("Passenger      : %s", g.PassengerName),
		fmt.Sprintf("Phone          : %s", g.PassengerPhone),
		fmt.Sprintf("Route          : %s", route),
		fmt.Sprintf("Bus            : %s", busLabel),
		fmt.Sprintf("Travel date    : %s", g.TravelDate.Format("Mon, Jan 2, 2006")),
		fmt.Sprintf("Departure      : %s", departure),
		fmt.Sprintf("Seats          : %s", strings.Join(g.SeatNumbers(), ", ")),
		fmt.Sprintf("Total          : %s %s", FormatAmount(g.TotalAmount()), s.currency),
		fmt.Sprintf("Payment        : %s", paymentLabel(g)),
		fmt.Sprintf("Status         : %s", g.BookingStatus),
		fmt.Sprintf("Printed        : %s", s.now().Format("2006-01-02 15:04")),
	}
}

func paymentLabel(g *models.BookingGroup) string {
	if g.PaymentStatus != models.PaymentStatusPaid {
		return "pending"
	}
	if g.PaymentMethod != nil && *g.PaymentMethod != "" {
		return "paid (" + *g.PaymentMethod + ")"
	}
	return "paid"
}

func clockHM(value string) string {
	h, m, _, err := models.ParseClock(value)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

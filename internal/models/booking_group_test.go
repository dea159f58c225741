package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus() *Bus {
	return &Bus{
		ID:            7,
		BusName:       "Selam Bus",
		BusNumber:     "AA-3-12345",
		TotalSeats:    45,
		Origin:        "Addis Ababa",
		Destination:   "Bahir Dar",
		DepartureTime: "08:00:00",
		PriceBirr:     500,
		Status:        BusStatusActive,
	}
}

func testSeats(numbers ...string) []Seat {
	seats := make([]Seat, 0, len(numbers))
	for i, n := range numbers {
		seats = append(seats, Seat{ID: int64(100 + i), BusID: 7, SeatNumber: n})
	}
	return seats
}

func newTestGroup(t *testing.T, numbers ...string) *BookingGroup {
	t.Helper()
	date := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	g, err := NewBookingGroup("ETH20261017-0000000001ABCD", "user-a", testBus(), testSeats(numbers...), date,
		"Abebe Kebede", "+251911223344", time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return g
}

func TestNewBookingGroup(t *testing.T) {
	t.Run("Builds One Row Per Seat", func(t *testing.T) {
		g := newTestGroup(t, "10", "3", "4")

		assert.Equal(t, 3, g.Size())
		assert.Equal(t, []string{"3", "4", "10"}, g.SeatNumbers())
		assert.Equal(t, 1500.0, g.TotalAmount())
		assert.Equal(t, PaymentStatusPending, g.PaymentStatus)
		assert.Equal(t, BookingStatusConfirmed, g.BookingStatus)
		for _, b := range g.Bookings {
			assert.Equal(t, g.Reference, b.Reference)
			assert.Equal(t, 500.0, b.Amount)
			assert.Equal(t, PaymentStatusPending, b.PaymentStatus)
			assert.Equal(t, BookingStatusConfirmed, b.BookingStatus)
		}
	})

	t.Run("Rejects Empty Seat List", func(t *testing.T) {
		_, err := NewBookingGroup("REF", "user-a", testBus(), nil, time.Now(), "A", "B", time.Now())
		assert.ErrorIs(t, err, ErrEmptyGroup)
	})
}

func TestBookingGroup_MarkPaid(t *testing.T) {
	g := newTestGroup(t, "3", "4")
	at := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	require.NoError(t, g.MarkPaid("CBE", "TX1", at))

	assert.Equal(t, PaymentStatusPaid, g.PaymentStatus)
	assert.Equal(t, BookingStatusConfirmed, g.BookingStatus)
	assert.False(t, g.CanPay())
	for _, b := range g.Bookings {
		assert.Equal(t, PaymentStatusPaid, b.PaymentStatus)
		require.NotNil(t, b.PaymentMethod)
		assert.Equal(t, "CBE", *b.PaymentMethod)
		require.NotNil(t, b.TransactionID)
		assert.Equal(t, "TX1", *b.TransactionID)
		require.NotNil(t, b.PaidAt)
		assert.True(t, at.Equal(*b.PaidAt))
	}

	assert.ErrorIs(t, g.MarkPaid("CBE", "TX2", at), ErrAlreadyPaid)
}

func TestBookingGroup_MarkPaidCancelled(t *testing.T) {
	g := newTestGroup(t, "3")
	require.NoError(t, g.Cancel(time.Now()))

	assert.False(t, g.CanPay())
	assert.ErrorIs(t, g.MarkPaid("CBE", "TX1", time.Now()), ErrGroupCancelled)
	assert.Equal(t, PaymentStatusPending, g.Bookings[0].PaymentStatus)
}

func TestBookingGroup_Cancel(t *testing.T) {
	g := newTestGroup(t, "3", "4")
	at := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)

	require.NoError(t, g.Cancel(at))
	assert.False(t, g.IsActive())
	for _, b := range g.Bookings {
		assert.Equal(t, BookingStatusCancelled, b.BookingStatus)
		require.NotNil(t, b.CancelledAt)
		assert.True(t, at.Equal(*b.CancelledAt))
	}

	assert.ErrorIs(t, g.Cancel(at), ErrNotConfirmed)
}

func TestBookingGroup_SetStatus(t *testing.T) {
	g := newTestGroup(t, "3", "4")
	at := time.Now()

	require.NoError(t, g.SetStatus(BookingStatusCancelled, at))
	require.NoError(t, g.SetStatus(BookingStatusConfirmed, at))
	for _, b := range g.Bookings {
		assert.Equal(t, BookingStatusConfirmed, b.BookingStatus)
		assert.Nil(t, b.CancelledAt)
	}

	require.NoError(t, g.SetStatus(BookingStatusCompleted, at))
	assert.Equal(t, BookingStatusCompleted, g.BookingStatus)

	assert.ErrorIs(t, g.SetStatus("refunded", at), ErrInvalidBookingStatus)
	assert.Equal(t, BookingStatusCompleted, g.BookingStatus)
}

func TestGroupFromRows(t *testing.T) {
	t.Run("Consistent Rows", func(t *testing.T) {
		g := newTestGroup(t, "4", "3")
		rebuilt, err := GroupFromRows(g.Bookings)
		require.NoError(t, err)
		assert.Equal(t, g.Reference, rebuilt.Reference)
		assert.Equal(t, []string{"3", "4"}, rebuilt.SeatNumbers())
		assert.Equal(t, 1000.0, rebuilt.TotalAmount())
	})

	t.Run("Rows That Disagree", func(t *testing.T) {
		g := newTestGroup(t, "3", "4")
		rows := append([]Booking(nil), g.Bookings...)
		rows[1].BookingStatus = BookingStatusCancelled

		_, err := GroupFromRows(rows)
		assert.ErrorIs(t, err, ErrGroupInconsistent)
	})

	t.Run("No Rows", func(t *testing.T) {
		_, err := GroupFromRows(nil)
		assert.ErrorIs(t, err, ErrEmptyGroup)
	})
}

func TestGroupRows(t *testing.T) {
	a := newTestGroup(t, "1", "2")
	b := newTestGroup(t, "5")
	b.Reference = "ETH20261017-0000000002ABCD"
	for i := range b.Bookings {
		b.Bookings[i].Reference = b.Reference
	}

	rows := []Booking{b.Bookings[0], a.Bookings[0], a.Bookings[1]}
	groups, err := GroupRows(rows)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, b.Reference, groups[0].Reference)
	assert.Equal(t, a.Reference, groups[1].Reference)
	assert.Equal(t, 2, groups[1].Size())
}

func TestSortSeatNumbers(t *testing.T) {
	numbers := []string{"10", "2", "A1", "1"}
	SortSeatNumbers(numbers)
	assert.Equal(t, []string{"1", "2", "10", "A1"}, numbers)
}

func TestBus_DepartureOn(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	bus := testBus()

	departure, err := bus.DepartureOn(time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC), loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 20, 8, 0, 0, 0, loc), departure)

	bus.DepartureTime = "late"
	_, err = bus.DepartureOn(time.Now(), loc)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	g := newTestGroup(t, "3", "4")
	s := Summarize(g, testBus())

	assert.Equal(t, g.Reference, s.Reference)
	assert.Equal(t, "Selam Bus", s.BusName)
	assert.Equal(t, "2026-11-20", s.TravelDate)
	assert.Equal(t, 2, s.SeatCount)
	assert.Equal(t, 1000.0, s.TotalAmount)
	assert.True(t, s.CanPay)
	assert.False(t, s.CanCancel)
}

func TestRequestContext(t *testing.T) {
	var nilCtx *RequestContext
	assert.False(t, nilCtx.Authenticated())

	rc := &RequestContext{PrincipalID: "user-a"}
	assert.True(t, rc.Authenticated())

	rc.Fail("nope", ReturnTo{View: ViewSeatSelection, BusID: 7})
	require.NotNil(t, rc.Outcome)
	assert.Equal(t, NoticeError, rc.Outcome.Type)
	assert.Equal(t, int64(7), rc.Outcome.ReturnTo.BusID)

	rc.Succeed("ok", ReturnTo{View: ViewMyBookings})
	assert.Equal(t, NoticeSuccess, rc.Outcome.Type)
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
)

func payment(method, tx string) models.PaymentRequest {
	return models.PaymentRequest{PaymentMethod: method, TransactionID: tx}
}

func TestBookingLifecycle_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	availability, err := env.availability.Availability(ctx, testBusID, time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 45, availability.AvailableCount)

	// user A reserves seats 3 and 4
	g := env.reserve(t, "user-a", "3,4")
	assert.Equal(t, 1000.0, g.TotalAmount())

	_, seatMap, err := env.availability.SeatMap(ctx, testBusID, testTravelDate)
	require.NoError(t, err)
	assert.Equal(t, 43, seatMap.AvailableCount)
	assert.Equal(t, []string{"3", "4"}, seatMap.OccupiedSeats)

	// user B cannot take seat 3
	_, err = env.reservations.Reserve(ctx, userCtx("user-b"), reservation("3"))
	require.True(t, domain.IsConflict(err))

	// user A pays
	rc := userCtx("user-a")
	paid, err := env.lifecycle.MarkPaid(ctx, rc, g.Reference, payment("CBE", "TX1"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, models.BookingStatusConfirmed, paid.BookingStatus)
	assert.Equal(t, "Payment successful! Your booking is now confirmed.", rc.Outcome.Message)
	for _, row := range env.store.Rows() {
		assert.Equal(t, models.PaymentStatusPaid, row.PaymentStatus)
		require.NotNil(t, row.TransactionID)
		assert.Equal(t, "TX1", *row.TransactionID)
	}

	// user A cancels well ahead of departure
	rc = userCtx("user-a")
	cancelled, err := env.lifecycle.Cancel(ctx, rc, g.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.BookingStatus)
	assert.Equal(t, "Booking cancelled successfully. Refund will be processed within 3-5 business days.", rc.Outcome.Message)
	for _, row := range env.store.Rows() {
		assert.Equal(t, models.BookingStatusCancelled, row.BookingStatus)
		assert.NotNil(t, row.CancelledAt)
	}

	// the seats are free again
	_, seatMap, err = env.availability.SeatMap(ctx, testBusID, testTravelDate)
	require.NoError(t, err)
	assert.Equal(t, 45, seatMap.AvailableCount)
	assert.Empty(t, seatMap.OccupiedSeats)

	_, err = env.reservations.Reserve(ctx, userCtx("user-b"), reservation("3"))
	assert.NoError(t, err)
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("Already Paid", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")
		_, err := env.lifecycle.MarkPaid(ctx, userCtx("user-a"), g.Reference, payment("CBE", "TX1"))
		require.NoError(t, err)

		rc := userCtx("user-a")
		_, err = env.lifecycle.MarkPaid(ctx, rc, g.Reference, payment("CBE", "TX2"))
		require.True(t, domain.IsNotFound(err))
		assert.Equal(t, "Booking not found or already paid", rc.Outcome.Message)
		assert.Equal(t, "TX1", *env.store.Rows()[0].TransactionID)
	})

	t.Run("Someone Elses Booking", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")

		_, err := env.lifecycle.MarkPaid(ctx, userCtx("user-b"), g.Reference, payment("CBE", "TX1"))
		require.True(t, domain.IsNotFound(err))
		assert.Equal(t, models.PaymentStatusPending, env.store.Rows()[0].PaymentStatus)
	})

	t.Run("Cancelled Booking", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")
		_, err := env.lifecycle.Cancel(ctx, userCtx("user-a"), g.Reference)
		require.NoError(t, err)

		rc := userCtx("user-a")
		_, err = env.lifecycle.MarkPaid(ctx, rc, g.Reference, payment("CBE", "TX1"))
		require.True(t, domain.IsPolicy(err))
		assert.Equal(t, "Cannot pay for a cancelled booking", rc.Outcome.Message)
	})

	t.Run("Missing Fields", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")

		rc := userCtx("user-a")
		_, err := env.lifecycle.MarkPaid(ctx, rc, g.Reference, payment("  ", ""))
		var validation domain.ValidationError
		require.True(t, errors.As(err, &validation))
		assert.Len(t, validation.Violations, 2)
		assert.Equal(t, models.ViewPayment, rc.Outcome.ReturnTo.View)
		assert.Equal(t, g.Reference, rc.Outcome.ReturnTo.Reference)
	})

	t.Run("Any Method Label Accepted", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")

		paid, err := env.lifecycle.MarkPaid(ctx, userCtx("user-a"), g.Reference, payment("Telebirr", "TB-998877"))
		require.NoError(t, err)
		assert.Equal(t, "Telebirr", *paid.PaymentMethod)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("Inside Window", func(t *testing.T) {
		env := newTestEnv(t)
		req := reservation("3")
		req.TravelDate = "2026-10-18" // departs 08:00 tomorrow, 23 hours away
		g, err := env.reservations.Reserve(ctx, userCtx("user-a"), req)
		require.NoError(t, err)

		rc := userCtx("user-a")
		_, err = env.lifecycle.Cancel(ctx, rc, g.Reference)
		require.True(t, domain.IsPolicy(err))
		assert.Equal(t, "Cannot cancel bookings less than 24 hours before departure", rc.Outcome.Message)
		assert.Equal(t, models.BookingStatusConfirmed, env.store.Rows()[0].BookingStatus)
	})

	t.Run("Twice", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3,4")
		_, err := env.lifecycle.Cancel(ctx, userCtx("user-a"), g.Reference)
		require.NoError(t, err)

		rc := userCtx("user-a")
		_, err = env.lifecycle.Cancel(ctx, rc, g.Reference)
		require.True(t, domain.IsNotFound(err))
		assert.Equal(t, "Booking not found or already cancelled", rc.Outcome.Message)
	})

	t.Run("Completed", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")
		_, err := env.lifecycle.AdminSetStatus(ctx, userCtx("admin"), g.Reference,
			models.UpdateBookingStatusRequest{Status: models.BookingStatusCompleted})
		require.NoError(t, err)

		rc := userCtx("user-a")
		_, err = env.lifecycle.Cancel(ctx, rc, g.Reference)
		require.True(t, domain.IsPolicy(err))
		assert.Equal(t, "Completed bookings cannot be cancelled", rc.Outcome.Message)
	})

	t.Run("Not Owner", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")

		_, err := env.lifecycle.Cancel(ctx, userCtx("user-b"), g.Reference)
		require.True(t, domain.IsNotFound(err))
		assert.Equal(t, models.BookingStatusConfirmed, env.store.Rows()[0].BookingStatus)
	})

	t.Run("Invalidates Seat Map", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")
		_, _, err := env.availability.SeatMap(ctx, testBusID, testTravelDate)
		require.NoError(t, err)
		require.True(t, env.cache.Has(testBusID, testTravelDate))

		_, err = env.lifecycle.Cancel(ctx, userCtx("user-a"), g.Reference)
		require.NoError(t, err)
		assert.False(t, env.cache.Has(testBusID, testTravelDate))
	})
}

func TestAdminSetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Moves Whole Group", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3,4,5")

		rc := userCtx("admin")
		updated, err := env.lifecycle.AdminSetStatus(ctx, rc, g.Reference,
			models.UpdateBookingStatusRequest{Status: models.BookingStatusCancelled})
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, updated.BookingStatus)
		assert.Equal(t, "Booking status updated successfully!", rc.Outcome.Message)
		for _, row := range env.store.Rows() {
			assert.Equal(t, models.BookingStatusCancelled, row.BookingStatus)
		}
	})

	t.Run("Bypasses Cancellation Window", func(t *testing.T) {
		env := newTestEnv(t)
		req := reservation("3")
		req.TravelDate = "2026-10-18"
		g, err := env.reservations.Reserve(ctx, userCtx("user-a"), req)
		require.NoError(t, err)

		_, err = env.lifecycle.AdminSetStatus(ctx, userCtx("admin"), g.Reference,
			models.UpdateBookingStatusRequest{Status: models.BookingStatusCancelled})
		assert.NoError(t, err)
	})

	t.Run("Reactivation Conflicts With New Owner", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3,4")
		_, err := env.lifecycle.Cancel(ctx, userCtx("user-a"), g.Reference)
		require.NoError(t, err)
		env.reserve(t, "user-b", "4")

		rc := userCtx("admin")
		_, err = env.lifecycle.AdminSetStatus(ctx, rc, g.Reference,
			models.UpdateBookingStatusRequest{Status: models.BookingStatusConfirmed})
		var conflict domain.ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, []string{"4"}, conflict.Seats)
		assert.Equal(t, models.NoticeError, rc.Outcome.Type)
	})

	t.Run("Reactivation Of Free Seats", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3,4")
		_, err := env.lifecycle.Cancel(ctx, userCtx("user-a"), g.Reference)
		require.NoError(t, err)

		updated, err := env.lifecycle.AdminSetStatus(ctx, userCtx("admin"), g.Reference,
			models.UpdateBookingStatusRequest{Status: models.BookingStatusConfirmed})
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, updated.BookingStatus)
		for _, row := range env.store.Rows() {
			assert.Nil(t, row.CancelledAt)
		}
	})

	t.Run("Same Status Is A No-op", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")

		rc := userCtx("admin")
		_, err := env.lifecycle.AdminSetStatus(ctx, rc, g.Reference,
			models.UpdateBookingStatusRequest{Status: models.BookingStatusConfirmed})
		require.NoError(t, err)
		assert.Equal(t, models.NoticeSuccess, rc.Outcome.Type)
	})

	t.Run("Unknown Status", func(t *testing.T) {
		env := newTestEnv(t)
		g := env.reserve(t, "user-a", "3")

		_, err := env.lifecycle.AdminSetStatus(ctx, userCtx("admin"), g.Reference,
			models.UpdateBookingStatusRequest{Status: "refunded"})
		var validation domain.ValidationError
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, []string{"Status must be one of: confirmed cancelled completed"}, validation.Violations)
	})

	t.Run("Unknown Reference", func(t *testing.T) {
		env := newTestEnv(t)

		rc := userCtx("admin")
		_, err := env.lifecycle.AdminSetStatus(ctx, rc, "ETH20261017-NOPE",
			models.UpdateBookingStatusRequest{Status: models.BookingStatusCancelled})
		require.True(t, domain.IsNotFound(err))
		assert.Equal(t, "Booking not found", rc.Outcome.Message)
	})
}

func TestListMine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	soon := reservation("10")
	soon.TravelDate = "2026-10-18"
	_, err := env.reservations.Reserve(ctx, userCtx("user-a"), soon)
	require.NoError(t, err)
	later := env.reserve(t, "user-a", "3,4")
	env.reserve(t, "user-b", "5")

	summaries, err := env.lifecycle.ListMine(ctx, userCtx("user-a"))
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// newest travel date first
	assert.Equal(t, later.Reference, summaries[0].Reference)
	assert.Equal(t, "2026-11-20", summaries[0].TravelDate)
	assert.Equal(t, []string{"3", "4"}, summaries[0].Seats)
	assert.Equal(t, 1000.0, summaries[0].TotalAmount)
	assert.Equal(t, "Selam Bus", summaries[0].BusName)
	assert.True(t, summaries[0].CanCancel)
	assert.True(t, summaries[0].CanPay)

	assert.Equal(t, "2026-10-18", summaries[1].TravelDate)
	assert.False(t, summaries[1].CanCancel)

	_, err = env.lifecycle.ListMine(ctx, userCtx(""))
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestGetMine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.reserve(t, "user-a", "3")

	group, summary, err := env.lifecycle.GetMine(ctx, userCtx("user-a"), g.Reference)
	require.NoError(t, err)
	require.NotNil(t, group.Bus)
	assert.Equal(t, "Bahir Dar", group.Bus.Destination)
	assert.Equal(t, g.Reference, summary.Reference)

	_, _, err = env.lifecycle.GetMine(ctx, userCtx("user-b"), g.Reference)
	assert.True(t, domain.IsNotFound(err))
}

func TestAdminList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.reserve(t, "user-a", "1,2")
	b := env.reserve(t, "user-b", "3")
	_, err := env.lifecycle.Cancel(ctx, userCtx("user-b"), b.Reference)
	require.NoError(t, err)

	all, err := env.lifecycle.AdminList(ctx, models.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cancelled, err := env.lifecycle.AdminList(ctx, models.BookingFilter{Status: models.BookingStatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, b.Reference, cancelled[0].Reference)
	assert.False(t, cancelled[0].CanPay)

	byRef, err := env.lifecycle.AdminList(ctx, models.BookingFilter{Search: a.Reference})
	require.NoError(t, err)
	require.Len(t, byRef, 1)
	assert.Equal(t, 2, byRef[0].SeatCount)

	otherDay := time.Date(2026, 11, 21, 0, 0, 0, 0, time.UTC)
	none, err := env.lifecycle.AdminList(ctx, models.BookingFilter{TravelDate: &otherDay})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCompleteDeparted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	g := env.reserve(t, "user-a", "3,4")
	other := env.reserve(t, "user-b", "5")
	_, err := env.lifecycle.Cancel(ctx, userCtx("user-b"), other.Reference)
	require.NoError(t, err)

	n, err := env.lifecycle.CompleteDeparted(ctx, 12*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	// departure was 08:00 on the 20th; 12 hours later is 20:00
	env.clock.Set(time.Date(2026, 11, 20, 20, 30, 0, 0, eat))
	n, err = env.lifecycle.CompleteDeparted(ctx, 12*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	completed, err := env.store.GetGroup(ctx, g.Reference, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, completed.BookingStatus)

	cancelled, err := env.store.GetGroup(ctx, other.Reference, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.BookingStatus)
	assert.Equal(t, AuditActionAutoComplete, env.auditor.last().Action)
}

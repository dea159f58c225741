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

func TestSeatMap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.reserve(t, "user-a", "10,2")

	bus, seatMap, err := env.availability.SeatMap(ctx, testBusID, testTravelDate)
	require.NoError(t, err)
	assert.Equal(t, "Selam Bus", bus.BusName)
	assert.Equal(t, testTravelDate, seatMap.TravelDate)
	assert.Equal(t, 45, seatMap.TotalSeats)
	assert.Equal(t, 43, seatMap.AvailableCount)
	assert.Equal(t, []string{"2", "10"}, seatMap.OccupiedSeats)
	require.Len(t, seatMap.Seats, 45)
	assert.True(t, seatMap.Seats[1].Occupied)
	assert.False(t, seatMap.Seats[2].Occupied)
	assert.True(t, seatMap.IsOccupied("10"))
	assert.False(t, seatMap.IsFull())
}

func TestSeatMap_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.availability.SeatMap(ctx, testBusID, "2026-01-01")
	assert.True(t, domain.IsValidation(err))

	_, _, err = env.availability.SeatMap(ctx, 404, testTravelDate)
	assert.True(t, domain.IsNotFound(err))

	env.catalog.SetStatus(testBusID, models.BusStatusInactive)
	_, _, err = env.availability.SeatMap(ctx, testBusID, testTravelDate)
	require.True(t, domain.IsNotFound(err))
	assert.Equal(t, "Bus not found or inactive", err.Error())
}

func TestAvailability_UsesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	date := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)

	_, err := env.availability.Availability(ctx, testBusID, date)
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.Misses)

	_, err = env.availability.Availability(ctx, testBusID, date)
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.Hits)

	// a reservation drops the cached entry
	env.reserve(t, "user-a", "1")
	a, err := env.availability.Availability(ctx, testBusID, date)
	require.NoError(t, err)
	assert.Equal(t, 44, a.AvailableCount)
	assert.Equal(t, 2, env.cache.Misses)
}

func TestAvailability_StaleWriteIsNotServed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	date := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	g := env.reserve(t, "user-a", "1")

	// the cancellation commits between the database read and the cache write
	env.cache.BeforeSet = func() {
		_, err := env.lifecycle.Cancel(ctx, userCtx("user-a"), g.Reference)
		assert.NoError(t, err)
	}

	a, err := env.availability.Availability(ctx, testBusID, date)
	require.NoError(t, err)
	assert.Equal(t, 44, a.AvailableCount)
	assert.False(t, env.cache.Has(testBusID, testTravelDate))

	a, err = env.availability.Availability(ctx, testBusID, date)
	require.NoError(t, err)
	assert.Equal(t, 45, a.AvailableCount)
	assert.Empty(t, a.OccupiedSeats)
	assert.Equal(t, 0, env.cache.Hits)
}

func TestAvailability_CacheFailureFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.reserve(t, "user-a", "1")
	env.cache.FailWith = errors.New("redis: connection refused")

	a, err := env.availability.Availability(context.Background(), testBusID, time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 44, a.AvailableCount)

	// the failed invalidation does not fail the reservation either
	env.reserve(t, "user-a", "2")
}

func TestAvailability_WithoutCache(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAvailabilityService(env.catalog, env.store, nil, quietLogger(), eat, env.clock.Now)
	env.reserve(t, "user-a", "1,2,3")

	a, err := svc.Availability(context.Background(), testBusID, time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 42, a.AvailableCount)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.catalog.AddBus(models.Bus{
		ID: 2, BusName: "Sky Bus", BusNumber: "AA-3-99999", TotalSeats: 30,
		Origin: "Addis Ababa", Destination: "Bahir Dar", DepartureTime: "06:30:00",
		PriceBirr: 650, Status: models.BusStatusActive,
	})
	env.catalog.AddBus(models.Bus{
		ID: 3, BusName: "Retired", TotalSeats: 30,
		Origin: "Addis Ababa", Destination: "Bahir Dar", DepartureTime: "07:00:00",
		Status: models.BusStatusInactive,
	})
	env.reserve(t, "user-a", "1,2")

	results, err := env.availability.Search(ctx, "addis ababa", " Bahir Dar ", testTravelDate)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].ID)
	assert.Equal(t, 30, results[0].AvailableSeats)
	assert.Equal(t, testBusID, results[1].ID)
	assert.Equal(t, 43, results[1].AvailableSeats)
}

func TestSearch_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.availability.Search(context.Background(), "", "", "yesterday")
	var validation domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Len(t, validation.Violations, 3)
}

package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethiobus/booking-backend/internal/models"
	"github.com/ethiobus/booking-backend/internal/testutil"
)

var eat = time.FixedZone("EAT", 3*60*60)

const (
	testBusID      int64 = 1
	testTravelDate       = "2026-11-20"
	testPhone            = "+251911223344"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []BookingAuditEvent
}

func (a *recordingAuditor) Record(_ context.Context, event BookingAuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAuditor) last() BookingAuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return BookingAuditEvent{}
	}
	return a.events[len(a.events)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	catalog      *testutil.Catalog
	store        *testutil.Store
	cache        *testutil.Cache
	auditor      *recordingAuditor
	clock        *testClock
	reservations *ReservationService
	lifecycle    *LifecycleService
	availability *AvailabilityService
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestEnv wires the services against in-memory stores. The clock starts at
// 2026-10-17 09:00 in Addis Ababa time.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog := testutil.NewCatalog()
	catalog.AddBus(models.Bus{
		ID:            testBusID,
		BusName:       "Selam Bus",
		BusNumber:     "AA-3-12345",
		BusType:       models.BusTypeStandard,
		TotalSeats:    45,
		RouteID:       1,
		Origin:        "Addis Ababa",
		Destination:   "Bahir Dar",
		DepartureTime: "08:00:00",
		ArrivalTime:   "17:00:00",
		PriceBirr:     500,
		Status:        models.BusStatusActive,
	})

	store := testutil.NewStore(catalog)
	cache := testutil.NewCache()
	auditor := &recordingAuditor{}
	clock := &testClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, eat)}
	logger := quietLogger()

	refs := NewReferenceGenerator("ETH", eat, clock.Now)
	policy := NewCancellationPolicy(24*time.Hour, eat)

	return &testEnv{
		catalog: catalog,
		store:   store,
		cache:   cache,
		auditor: auditor,
		clock:   clock,
		reservations: NewReservationService(catalog, store, refs, cache, auditor, logger,
			ReservationConfig{MaxSeats: 5, Currency: "ETB", Location: eat}, clock.Now),
		lifecycle:    NewLifecycleService(catalog, store, policy, cache, auditor, logger, clock.Now),
		availability: NewAvailabilityService(catalog, store, cache, logger, eat, clock.Now),
	}
}

func userCtx(id string) *models.RequestContext {
	return &models.RequestContext{PrincipalID: id, IPAddress: "196.188.10.1", UserAgent: "test-agent"}
}

func reservation(seats string) models.CreateReservationRequest {
	return models.CreateReservationRequest{
		BusID:          testBusID,
		TravelDate:     testTravelDate,
		PassengerName:  "Abebe Kebede",
		PassengerPhone: testPhone,
		Seats:          seats,
	}
}

func (e *testEnv) reserve(t *testing.T, user, seats string) *models.BookingGroup {
	t.Helper()
	g, err := e.reservations.Reserve(context.Background(), userCtx(user), reservation(seats))
	if err != nil {
		t.Fatalf("reserve %s for %s: %v", seats, user, err)
	}
	return g
}

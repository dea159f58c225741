// Package testutil holds in-memory stand-ins for the Postgres repositories.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethiobus/booking-backend/internal/domain"
	"github.com/ethiobus/booking-backend/internal/models"
)

// Catalog is a fixed bus and seat catalog
type Catalog struct {
	mu    sync.RWMutex
	buses map[int64]*models.Bus
	seats map[int64][]models.Seat

	// occupied is set by NewStore so Search can count free seats
	occupied func(ctx context.Context, busID int64, travelDate string) ([]string, error)
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		buses: make(map[int64]*models.Bus),
		seats: make(map[int64][]models.Seat),
	}
}

// AddBus registers a bus with seats numbered 1..bus.TotalSeats
func (c *Catalog) AddBus(bus models.Bus) *models.Bus {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := bus
	c.buses[b.ID] = &b
	seats := make([]models.Seat, 0, b.TotalSeats)
	for i := 1; i <= b.TotalSeats; i++ {
		seatType := "aisle"
		if i%4 == 1 || i%4 == 0 {
			seatType = "window"
		}
		seats = append(seats, models.Seat{
			ID:         b.ID*1000 + int64(i),
			BusID:      b.ID,
			SeatNumber: fmt.Sprintf("%d", i),
			SeatType:   seatType,
		})
	}
	c.seats[b.ID] = seats
	return &b
}

// SetStatus flips a bus between active and inactive
func (c *Catalog) SetStatus(busID int64, status models.BusStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.buses[busID]; ok {
		b.Status = status
	}
}

func (c *Catalog) GetByID(_ context.Context, busID int64) (*models.Bus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.buses[busID]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (c *Catalog) GetSeats(_ context.Context, busID int64) ([]models.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Seat(nil), c.seats[busID]...), nil
}

func (c *Catalog) GetSeatsByNumbers(_ context.Context, busID int64, numbers []string) ([]models.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	want := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	var out []models.Seat
	for _, s := range c.seats[busID] {
		if want[s.SeatNumber] {
			out = append(out, s)
		}
	}
	return out, nil
}

// Search lists active buses on the route with their free seat count for the date
func (c *Catalog) Search(ctx context.Context, origin, destination, travelDate string) ([]models.BusSearchResult, error) {
	c.mu.RLock()
	var out []models.BusSearchResult
	for _, b := range c.buses {
		if b.IsActive() &&
			strings.EqualFold(b.Origin, strings.TrimSpace(origin)) &&
			strings.EqualFold(b.Destination, strings.TrimSpace(destination)) {
			out = append(out, models.BusSearchResult{Bus: *b, AvailableSeats: b.TotalSeats})
		}
	}
	occupied := c.occupied
	c.mu.RUnlock()

	if occupied != nil {
		for i := range out {
			seats, err := occupied(ctx, out[i].ID, travelDate)
			if err != nil {
				return nil, err
			}
			out[i].AvailableSeats -= len(seats)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartureTime != out[j].DepartureTime {
			return out[i].DepartureTime < out[j].DepartureTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Store is a mutex-serialized BookingStore with the same conflict rules as the Postgres one
type Store struct {
	mu      sync.Mutex
	catalog *Catalog
	rows    []models.Booking
	nextID  int64

	// FailWith makes every call return this error when set
	FailWith error
}

// NewStore creates an empty store bound to catalog
func NewStore(catalog *Catalog) *Store {
	s := &Store{catalog: catalog}
	catalog.mu.Lock()
	catalog.occupied = s.ActiveSeatNumbers
	catalog.mu.Unlock()
	return s
}

// Rows returns a copy of every stored row
func (s *Store) Rows() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Booking(nil), s.rows...)
}

func (s *Store) ActiveSeatNumbers(_ context.Context, busID int64, travelDate string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	var out []string
	for _, r := range s.rows {
		if r.BusID == busID && r.TravelDate.Format(models.DateLayout) == travelDate && r.IsActive() {
			out = append(out, r.SeatNumber)
		}
	}
	models.SortSeatNumbers(out)
	return out, nil
}

func (s *Store) ReferenceExists(_ context.Context, reference string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return false, s.FailWith
	}
	for _, r := range s.rows {
		if r.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateGroup(_ context.Context, g *models.BookingGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}

	if taken := s.taken(g, ""); len(taken) > 0 {
		return domain.ConflictError{Seats: taken}
	}

	for i := range g.Bookings {
		s.nextID++
		g.Bookings[i].ID = s.nextID
		s.rows = append(s.rows, g.Bookings[i])
	}
	return nil
}

func (s *Store) GetGroup(_ context.Context, reference, userID string) (*models.BookingGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	var rows []models.Booking
	for _, r := range s.rows {
		if r.Reference == reference && (userID == "" || r.UserID == userID) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return models.GroupFromRows(rows)
}

func (s *Store) ListGroupsByUser(_ context.Context, userID string) ([]*models.BookingGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	var rows []models.Booking
	for _, r := range s.rows {
		if r.UserID == userID {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].TravelDate.Equal(rows[j].TravelDate) {
			return rows[i].TravelDate.After(rows[j].TravelDate)
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return models.GroupRows(rows)
}

func (s *Store) ListGroups(_ context.Context, filter models.BookingFilter) ([]*models.BookingGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var rows []models.Booking
	for _, r := range s.rows {
		if filter.Status != "" && r.BookingStatus != filter.Status {
			continue
		}
		if filter.TravelDate != nil && r.TravelDate.Format(models.DateLayout) != filter.TravelDate.Format(models.DateLayout) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Reference), search) &&
			!strings.Contains(strings.ToLower(r.PassengerName), search) &&
			!strings.Contains(strings.ToLower(r.PassengerPhone), search) {
			continue
		}
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	groups, err := models.GroupRows(rows)
	if err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

func (s *Store) SaveGroupPayment(_ context.Context, g *models.BookingGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}

	idx := s.indexes(g.Reference)
	if len(idx) != g.Size() {
		return domain.ConflictError{Msg: "booking was changed by another request"}
	}
	for _, i := range idx {
		r := s.rows[i]
		if r.UserID != g.UserID || r.PaymentStatus != models.PaymentStatusPending || !r.IsActive() {
			return domain.ConflictError{Msg: "booking was changed by another request"}
		}
	}
	for k, i := range idx {
		s.rows[i] = s.fromGroup(g, s.rows[i], k)
	}
	return nil
}

func (s *Store) SaveGroupStatus(_ context.Context, g *models.BookingGroup, expected models.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}

	idx := s.indexes(g.Reference)
	if len(idx) != g.Size() {
		return domain.ConflictError{Msg: "booking was changed by another request"}
	}
	for _, i := range idx {
		if s.rows[i].BookingStatus != expected {
			return domain.ConflictError{Msg: "booking was changed by another request"}
		}
	}
	if expected == models.BookingStatusCancelled && g.BookingStatus != models.BookingStatusCancelled {
		if taken := s.taken(g, g.Reference); len(taken) > 0 {
			return domain.ConflictError{Seats: taken}
		}
	}
	for k, i := range idx {
		s.rows[i] = s.fromGroup(g, s.rows[i], k)
	}
	return nil
}

func (s *Store) CompleteDeparted(_ context.Context, cutoff time.Time, tz string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	// fixed zones used in tests have no tzdata entry
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = cutoff.Location()
	}

	var n int64
	for i, r := range s.rows {
		if r.BookingStatus != models.BookingStatusConfirmed {
			continue
		}
		bus, _ := s.catalog.GetByID(context.Background(), r.BusID)
		if bus == nil {
			continue
		}
		departure, err := bus.DepartureOn(r.TravelDate, loc)
		if err != nil || !departure.Before(cutoff) {
			continue
		}
		s.rows[i].BookingStatus = models.BookingStatusCompleted
		s.rows[i].UpdatedAt = cutoff
		n++
	}
	return n, nil
}

// taken lists requested seats held by active rows of any other reference
func (s *Store) taken(g *models.BookingGroup, ownReference string) []string {
	date := g.TravelDateString()
	want := make(map[int64]string, g.Size())
	for _, b := range g.Bookings {
		want[b.SeatID] = b.SeatNumber
	}
	var taken []string
	for _, r := range s.rows {
		if r.BusID != g.BusID || r.TravelDate.Format(models.DateLayout) != date || !r.IsActive() || r.Reference == ownReference {
			continue
		}
		if n, ok := want[r.SeatID]; ok {
			taken = append(taken, n)
		}
	}
	models.SortSeatNumbers(taken)
	return taken
}

func (s *Store) indexes(reference string) []int {
	var idx []int
	for i, r := range s.rows {
		if r.Reference == reference {
			idx = append(idx, i)
		}
	}
	return idx
}

// fromGroup copies the group's mutable state onto a stored row
func (s *Store) fromGroup(g *models.BookingGroup, row models.Booking, k int) models.Booking {
	src := g.Bookings[k]
	for _, b := range g.Bookings {
		if b.SeatID == row.SeatID {
			src = b
			break
		}
	}
	row.PaymentStatus = g.PaymentStatus
	row.BookingStatus = g.BookingStatus
	row.PaymentMethod = g.PaymentMethod
	row.TransactionID = g.TransactionID
	row.PaidAt = src.PaidAt
	row.CancelledAt = src.CancelledAt
	row.UpdatedAt = src.UpdatedAt
	return row
}

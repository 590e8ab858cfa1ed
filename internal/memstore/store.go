// Package memstore is an in-memory implementation of every storage contract
// in the service.  A single mutex serializes writes, which makes the seat
// claim a compare-and-swap on the active reservation table.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/loyalty"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

type seatKey struct {
	journeyID string
	classID   string
	seq       int
}

// Store is safe for concurrent use.  The zero value is not usable; call
// New.
type Store struct {
	mu            sync.RWMutex
	journeys      map[string]model.Journey
	bookings      map[string]model.Booking
	active        map[seatKey]string // seat -> booking id
	passengers    map[string]model.Passenger
	emails        map[string]string // email -> passenger id
	notifications map[string]model.Notification
}

// New returns an empty store.
func New() *Store {
	return &Store{
		journeys:      make(map[string]model.Journey),
		bookings:      make(map[string]model.Booking),
		active:        make(map[seatKey]string),
		passengers:    make(map[string]model.Passenger),
		emails:        make(map[string]string),
		notifications: make(map[string]model.Notification),
	}
}

// PutJourney inserts or replaces a journey.
func (s *Store) PutJourney(j model.Journey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journeys[j.ID] = cloneJourney(j)
}

// PutPassenger inserts or replaces a passenger.  The tier is recomputed
// from the points balance.
func (s *Store) PutPassenger(p model.Passenger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.LoyaltyStatus = loyalty.TierOf(p.LoyaltyPoints)
	s.passengers[p.ID] = p
	s.emails[p.Email] = p.ID
}

func cloneJourney(j model.Journey) model.Journey {
	caps := make(map[string]int, len(j.Capacity))
	for k, v := range j.Capacity {
		caps[k] = v
	}
	j.Capacity = caps
	j.Stations = append([]model.JourneyStation(nil), j.Stations...)
	return j
}

// Journey returns a journey by id.
func (s *Store) Journey(ctx context.Context, id string) (model.Journey, error) {
	if err := ctx.Err(); err != nil {
		return model.Journey{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.journeys[id]
	if !ok {
		return model.Journey{}, storage.ErrJourneyNotFound
	}
	return cloneJourney(j), nil
}

// SearchJourneys returns journeys on the route, ordered by departure from
// the origin station.
func (s *Store) SearchJourneys(ctx context.Context, from, to string, day time.Time) ([]model.Journey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.Journey, 0)
	for _, j := range s.journeys {
		if j.Status == model.JourneyScheduled && catalog.MatchesRoute(j, from, to, day) {
			out = append(out, cloneJourney(j))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		da := out[a].Stations[out[a].StationIndex(from)].DepartureTime
		db := out[b].Stations[out[b].StationIndex(from)].DepartureTime
		if da.Equal(db) {
			return out[a].ID < out[b].ID
		}
		return da.Before(db)
	})
	return out, nil
}

// UpdateJourneyStatus swaps the journey status when it is still from.
func (s *Store) UpdateJourneyStatus(ctx context.Context, id string, from, to model.JourneyStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journeys[id]
	if !ok {
		return storage.ErrJourneyNotFound
	}
	if j.Status != from {
		return storage.ErrStatusConflict
	}
	j.Status = to
	j.UpdatedAt = time.Now().UTC()
	s.journeys[id] = j
	return nil
}

// ClaimedSeats returns the sequences held by active bookings.
func (s *Store) ClaimedSeats(ctx context.Context, journeyID, classID string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0)
	for k := range s.active {
		if k.journeyID == journeyID && k.classID == classID {
			out = append(out, k.seq)
		}
	}
	sort.Ints(out)
	return out, nil
}

// Claim inserts b if the journey is SCHEDULED and the seat is free.
func (s *Store) Claim(ctx context.Context, b *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journeys[b.JourneyID]
	if !ok {
		return storage.ErrJourneyNotFound
	}
	if j.Status != model.JourneyScheduled {
		return storage.ErrJourneyNotScheduled
	}
	key := seatKey{b.JourneyID, b.ClassID, b.SeatSequence}
	if b.Status.Active() {
		if _, taken := s.active[key]; taken {
			return storage.ErrSeatTaken
		}
		s.active[key] = b.ID
	}
	s.bookings[b.ID] = *b
	return nil
}

// Booking returns a booking by id.
func (s *Store) Booking(ctx context.Context, id string) (model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return model.Booking{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, storage.ErrBookingNotFound
	}
	return b, nil
}

// TransitionStatus swaps the booking status when it is still from and
// releases the seat when the booking stops being active.
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to model.BookingStatus, payment model.PaymentStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return storage.ErrBookingNotFound
	}
	if b.Status != from {
		return storage.ErrStatusConflict
	}
	key := seatKey{b.JourneyID, b.ClassID, b.SeatSequence}
	if to.Active() && !from.Active() {
		if _, taken := s.active[key]; taken {
			return storage.ErrSeatTaken
		}
		s.active[key] = b.ID
	}
	if !to.Active() && s.active[key] == b.ID {
		delete(s.active, key)
	}
	b.Status = to
	b.PaymentStatus = payment
	b.UpdatedAt = time.Now().UTC()
	s.bookings[id] = b
	return nil
}

// ListBookings returns every booking, newest first.
func (s *Store) ListBookings(ctx context.Context) ([]model.Booking, error) {
	return s.filterBookings(ctx, func(model.Booking) bool { return true })
}

// BookingsByPassenger returns a passenger's bookings, newest first.
func (s *Store) BookingsByPassenger(ctx context.Context, passengerID string) ([]model.Booking, error) {
	return s.filterBookings(ctx, func(b model.Booking) bool { return b.PassengerID == passengerID })
}

func (s *Store) filterBookings(ctx context.Context, keep func(model.Booking) bool) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()
	// v7 ids sort by creation time.
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	return out, nil
}

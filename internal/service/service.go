// Package service is the request/response surface of the booking core.  It
// composes the catalog, the seat index, the allocator and the loyalty
// ledger into the operations the HTTP handlers expose, and shapes their
// results for clients.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/logger"
	"github.com/iliyamo/rail-booking/internal/loyalty"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/seat"
	"github.com/iliyamo/rail-booking/internal/storage"
)

var (
	// ErrInvalidDate is returned when a search date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
	// ErrInvalidRequest is returned when a required field is missing.
	ErrInvalidRequest = errors.New("invalid request")
)

// BookingReader lists persisted bookings.
type BookingReader interface {
	Booking(ctx context.Context, id string) (model.Booking, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	BookingsByPassenger(ctx context.Context, passengerID string) ([]model.Booking, error)
}

// NotificationStore is the passenger inbox.
type NotificationStore interface {
	NotificationsByPassenger(ctx context.Context, passengerID string) ([]model.Notification, error)
	// MarkNotificationRead returns storage.ErrNotificationNotFound when id
	// does not belong to passengerID.
	MarkNotificationRead(ctx context.Context, id, passengerID string) error
}

// Deps wires a Service.
type Deps struct {
	Catalog       *catalog.Catalog
	Seats         *seat.Index
	Allocator     *booking.Allocator
	Ledger        *loyalty.Ledger
	Bookings      BookingReader
	Notifications NotificationStore
	Logger        logger.Logger
	// Timeout bounds the direct store reads made by the service.
	Timeout time.Duration
	// Fanout caps concurrent seat-count lookups per request.
	Fanout int
}

// Service is safe for concurrent use.
type Service struct {
	catalog       *catalog.Catalog
	seats         *seat.Index
	allocator     *booking.Allocator
	ledger        *loyalty.Ledger
	bookings      BookingReader
	notifications NotificationStore
	log           logger.Logger
	timeout       time.Duration
	fanout        int
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Fanout <= 0 {
		d.Fanout = 8
	}
	return &Service{
		catalog:       d.Catalog,
		seats:         d.Seats,
		allocator:     d.Allocator,
		ledger:        d.Ledger,
		bookings:      d.Bookings,
		notifications: d.Notifications,
		log:           d.Logger,
		timeout:       d.Timeout,
		fanout:        d.Fanout,
	}
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ClassView is a fare class as served to clients.
type ClassView struct {
	ID              string              `json:"id"`
	NameEn          string              `json:"name_en"`
	NameAr          string              `json:"name_ar"`
	PriceMultiplier float64             `json:"price_multiplier"`
	SeatPrefix      string              `json:"seat_prefix"`
	Features        model.ClassFeatures `json:"features"`
}

// Classes returns the fare table.
func (s *Service) Classes() []ClassView {
	all := catalog.Classes()
	out := make([]ClassView, 0, len(all))
	for _, c := range all {
		out = append(out, ClassView{
			ID:              c.ID,
			NameEn:          c.NameEn,
			NameAr:          c.NameAr,
			PriceMultiplier: c.Multiplier.InexactFloat64(),
			SeatPrefix:      c.SeatPrefix,
			Features:        c.Features,
		})
	}
	return out
}

// Loyalty returns the loyalty snapshot of a passenger.
func (s *Service) Loyalty(ctx context.Context, passengerID string) (model.LoyaltySnapshot, error) {
	if passengerID == "" {
		return model.LoyaltySnapshot{}, booking.ErrPassengerNotFound
	}
	return s.ledger.Snapshot(ctx, passengerID)
}

// tierOf is the pricing tier of the caller.  Only authenticated passengers
// have one; a passenger without a stored record prices as anonymous.
func (s *Service) tierOf(ctx context.Context, actor booking.Actor) (model.LoyaltyTier, bool, error) {
	if actor.Role != model.RolePassenger || actor.PassengerID == "" {
		return model.TierNone, false, nil
	}
	snap, err := s.ledger.Snapshot(ctx, actor.PassengerID)
	if errors.Is(err, storage.ErrPassengerNotFound) {
		return model.TierNone, true, nil
	}
	if err != nil {
		return model.TierNone, false, err
	}
	return snap.LoyaltyStatus, true, nil
}

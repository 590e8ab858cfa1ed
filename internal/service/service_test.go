package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/loyalty"
	"github.com/iliyamo/rail-booking/internal/memstore"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/queue"
	"github.com/iliyamo/rail-booking/internal/seat"
	"github.com/iliyamo/rail-booking/internal/service"
	"github.com/iliyamo/rail-booking/internal/storage"
)

var day = time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

func route(id string, base float64, dep time.Time, status model.JourneyStatus, caps map[string]int) model.Journey {
	return model.Journey{
		ID: id, TrainID: "T-" + id, Capacity: caps, Status: status, BasePrice: decimal.NewFromFloat(base),
		Stations: []model.JourneyStation{
			{StationCode: "RUH", SequenceNumber: 1, ArrivalTime: dep, DepartureTime: dep},
			{StationCode: "HOF", SequenceNumber: 2, ArrivalTime: dep.Add(3 * time.Hour), DepartureTime: dep.Add(3*time.Hour + 10*time.Minute)},
			{StationCode: "DMM", SequenceNumber: 3, ArrivalTime: dep.Add(5 * time.Hour), DepartureTime: dep.Add(5 * time.Hour)},
		},
	}
}

func newService(t *testing.T) (*service.Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	st.PutJourney(route("J1", 100, day.Add(8*time.Hour), model.JourneyScheduled, map[string]int{"CLS001": 2, "CLS002": 0, "CLS003": 5}))
	st.PutJourney(route("J2", 200, day.Add(14*time.Hour), model.JourneyScheduled, map[string]int{"CLS003": 3}))
	st.PutJourney(route("JX", 100, day.Add(10*time.Hour), model.JourneyCancelled, map[string]int{"CLS003": 3}))
	st.PutJourney(route("J3", 100, day.Add(32*time.Hour), model.JourneyScheduled, map[string]int{"CLS003": 3}))
	st.PutPassenger(model.Passenger{ID: "P1", Name: "Gold", Email: "gold@example.com", LoyaltyPoints: 2500})
	st.PutPassenger(model.Passenger{ID: "P2", Name: "New", Email: "new@example.com"})

	ledger := loyalty.NewLedger(st, time.Second)
	alloc := booking.New(booking.Deps{
		Store:      st,
		Passengers: st,
		Ledger:     ledger,
		Notifier:   queue.NewInline(st),
	}, booking.DefaultConfig())
	svc := service.New(service.Deps{
		Catalog:       catalog.New(st, time.Second),
		Seats:         seat.NewIndex(st, time.Second),
		Allocator:     alloc,
		Ledger:        ledger,
		Bookings:      st,
		Notifications: st,
		Timeout:       time.Second,
	})
	return svc, st
}

var (
	anonymous = booking.Actor{}
	gold      = booking.Actor{Role: model.RolePassenger, PassengerID: "P1"}
	fresh     = booking.Actor{Role: model.RolePassenger, PassengerID: "P2"}
	employee  = booking.Actor{Role: model.RoleEmployee}
)

func TestSearchAnonymous(t *testing.T) {
	svc, _ := newService(t)
	got, err := svc.Search(context.Background(), anonymous, service.SearchQuery{From: "ruh", To: "DMM", Date: "2026-11-02"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "J1", got[0].JourneyID)
	assert.Equal(t, "CLS001", got[0].ClassID)
	assert.Equal(t, 200.0, got[0].OriginalPrice)
	assert.Equal(t, 2, got[0].AvailableSeatCount)
	assert.Nil(t, got[0].DiscountedPrice)

	assert.Equal(t, "CLS003", got[1].ClassID)
	assert.Equal(t, 100.0, got[1].OriginalPrice)
	assert.Equal(t, 5, got[1].AvailableSeatCount)

	assert.Equal(t, "J2", got[2].JourneyID)
	assert.Equal(t, day.Add(19*time.Hour), got[2].ArrivalTime)
}

func TestSearchDiscountsForPassenger(t *testing.T) {
	svc, _ := newService(t)
	got, err := svc.Search(context.Background(), gold, service.SearchQuery{From: "RUH", To: "HOF", Date: "2026-11-02"})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.NotNil(t, got[0].DiscountedPrice)
	assert.Equal(t, 180.0, *got[0].DiscountedPrice)
	assert.Equal(t, 200.0, got[0].OriginalPrice)

	got, err = svc.Search(context.Background(), fresh, service.SearchQuery{From: "RUH", To: "HOF", Date: "2026-11-02"})
	require.NoError(t, err)
	require.NotNil(t, got[0].DiscountedPrice)
	assert.Equal(t, 200.0, *got[0].DiscountedPrice)
}

func TestSearchEdges(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	got, err := svc.Search(ctx, anonymous, service.SearchQuery{From: "DMM", To: "RUH", Date: "2026-11-02"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.Search(ctx, anonymous, service.SearchQuery{From: "RUH", To: "DMM", Date: "2026-11-03"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "J3", got[0].JourneyID)

	_, err = svc.Search(ctx, anonymous, service.SearchQuery{From: "RUH", To: "DMM", Date: "02/11/2026"})
	assert.ErrorIs(t, err, service.ErrInvalidDate)
	_, err = svc.Search(ctx, anonymous, service.SearchQuery{To: "DMM", Date: "2026-11-02"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestBookingFlow(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, gold, service.CreateBookingRequest{JourneyID: "J1", ClassID: "cls001", SeatNumber: "A1"})
	require.NoError(t, err)
	assert.Equal(t, 180.0, created.Amount)
	assert.Equal(t, "A-1", created.SeatNumber)
	assert.Equal(t, model.BookingConfirmed, created.Status)

	seats, err := svc.SeatMap(ctx, "J1", "CLS001")
	require.NoError(t, err)
	assert.Equal(t, []seat.Seat{{Number: "A-1", Sequence: 1, Available: false}, {Number: "A-2", Sequence: 2, Available: true}}, seats)

	snap, err := svc.Loyalty(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(2518), snap.LoyaltyPoints)
	assert.Equal(t, model.TierGold, snap.LoyaltyStatus)

	v, err := svc.GetBooking(ctx, gold, created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "card", v.PaymentMethod)
	assert.Equal(t, model.PaymentCompleted, v.PaymentStatus)

	_, err = svc.GetBooking(ctx, fresh, created.BookingID)
	assert.ErrorIs(t, err, booking.ErrForbidden)
	_, err = svc.GetBooking(ctx, employee, "missing")
	assert.ErrorIs(t, err, storage.ErrBookingNotFound)

	_, err = svc.CancelBooking(ctx, fresh, created.BookingID)
	assert.ErrorIs(t, err, booking.ErrForbidden)
	cancelled, err := svc.CancelBooking(ctx, gold, created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)

	seats, err = svc.SeatMap(ctx, "J1", "CLS001")
	require.NoError(t, err)
	assert.True(t, seats[0].Available)
}

func TestListBookingsByRole(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, gold, service.CreateBookingRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "1"})
	require.NoError(t, err)
	_, err = svc.CreateBooking(ctx, fresh, service.CreateBookingRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "2"})
	require.NoError(t, err)
	last, err := svc.CreateBooking(ctx, gold, service.CreateBookingRequest{JourneyID: "J2", ClassID: "CLS003", SeatNumber: "C-3"})
	require.NoError(t, err)

	mine, err := svc.ListBookings(ctx, gold)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, last.BookingID, mine[0].BookingID)

	all, err := svc.ListBookings(ctx, employee)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.ListBookings(ctx, anonymous)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	got, err := svc.Search(ctx, anonymous, service.SearchQuery{From: "RUH", To: "DMM", Date: "2026-11-02"})
	require.NoError(t, err)
	assert.Equal(t, 3, got[1].AvailableSeatCount)
	assert.Equal(t, 2, got[2].AvailableSeatCount)
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateBooking(context.Background(), gold, service.CreateBookingRequest{JourneyID: "J1", ClassID: "CLS003"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = svc.CreateBooking(context.Background(), anonymous, service.CreateBookingRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "1"})
	assert.ErrorIs(t, err, booking.ErrPassengerRequired)
}

func TestNotificationsInbox(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, gold, service.CreateBookingRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "4"})
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, gold, created.BookingID)
	require.NoError(t, err)

	inbox, err := svc.Notifications(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	types := []model.NotificationType{inbox[0].Type, inbox[1].Type}
	assert.ElementsMatch(t, []model.NotificationType{model.NotifyBookingConfirmation, model.NotifyBookingCancellation}, types)
	for _, n := range inbox {
		assert.Equal(t, created.BookingID, n.BookingID)
		assert.Equal(t, model.NotificationSent, n.Status)
	}

	assert.ErrorIs(t, svc.MarkNotificationRead(ctx, "P2", inbox[0].ID), storage.ErrNotificationNotFound)
	require.NoError(t, svc.MarkNotificationRead(ctx, "P1", inbox[0].ID))

	inbox, err = svc.Notifications(ctx, "P1")
	require.NoError(t, err)
	read := 0
	for _, n := range inbox {
		if n.Status == model.NotificationRead {
			read++
		}
	}
	assert.Equal(t, 1, read)

	empty, err := svc.Notifications(ctx, "P2")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestJourneyDetailAndStatus(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, gold, service.CreateBookingRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "5"})
	require.NoError(t, err)

	d, err := svc.Journey(ctx, "J1")
	require.NoError(t, err)
	require.Len(t, d.Stations, 3)
	require.Len(t, d.Classes, 2)
	assert.Equal(t, service.ClassAvailability{ClassID: "CLS001", ClassName: "First Class", Capacity: 2, AvailableSeats: 2, Price: 200}, d.Classes[0])
	assert.Equal(t, 4, d.Classes[1].AvailableSeats)

	_, err = svc.Journey(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrJourneyNotFound)

	d, err = svc.UpdateJourneyStatus(ctx, "J1", "in_progress")
	require.NoError(t, err)
	assert.Equal(t, model.JourneyInProgress, d.Status)

	_, err = svc.UpdateJourneyStatus(ctx, "J1", model.JourneyScheduled)
	assert.ErrorIs(t, err, catalog.ErrInvalidJourneyTransition)

	_, err = svc.CreateBooking(ctx, gold, service.CreateBookingRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "1"})
	assert.ErrorIs(t, err, booking.ErrJourneyUnavailable)
}

func TestLoyaltyRequiresPassenger(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Loyalty(context.Background(), "")
	assert.ErrorIs(t, err, booking.ErrPassengerNotFound)
	_, err = svc.Loyalty(context.Background(), "P404")
	assert.ErrorIs(t, err, storage.ErrPassengerNotFound)
}

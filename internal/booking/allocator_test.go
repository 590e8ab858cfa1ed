package booking_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/loyalty"
	"github.com/iliyamo/rail-booking/internal/memstore"
	"github.com/iliyamo/rail-booking/internal/metrics"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/seat"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) types() []model.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.NotificationType, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Type)
	}
	return out
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, n model.Notification) error {
	return m.Called(ctx, n).Error(0)
}

type mockAccruer struct{ mock.Mock }

func (m *mockAccruer) Accrue(ctx context.Context, passengerID string, points int64) (model.LoyaltyTier, error) {
	args := m.Called(ctx, passengerID, points)
	return args.Get(0).(model.LoyaltyTier), args.Error(1)
}

type fixture struct {
	store    *memstore.Store
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	alloc    *booking.Allocator
	index    *seat.Index
	ledger   *loyalty.Ledger
}

func journey(id string, base float64, status model.JourneyStatus) model.Journey {
	dep := time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC)
	return model.Journey{
		ID:        id,
		TrainID:   "T100",
		Capacity:  map[string]int{"CLS001": 4, "CLS002": 6, "CLS003": 10},
		Status:    status,
		BasePrice: decimal.NewFromFloat(base),
		Stations: []model.JourneyStation{
			{StationCode: "RUH", SequenceNumber: 1, DepartureTime: dep, ArrivalTime: dep},
			{StationCode: "DMM", SequenceNumber: 2, ArrivalTime: dep.Add(4 * time.Hour), DepartureTime: dep.Add(4 * time.Hour)},
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	st.PutJourney(journey("J1", 250, model.JourneyScheduled))
	st.PutJourney(journey("J2", 100, model.JourneyScheduled))
	st.PutJourney(journey("JX", 100, model.JourneyCancelled))
	st.PutPassenger(model.Passenger{ID: "P1", Name: "Sara", Email: "sara@example.com"})
	st.PutPassenger(model.Passenger{ID: "P2", Name: "Omar", Email: "omar@example.com", LoyaltyPoints: 2500})

	f := &fixture{
		store:    st,
		notifier: &recordingNotifier{},
		metrics:  metrics.NewMetrics(prometheus.NewRegistry(), "test"),
		ledger:   loyalty.NewLedger(st, time.Second),
		index:    seat.NewIndex(st, time.Second),
	}
	f.alloc = booking.New(booking.Deps{
		Store:      st,
		Passengers: st,
		Ledger:     f.ledger,
		Notifier:   f.notifier,
		Metrics:    f.metrics,
	}, booking.DefaultConfig())
	return f
}

func passenger(id string) booking.Actor {
	return booking.Actor{Role: model.RolePassenger, PassengerID: id}
}

var employee = booking.Actor{Role: model.RoleEmployee}

func TestAllocateEconomyBronzeScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.alloc.Allocate(ctx, passenger("P1"), booking.AllocateRequest{
		JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-1", PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 250.00, b.Amount())
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, model.PaymentCompleted, b.PaymentStatus)
	assert.Equal(t, "C-1", b.SeatNumber)
	assert.Equal(t, "C", b.CoachNumber)

	snap, err := f.ledger.Snapshot(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(25), snap.LoyaltyPoints)
	assert.Equal(t, model.TierBronze, snap.LoyaltyStatus)

	assert.Equal(t, []model.NotificationType{model.NotifyBookingConfirmation}, f.notifier.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Allocations.WithLabelValues(metrics.OutcomeCommitted)))
}

func TestAllocateAppliesLoyaltyDiscount(t *testing.T) {
	f := newFixture(t)

	b, err := f.alloc.Allocate(context.Background(), passenger("P2"), booking.AllocateRequest{
		JourneyID: "J2", ClassID: "CLS001", SeatNumber: "A-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(18000), b.AmountCents)
}

func TestAllocateGates(t *testing.T) {
	tests := []struct {
		name string
		req  booking.AllocateRequest
		want error
	}{
		{"missing journey", booking.AllocateRequest{JourneyID: "NOPE", ClassID: "CLS003", SeatNumber: "C-1"}, booking.ErrJourneyUnavailable},
		{"cancelled journey", booking.AllocateRequest{JourneyID: "JX", ClassID: "CLS003", SeatNumber: "C-1"}, booking.ErrJourneyUnavailable},
		{"unknown class", booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS009", SeatNumber: "1"}, booking.ErrUnknownClass},
		{"seat zero", booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-0"}, booking.ErrInvalidSeat},
		{"seat over capacity", booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-11"}, booking.ErrInvalidSeat},
		{"wrong prefix", booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "A-1"}, booking.ErrInvalidSeat},
		{"other passenger", booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-1", PassengerID: "P2"}, booking.ErrForbidden},
		{"passenger waitlist", booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-1", Waitlist: true}, booking.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.alloc.Allocate(context.Background(), passenger("P1"), tt.req)
			assert.ErrorIs(t, err, tt.want)

			all, err := f.store.ListBookings(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestAllocateRaceSingleWinner(t *testing.T) {
	for _, n := range []int{1, 2, 16, 64} {
		f := newFixture(t)
		var (
			wins  atomic.Int32
			taken atomic.Int32
		)
		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				_, err := f.alloc.Allocate(context.Background(), passenger("P1"), booking.AllocateRequest{
					JourneyID: "J2", ClassID: "CLS002", SeatNumber: "B2",
				})
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, booking.ErrSeatTaken):
					taken.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), wins.Load(), "n=%d", n)
		assert.Equal(t, int32(n-1), taken.Load(), "n=%d", n)

		claimed, err := f.store.ClaimedSeats(context.Background(), "J2", "CLS002")
		require.NoError(t, err)
		assert.Equal(t, []int{2}, claimed)
	}
}

func TestAvailabilityFollowsBookingState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.alloc.Allocate(ctx, passenger("P1"), booking.AllocateRequest{JourneyID: "J2", ClassID: "CLS001", SeatNumber: "A1"})
	require.NoError(t, err)

	ok, err := f.index.IsAvailable(ctx, "J2", "CLS001", "A-1")
	require.NoError(t, err)
	assert.False(t, ok)
	free, err := f.index.ListAvailable(ctx, "J2", "CLS001")
	require.NoError(t, err)
	assert.Equal(t, []string{"A-2", "A-3", "A-4"}, free)

	_, err = f.alloc.Cancel(ctx, b.ID, passenger("P1"))
	require.NoError(t, err)

	ok, err = f.index.IsAvailable(ctx, "J2", "CLS001", "A-1")
	require.NoError(t, err)
	assert.True(t, ok)
	free, err = f.index.ListAvailable(ctx, "J2", "CLS001")
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1", "A-2", "A-3", "A-4"}, free)

	// the released seat can be booked again
	_, err = f.alloc.Allocate(ctx, passenger("P2"), booking.AllocateRequest{JourneyID: "J2", ClassID: "CLS001", SeatNumber: "A-1"})
	require.NoError(t, err)
}

func TestAllocateGuestPassenger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	details := &booking.PassengerDetails{Name: "Guest", Email: "Guest@Example.com", Phone: "0500000000"}

	b1, err := f.alloc.Allocate(ctx, booking.Actor{}, booking.AllocateRequest{
		JourneyID: "J2", ClassID: "CLS001", SeatNumber: "A-1", Passenger: details,
	})
	require.NoError(t, err)
	assert.Equal(t, 200.00, b1.Amount())

	p, err := f.store.PassengerByEmail(ctx, "guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, b1.PassengerID, p.ID)
	assert.Equal(t, int64(20), p.LoyaltyPoints)

	b2, err := f.alloc.Allocate(ctx, employee, booking.AllocateRequest{
		JourneyID: "J2", ClassID: "CLS001", SeatNumber: "A-2", Passenger: details,
	})
	require.NoError(t, err)
	assert.Equal(t, b1.PassengerID, b2.PassengerID)

	_, err = f.alloc.Allocate(ctx, booking.Actor{}, booking.AllocateRequest{JourneyID: "J2", ClassID: "CLS001", SeatNumber: "A-3"})
	assert.ErrorIs(t, err, booking.ErrPassengerRequired)

	_, err = f.alloc.Allocate(ctx, booking.Actor{}, booking.AllocateRequest{JourneyID: "J2", ClassID: "CLS001", SeatNumber: "A-3", PassengerID: "P2"})
	assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestEmployeeBooksForExistingPassenger(t *testing.T) {
	f := newFixture(t)

	b, err := f.alloc.Allocate(context.Background(), employee, booking.AllocateRequest{
		JourneyID: "J2", ClassID: "CLS001", SeatNumber: "A-1", PassengerID: "P2",
	})
	require.NoError(t, err)
	assert.Equal(t, "P2", b.PassengerID)
	assert.Equal(t, 180.00, b.Amount())

	_, err = f.alloc.Allocate(context.Background(), employee, booking.AllocateRequest{
		JourneyID: "J2", ClassID: "CLS001", SeatNumber: "A-2", PassengerID: "P404",
	})
	assert.ErrorIs(t, err, booking.ErrPassengerNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.alloc.Allocate(ctx, passenger("P1"), booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-5"})
	require.NoError(t, err)

	_, err = f.alloc.Cancel(ctx, b.ID, passenger("P2"))
	assert.ErrorIs(t, err, booking.ErrForbidden)

	_, err = f.alloc.Cancel(ctx, "missing", passenger("P1"))
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)

	got, err := f.alloc.Cancel(ctx, b.ID, passenger("P1"))
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, model.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, b.AmountCents, got.AmountCents)

	_, err = f.alloc.Cancel(ctx, b.ID, passenger("P1"))
	assert.ErrorIs(t, err, booking.ErrAlreadyCancelled)

	assert.Equal(t, []model.NotificationType{model.NotifyBookingConfirmation, model.NotifyBookingCancellation}, f.notifier.types())
}

func TestCancelJourneyNotCancellable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.alloc.Allocate(ctx, passenger("P1"), booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-2"})
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateJourneyStatus(ctx, "J1", model.JourneyScheduled, model.JourneyInProgress))

	_, err = f.alloc.Cancel(ctx, b.ID, employee)
	assert.ErrorIs(t, err, booking.ErrJourneyNotCancellable)

	// policy is configurable
	lenient := booking.New(booking.Deps{Store: f.store, Passengers: f.store}, booking.Config{
		CancellableStatuses: []model.JourneyStatus{model.JourneyScheduled, model.JourneyInProgress},
	})
	_, err = lenient.Cancel(ctx, b.ID, employee)
	assert.NoError(t, err)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	confirmed, err := f.alloc.Allocate(ctx, passenger("P1"), booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-1"})
	require.NoError(t, err)
	_, err = f.alloc.SetStatus(ctx, confirmed.ID, model.BookingWaitlisted)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	_, err = f.alloc.SetStatus(ctx, confirmed.ID, model.BookingStatus("LOST"))
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	waiting, err := f.alloc.Allocate(ctx, employee, booking.AllocateRequest{
		JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-2", PassengerID: "P1", Waitlist: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingWaitlisted, waiting.Status)
	assert.Equal(t, model.PaymentPending, waiting.PaymentStatus)

	snap, err := f.ledger.Snapshot(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(25), snap.LoyaltyPoints, "waitlisted bookings earn nothing")

	// the waitlisted booking holds its seat
	ok, err := f.index.IsAvailable(ctx, "J1", "CLS003", "C-2")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.alloc.SetStatus(ctx, waiting.ID, model.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)
	assert.Equal(t, model.PaymentCompleted, got.PaymentStatus)
	snap, err = f.ledger.Snapshot(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), snap.LoyaltyPoints)

	_, err = f.alloc.SetStatus(ctx, got.ID, model.BookingCancelled)
	require.NoError(t, err)
	_, err = f.alloc.SetStatus(ctx, got.ID, model.BookingCancelled)
	assert.ErrorIs(t, err, booking.ErrAlreadyCancelled)
	_, err = f.alloc.SetStatus(ctx, got.ID, model.BookingConfirmed)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	_, err = f.alloc.SetStatus(ctx, "missing", model.BookingCancelled)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestSideEffectFailuresDoNotFailAllocation(t *testing.T) {
	st := memstore.New()
	st.PutJourney(journey("J1", 250, model.JourneyScheduled))
	st.PutPassenger(model.Passenger{ID: "P1", Name: "Sara", Email: "sara@example.com"})

	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	ledger := &mockAccruer{}
	ledger.On("Accrue", mock.Anything, "P1", int64(25)).Return(model.TierNone, errors.New("db gone"))
	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")

	alloc := booking.New(booking.Deps{Store: st, Passengers: st, Ledger: ledger, Notifier: notifier, Metrics: m}, booking.DefaultConfig())
	b, err := alloc.Allocate(context.Background(), passenger("P1"), booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-1"})
	require.NoError(t, err)

	stored, err := st.Booking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, stored.Status)

	notifier.AssertExpectations(t)
	ledger.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues(metrics.EffectLoyalty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues(metrics.EffectNotification)))
}

// hangingStore blocks claims until the caller's deadline passes.
type hangingStore struct{ *memstore.Store }

func (h hangingStore) Claim(ctx context.Context, _ *model.Booking) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestAllocateStorageTimeout(t *testing.T) {
	st := memstore.New()
	st.PutJourney(journey("J1", 250, model.JourneyScheduled))
	st.PutPassenger(model.Passenger{ID: "P1", Name: "Sara", Email: "sara@example.com"})

	cfg := booking.DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	alloc := booking.New(booking.Deps{Store: hangingStore{st}, Passengers: st}, cfg)

	_, err := alloc.Allocate(context.Background(), passenger("P1"), booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-1"})
	assert.ErrorIs(t, err, booking.ErrStorageTimeout)

	claimed, err := st.ClaimedSeats(context.Background(), "J1", "CLS003")
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

// departingStore cancels the journey between the gate check and the claim.
type departingStore struct{ *memstore.Store }

func (d departingStore) Claim(ctx context.Context, b *model.Booking) error {
	if err := d.UpdateJourneyStatus(ctx, b.JourneyID, model.JourneyScheduled, model.JourneyCancelled); err != nil {
		return err
	}
	return d.Store.Claim(ctx, b)
}

func TestAllocateJourneyLeavesScheduledBeforeClaim(t *testing.T) {
	st := memstore.New()
	st.PutJourney(journey("J1", 250, model.JourneyScheduled))
	st.PutPassenger(model.Passenger{ID: "P1", Name: "Sara", Email: "sara@example.com"})
	alloc := booking.New(booking.Deps{Store: departingStore{st}, Passengers: st}, booking.DefaultConfig())

	_, err := alloc.Allocate(context.Background(), passenger("P1"), booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-1"})
	assert.ErrorIs(t, err, booking.ErrJourneyUnavailable)
}

func TestAllocateRoundsHalfCentTieUp(t *testing.T) {
	f := newFixture(t)
	f.store.PutJourney(journey("JT", 2.65, model.JourneyScheduled))

	b, err := f.alloc.Allocate(context.Background(), booking.Actor{}, booking.AllocateRequest{
		JourneyID: "JT", ClassID: "CLS002", SeatNumber: "B-1",
		Passenger: &booking.PassengerDetails{Name: "Guest", Email: "guest@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(398), b.AmountCents)
	assert.Equal(t, 3.98, b.Amount())
}

func TestGuestRecordOutlivesRejectedClaim(t *testing.T) {
	st := memstore.New()
	st.PutJourney(journey("J1", 250, model.JourneyScheduled))
	st.PutJourney(journey("J2", 100, model.JourneyScheduled))
	details := &booking.PassengerDetails{Name: "Guest", Email: "guest@example.com"}
	ctx := context.Background()

	rejecting := booking.New(booking.Deps{Store: departingStore{st}, Passengers: st}, booking.DefaultConfig())
	_, err := rejecting.Allocate(ctx, booking.Actor{}, booking.AllocateRequest{JourneyID: "J1", ClassID: "CLS003", SeatNumber: "C-1", Passenger: details})
	require.ErrorIs(t, err, booking.ErrJourneyUnavailable)

	kept, err := st.PassengerByEmail(ctx, "guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), kept.LoyaltyPoints)

	alloc := booking.New(booking.Deps{Store: st, Passengers: st}, booking.DefaultConfig())
	b, err := alloc.Allocate(ctx, booking.Actor{}, booking.AllocateRequest{JourneyID: "J2", ClassID: "CLS003", SeatNumber: "C-1", Passenger: details})
	require.NoError(t, err)
	assert.Equal(t, kept.ID, b.PassengerID)
}

package seat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/memstore"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/seat"
	"github.com/iliyamo/rail-booking/internal/storage"
)

func seeded(t *testing.T) (*memstore.Store, *seat.Index) {
	t.Helper()
	st := memstore.New()
	st.PutJourney(model.Journey{
		ID:       "J1",
		Capacity: map[string]int{"CLS002": 5, "CLS003": 0},
		Status:   model.JourneyScheduled,
	})
	for i, seq := range []int{2, 4} {
		require.NoError(t, st.Claim(context.Background(), &model.Booking{
			ID: []string{"b1", "b2"}[i], JourneyID: "J1", ClassID: "CLS002", SeatSequence: seq, Status: model.BookingConfirmed,
		}))
	}
	return st, seat.NewIndex(st, time.Second)
}

func TestListAvailable(t *testing.T) {
	_, idx := seeded(t)
	got, err := idx.ListAvailable(context.Background(), "J1", "CLS002")
	require.NoError(t, err)
	assert.Equal(t, []string{"B-1", "B-3", "B-5"}, got)

	got, err = idx.ListAvailable(context.Background(), "J1", "CLS003")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = idx.ListAvailable(context.Background(), "J1", "CLS999")
	assert.ErrorIs(t, err, catalog.ErrUnknownClass)

	_, err = idx.ListAvailable(context.Background(), "J404", "CLS002")
	assert.ErrorIs(t, err, storage.ErrJourneyNotFound)
}

func TestIsAvailable(t *testing.T) {
	st, idx := seeded(t)
	ctx := context.Background()

	ok, err := idx.IsAvailable(ctx, "J1", "CLS002", "B-2")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = idx.IsAvailable(ctx, "J1", "CLS002", "B3")
	require.NoError(t, err)
	assert.True(t, ok)

	for _, label := range []string{"B-0", "B-6", "B-99"} {
		_, err = idx.IsAvailable(ctx, "J1", "CLS002", label)
		assert.ErrorIs(t, err, seat.ErrInvalidSeat, label)
	}

	// waitlisted bookings hold their seat as well
	require.NoError(t, st.Claim(ctx, &model.Booking{ID: "b3", JourneyID: "J1", ClassID: "CLS002", SeatSequence: 3, Status: model.BookingWaitlisted}))
	ok, err = idx.IsAvailable(ctx, "J1", "CLS002", "B-3")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.TransitionStatus(ctx, "b3", model.BookingWaitlisted, model.BookingCancelled, model.PaymentPending))
	ok, err = idx.IsAvailable(ctx, "J1", "CLS002", "B-3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeatMap(t *testing.T) {
	_, idx := seeded(t)
	got, err := idx.SeatMap(context.Background(), "J1", "CLS002")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, seat.Seat{Number: "B-1", Sequence: 1, Available: true}, got[0])
	assert.Equal(t, seat.Seat{Number: "B-2", Sequence: 2, Available: false}, got[1])
	assert.True(t, got[4].Available)
}

func TestIndexHonoursDeadline(t *testing.T) {
	_, idx := seeded(t)
	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()
	_, err := idx.ListAvailable(ctx, "J1", "CLS002")
	assert.ErrorIs(t, err, storage.ErrTimeout)
}

package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

func TestSeedDemoIsSearchable(t *testing.T) {
	s := New()
	day := time.Date(2026, 12, 1, 15, 0, 0, 0, time.UTC)
	s.SeedDemo(day, 2)

	found, err := s.SearchJourneys(context.Background(), "RUH", "DMM", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "T100-20261202", found[0].ID)
	assert.Equal(t, "T200-20261202", found[1].ID)

	p, err := s.Passenger(context.Background(), "P1002")
	require.NoError(t, err)
	assert.Equal(t, model.TierGold, p.LoyaltyStatus)
}

func TestClaimIsExclusive(t *testing.T) {
	s := New()
	s.SeedDemo(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), 1)
	b := model.Booking{ID: "B1", JourneyID: "T200-20261201", ClassID: "CLS003", SeatSequence: 7, Status: model.BookingConfirmed}
	require.NoError(t, s.Claim(context.Background(), &b))

	other := b
	other.ID = "B2"
	assert.ErrorIs(t, s.Claim(context.Background(), &other), storage.ErrSeatTaken)

	require.NoError(t, s.TransitionStatus(context.Background(), "B1", model.BookingConfirmed, model.BookingCancelled, model.PaymentCompleted))
	assert.NoError(t, s.Claim(context.Background(), &other))
}

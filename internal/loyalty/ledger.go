package loyalty

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// ErrNegativePoints is returned for accruals below zero; the ledger only
// ever adds points.
var ErrNegativePoints = errors.New("points must not be negative")

// Store persists balances.  AddPoints must increment the balance and
// recompute the tier with TierOf in one atomic step, so that a concurrent
// reader never sees a balance and tier that disagree.
type Store interface {
	AddPoints(ctx context.Context, passengerID string, points int64) (model.LoyaltySnapshot, error)
	LoyaltySnapshot(ctx context.Context, passengerID string) (model.LoyaltySnapshot, error)
}

// Ledger is the only writer of passenger loyalty data.
type Ledger struct {
	store   Store
	timeout time.Duration
}

// NewLedger returns a Ledger bounded by timeout per store call.
func NewLedger(store Store, timeout time.Duration) *Ledger {
	return &Ledger{store: store, timeout: timeout}
}

// Accrue adds points to a passenger and returns the resulting tier.
func (l *Ledger) Accrue(ctx context.Context, passengerID string, points int64) (model.LoyaltyTier, error) {
	if points < 0 {
		return model.TierNone, ErrNegativePoints
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	snap, err := l.store.AddPoints(ctx, passengerID, points)
	if err != nil {
		return model.TierNone, storage.Classify(err)
	}
	return snap.LoyaltyStatus, nil
}

// Snapshot returns the read-only loyalty view for a passenger.
func (l *Ledger) Snapshot(ctx context.Context, passengerID string) (model.LoyaltySnapshot, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	snap, err := l.store.LoyaltySnapshot(ctx, passengerID)
	return snap, storage.Classify(err)
}

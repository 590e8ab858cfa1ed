package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// ErrInvalidJourneyTransition is returned when a status update would move
// a journey backwards or out of a terminal status.
var ErrInvalidJourneyTransition = errors.New("invalid journey status transition")

// JourneyStore is the persistence contract for journeys.
type JourneyStore interface {
	Journey(ctx context.Context, id string) (model.Journey, error)
	SearchJourneys(ctx context.Context, from, to string, day time.Time) ([]model.Journey, error)
	// UpdateJourneyStatus sets the status to `to` only when it is still
	// `from`; otherwise it returns storage.ErrStatusConflict.
	UpdateJourneyStatus(ctx context.Context, id string, from, to model.JourneyStatus) error
}

// Catalog serves journey lookups and operational status updates.
type Catalog struct {
	store   JourneyStore
	timeout time.Duration
}

// New returns a Catalog.  Every store call is bounded by timeout; zero
// disables the bound.
func New(store JourneyStore, timeout time.Duration) *Catalog {
	return &Catalog{store: store, timeout: timeout}
}

func (c *Catalog) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Journey returns the journey with the given id.
func (c *Catalog) Journey(ctx context.Context, id string) (model.Journey, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	j, err := c.store.Journey(ctx, id)
	return j, storage.Classify(err)
}

// Search returns the SCHEDULED journeys that stop at from before to and
// leave from on the given UTC day.
func (c *Catalog) Search(ctx context.Context, from, to string, day time.Time) ([]model.Journey, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	found, err := c.store.SearchJourneys(ctx, from, to, day)
	if err != nil {
		return nil, storage.Classify(err)
	}
	out := make([]model.Journey, 0, len(found))
	for _, j := range found {
		if j.Status == model.JourneyScheduled && MatchesRoute(j, from, to, day) {
			out = append(out, j)
		}
	}
	return out, nil
}

// MatchesRoute reports whether j calls at from and later at to, departing
// from on the UTC calendar day of day.
func MatchesRoute(j model.Journey, from, to string, day time.Time) bool {
	fi, ti := j.StationIndex(from), j.StationIndex(to)
	if fi < 0 || ti < 0 {
		return false
	}
	if j.Stations[fi].SequenceNumber >= j.Stations[ti].SequenceNumber {
		return false
	}
	dep := j.Stations[fi].DepartureTime.UTC()
	d := day.UTC()
	return dep.Year() == d.Year() && dep.YearDay() == d.YearDay()
}

// UpdateStatus moves a journey to next.  The update is a compare-and-swap
// on the current status, retried when a concurrent update wins.
func (c *Catalog) UpdateStatus(ctx context.Context, id string, next model.JourneyStatus) (model.Journey, error) {
	if !next.Valid() {
		return model.Journey{}, fmt.Errorf("%w: unknown status %q", ErrInvalidJourneyTransition, next)
	}
	for attempt := 0; attempt < 3; attempt++ {
		j, err := c.Journey(ctx, id)
		if err != nil {
			return model.Journey{}, err
		}
		if !j.Status.CanTransitionTo(next) {
			return model.Journey{}, fmt.Errorf("%w: %s -> %s", ErrInvalidJourneyTransition, j.Status, next)
		}
		bctx, cancel := c.bound(ctx)
		err = c.store.UpdateJourneyStatus(bctx, id, j.Status, next)
		cancel()
		if errors.Is(err, storage.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return model.Journey{}, storage.Classify(err)
		}
		j.Status = next
		return j, nil
	}
	return model.Journey{}, storage.ErrStatusConflict
}

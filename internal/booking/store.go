package booking

import (
	"context"

	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/seat"
)

// Store is the booking persistence contract.
type Store interface {
	seat.Reader

	Booking(ctx context.Context, id string) (model.Booking, error)

	// Claim inserts b in one atomic unit that also verifies the journey is
	// still SCHEDULED.  It returns storage.ErrSeatTaken when another active
	// booking holds the seat and storage.ErrJourneyNotScheduled when the
	// journey left SCHEDULED.  On any error nothing is persisted.
	Claim(ctx context.Context, b *model.Booking) error

	// TransitionStatus moves a booking from `from` to `to` and sets its
	// payment status, only if the stored status is still `from`.  It
	// returns storage.ErrStatusConflict otherwise.
	TransitionStatus(ctx context.Context, id string, from, to model.BookingStatus, payment model.PaymentStatus) error
}

// PassengerStore resolves and registers passengers.
type PassengerStore interface {
	Passenger(ctx context.Context, id string) (model.Passenger, error)
	PassengerByEmail(ctx context.Context, email string) (model.Passenger, error)
	// CreatePassenger returns storage.ErrPassengerExists when the email is
	// taken.
	CreatePassenger(ctx context.Context, p *model.Passenger) error
}

// Accruer credits loyalty points.  *loyalty.Ledger satisfies it.
type Accruer interface {
	Accrue(ctx context.Context, passengerID string, points int64) (model.LoyaltyTier, error)
}

// Notifier delivers booking notifications.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

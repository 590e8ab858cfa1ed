// Package booking implements seat allocation and the booking state machine.
//
// An allocation moves through REQUESTED, SEAT_CHECKED, PRICED and
// COMMITTED, or to REJECTED at any gate.  The seat claim itself is a single
// atomic insert guarded by the store's active-seat uniqueness constraint;
// the availability check that precedes it is advisory only.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/logger"
	"github.com/iliyamo/rail-booking/internal/loyalty"
	"github.com/iliyamo/rail-booking/internal/metrics"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/pricing"
	"github.com/iliyamo/rail-booking/internal/seat"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// State is a step of an allocation attempt.
type State string

const (
	StateRequested   State = "REQUESTED"
	StateSeatChecked State = "SEAT_CHECKED"
	StatePriced      State = "PRICED"
	StateCommitted   State = "COMMITTED"
	StateRejected    State = "REJECTED"
)

// Actor is the caller of an operation.  An empty Role is an anonymous
// caller.
type Actor struct {
	Role        model.Role
	PassengerID string
}

// PassengerDetails identifies a passenger who has no id yet.
type PassengerDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// AllocateRequest asks for one seat.  Exactly one of PassengerID or
// Passenger is used, depending on the actor.  Waitlist is only honoured for
// employees.
type AllocateRequest struct {
	JourneyID     string
	ClassID       string
	SeatNumber    string
	PassengerID   string
	Passenger     *PassengerDetails
	PaymentMethod string
	Waitlist      bool
}

// Config holds allocator policy.
type Config struct {
	// Timeout bounds every storage call.  Zero disables the bound.
	Timeout time.Duration
	// CancellableStatuses are the journey statuses under which a booking
	// may be cancelled.
	CancellableStatuses []model.JourneyStatus
	// PointsDivisor is the number of currency units per loyalty point.
	PointsDivisor int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             3 * time.Second,
		CancellableStatuses: []model.JourneyStatus{model.JourneyScheduled},
		PointsDivisor:       10,
	}
}

// Deps are the allocator collaborators.  Ledger and Notifier may be nil, in
// which case the matching side effect is skipped.
type Deps struct {
	Store      Store
	Passengers PassengerStore
	Ledger     Accruer
	Notifier   Notifier
	Logger     logger.Logger
	Metrics    *metrics.Metrics
}

// Allocator is safe for concurrent use.
type Allocator struct {
	store       Store
	passengers  PassengerStore
	ledger      Accruer
	notifier    Notifier
	index       *seat.Index
	log         logger.Logger
	metrics     *metrics.Metrics
	cfg         Config
	cancellable map[model.JourneyStatus]bool
	now         func() time.Time
}

// New returns an Allocator.
func New(d Deps, cfg Config) *Allocator {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	if cfg.PointsDivisor <= 0 {
		cfg.PointsDivisor = 10
	}
	cancellable := make(map[model.JourneyStatus]bool, len(cfg.CancellableStatuses))
	for _, s := range cfg.CancellableStatuses {
		cancellable[s] = true
	}
	return &Allocator{
		store:       d.Store,
		passengers:  d.Passengers,
		ledger:      d.Ledger,
		notifier:    d.Notifier,
		index:       seat.NewIndex(d.Store, cfg.Timeout),
		log:         log,
		metrics:     d.Metrics,
		cfg:         cfg,
		cancellable: cancellable,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (a *Allocator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Timeout)
}

// Allocate books one seat and returns the committed booking.
func (a *Allocator) Allocate(ctx context.Context, actor Actor, req AllocateRequest) (b model.Booking, err error) {
	started := time.Now()
	log := a.log.With("journey_id", req.JourneyID, "class_id", req.ClassID, "seat", req.SeatNumber, "actor_role", string(actor.Role))
	log.Debug("allocation", "state", StateRequested)
	defer func() {
		if err == nil {
			return
		}
		outcome := outcomeOf(err)
		a.metrics.Allocation(outcome, started)
		if outcome == metrics.OutcomeError {
			log.Error("allocation failed", "state", StateRejected, "error", err)
			return
		}
		log.Info("allocation rejected", "state", StateRejected, "error", err)
	}()

	if req.Waitlist && actor.Role != model.RoleEmployee {
		return model.Booking{}, fmt.Errorf("%w: only employees may waitlist", ErrForbidden)
	}

	j, err := a.journey(ctx, req.JourneyID)
	if errors.Is(err, storage.ErrJourneyNotFound) {
		return model.Booking{}, fmt.Errorf("%w: journey %s not found", ErrJourneyUnavailable, req.JourneyID)
	}
	if err != nil {
		return model.Booking{}, err
	}
	if j.Status != model.JourneyScheduled {
		return model.Booking{}, fmt.Errorf("%w: journey %s is %s", ErrJourneyUnavailable, j.ID, j.Status)
	}

	class, err := catalog.Class(req.ClassID)
	if err != nil {
		return model.Booking{}, err
	}
	seq, err := seat.Parse(class.ID, req.SeatNumber)
	if err != nil {
		return model.Booking{}, err
	}
	if err := seat.CheckRange(j, class.ID, seq); err != nil {
		return model.Booking{}, err
	}
	free, err := a.index.SequenceFree(ctx, j, class.ID, seq)
	if err != nil {
		return model.Booking{}, err
	}
	if !free {
		return model.Booking{}, fmt.Errorf("%w: seat %d", ErrSeatTaken, seq)
	}
	label, _ := seat.Label(class.ID, seq)
	log.Debug("allocation", "state", StateSeatChecked, "seat_label", label)

	p, tier, err := a.resolvePassenger(ctx, actor, req)
	if err != nil {
		return model.Booking{}, err
	}
	price, err := pricing.Price(j.BasePrice, class.ID, tier)
	if err != nil {
		return model.Booking{}, err
	}
	log.Debug("allocation", "state", StatePriced, "passenger_id", p.ID, "tier", string(tier), "amount", price.String())

	id, err := uuid.NewV7()
	if err != nil {
		return model.Booking{}, fmt.Errorf("booking id: %w", err)
	}
	now := a.now()
	b = model.Booking{
		ID:            id.String(),
		PassengerID:   p.ID,
		JourneyID:     j.ID,
		TrainID:       j.TrainID,
		ClassID:       class.ID,
		CoachNumber:   class.SeatPrefix,
		SeatNumber:    label,
		SeatSequence:  seq,
		Status:        model.BookingConfirmed,
		PaymentStatus: model.PaymentCompleted,
		PaymentMethod: req.PaymentMethod,
		AmountCents:   pricing.Cents(price),
		BookedAt:      now,
		UpdatedAt:     now,
	}
	if req.Waitlist {
		b.Status = model.BookingWaitlisted
		b.PaymentStatus = model.PaymentPending
	}

	cctx, cancel := a.bound(ctx)
	err = a.store.Claim(cctx, &b)
	cancel()
	switch {
	case errors.Is(err, storage.ErrJourneyNotScheduled):
		return model.Booking{}, fmt.Errorf("%w: journey %s left SCHEDULED", ErrJourneyUnavailable, j.ID)
	case err != nil:
		return model.Booking{}, storage.Classify(err)
	}

	log.Info("allocation", "state", StateCommitted, "booking_id", b.ID, "status", string(b.Status), "amount", b.Amount())
	if b.Status == model.BookingWaitlisted {
		a.metrics.Allocation(metrics.OutcomeWaitlisted, started)
	} else {
		a.metrics.Allocation(metrics.OutcomeCommitted, started)
	}

	// Side effects outlive the request: the booking is committed.
	sctx := context.WithoutCancel(ctx)
	if b.Status == model.BookingConfirmed {
		a.accrue(sctx, log, b)
	}
	a.notify(sctx, log, b, model.NotifyBookingConfirmation, confirmationMessage(b))
	return b, nil
}

// Cancel cancels a booking.  Passengers may only cancel their own; the
// seat becomes available again as soon as the status changes.
func (a *Allocator) Cancel(ctx context.Context, bookingID string, actor Actor) (model.Booking, error) {
	for attempt := 0; attempt < 3; attempt++ {
		b, err := a.booking(ctx, bookingID)
		if err != nil {
			return model.Booking{}, err
		}
		if err := authorize(actor, b); err != nil {
			return model.Booking{}, err
		}
		if b.Status == model.BookingCancelled {
			return model.Booking{}, fmt.Errorf("%w: %s", ErrAlreadyCancelled, b.ID)
		}
		if err := a.checkCancellable(ctx, b.JourneyID); err != nil {
			return model.Booking{}, err
		}
		err = a.transition(ctx, b, model.BookingCancelled, b.PaymentStatus)
		if errors.Is(err, storage.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return model.Booking{}, err
		}
		b.Status = model.BookingCancelled
		b.UpdatedAt = a.now()
		a.metrics.Cancelled()
		log := a.log.With("booking_id", b.ID, "actor_role", string(actor.Role))
		log.Info("booking cancelled")
		a.notify(context.WithoutCancel(ctx), log, b, model.NotifyBookingCancellation,
			fmt.Sprintf("Booking %s for seat %s on journey %s was cancelled.", b.ID, b.SeatNumber, b.JourneyID))
		return b, nil
	}
	return model.Booking{}, storage.ErrStatusConflict
}

// SetStatus is the employee override.  It enforces the booking transition
// table; a move to CANCELLED is checked like Cancel and a move to CONFIRMED
// like a commit, including payment capture and points.
func (a *Allocator) SetStatus(ctx context.Context, bookingID string, next model.BookingStatus) (model.Booking, error) {
	if !next.Valid() {
		return model.Booking{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	for attempt := 0; attempt < 3; attempt++ {
		b, err := a.booking(ctx, bookingID)
		if err != nil {
			return model.Booking{}, err
		}
		if b.Status == model.BookingCancelled && next == model.BookingCancelled {
			return model.Booking{}, fmt.Errorf("%w: %s", ErrAlreadyCancelled, b.ID)
		}
		if !b.Status.CanTransitionTo(next) {
			return model.Booking{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, next)
		}

		payment := b.PaymentStatus
		switch next {
		case model.BookingCancelled:
			if err := a.checkCancellable(ctx, b.JourneyID); err != nil {
				return model.Booking{}, err
			}
		case model.BookingConfirmed:
			j, err := a.journey(ctx, b.JourneyID)
			if err != nil {
				return model.Booking{}, err
			}
			if j.Status != model.JourneyScheduled {
				return model.Booking{}, fmt.Errorf("%w: journey %s is %s", ErrJourneyUnavailable, j.ID, j.Status)
			}
			payment = model.PaymentCompleted
		}

		err = a.transition(ctx, b, next, payment)
		if errors.Is(err, storage.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return model.Booking{}, err
		}
		prev := b.Status
		b.Status, b.PaymentStatus, b.UpdatedAt = next, payment, a.now()
		a.metrics.StatusOverride(string(next))
		log := a.log.With("booking_id", b.ID, "from", string(prev), "to", string(next))
		log.Info("booking status changed")

		sctx := context.WithoutCancel(ctx)
		if next == model.BookingConfirmed {
			a.accrue(sctx, log, b)
			a.notify(sctx, log, b, model.NotifyBookingConfirmation, confirmationMessage(b))
		} else {
			a.notify(sctx, log, b, model.NotifyBookingStatusUpdate,
				fmt.Sprintf("Booking %s status changed from %s to %s.", b.ID, prev, next))
		}
		return b, nil
	}
	return model.Booking{}, storage.ErrStatusConflict
}

func (a *Allocator) journey(ctx context.Context, id string) (model.Journey, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()
	j, err := a.store.Journey(ctx, id)
	return j, storage.Classify(err)
}

func (a *Allocator) booking(ctx context.Context, id string) (model.Booking, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()
	b, err := a.store.Booking(ctx, id)
	return b, storage.Classify(err)
}

func (a *Allocator) transition(ctx context.Context, b model.Booking, to model.BookingStatus, payment model.PaymentStatus) error {
	ctx, cancel := a.bound(ctx)
	defer cancel()
	return storage.Classify(a.store.TransitionStatus(ctx, b.ID, b.Status, to, payment))
}

func (a *Allocator) checkCancellable(ctx context.Context, journeyID string) error {
	j, err := a.journey(ctx, journeyID)
	if err != nil {
		return err
	}
	if !a.cancellable[j.Status] {
		return fmt.Errorf("%w: journey %s is %s", ErrJourneyNotCancellable, j.ID, j.Status)
	}
	return nil
}

// resolvePassenger returns the booking passenger and the tier used for
// pricing.  Passengers registered on the spot through details are priced
// as anonymous.
func (a *Allocator) resolvePassenger(ctx context.Context, actor Actor, req AllocateRequest) (model.Passenger, model.LoyaltyTier, error) {
	switch actor.Role {
	case model.RolePassenger:
		if req.PassengerID != "" && req.PassengerID != actor.PassengerID {
			return model.Passenger{}, model.TierNone, fmt.Errorf("%w: cannot book for another passenger", ErrForbidden)
		}
		p, err := a.passenger(ctx, actor.PassengerID)
		if err != nil {
			return model.Passenger{}, model.TierNone, err
		}
		return p, p.LoyaltyStatus, nil
	case model.RoleEmployee:
		if req.PassengerID != "" {
			p, err := a.passenger(ctx, req.PassengerID)
			if err != nil {
				return model.Passenger{}, model.TierNone, err
			}
			return p, p.LoyaltyStatus, nil
		}
	default:
		if req.PassengerID != "" {
			return model.Passenger{}, model.TierNone, fmt.Errorf("%w: sign in to book as an existing passenger", ErrForbidden)
		}
	}
	if req.Passenger == nil {
		return model.Passenger{}, model.TierNone, ErrPassengerRequired
	}
	p, err := a.findOrCreate(ctx, *req.Passenger)
	return p, model.TierNone, err
}

func (a *Allocator) passenger(ctx context.Context, id string) (model.Passenger, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()
	p, err := a.passengers.Passenger(ctx, id)
	return p, storage.Classify(err)
}

// findOrCreate runs after the advisory seat check and before the claim.  A
// passenger it creates is kept when the claim is then rejected; a retry
// with the same email finds that record instead of creating another.
func (a *Allocator) findOrCreate(ctx context.Context, d PassengerDetails) (model.Passenger, error) {
	email := strings.ToLower(strings.TrimSpace(d.Email))
	name := strings.TrimSpace(d.Name)
	if email == "" || name == "" {
		return model.Passenger{}, fmt.Errorf("%w: name and email are required", ErrPassengerRequired)
	}
	ctx, cancel := a.bound(ctx)
	defer cancel()

	p, err := a.passengers.PassengerByEmail(ctx, email)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrPassengerNotFound) {
		return model.Passenger{}, storage.Classify(err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return model.Passenger{}, fmt.Errorf("passenger id: %w", err)
	}
	p = model.Passenger{
		ID:            id.String(),
		Name:          name,
		Email:         email,
		Phone:         strings.TrimSpace(d.Phone),
		LoyaltyStatus: loyalty.TierOf(0),
		CreatedAt:     a.now(),
	}
	err = a.passengers.CreatePassenger(ctx, &p)
	if errors.Is(err, storage.ErrPassengerExists) {
		p, err = a.passengers.PassengerByEmail(ctx, email)
	}
	return p, storage.Classify(err)
}

func (a *Allocator) accrue(ctx context.Context, log logger.Logger, b model.Booking) {
	if a.ledger == nil {
		return
	}
	points := loyalty.PointsFor(b.AmountCents, a.cfg.PointsDivisor)
	tier, err := a.ledger.Accrue(ctx, b.PassengerID, points)
	if err != nil {
		a.metrics.SideEffectFailed(metrics.EffectLoyalty)
		log.Error("loyalty accrual failed", "passenger_id", b.PassengerID, "points", points, "error", err)
		return
	}
	log.Debug("loyalty accrued", "passenger_id", b.PassengerID, "points", points, "tier", string(tier))
}

func (a *Allocator) notify(ctx context.Context, log logger.Logger, b model.Booking, typ model.NotificationType, msg string) {
	if a.notifier == nil {
		return
	}
	id, err := uuid.NewV7()
	if err == nil {
		ctx, cancel := a.bound(ctx)
		err = a.notifier.Notify(ctx, model.Notification{
			ID:          id.String(),
			PassengerID: b.PassengerID,
			BookingID:   b.ID,
			Type:        typ,
			Message:     msg,
			CreatedAt:   a.now(),
		})
		cancel()
	}
	if err != nil {
		a.metrics.SideEffectFailed(metrics.EffectNotification)
		log.Error("notification failed", "type", string(typ), "passenger_id", b.PassengerID, "error", err)
	}
}

func authorize(actor Actor, b model.Booking) error {
	switch actor.Role {
	case model.RoleEmployee:
		return nil
	case model.RolePassenger:
		if actor.PassengerID == b.PassengerID {
			return nil
		}
	}
	return fmt.Errorf("%w: booking %s belongs to another passenger", ErrForbidden, b.ID)
}

func confirmationMessage(b model.Booking) string {
	if b.Status == model.BookingWaitlisted {
		return fmt.Sprintf("Booking %s is waitlisted for seat %s on journey %s.", b.ID, b.SeatNumber, b.JourneyID)
	}
	return fmt.Sprintf("Booking %s confirmed: seat %s on journey %s, amount %.2f.", b.ID, b.SeatNumber, b.JourneyID, b.Amount())
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrSeatTaken):
		return metrics.OutcomeSeatTaken
	case errors.Is(err, ErrStorageTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, ErrJourneyUnavailable),
		errors.Is(err, ErrInvalidSeat),
		errors.Is(err, ErrUnknownClass),
		errors.Is(err, ErrPassengerRequired),
		errors.Is(err, ErrPassengerNotFound),
		errors.Is(err, ErrForbidden):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}

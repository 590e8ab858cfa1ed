// Package storage defines the error contract shared by every storage
// backend (the MySQL repositories and the in-memory store).  Higher layers
// match these values with errors.Is and never inspect driver errors.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrJourneyNotFound is returned when no journey has the requested id.
	ErrJourneyNotFound = errors.New("journey not found")
	// ErrBookingNotFound is returned when no booking has the requested id.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrPassengerNotFound is returned when no passenger has the requested id.
	ErrPassengerNotFound = errors.New("passenger not found")
	// ErrNotificationNotFound is returned when a notification does not exist
	// or belongs to another passenger.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrPassengerExists is returned when a passenger email is already
	// registered.
	ErrPassengerExists = errors.New("passenger already exists")

	// ErrSeatTaken signals that the active-seat uniqueness constraint
	// rejected a claim.
	ErrSeatTaken = errors.New("seat taken")
	// ErrJourneyNotScheduled is returned by a claim when the journey left
	// the SCHEDULED status before the booking could be inserted.
	ErrJourneyNotScheduled = errors.New("journey not scheduled")
	// ErrStatusConflict is returned by compare-and-swap status updates when
	// the stored status no longer matches the expected one.
	ErrStatusConflict = errors.New("status changed concurrently")

	// ErrTimeout wraps deadline and network timeouts.  Operations that fail
	// with it left no partial state behind and may be retried.
	ErrTimeout = errors.New("storage timeout")
)

// Classify maps context deadlines and network timeouts to ErrTimeout and
// returns every other error unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

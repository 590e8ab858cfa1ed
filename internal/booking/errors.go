package booking

import (
	"errors"

	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/seat"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// Errors returned by the allocator.  Callers match them with errors.Is;
// several are the storage or catalog values themselves so that wrapped
// errors from lower layers match without translation.
var (
	ErrJourneyUnavailable = errors.New("journey unavailable")
	ErrInvalidSeat        = seat.ErrInvalidSeat
	ErrSeatTaken          = storage.ErrSeatTaken
	ErrUnknownClass       = catalog.ErrUnknownClass

	ErrBookingNotFound       = storage.ErrBookingNotFound
	ErrAlreadyCancelled      = errors.New("booking already cancelled")
	ErrInvalidTransition     = errors.New("invalid booking status transition")
	ErrJourneyNotCancellable = errors.New("journey status does not allow cancellation")

	ErrPassengerRequired = errors.New("passenger id or passenger details required")
	ErrPassengerNotFound = storage.ErrPassengerNotFound
	ErrForbidden         = errors.New("forbidden")

	// ErrStorageTimeout is retryable: the failed operation left nothing
	// behind.
	ErrStorageTimeout = storage.ErrTimeout
)

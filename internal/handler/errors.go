package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/service"
	"github.com/iliyamo/rail-booking/internal/storage"
)

type apiError struct {
	status  int
	code    string
	message string
}

// apiErrors is checked in order; the first match wins.
var apiErrors = []struct {
	err error
	apiError
}{
	{booking.ErrInvalidSeat, apiError{http.StatusBadRequest, "invalid_seat", "seat number is not valid for this class"}},
	{booking.ErrUnknownClass, apiError{http.StatusBadRequest, "unknown_class", "unknown class"}},
	{booking.ErrPassengerRequired, apiError{http.StatusBadRequest, "passenger_required", "passenger details are required"}},
	{service.ErrInvalidDate, apiError{http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD"}},
	{service.ErrInvalidRequest, apiError{http.StatusBadRequest, "invalid_request", "required fields are missing"}},
	{booking.ErrJourneyUnavailable, apiError{http.StatusConflict, "journey_unavailable", "cannot book this journey"}},
	{booking.ErrSeatTaken, apiError{http.StatusConflict, "seat_taken", "seat is no longer available, refresh the seat map and pick another"}},
	{storage.ErrStatusConflict, apiError{http.StatusConflict, "conflict", "the record changed concurrently, try again"}},
	{booking.ErrBookingNotFound, apiError{http.StatusNotFound, "booking_not_found", "booking not found"}},
	{booking.ErrPassengerNotFound, apiError{http.StatusNotFound, "passenger_not_found", "passenger not found"}},
	{storage.ErrJourneyNotFound, apiError{http.StatusNotFound, "journey_not_found", "journey not found"}},
	{storage.ErrNotificationNotFound, apiError{http.StatusNotFound, "notification_not_found", "notification not found"}},
	{booking.ErrAlreadyCancelled, apiError{http.StatusPreconditionFailed, "already_cancelled", "booking is already cancelled"}},
	{booking.ErrInvalidTransition, apiError{http.StatusPreconditionFailed, "invalid_transition", "status change is not allowed"}},
	{booking.ErrJourneyNotCancellable, apiError{http.StatusPreconditionFailed, "journey_not_cancellable", "bookings on this journey can no longer be cancelled"}},
	{catalog.ErrInvalidJourneyTransition, apiError{http.StatusPreconditionFailed, "invalid_transition", "journey status change is not allowed"}},
	{booking.ErrForbidden, apiError{http.StatusForbidden, "forbidden", "not allowed"}},
	{booking.ErrStorageTimeout, apiError{http.StatusServiceUnavailable, "storage_timeout", "temporarily unavailable, try again"}},
}

var errInternal = apiError{http.StatusInternalServerError, "internal", "something went wrong, try again"}

func classify(err error) apiError {
	for _, e := range apiErrors {
		if errors.Is(err, e.err) {
			return e.apiError
		}
	}
	return errInternal
}

// fail writes the error response.  Unexpected errors are logged with the
// request context and reported generically.
func (h *Handler) fail(c echo.Context, err error) error {
	e := classify(err)
	if e.status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", e.status,
			"error", err,
		)
	}
	return c.JSON(e.status, echo.Map{"error": e.code, "message": e.message})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": msg})
}

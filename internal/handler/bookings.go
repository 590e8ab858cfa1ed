package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rail-booking/internal/middleware"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/service"
)

// CreateBooking handles POST /v1/bookings.  Anonymous callers must send
// passenger_details; signed-in passengers book for themselves and
// employees on behalf of passenger_id or passenger_details.
func (h *Handler) CreateBooking(c echo.Context) error {
	var req service.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	created, err := h.svc.CreateBooking(c.Request().Context(), middleware.Actor(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// ListBookings handles GET /v1/bookings (employee) and GET /v1/my-bookings
// (passenger).
func (h *Handler) ListBookings(c echo.Context) error {
	items, err := h.svc.ListBookings(c.Request().Context(), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *Handler) GetBooking(c echo.Context) error {
	v, err := h.svc.GetBooking(c.Request().Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// CancelBooking handles DELETE /v1/bookings/:id.
func (h *Handler) CancelBooking(c echo.Context) error {
	v, err := h.svc.CancelBooking(c.Request().Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// UpdateBookingStatus handles PUT /v1/bookings/:id/status (employee).
func (h *Handler) UpdateBookingStatus(c echo.Context) error {
	var body statusRequest
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Status) == "" {
		return badRequest(c, "status is required")
	}
	v, err := h.svc.UpdateBookingStatus(c.Request().Context(), c.Param("id"), model.BookingStatus(strings.TrimSpace(body.Status)))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rail-booking/internal/middleware"
)

// MyLoyalty handles GET /v1/me/loyalty.
func (h *Handler) MyLoyalty(c echo.Context) error {
	snap, err := h.svc.Loyalty(c.Request().Context(), middleware.Actor(c).PassengerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// PassengerLoyalty handles GET /v1/passengers/:id/loyalty (employee).
func (h *Handler) PassengerLoyalty(c echo.Context) error {
	snap, err := h.svc.Loyalty(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// Notifications handles GET /v1/notifications.
func (h *Handler) Notifications(c echo.Context) error {
	items, err := h.svc.Notifications(c.Request().Context(), middleware.Actor(c).PassengerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// MarkNotificationRead handles POST /v1/notifications/:id/read.
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	if err := h.svc.MarkNotificationRead(c.Request().Context(), middleware.Actor(c).PassengerID, c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

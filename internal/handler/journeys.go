package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rail-booking/internal/middleware"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/service"
)

// Classes handles GET /v1/classes.
func (h *Handler) Classes(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.svc.Classes()})
}

// SearchJourneys handles GET /v1/search/journeys?from=RUH&to=DMM&date=2026-11-02.
// Prices are discounted when the caller is a signed-in passenger.
func (h *Handler) SearchJourneys(c echo.Context) error {
	q := service.SearchQuery{From: c.QueryParam("from"), To: c.QueryParam("to"), Date: c.QueryParam("date")}
	if q.From == "" || q.To == "" || q.Date == "" {
		return badRequest(c, "from, to and date are required")
	}
	items, err := h.svc.Search(c.Request().Context(), middleware.Actor(c), q)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetJourney handles GET /v1/journeys/:id.
func (h *Handler) GetJourney(c echo.Context) error {
	d, err := h.svc.Journey(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// SeatMap handles GET /v1/journeys/:id/classes/:class_id/seats.  With
// ?available=true only free seats are listed.
func (h *Handler) SeatMap(c echo.Context) error {
	seats, err := h.svc.SeatMap(c.Request().Context(), c.Param("id"), c.Param("class_id"))
	if err != nil {
		return h.fail(c, err)
	}
	if strings.EqualFold(c.QueryParam("available"), "true") {
		free := seats[:0]
		for _, s := range seats {
			if s.Available {
				free = append(free, s)
			}
		}
		seats = free
	}
	return c.JSON(http.StatusOK, echo.Map{"journey_id": c.Param("id"), "class_id": strings.ToUpper(c.Param("class_id")), "seats": seats})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateJourneyStatus handles PUT /v1/journeys/:id/status (employee).
func (h *Handler) UpdateJourneyStatus(c echo.Context) error {
	var body statusRequest
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Status) == "" {
		return badRequest(c, "status is required")
	}
	d, err := h.svc.UpdateJourneyStatus(c.Request().Context(), c.Param("id"), model.JourneyStatus(strings.TrimSpace(body.Status)))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Package router registers the HTTP routes on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/rail-booking/internal/handler"
	"github.com/iliyamo/rail-booking/internal/middleware"
	"github.com/iliyamo/rail-booking/internal/model"
)

// Options carries the shared middleware.  A nil Cache or RateLimit is
// skipped.
type Options struct {
	JWTSecret string
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func (o Options) cache() echo.MiddlewareFunc {
	if o.Cache == nil {
		return passThrough
	}
	return o.Cache
}

func (o Options) rateLimit() echo.MiddlewareFunc {
	if o.RateLimit == nil {
		return passThrough
	}
	return o.RateLimit
}

// RegisterRoutes registers the unauthenticated operational endpoints:
// health check and prometheus scrape.
func RegisterRoutes(e *echo.Echo, gatherer prometheus.Gatherer) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// RegisterPublic registers the browse endpoints and booking creation.
// Search and booking accept an optional token so signed-in passengers get
// their loyalty price.
func RegisterPublic(e *echo.Echo, h *handler.Handler, o Options) {
	optional := middleware.OptionalJWT(o.JWTSecret)

	g := e.Group("/v1")
	g.GET("/classes", h.Classes, o.cache())
	g.GET("/search/journeys", h.SearchJourneys, optional)
	g.GET("/journeys/:id", h.GetJourney)
	g.GET("/journeys/:id/classes/:class_id/seats", h.SeatMap)
	g.POST("/bookings", h.CreateBooking, optional, o.rateLimit())
}

// authenticated returns the token and role checks for a route.  They are
// attached per route: a group carrying middleware claims every unmatched
// path under its prefix, which would turn unknown /v1 paths into 401s.
func (o Options) authenticated(roles ...model.Role) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{middleware.JWTAuth(o.JWTSecret), middleware.RequireRole(roles...)}
}

// RegisterPassenger registers endpoints shared by passengers and employees
// and the passenger-only self-service endpoints.
func RegisterPassenger(e *echo.Echo, h *handler.Handler, o Options) {
	g := e.Group("/v1")

	auth := o.authenticated(model.RolePassenger, model.RoleEmployee)
	g.GET("/bookings/:id", h.GetBooking, auth...)
	g.DELETE("/bookings/:id", h.CancelBooking, append(auth, o.rateLimit())...)

	me := o.authenticated(model.RolePassenger)
	g.GET("/my-bookings", h.ListBookings, me...)
	g.GET("/me/loyalty", h.MyLoyalty, me...)
	g.GET("/notifications", h.Notifications, me...)
	g.POST("/notifications/:id/read", h.MarkNotificationRead, me...)
}

// RegisterEmployee registers the operations endpoints.
func RegisterEmployee(e *echo.Echo, h *handler.Handler, o Options) {
	g := e.Group("/v1")

	staff := o.authenticated(model.RoleEmployee)
	g.GET("/bookings", h.ListBookings, staff...)
	g.PUT("/bookings/:id/status", h.UpdateBookingStatus, staff...)
	g.PUT("/journeys/:id/status", h.UpdateJourneyStatus, staff...)
	g.GET("/passengers/:id/loyalty", h.PassengerLoyalty, staff...)
}

// Register wires every route group.
func Register(e *echo.Echo, h *handler.Handler, gatherer prometheus.Gatherer, o Options) {
	RegisterRoutes(e, gatherer)
	RegisterPublic(e, h, o)
	RegisterPassenger(e, h, o)
	RegisterEmployee(e, h, o)
}

package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/model"
)

// Actor returns the caller identity set by JWTAuth or OptionalJWT.  A
// request without a token, or with an unknown role, is anonymous.
func Actor(c echo.Context) booking.Actor {
	role, _ := c.Get(CtxRole).(string)
	sub, _ := c.Get(CtxSubject).(string)
	r := model.Role(role)
	if !r.Valid() || sub == "" {
		return booking.Actor{}
	}
	a := booking.Actor{Role: r}
	if r == model.RolePassenger {
		a.PassengerID = sub
	}
	return a
}

// subject returns the token subject, or "anon".
func subject(c echo.Context) string {
	if s, ok := c.Get(CtxSubject).(string); ok && s != "" {
		return s
	}
	return "anon"
}

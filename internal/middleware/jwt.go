package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"   // errors reports parse failures
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// Context keys populated from a valid token.
const (
	CtxSubject = "user_id"
	CtxRole    = "role"
)

var errNoToken = errors.New("missing bearer token")

// parseBearer validates the Authorization header and returns its claims.
// errNoToken is returned when the header is absent.
func parseBearer(c echo.Context, secret string) (jwt.MapClaims, error) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return nil, errNoToken
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, errors.New("malformed authorization header")
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	// Reject anything not signed with HMAC; exp is validated by the parser.
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

func setIdentity(c echo.Context, claims jwt.MapClaims) {
	c.Set(CtxSubject, claims["sub"])
	c.Set(CtxRole, claims["role"])
}

// JWTAuth returns an Echo middleware that requires a valid Bearer access
// token and injects its subject and role claims into the request context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := parseBearer(c, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}

// OptionalJWT lets anonymous requests through but still rejects a token
// that is present and invalid, so a caller never silently loses their
// loyalty discount.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := parseBearer(c, secret)
			switch {
			case errors.Is(err, errNoToken):
				return next(c)
			case err != nil:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}

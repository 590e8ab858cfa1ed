package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/config"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, sub string, role model.Role, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, sub, role, ttl)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

// serve runs h behind mw and returns the recorder and the actor seen.
func serve(t *testing.T, auth string, mw ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, booking.Actor) {
	t.Helper()
	e := echo.New()
	var seen booking.Actor
	e.GET("/x", func(c echo.Context) error {
		seen = Actor(c)
		return c.NoContent(http.StatusNoContent)
	}, mw...)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestJWTAuth(t *testing.T) {
	tests := []struct {
		name   string
		auth   string
		status int
		actor  booking.Actor
	}{
		{"passenger", token(t, "P1", model.RolePassenger, time.Minute), http.StatusNoContent, booking.Actor{Role: model.RolePassenger, PassengerID: "P1"}},
		{"employee", token(t, "E1", model.RoleEmployee, time.Minute), http.StatusNoContent, booking.Actor{Role: model.RoleEmployee}},
		{"missing", "", http.StatusUnauthorized, booking.Actor{}},
		{"expired", token(t, "P1", model.RolePassenger, -time.Minute), http.StatusUnauthorized, booking.Actor{}},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, booking.Actor{}},
		{"basic", "Basic Zm9vOmJhcg==", http.StatusUnauthorized, booking.Actor{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, actor := serve(t, tt.auth, JWTAuth(secret))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.actor, actor)
		})
	}
}

func TestOptionalJWT(t *testing.T) {
	rec, actor := serve(t, "", OptionalJWT(secret))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, booking.Actor{}, actor)

	rec, actor = serve(t, token(t, "P7", model.RolePassenger, time.Minute), OptionalJWT(secret))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "P7", actor.PassengerID)

	rec, _ = serve(t, "Bearer broken", OptionalJWT(secret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWrongSecretRejected(t *testing.T) {
	tok, err := utils.NewAccessToken("other", "P1", model.RolePassenger, time.Minute)
	require.NoError(t, err)
	rec, _ := serve(t, "Bearer "+tok.Token, JWTAuth(secret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	rec, _ := serve(t, token(t, "P1", model.RolePassenger, time.Minute), JWTAuth(secret), RequireRole(model.RoleEmployee))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serve(t, token(t, "E1", model.RoleEmployee, time.Minute), JWTAuth(secret), RequireRole(model.RoleEmployee))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUnknownRoleIsAnonymous(t *testing.T) {
	_, actor := serve(t, token(t, "X", model.Role("OWNER"), time.Minute), JWTAuth(secret))
	assert.Equal(t, booking.Actor{}, actor)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"items":[]}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"items":[]}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	c.Set(CtxSubject, "P1")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "passenger"}
	assert.Equal(t, "rl:sub:P1:route:POST /v1/bookings", rateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:sub:P1:route:POST /v1/bookings", rateKey(cfg, c))
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	rec, _ := serve(t, "",
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

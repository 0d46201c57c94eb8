package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/tour-ticketing/internal/config"
)

func rateKeyFor(strategy string, uid any) string {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/orders")
	if uid != nil {
		c.Set("user_id", uid)
	}
	return rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
}

func TestRateKeyStrategies(t *testing.T) {
	assert.Equal(t, "rl:ip:203.0.113.7", rateKeyFor("ip", nil))
	assert.Equal(t, "rl:user:42", rateKeyFor("user", float64(42)))
	assert.Equal(t, "rl:route:POST /v1/orders", rateKeyFor("route", nil))
	assert.Equal(t,
		"rl:ip:203.0.113.7:user:42:route:POST /v1/orders",
		rateKeyFor("ip_user_route", float64(42)))
}

func TestRateCallerIDHandlesJWTClaimShapes(t *testing.T) {
	// JWT numeric claims come out of the parser as float64; the limiter
	// must bucket those per user rather than lumping them under anon.
	assert.Equal(t, "42", rateKeyFor("user", float64(42))[len("rl:user:"):])
	assert.Equal(t, "abc", rateKeyFor("user", "abc")[len("rl:user:"):])
	assert.Equal(t, "anon", rateKeyFor("user", nil)[len("rl:user:"):])
	assert.Equal(t, "anon", rateKeyFor("user", "")[len("rl:user:"):])
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(7), asInt64(int64(7)))
	assert.Equal(t, int64(7), asInt64(7))
	assert.Equal(t, int64(7), asInt64("7"))
	assert.Equal(t, int64(0), asInt64("seven"))
	assert.Equal(t, int64(0), asInt64(nil))
}

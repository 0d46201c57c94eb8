package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func runJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := JWTAuth(testSecret)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, h(c))
	return rec, c
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := runJWT(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthBadSignature(t *testing.T) {
	tok := signToken(t, "other-secret", jwt.MapClaims{"sub": 1, "exp": time.Now().Add(time.Hour).Unix()})
	rec, _ := runJWT(t, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthExpired(t *testing.T) {
	tok := signToken(t, testSecret, jwt.MapClaims{"sub": 1, "exp": time.Now().Add(-time.Minute).Unix()})
	rec, _ := runJWT(t, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthValidTokenSetsContext(t *testing.T) {
	tok := signToken(t, testSecret, jwt.MapClaims{
		"sub":  float64(42),
		"role": "CUSTOMER",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	rec, c := runJWT(t, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), c.Get("user_id"))
	assert.Equal(t, "CUSTOMER", c.Get("role"))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRole(t *testing.T, role any, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}
	h := RequireRole(allowed...)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, h(c))
	return rec
}

func TestRequireRoleAllows(t *testing.T) {
	rec := runRole(t, "ADMIN", "ADMIN")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleAllowsAnyListed(t *testing.T) {
	rec := runRole(t, "CUSTOMER", "CUSTOMER", "ADMIN")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleRejectsWrongRole(t *testing.T) {
	rec := runRole(t, "CUSTOMER", "ADMIN")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleRejectsMissingRole(t *testing.T) {
	rec := runRole(t, nil, "ADMIN")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleRejectsNonString(t *testing.T) {
	rec := runRole(t, 7, "ADMIN")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

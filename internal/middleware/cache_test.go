package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-ticketing/internal/config"
)

func TestCacheEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	payload, err := encodeEntry(http.StatusOK, hdr, []byte(`{"items":[]}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodeEntry(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"items":[]}`, string(body))
}

func TestCacheEntryRejectsGarbage(t *testing.T) {
	_, _, _, ok := decodeEntry([]byte("short"))
	assert.False(t, ok)

	// header length pointing past the payload
	payload, err := encodeEntry(http.StatusOK, http.Header{}, nil)
	require.NoError(t, err)
	_, _, _, ok = decodeEntry(payload[:6])
	assert.False(t, ok)
}

func TestCacheKeyIgnoresQueryWhenConfigured(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route"}
	e := echo.New()

	key := func(target string) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/spots")
		return cacheKey(cfg, c)
	}
	assert.Equal(t, key("/v1/spots?page=1"), key("/v1/spots?page=2"))

	cfg.KeyStrategy = "route_query"
	assert.NotEqual(t, key("/v1/spots?page=1"), key("/v1/spots?page=2"))
}

func TestRecordingWriterSkipsOversizedBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &recordingWriter{ResponseWriter: rec, status: http.StatusOK, limit: 8}

	_, err := w.Write([]byte("0123456789"))
	require.NoError(t, err)

	// The client still gets the full body, the cache buffer does not.
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.True(t, w.overflow)
	assert.Zero(t, w.buf.Len())
}

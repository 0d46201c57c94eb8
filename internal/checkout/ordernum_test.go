package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNo(t *testing.T) {
	at := time.Date(2026, 1, 15, 9, 30, 42, 0, time.UTC)
	no := NewOrderNo(at)

	assert.Len(t, no, 22)
	assert.Equal(t, "TT20260115093042", no[:16])
	assert.Regexp(t, `^[0-9A-F]{6}$`, no[16:])
}

func TestNewOrderNoUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	at := time.Date(2026, 1, 15, 12, 0, 0, 0, loc)
	no := NewOrderNo(at)
	assert.Equal(t, "TT20260115090000", no[:16])
}

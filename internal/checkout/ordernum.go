package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// orderNoPrefix brands every order number; the rest is a UTC second
// timestamp plus a random hex tail. Uniqueness is enforced by the
// database index, the tail only keeps collisions rare within a second.
const orderNoPrefix = "TT"

// NewOrderNo builds an order number like TT20260115093042A1F3C9.
func NewOrderNo(t time.Time) string {
	var tail [3]byte
	_, _ = rand.Read(tail[:])
	return orderNoPrefix + t.UTC().Format("20060102150405") + strings.ToUpper(hex.EncodeToString(tail[:]))
}

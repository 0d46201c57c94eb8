// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the checkout service to distinguish between different
// failure scenarios without string matching.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSpotNotFound indicates that a spot was not located in the DB.
var ErrSpotNotFound = errors.New("spot not found")

// ErrTicketNotFound indicates that a ticket was not located in the DB.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrCartItemNotFound indicates that a cart item was not located in the DB.
var ErrCartItemNotFound = errors.New("cart item not found")

// ErrOrderNotFound indicates that an order was not located in the DB.
var ErrOrderNotFound = errors.New("order not found")

// ErrDuplicateOrderNo is returned when an INSERT hits the unique index
// on orders.order_no. The checkout service regenerates the number and
// retries within the same transaction attempt.
var ErrDuplicateOrderNo = errors.New("duplicate order number")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (code 1062). Duplicate-key errors do not poison the surrounding
// transaction, so callers may retry the statement.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

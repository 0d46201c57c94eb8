package checkout

import (
	"errors"
	"fmt"

	"github.com/iliyamo/tour-ticketing/internal/model"
)

var (
	// ErrEmptyOrder is returned when a checkout resolves to zero lines.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidQuantity is returned for a direct booking with quantity zero.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrCartEntryNotFound is returned when a requested cart entry does
	// not exist or belongs to another user.
	ErrCartEntryNotFound = errors.New("cart entry not found")
	// ErrTicketNotFound is returned for a direct booking of an unknown ticket.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrOrderNotFound is returned when an order id does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUnauthorized is returned when a non-admin caller addresses an
	// order they do not own. Handlers present it as a not-found so the
	// existence of other users' orders never leaks.
	ErrUnauthorized = errors.New("not allowed")
	// ErrDuplicateOrderNo is returned by stores when an order number
	// collides with an existing one; the service regenerates and retries.
	ErrDuplicateOrderNo = errors.New("duplicate order number")
	// ErrOrderNoExhausted is returned when every retry produced a collision.
	ErrOrderNoExhausted = errors.New("could not allocate a unique order number")
)

// ItemUnavailableError marks a checkout line whose ticket is no longer
// on sale.
type ItemUnavailableError struct {
	Name string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("ticket %q is not available", e.Name)
}

// InsufficientStockError marks a checkout line asking for more units
// than the ticket has left. Available carries the stock observed under
// lock so the client can offer it.
type InsufficientStockError struct {
	Name      string
	Available uint32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("ticket %q has only %d left", e.Name, e.Available)
}

// InvalidTransitionError marks a status change the order state machine
// does not allow.
type InvalidTransitionError struct {
	From model.OrderStatus
	To   model.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket statuses. A ticket can only be carted and purchased while ACTIVE.
const (
	TicketActive   = "ACTIVE"
	TicketInactive = "INACTIVE"
)

// Ticket is a sellable unit belonging to a spot, as stored in the
// `tickets` table. Stock is the contended resource of the whole
// system: it is decremented inside the checkout transaction and
// restored when a pending order is cancelled, and must never go
// negative. UnitPrice maps to a DECIMAL(10,2) column.
//
// Fields:
//  ID        – primary key identifier.
//  SpotID    – owning spot.
//  Name      – ticket name (e.g. "Adult day pass").
//  UnitPrice – current selling price; snapshotted onto order items.
//  Stock     – remaining purchasable count, never negative.
//  Status    – ACTIVE or INACTIVE.
//  ValidFrom – optional first valid date.
//  ValidTo   – optional last valid date.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Ticket struct {
	ID        uint64          // tickets.id
	SpotID    uint64          // tickets.spot_id
	Name      string          // tickets.name
	UnitPrice decimal.Decimal // tickets.unit_price DECIMAL(10,2)
	Stock     uint32          // tickets.stock
	Status    string          // tickets.status
	ValidFrom *time.Time      // tickets.valid_from (nullable)
	ValidTo   *time.Time      // tickets.valid_to (nullable)
	CreatedAt time.Time       // tickets.created_at
	UpdatedAt time.Time       // tickets.updated_at
}

// Sellable reports whether the ticket can currently be added to a cart
// or purchased. Only the ACTIVE status is sellable; the optional
// validity window restricts when the ticket may be used, not when it
// may be bought, so it is not consulted here.
func (t *Ticket) Sellable() bool {
	return t.Status == TicketActive
}

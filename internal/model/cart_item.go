package model

import "time"

// CartItem is one row of a user's cart, stored in the `cart_items`
// table. The pair (UserID, TicketID) is unique: adding the same ticket
// twice updates the existing row instead of inserting a duplicate.
// Cart rows are deleted when the quantity is set to zero, when the
// user removes or clears them, or when a checkout consumes them.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – cart owner.
//  TicketID  – referenced ticket.
//  Quantity  – requested quantity, always >= 1 while the row exists.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type CartItem struct {
	ID        uint64    // cart_items.id
	UserID    uint64    // cart_items.user_id
	TicketID  uint64    // cart_items.ticket_id
	Quantity  uint32    // cart_items.quantity
	CreatedAt time.Time // cart_items.created_at
	UpdatedAt time.Time // cart_items.updated_at
}

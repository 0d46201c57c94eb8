// This file defines repository methods for cart items. Carts are
// private per user, so no cross-user locking is needed; the only
// transactional entry points are the checkout helpers that join cart
// rows with locked ticket rows and delete consumed entries.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-ticketing/internal/model"
)

// CartRepo provides data access to the cart_items table.
type CartRepo struct {
	db *sql.DB
}

// NewCartRepo returns a new CartRepo bound to the given database.
func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// CartLine is a cart item joined with the catalog fields the client
// needs to render the cart: current name, price, stock and status of
// the ticket plus its spot name.
type CartLine struct {
	model.CartItem
	TicketName   string
	SpotName     string
	UnitPrice    decimal.Decimal
	TicketStock  uint32
	TicketStatus string
}

// GetByUserAndTicket returns the user's cart row for a ticket, or
// ErrCartItemNotFound when the ticket is not in the cart.
func (r *CartRepo) GetByUserAndTicket(ctx context.Context, userID, ticketID uint64) (*model.CartItem, error) {
	const q = `SELECT id, user_id, ticket_id, quantity, created_at, updated_at
	           FROM cart_items WHERE user_id = ? AND ticket_id = ?`
	var ci model.CartItem
	err := r.db.QueryRowContext(ctx, q, userID, ticketID).Scan(
		&ci.ID, &ci.UserID, &ci.TicketID, &ci.Quantity, &ci.CreatedAt, &ci.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return &ci, nil
}

// GetByIDForUser returns a cart row by primary key, restricted to the
// owning user so one customer can never address another's cart rows.
func (r *CartRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*model.CartItem, error) {
	const q = `SELECT id, user_id, ticket_id, quantity, created_at, updated_at
	           FROM cart_items WHERE id = ? AND user_id = ?`
	var ci model.CartItem
	err := r.db.QueryRowContext(ctx, q, id, userID).Scan(
		&ci.ID, &ci.UserID, &ci.TicketID, &ci.Quantity, &ci.CreatedAt, &ci.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return &ci, nil
}

// Upsert writes the user's cart row for a ticket to the given absolute
// quantity. The unique (user_id, ticket_id) index turns a re-add into
// an update, so the same ticket never occupies two rows. Callers pass
// the already-resolved final quantity; quantity zero must be handled by
// the caller via Delete, not here.
func (r *CartRepo) Upsert(ctx context.Context, userID, ticketID uint64, quantity uint32) (*model.CartItem, error) {
	const q = `INSERT INTO cart_items (user_id, ticket_id, quantity) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)`
	if _, err := r.db.ExecContext(ctx, q, userID, ticketID, quantity); err != nil {
		return nil, err
	}
	return r.GetByUserAndTicket(ctx, userID, ticketID)
}

// Delete removes one cart row owned by the user. It returns
// ErrCartItemNotFound when nothing was deleted.
func (r *CartRepo) Delete(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear removes every cart row of the user and returns how many rows
// were deleted.
func (r *CartRepo) Clear(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListWithTickets returns the user's cart joined with current catalog
// fields, ordered by creation time so the cart renders in the order
// items were added.
func (r *CartRepo) ListWithTickets(ctx context.Context, userID uint64) ([]CartLine, error) {
	const q = `SELECT ci.id, ci.user_id, ci.ticket_id, ci.quantity, ci.created_at, ci.updated_at,
	                  t.name, s.name, t.unit_price, t.stock, t.status
	           FROM cart_items ci
	           JOIN tickets t ON t.id = ci.ticket_id
	           JOIN spots s ON s.id = t.spot_id
	           WHERE ci.user_id = ?
	           ORDER BY ci.created_at, ci.id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := make([]CartLine, 0)
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ID, &l.UserID, &l.TicketID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt,
			&l.TicketName, &l.SpotName, &l.UnitPrice, &l.TicketStock, &l.TicketStatus); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// EntriesForUserTx loads and locks cart rows for a checkout inside the
// given transaction. When entryIDs is empty the whole cart is returned,
// otherwise only the listed rows; rows belonging to other users are
// never returned. The FOR UPDATE matters: without it two concurrent
// checkouts by the same user both read the entry from their snapshot
// and spend it twice. Ticket data is intentionally not joined here —
// the checkout locks and re-reads tickets through
// TicketRepo.LockByIDsTx so the availability check happens on locked
// rows.
func (r *CartRepo) EntriesForUserTx(ctx context.Context, tx *sql.Tx, userID uint64, entryIDs []uint64) ([]model.CartItem, error) {
	q := `SELECT id, user_id, ticket_id, quantity, created_at, updated_at
	      FROM cart_items WHERE user_id = ?`
	args := []any{userID}
	if len(entryIDs) > 0 {
		placeholders := make([]string, len(entryIDs))
		for i, id := range entryIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		q += ` AND id IN (` + strings.Join(placeholders, ",") + `)`
	}
	q += ` ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.CartItem
	for rows.Next() {
		var ci model.CartItem
		if err := rows.Scan(&ci.ID, &ci.UserID, &ci.TicketID, &ci.Quantity, &ci.CreatedAt, &ci.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteByIDsTx removes the consumed cart rows within the checkout
// transaction. Passing an empty slice has no effect and returns nil.
// Every id must still exist: a shortfall means another transaction
// consumed one of the rows first, and the checkout must abort rather
// than create an order from an already spent entry.
func (r *CartRepo) DeleteByIDsTx(ctx context.Context, tx *sql.Tx, userID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	q := `DELETE FROM cart_items WHERE user_id = ? AND id IN (` + strings.Join(placeholders, ",") + `)`
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return ErrCartItemNotFound
	}
	return nil
}

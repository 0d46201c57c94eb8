// This file defines repository methods for tickets, the sellable units
// of the catalog. Besides plain CRUD it carries the stock-critical
// operations used by the checkout transaction: locking reads and
// guarded decrements that can never take stock below zero.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/tour-ticketing/internal/model"
)

// TicketRepo encapsulates database operations for tickets.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo given a DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories.
func (r *TicketRepo) DB() *sql.DB {
	return r.db
}

const ticketColumns = `id, spot_id, name, unit_price, stock, status, valid_from, valid_to, created_at, updated_at`

// scanTicket reads one ticket row from the given scanner.
func scanTicket(row interface{ Scan(...any) error }) (*model.Ticket, error) {
	var t model.Ticket
	var validFrom, validTo sql.NullTime
	if err := row.Scan(&t.ID, &t.SpotID, &t.Name, &t.UnitPrice, &t.Stock, &t.Status,
		&validFrom, &validTo, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if validFrom.Valid {
		v := validFrom.Time
		t.ValidFrom = &v
	}
	if validTo.Valid {
		v := validTo.Time
		t.ValidTo = &v
	}
	return &t, nil
}

// Create inserts a new ticket under a spot. The generated ID and the
// DB-default columns are populated on the passed struct.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (spot_id, name, unit_price, stock, status, valid_from, valid_to)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	status := t.Status
	if status == "" {
		status = model.TicketActive
	}
	res, err := r.db.ExecContext(ctx, q, t.SpotID, t.Name, t.UnitPrice, t.Stock, status, t.ValidFrom, t.ValidTo)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	sel := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	got, err := scanTicket(r.db.QueryRowContext(ctx, sel, t.ID))
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// GetByID fetches a ticket by its ID. Every read goes straight to the
// database; the checkout path re-reads the row under FOR UPDATE in its
// own transaction, so this method must never be served from a cache.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListBySpot returns all tickets of a spot ordered by name.
func (r *TicketRepo) ListBySpot(ctx context.Context, spotID uint64) ([]model.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE spot_id = ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, spotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Update rewrites the mutable catalog fields of a ticket and refreshes
// the struct from the row. Stock edits through this method are admin
// restocks; the checkout and cancel paths use the guarded Tx methods
// below instead.
func (r *TicketRepo) Update(ctx context.Context, t *model.Ticket) error {
	const q = `UPDATE tickets SET name = ?, unit_price = ?, stock = ?, status = ?, valid_from = ?, valid_to = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.UnitPrice, t.Stock, t.Status, t.ValidFrom, t.ValidTo, t.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	sel := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	got, err := scanTicket(r.db.QueryRowContext(ctx, sel, t.ID))
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// Delete removes a ticket from the catalog. Cart rows referencing it
// are removed by the FK cascade; order items keep their snapshots and
// their ticket_id becomes NULL via ON DELETE SET NULL.
func (r *TicketRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// TicketWithSpot pairs a ticket row with its spot name for snapshotting
// and for cart/catalog responses.
type TicketWithSpot struct {
	model.Ticket
	SpotName string
}

// LockByIDsTx loads the given tickets joined with their spot names,
// locking the ticket rows with FOR UPDATE so that concurrent checkouts
// touching the same tickets serialize on stock. Results are keyed by
// ticket ID; absent keys mean the ticket does not exist. Rows are
// ordered by id so two competing transactions acquire the locks in the
// same order and cannot deadlock each other.
func (r *TicketRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]TicketWithSpot, error) {
	if len(ids) == 0 {
		return map[uint64]TicketWithSpot{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := `SELECT t.id, t.spot_id, t.name, t.unit_price, t.stock, t.status, s.name
	      FROM tickets t
	      JOIN spots s ON s.id = t.spot_id
	      WHERE t.id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY t.id
	      FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]TicketWithSpot, len(ids))
	for rows.Next() {
		var tw TicketWithSpot
		if err := rows.Scan(&tw.ID, &tw.SpotID, &tw.Name, &tw.UnitPrice, &tw.Stock, &tw.Status, &tw.SpotName); err != nil {
			return nil, err
		}
		out[tw.ID] = tw
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecrementStockTx subtracts qty from a ticket's stock within the
// provided transaction. The WHERE guard keeps stock from underflowing
// even if a caller skipped the availability check; zero affected rows
// is reported as ErrConflict because the checkout validated stock
// moments earlier under the same row lock.
func (r *TicketRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, ticketID uint64, qty uint32) error {
	const q = `UPDATE tickets SET stock = stock - ? WHERE id = ? AND stock >= ?`
	res, err := tx.ExecContext(ctx, q, qty, ticketID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// RestoreStockTx adds qty back to a ticket's stock within the provided
// transaction. Used when a pending order is cancelled. Restoring stock
// for a ticket that was deleted in the meantime is a no-op.
func (r *TicketRepo) RestoreStockTx(ctx context.Context, tx *sql.Tx, ticketID uint64, qty uint32) error {
	const q = `UPDATE tickets SET stock = stock + ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, qty, ticketID)
	return err
}

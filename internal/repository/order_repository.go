// This file defines repository methods for orders and their item
// snapshots. Order creation and every status change run inside a
// caller-owned *sql.Tx so stock movements and order rows commit or
// roll back together.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/tour-ticketing/internal/model"
)

// OrderRepo provides data access to the orders and order_items tables.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so services can open transactions
// spanning orders, tickets and cart rows.
func (r *OrderRepo) DB() *sql.DB { return r.db }

const orderColumns = `id, user_id, order_no, total_amount, status, note, paid_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var (
		o      model.Order
		paidAt sql.NullTime
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.OrderNo, &o.TotalAmount, &o.Status,
		&o.Note, &paidAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	return &o, nil
}

// CreateTx inserts a new order row. A duplicate order_no surfaces as
// ErrDuplicateOrderNo so the caller can regenerate the number and
// retry inside the same transaction; MySQL does not abort the
// transaction on a duplicate-key error.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders (id, user_id, order_no, total_amount, status, note)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, o.ID, o.UserID, o.OrderNo, o.TotalAmount, o.Status, o.Note)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateOrderNo
		}
		return err
	}
	return nil
}

// CreateItemsBulkTx inserts the order's item snapshots in a single
// multi-row statement.
func (r *OrderRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO order_items (order_id, ticket_id, ticket_name, spot_name, unit_price, quantity) VALUES `)
	args := make([]any, 0, len(items)*6)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, it.OrderID, it.TicketID, it.TicketName, it.SpotName, it.UnitPrice, it.Quantity)
	}
	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

// GetByID returns one order by primary key, or ErrOrderNotFound.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListAll returns every order, newest first, optionally filtered by
// status. Admin listing only.
func (r *OrderRepo) ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]model.Order, error) {
	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// ItemsByOrder returns the item snapshots of one order.
func (r *OrderRepo) ItemsByOrder(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	const q = `SELECT id, order_id, ticket_id, ticket_name, spot_name, unit_price, quantity, created_at
	           FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.OrderItem, 0)
	for rows.Next() {
		var (
			it       model.OrderItem
			ticketID sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &ticketID, &it.TicketName, &it.SpotName,
			&it.UnitPrice, &it.Quantity, &it.CreatedAt); err != nil {
			return nil, err
		}
		if ticketID.Valid {
			v := uint64(ticketID.Int64)
			it.TicketID = &v
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetForUpdateTx locks one order row for a status transition. Returns
// ErrOrderNotFound when the id does not exist.
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Order, error) {
	o, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// ItemsByOrderTx reads the item snapshots inside a transaction; the
// cancel path needs them to restore stock before flipping the status.
func (r *OrderRepo) ItemsByOrderTx(ctx context.Context, tx *sql.Tx, orderID string) ([]model.OrderItem, error) {
	const q = `SELECT id, order_id, ticket_id, ticket_name, spot_name, unit_price, quantity, created_at
	           FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := tx.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.OrderItem, 0)
	for rows.Next() {
		var (
			it       model.OrderItem
			ticketID sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &ticketID, &it.TicketName, &it.SpotName,
			&it.UnitPrice, &it.Quantity, &it.CreatedAt); err != nil {
			return nil, err
		}
		if ticketID.Valid {
			v := uint64(ticketID.Int64)
			it.TicketID = &v
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatusTx writes the order's new status, stamping paid_at when
// the order moves to PAID. The caller has already validated the
// transition against the locked row.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.OrderStatus, paidAt *time.Time) error {
	var pa sql.NullTime
	if paidAt != nil {
		pa = sql.NullTime{Time: *paidAt, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, paid_at = COALESCE(?, paid_at) WHERE id = ?`,
		status, pa, id)
	return err
}

// This file binds the checkout service's storage interfaces to MySQL.
// One checkoutTx wraps one *sql.Tx and delegates to the repositories'
// Tx methods, translating repository sentinels into the checkout
// package's errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/tour-ticketing/internal/checkout"
	"github.com/iliyamo/tour-ticketing/internal/model"
)

// CheckoutStore implements checkout.Store over the SQL repositories.
type CheckoutStore struct {
	db      *sql.DB
	tickets *TicketRepo
	carts   *CartRepo
	orders  *OrderRepo
}

// NewCheckoutStore returns a store spanning the three repositories a
// checkout touches. All repos must share the same database handle.
func NewCheckoutStore(db *sql.DB, tickets *TicketRepo, carts *CartRepo, orders *OrderRepo) *CheckoutStore {
	return &CheckoutStore{db: db, tickets: tickets, carts: carts, orders: orders}
}

// Begin opens a transaction for one checkout or lifecycle operation.
func (s *CheckoutStore) Begin(ctx context.Context) (checkout.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &checkoutTx{tx: tx, store: s}, nil
}

type checkoutTx struct {
	tx    *sql.Tx
	store *CheckoutStore
}

// CartLines loads the selected cart entries and locks their ticket
// rows. Ticket rows are locked in id order, so concurrent checkouts
// sharing tickets queue instead of deadlocking.
func (t *checkoutTx) CartLines(ctx context.Context, userID uint64, entryIDs []uint64) ([]checkout.Line, error) {
	entries, err := t.store.carts.EntriesForUserTx(ctx, t.tx, userID, entryIDs)
	if err != nil {
		return nil, err
	}
	if len(entryIDs) > 0 && len(entries) != len(entryIDs) {
		return nil, checkout.ErrCartEntryNotFound
	}
	if len(entries) == 0 {
		return nil, nil
	}
	ticketIDs := make([]uint64, 0, len(entries))
	for _, e := range entries {
		ticketIDs = append(ticketIDs, e.TicketID)
	}
	locked, err := t.store.tickets.LockByIDsTx(ctx, t.tx, ticketIDs)
	if err != nil {
		return nil, err
	}
	lines := make([]checkout.Line, 0, len(entries))
	for _, e := range entries {
		tk, ok := locked[e.TicketID]
		if !ok {
			// ticket deleted under the cart entry
			return nil, &checkout.ItemUnavailableError{Name: ""}
		}
		lines = append(lines, checkout.Line{
			EntryID:    e.ID,
			TicketID:   tk.ID,
			TicketName: tk.Name,
			SpotName:   tk.SpotName,
			UnitPrice:  tk.UnitPrice,
			Stock:      tk.Stock,
			Active:     tk.Sellable(),
			Quantity:   e.Quantity,
		})
	}
	return lines, nil
}

// TicketLine locks one ticket row for a direct booking.
func (t *checkoutTx) TicketLine(ctx context.Context, ticketID uint64, quantity uint32) (*checkout.Line, error) {
	locked, err := t.store.tickets.LockByIDsTx(ctx, t.tx, []uint64{ticketID})
	if err != nil {
		return nil, err
	}
	tk, ok := locked[ticketID]
	if !ok {
		return nil, checkout.ErrTicketNotFound
	}
	return &checkout.Line{
		TicketID:   tk.ID,
		TicketName: tk.Name,
		SpotName:   tk.SpotName,
		UnitPrice:  tk.UnitPrice,
		Stock:      tk.Stock,
		Active:     tk.Sellable(),
		Quantity:   quantity,
	}, nil
}

func (t *checkoutTx) InsertOrder(ctx context.Context, o *model.Order) error {
	err := t.store.orders.CreateTx(ctx, t.tx, o)
	if errors.Is(err, ErrDuplicateOrderNo) {
		return checkout.ErrDuplicateOrderNo
	}
	return err
}

func (t *checkoutTx) InsertOrderItems(ctx context.Context, items []model.OrderItem) error {
	return t.store.orders.CreateItemsBulkTx(ctx, t.tx, items)
}

func (t *checkoutTx) DecrementStock(ctx context.Context, ticketID uint64, quantity uint32) error {
	return t.store.tickets.DecrementStockTx(ctx, t.tx, ticketID, quantity)
}

func (t *checkoutTx) RestoreStock(ctx context.Context, ticketID uint64, quantity uint32) error {
	return t.store.tickets.RestoreStockTx(ctx, t.tx, ticketID, quantity)
}

func (t *checkoutTx) DeleteCartEntries(ctx context.Context, userID uint64, entryIDs []uint64) error {
	err := t.store.carts.DeleteByIDsTx(ctx, t.tx, userID, entryIDs)
	if errors.Is(err, ErrCartItemNotFound) {
		return checkout.ErrCartEntryNotFound
	}
	return err
}

func (t *checkoutTx) OrderForUpdate(ctx context.Context, orderID string) (*model.Order, error) {
	o, err := t.store.orders.GetForUpdateTx(ctx, t.tx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, checkout.ErrOrderNotFound
	}
	return o, err
}

func (t *checkoutTx) OrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	return t.store.orders.ItemsByOrderTx(ctx, t.tx, orderID)
}

func (t *checkoutTx) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, paidAt *time.Time) error {
	return t.store.orders.UpdateStatusTx(ctx, t.tx, orderID, status, paidAt)
}

func (t *checkoutTx) Commit() error   { return t.tx.Commit() }
func (t *checkoutTx) Rollback() error { return t.tx.Rollback() }

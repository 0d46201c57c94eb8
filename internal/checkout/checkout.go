// Package checkout implements the transactional heart of the shop:
// turning a cart (or a single ticket) into an order while stock,
// prices and availability are re-checked under row locks, and moving
// orders through their lifecycle afterwards.
//
// The package talks to storage through the Store/Tx pair below so the
// algorithm itself carries no SQL; the production implementation lives
// in internal/repository and binds the interfaces to MySQL.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-ticketing/internal/model"
)

// Line is one candidate order line read under lock: the cart entry it
// came from (EntryID is zero for direct bookings) plus the ticket
// fields the checkout must re-validate.
type Line struct {
	EntryID    uint64
	TicketID   uint64
	TicketName string
	SpotName   string
	UnitPrice  decimal.Decimal
	Stock      uint32
	Active     bool
	Quantity   uint32
}

// Store opens units of work for the checkout service.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one storage transaction. Reads that feed a stock decision must
// lock the underlying ticket rows so the decision holds until Commit.
type Tx interface {
	// CartLines returns the user's cart joined with locked ticket rows.
	// With entryIDs empty the whole cart is read; otherwise only the
	// listed entries, and ErrCartEntryNotFound when any is missing.
	CartLines(ctx context.Context, userID uint64, entryIDs []uint64) ([]Line, error)
	// TicketLine reads one locked ticket for a direct booking.
	TicketLine(ctx context.Context, ticketID uint64, quantity uint32) (*Line, error)

	InsertOrder(ctx context.Context, o *model.Order) error
	InsertOrderItems(ctx context.Context, items []model.OrderItem) error
	DecrementStock(ctx context.Context, ticketID uint64, quantity uint32) error
	RestoreStock(ctx context.Context, ticketID uint64, quantity uint32) error
	DeleteCartEntries(ctx context.Context, userID uint64, entryIDs []uint64) error

	OrderForUpdate(ctx context.Context, orderID string) (*model.Order, error)
	OrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, paidAt *time.Time) error

	Commit() error
	Rollback() error
}

// DirectBooking asks for a single ticket without touching the cart.
type DirectBooking struct {
	TicketID uint64
	Quantity uint32
}

// Request describes one checkout. When Direct is set the cart is
// ignored entirely; otherwise CartEntryIDs selects a subset of the
// cart, or the whole cart when empty.
type Request struct {
	CartEntryIDs []uint64
	Direct       *DirectBooking
	Note         string
}

// Actor identifies the caller of a lifecycle operation.
type Actor struct {
	UserID uint64
	Admin  bool
}

// Result is a created or loaded order together with its item snapshots.
type Result struct {
	Order *model.Order
	Items []model.OrderItem
}

// Service runs checkouts and order lifecycle transitions.
type Service struct {
	store Store

	// orderNoRetries caps how many fresh numbers are tried when the
	// unique index reports a collision.
	orderNoRetries int

	// overridable in tests
	now        func() time.Time
	newOrderID func() string
	newOrderNo func(time.Time) string
}

// NewService wires a Service over the given store. retries <= 0 falls
// back to a single attempt.
func NewService(store Store, retries int) *Service {
	if retries <= 0 {
		retries = 1
	}
	return &Service{
		store:          store,
		orderNoRetries: retries,
		now:            time.Now,
		newOrderID:     uuid.NewString,
		newOrderNo:     NewOrderNo,
	}
}

// CreateOrder runs the full checkout: resolve lines, validate
// availability and stock under lock, price the order at current
// prices, persist order + snapshots, decrement stock and consume the
// cart entries, all in one transaction.
func (s *Service) CreateOrder(ctx context.Context, userID uint64, req Request) (*Result, error) {
	if req.Direct != nil && req.Direct.Quantity == 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var lines []Line
	if req.Direct != nil {
		line, err := tx.TicketLine(ctx, req.Direct.TicketID, req.Direct.Quantity)
		if err != nil {
			return nil, err
		}
		lines = []Line{*line}
	} else {
		lines, err = tx.CartLines(ctx, userID, req.CartEntryIDs)
		if err != nil {
			return nil, err
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	total := decimal.Zero
	for _, l := range lines {
		if !l.Active {
			return nil, &ItemUnavailableError{Name: l.TicketName}
		}
		if l.Stock < l.Quantity {
			return nil, &InsufficientStockError{Name: l.TicketName, Available: l.Stock}
		}
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	order := &model.Order{
		ID:          s.newOrderID(),
		UserID:      userID,
		TotalAmount: total,
		Status:      model.OrderPending,
		Note:        req.Note,
	}
	if err := s.insertWithFreshOrderNo(ctx, tx, order); err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		ticketID := l.TicketID
		items = append(items, model.OrderItem{
			OrderID:    order.ID,
			TicketID:   &ticketID,
			TicketName: l.TicketName,
			SpotName:   l.SpotName,
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
		})
	}
	if err := tx.InsertOrderItems(ctx, items); err != nil {
		return nil, err
	}

	for _, l := range lines {
		if err := tx.DecrementStock(ctx, l.TicketID, l.Quantity); err != nil {
			return nil, err
		}
	}

	if req.Direct == nil {
		consumed := make([]uint64, 0, len(lines))
		for _, l := range lines {
			consumed = append(consumed, l.EntryID)
		}
		if err := tx.DeleteCartEntries(ctx, userID, consumed); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &Result{Order: order, Items: items}, nil
}

// insertWithFreshOrderNo inserts the order, regenerating the order
// number on a unique-index collision. MySQL keeps the transaction
// usable after a duplicate-key error, so the retry stays inside the
// same unit of work.
func (s *Service) insertWithFreshOrderNo(ctx context.Context, tx Tx, o *model.Order) error {
	for attempt := 0; attempt < s.orderNoRetries; attempt++ {
		o.OrderNo = s.newOrderNo(s.now())
		err := tx.InsertOrder(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateOrderNo) {
			return err
		}
	}
	return ErrOrderNoExhausted
}

// Pay moves a pending order to PAID and stamps the payment time.
func (s *Service) Pay(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	return s.transition(ctx, actor, orderID, model.OrderPaid)
}

// Cancel moves a pending order to CANCELLED and returns its units to
// stock. The restore happens in the same transaction as the status
// flip, so it runs exactly once however many cancels race.
func (s *Service) Cancel(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	return s.transition(ctx, actor, orderID, model.OrderCancelled)
}

// Complete moves a paid order to COMPLETED. Admin only; the router
// enforces the role, this method only enforces the state machine.
func (s *Service) Complete(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	return s.transition(ctx, actor, orderID, model.OrderCompleted)
}

// ForceStatus lets an admin drive any legal transition, including the
// stock-restoring cancel. Illegal targets still fail: forcing means
// skipping ownership, not skipping the state machine.
func (s *Service) ForceStatus(ctx context.Context, actor Actor, orderID string, target model.OrderStatus) (*model.Order, error) {
	if !target.Valid() {
		return nil, &InvalidTransitionError{To: target}
	}
	return s.transition(ctx, actor, orderID, target)
}

func (s *Service) transition(ctx context.Context, actor Actor, orderID string, target model.OrderStatus) (*model.Order, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order, err := tx.OrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && order.UserID != actor.UserID {
		return nil, ErrUnauthorized
	}
	if !order.Status.CanTransition(target) {
		return nil, &InvalidTransitionError{From: order.Status, To: target}
	}

	if target == model.OrderCancelled {
		items, err := tx.OrderItems(ctx, orderID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.TicketID == nil {
				continue // ticket removed from catalog, nothing to restore
			}
			if err := tx.RestoreStock(ctx, *it.TicketID, it.Quantity); err != nil {
				return nil, err
			}
		}
	}

	var paidAt *time.Time
	if target == model.OrderPaid {
		t := s.now().UTC()
		paidAt = &t
	}
	if err := tx.UpdateOrderStatus(ctx, orderID, target, paidAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	order.Status = target
	if paidAt != nil {
		order.PaidAt = paidAt
	}
	return order, nil
}

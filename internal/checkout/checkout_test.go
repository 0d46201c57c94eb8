package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-ticketing/internal/model"
)

// fakeTicket is the mutable catalog row the fake store re-checks and
// decrements, mirroring what the SQL store reads under FOR UPDATE.
type fakeTicket struct {
	Name      string
	SpotName  string
	UnitPrice decimal.Decimal
	Stock     uint32
	Active    bool
}

// fakeStore implements Store in memory. Begin takes a single mutex, so
// transactions serialize the way row locks serialize them in MySQL,
// and every mutation registers an undo so Rollback really rolls back.
type fakeStore struct {
	mu       sync.Mutex
	tickets  map[uint64]*fakeTicket
	cart     []model.CartItem
	orders   map[string]*model.Order
	items    map[string][]model.OrderItem
	orderNos map[string]bool
	failOn   map[string]error

	// beforeDelete, when set, runs once right before DeleteCartEntries
	// touches the cart. Tests use it to consume an entry out from under
	// a transaction, the way a racing checkout would have.
	beforeDelete func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets:  map[uint64]*fakeTicket{},
		orders:   map[string]*model.Order{},
		items:    map[string][]model.OrderItem{},
		orderNos: map[string]bool{},
		failOn:   map[string]error{},
	}
}

func (s *fakeStore) addTicket(id uint64, name, spot string, price string, stock uint32, active bool) {
	s.tickets[id] = &fakeTicket{
		Name:      name,
		SpotName:  spot,
		UnitPrice: decimal.RequireFromString(price),
		Stock:     stock,
		Active:    active,
	}
}

func (s *fakeStore) addCartEntry(id, userID, ticketID uint64, qty uint32) {
	s.cart = append(s.cart, model.CartItem{ID: id, UserID: userID, TicketID: ticketID, Quantity: qty})
}

func (s *fakeStore) removeCartEntry(id uint64) {
	var kept []model.CartItem
	for _, e := range s.cart {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.cart = kept
}

func (s *fakeStore) cartSize(userID uint64) int {
	n := 0
	for _, e := range s.cart {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

func (s *fakeStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	return &fakeTx{s: s}, nil
}

type fakeTx struct {
	s    *fakeStore
	undo []func()
	done bool
}

func (t *fakeTx) fail(op string) error { return t.s.failOn[op] }

func (t *fakeTx) CartLines(ctx context.Context, userID uint64, entryIDs []uint64) ([]Line, error) {
	if err := t.fail("CartLines"); err != nil {
		return nil, err
	}
	wanted := map[uint64]bool{}
	for _, id := range entryIDs {
		wanted[id] = true
	}
	var lines []Line
	for _, e := range t.s.cart {
		if e.UserID != userID {
			continue
		}
		if len(entryIDs) > 0 && !wanted[e.ID] {
			continue
		}
		tk := t.s.tickets[e.TicketID]
		lines = append(lines, Line{
			EntryID:    e.ID,
			TicketID:   e.TicketID,
			TicketName: tk.Name,
			SpotName:   tk.SpotName,
			UnitPrice:  tk.UnitPrice,
			Stock:      tk.Stock,
			Active:     tk.Active,
			Quantity:   e.Quantity,
		})
	}
	if len(entryIDs) > 0 && len(lines) != len(entryIDs) {
		return nil, ErrCartEntryNotFound
	}
	return lines, nil
}

func (t *fakeTx) TicketLine(ctx context.Context, ticketID uint64, quantity uint32) (*Line, error) {
	tk, ok := t.s.tickets[ticketID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return &Line{
		TicketID:   ticketID,
		TicketName: tk.Name,
		SpotName:   tk.SpotName,
		UnitPrice:  tk.UnitPrice,
		Stock:      tk.Stock,
		Active:     tk.Active,
		Quantity:   quantity,
	}, nil
}

func (t *fakeTx) InsertOrder(ctx context.Context, o *model.Order) error {
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	if t.s.orderNos[o.OrderNo] {
		return ErrDuplicateOrderNo
	}
	cp := *o
	t.s.orders[o.ID] = &cp
	t.s.orderNos[o.OrderNo] = true
	id, no := o.ID, o.OrderNo
	t.undo = append(t.undo, func() {
		delete(t.s.orders, id)
		delete(t.s.orderNos, no)
	})
	return nil
}

func (t *fakeTx) InsertOrderItems(ctx context.Context, items []model.OrderItem) error {
	if err := t.fail("InsertOrderItems"); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	orderID := items[0].OrderID
	t.s.items[orderID] = append([]model.OrderItem{}, items...)
	t.undo = append(t.undo, func() { delete(t.s.items, orderID) })
	return nil
}

func (t *fakeTx) DecrementStock(ctx context.Context, ticketID uint64, quantity uint32) error {
	if err := t.fail("DecrementStock"); err != nil {
		return err
	}
	tk := t.s.tickets[ticketID]
	if tk.Stock < quantity {
		return errors.New("stock guard violated")
	}
	tk.Stock -= quantity
	t.undo = append(t.undo, func() { tk.Stock += quantity })
	return nil
}

func (t *fakeTx) RestoreStock(ctx context.Context, ticketID uint64, quantity uint32) error {
	if err := t.fail("RestoreStock"); err != nil {
		return err
	}
	tk, ok := t.s.tickets[ticketID]
	if !ok {
		return nil
	}
	tk.Stock += quantity
	t.undo = append(t.undo, func() { tk.Stock -= quantity })
	return nil
}

func (t *fakeTx) DeleteCartEntries(ctx context.Context, userID uint64, entryIDs []uint64) error {
	if err := t.fail("DeleteCartEntries"); err != nil {
		return err
	}
	if t.s.beforeDelete != nil {
		hook := t.s.beforeDelete
		t.s.beforeDelete = nil
		hook()
	}
	drop := map[uint64]bool{}
	for _, id := range entryIDs {
		drop[id] = true
	}
	before := t.s.cart
	var kept []model.CartItem
	removed := 0
	for _, e := range t.s.cart {
		if e.UserID == userID && drop[e.ID] {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	// Same rule as the SQL store: every listed entry must still exist,
	// a shortfall means someone else consumed one of the rows.
	if removed != len(entryIDs) {
		return ErrCartEntryNotFound
	}
	t.s.cart = kept
	t.undo = append(t.undo, func() { t.s.cart = before })
	return nil
}

func (t *fakeTx) OrderForUpdate(ctx context.Context, orderID string) (*model.Order, error) {
	o, ok := t.s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *fakeTx) OrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	return t.s.items[orderID], nil
}

func (t *fakeTx) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, paidAt *time.Time) error {
	if err := t.fail("UpdateOrderStatus"); err != nil {
		return err
	}
	o := t.s.orders[orderID]
	prevStatus, prevPaid := o.Status, o.PaidAt
	o.Status = status
	if paidAt != nil {
		o.PaidAt = paidAt
	}
	t.undo = append(t.undo, func() {
		o.Status = prevStatus
		o.PaidAt = prevPaid
	})
	return nil
}

func (t *fakeTx) Commit() error {
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.s.mu.Unlock()
	return nil
}

func newTestService(store Store) *Service {
	return NewService(store, 3)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), 1, Request{})
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateOrderInactiveTicket(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, false)
	store.addCartEntry(1, 1, 10, 2)
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), 1, Request{})
	var unavailable *ItemUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Sunset Cruise", unavailable.Name)
	assert.Equal(t, uint32(20), store.tickets[10].Stock)
	assert.Equal(t, 1, store.cartSize(1))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Cave Tour", "Karst Hills", "30.00", 3, true)
	store.addCartEntry(1, 1, 10, 5)
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), 1, Request{})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Cave Tour", insufficient.Name)
	assert.Equal(t, uint32(3), insufficient.Available)
	assert.Equal(t, uint32(3), store.tickets[10].Stock)
}

func TestCreateOrderFromCart(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.50", 20, true)
	store.addTicket(11, "Cave Tour", "Karst Hills", "30.00", 8, true)
	store.addCartEntry(1, 1, 10, 2)
	store.addCartEntry(2, 1, 11, 1)
	svc := newTestService(store)

	res, err := svc.CreateOrder(context.Background(), 1, Request{Note: "family trip"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderPending, res.Order.Status)
	assert.Equal(t, uint64(1), res.Order.UserID)
	assert.True(t, strings.HasPrefix(res.Order.OrderNo, "TT"))
	assert.True(t, decimal.RequireFromString("121.00").Equal(res.Order.TotalAmount),
		"got total %s", res.Order.TotalAmount)
	assert.Equal(t, "family trip", res.Order.Note)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "Sunset Cruise", res.Items[0].TicketName)
	assert.Equal(t, "Blue Bay", res.Items[0].SpotName)
	assert.True(t, decimal.RequireFromString("45.50").Equal(res.Items[0].UnitPrice))
	assert.Equal(t, uint32(2), res.Items[0].Quantity)

	assert.Equal(t, uint32(18), store.tickets[10].Stock)
	assert.Equal(t, uint32(7), store.tickets[11].Stock)
	assert.Equal(t, 0, store.cartSize(1), "checkout should consume the cart")
	require.Contains(t, store.orders, res.Order.ID)
}

func TestCreateOrderCartSubset(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	store.addTicket(11, "Cave Tour", "Karst Hills", "30.00", 8, true)
	store.addCartEntry(1, 1, 10, 1)
	store.addCartEntry(2, 1, 11, 1)
	svc := newTestService(store)

	res, err := svc.CreateOrder(context.Background(), 1, Request{CartEntryIDs: []uint64{2}})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "Cave Tour", res.Items[0].TicketName)
	assert.Equal(t, 1, store.cartSize(1), "unselected entries must stay in the cart")
	assert.Equal(t, uint32(20), store.tickets[10].Stock)
	assert.Equal(t, uint32(7), store.tickets[11].Stock)
}

func TestCreateOrderUnknownCartEntry(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	store.addCartEntry(1, 1, 10, 1)
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), 1, Request{CartEntryIDs: []uint64{1, 99}})
	assert.ErrorIs(t, err, ErrCartEntryNotFound)
	assert.Equal(t, 1, store.cartSize(1))
}

func TestCreateOrderDirectBooking(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	store.addCartEntry(1, 1, 10, 3) // unrelated cart content
	svc := newTestService(store)

	res, err := svc.CreateOrder(context.Background(), 1, Request{
		Direct: &DirectBooking{TicketID: 10, Quantity: 2},
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("90.00").Equal(res.Order.TotalAmount))
	assert.Equal(t, uint32(18), store.tickets[10].Stock)
	assert.Equal(t, 1, store.cartSize(1), "direct booking must not touch the cart")
}

func TestCreateOrderDirectBookingZeroQuantity(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.CreateOrder(context.Background(), 1, Request{
		Direct: &DirectBooking{TicketID: 10, Quantity: 0},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCreateOrderDirectBookingUnknownTicket(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.CreateOrder(context.Background(), 1, Request{
		Direct: &DirectBooking{TicketID: 404, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestCreateOrderRegeneratesOrderNoOnCollision(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	store.orderNos["TTDUP"] = true
	svc := newTestService(store)

	numbers := []string{"TTDUP", "TTFRESH"}
	svc.newOrderNo = func(time.Time) string {
		n := numbers[0]
		if len(numbers) > 1 {
			numbers = numbers[1:]
		}
		return n
	}

	res, err := svc.CreateOrder(context.Background(), 1, Request{
		Direct: &DirectBooking{TicketID: 10, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "TTFRESH", res.Order.OrderNo)
}

func TestCreateOrderFailsWhenOrderNoExhausted(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	store.orderNos["TTDUP"] = true
	svc := newTestService(store)
	svc.newOrderNo = func(time.Time) string { return "TTDUP" }

	_, err := svc.CreateOrder(context.Background(), 1, Request{
		Direct: &DirectBooking{TicketID: 10, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrOrderNoExhausted)
	assert.Equal(t, uint32(20), store.tickets[10].Stock)
	assert.Len(t, store.orders, 0)
}

func TestCreateOrderRollsBackOnStorageFailure(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	store.addCartEntry(1, 1, 10, 2)
	boom := errors.New("connection lost")
	store.failOn["DeleteCartEntries"] = boom
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), 1, Request{})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, uint32(20), store.tickets[10].Stock, "stock decrement must roll back")
	assert.Equal(t, 1, store.cartSize(1), "cart must survive a failed checkout")
	assert.Len(t, store.orders, 0)
	assert.Len(t, store.items, 0)
}

func TestCreateOrderCartEntrySpentConcurrently(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 10, true)
	store.addCartEntry(1, 1, 10, 2)
	// A racing checkout consumes the entry after this transaction has
	// read it but before it deletes it. The delete shortfall must abort
	// the checkout so one entry can never pay for two orders.
	store.beforeDelete = func() { store.removeCartEntry(1) }
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), 1, Request{})
	assert.ErrorIs(t, err, ErrCartEntryNotFound)

	assert.Equal(t, uint32(10), store.tickets[10].Stock, "stock decrement must roll back")
	assert.Len(t, store.orders, 0)
	assert.Len(t, store.items, 0)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Hot Spring Pass", "Misty Valley", "25.00", 5, true)
	svc := newTestService(store)

	const buyers = 12
	var (
		wg        sync.WaitGroup
		succeeded int32
		mu        sync.Mutex
		failures  []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), userID, Request{
				Direct: &DirectBooking{TicketID: 10, Quantity: 1},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				failures = append(failures, err)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, int32(5), succeeded)
	assert.Equal(t, uint32(0), store.tickets[10].Stock)
	require.Len(t, failures, buyers-5)
	for _, err := range failures {
		var insufficient *InsufficientStockError
		assert.ErrorAs(t, err, &insufficient)
	}
}

func checkoutOrder(t *testing.T, svc *Service, store *fakeStore, userID uint64) *model.Order {
	t.Helper()
	res, err := svc.CreateOrder(context.Background(), userID, Request{
		Direct: &DirectBooking{TicketID: 10, Quantity: 2},
	})
	require.NoError(t, err)
	return res.Order
}

func TestPayPendingOrder(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	svc := newTestService(store)
	order := checkoutOrder(t, svc, store, 1)

	paid, err := svc.Pay(context.Background(), Actor{UserID: 1}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, model.OrderPaid, store.orders[order.ID].Status)
}

func TestPayForeignOrder(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	svc := newTestService(store)
	order := checkoutOrder(t, svc, store, 1)

	_, err := svc.Pay(context.Background(), Actor{UserID: 2}, order.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, model.OrderPending, store.orders[order.ID].Status)

	// an admin may act on anyone's order
	_, err = svc.Pay(context.Background(), Actor{UserID: 2, Admin: true}, order.ID)
	assert.NoError(t, err)
}

func TestPayUnknownOrder(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Pay(context.Background(), Actor{UserID: 1}, "no-such-id")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelRestoresStockOnce(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	svc := newTestService(store)
	order := checkoutOrder(t, svc, store, 1)
	require.Equal(t, uint32(18), store.tickets[10].Stock)

	cancelled, err := svc.Cancel(context.Background(), Actor{UserID: 1}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, cancelled.Status)
	assert.Equal(t, uint32(20), store.tickets[10].Stock, "cancel must return units to stock")

	_, err = svc.Cancel(context.Background(), Actor{UserID: 1}, order.ID)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, model.OrderCancelled, invalid.From)
	assert.Equal(t, uint32(20), store.tickets[10].Stock, "second cancel must not restore again")
}

func TestCancelPaidOrderRejected(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	svc := newTestService(store)
	order := checkoutOrder(t, svc, store, 1)

	_, err := svc.Pay(context.Background(), Actor{UserID: 1}, order.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), Actor{UserID: 1}, order.ID)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, model.OrderPaid, invalid.From)
	assert.Equal(t, model.OrderCancelled, invalid.To)
	assert.Equal(t, uint32(18), store.tickets[10].Stock)
}

func TestCompleteLifecycle(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	svc := newTestService(store)
	order := checkoutOrder(t, svc, store, 1)

	_, err := svc.Complete(context.Background(), Actor{UserID: 9, Admin: true}, order.ID)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid, "pending orders cannot complete")

	_, err = svc.Pay(context.Background(), Actor{UserID: 1}, order.ID)
	require.NoError(t, err)

	done, err := svc.Complete(context.Background(), Actor{UserID: 9, Admin: true}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, done.Status)
}

func TestForceStatus(t *testing.T) {
	store := newFakeStore()
	store.addTicket(10, "Sunset Cruise", "Blue Bay", "45.00", 20, true)
	svc := newTestService(store)
	order := checkoutOrder(t, svc, store, 1)

	_, err := svc.ForceStatus(context.Background(), Actor{UserID: 9, Admin: true}, order.ID, "SHIPPED")
	var invalid *InvalidTransitionError
	assert.ErrorAs(t, err, &invalid, "unknown statuses stay rejected")

	forced, err := svc.ForceStatus(context.Background(), Actor{UserID: 9, Admin: true}, order.ID, model.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, forced.Status)
	assert.Equal(t, uint32(20), store.tickets[10].Stock, "forced cancel restores stock too")
}

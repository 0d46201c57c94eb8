// This file defines the authenticated order endpoints: checkout, order
// history and the customer lifecycle actions (pay, cancel). Every
// lifecycle change emits an event to the broker after the transaction
// commits; publish failures are logged by the publisher and never fail
// the request.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-ticketing/internal/checkout"
	"github.com/iliyamo/tour-ticketing/internal/model"
	"github.com/iliyamo/tour-ticketing/internal/queue"
	"github.com/iliyamo/tour-ticketing/internal/repository"
	queue_publisher "github.com/iliyamo/tour-ticketing/internal/service"
)

// OrderHandler bundles the checkout service with the read-side repo.
type OrderHandler struct {
	Svc    *checkout.Service
	Orders *repository.OrderRepo
	// Timeout bounds one checkout or lifecycle transaction.
	Timeout time.Duration
	// Publish is swappable so tests run without a broker.
	Publish func(ctx context.Context, ev queue.OrderEvent) error
}

func NewOrderHandler(svc *checkout.Service, orders *repository.OrderRepo, timeout time.Duration) *OrderHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OrderHandler{Svc: svc, Orders: orders, Timeout: timeout, Publish: queue_publisher.PublishOrderEvent}
}

type createOrderReq struct {
	CartEntryIDs []uint64 `json:"cart_entry_ids"`
	TicketID     uint64   `json:"ticket_id"`
	Quantity     uint32   `json:"quantity"`
	Note         string   `json:"note"`
}

type orderItemResp struct {
	TicketID   *uint64 `json:"ticket_id"`
	TicketName string  `json:"ticket_name"`
	SpotName   string  `json:"spot_name"`
	UnitPrice  string  `json:"unit_price"`
	Quantity   uint32  `json:"quantity"`
	Subtotal   string  `json:"subtotal"`
}

type orderResp struct {
	ID          string          `json:"id"`
	OrderNo     string          `json:"order_no"`
	Status      string          `json:"status"`
	TotalAmount string          `json:"total_amount"`
	Note        string          `json:"note,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []orderItemResp `json:"items,omitempty"`
}

// parseCheckoutRequest normalizes the request body into a checkout
// request. A body naming both a ticket and cart entries is ambiguous
// and rejected, as is a quantity without a ticket: falling through to
// a whole-cart checkout would silently ignore what the caller asked for.
func parseCheckoutRequest(req createOrderReq) (checkout.Request, error) {
	if req.TicketID != 0 && len(req.CartEntryIDs) > 0 {
		return checkout.Request{}, errors.New("use either ticket_id or cart_entry_ids, not both")
	}
	if req.TicketID == 0 && req.Quantity > 0 {
		return checkout.Request{}, errors.New("quantity requires ticket_id")
	}
	out := checkout.Request{Note: req.Note}
	if req.TicketID != 0 {
		out.Direct = &checkout.DirectBooking{TicketID: req.TicketID, Quantity: req.Quantity}
		return out, nil
	}
	out.CartEntryIDs = req.CartEntryIDs
	return out, nil
}

func toOrderResp(o *model.Order, items []model.OrderItem) orderResp {
	resp := orderResp{
		ID:          o.ID,
		OrderNo:     o.OrderNo,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		Note:        o.Note,
		PaidAt:      o.PaidAt,
		CreatedAt:   o.CreatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, orderItemResp{
			TicketID:   it.TicketID,
			TicketName: it.TicketName,
			SpotName:   it.SpotName,
			UnitPrice:  it.UnitPrice.StringFixed(2),
			Quantity:   it.Quantity,
			Subtotal:   it.Subtotal().StringFixed(2),
		})
	}
	return resp
}

func (h *OrderHandler) emit(eventType string, o *model.Order, items []model.OrderItem) {
	ev := queue.OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, it := range items {
		ev.Items = append(ev.Items, queue.OrderEventItem{
			TicketName: it.TicketName,
			SpotName:   it.SpotName,
			UnitPrice:  it.UnitPrice.StringFixed(2),
			Quantity:   it.Quantity,
		})
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Publish(ctx, ev)
	}()
}

// Create runs the checkout and returns the new PENDING order.
func (h *OrderHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createOrderReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req, err := parseCheckoutRequest(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	res, err := h.Svc.CreateOrder(ctx, userID, req)
	if err != nil {
		return h.checkoutError(c, err)
	}

	h.emit(queue.EventOrderCreated, res.Order, res.Items)
	return c.JSON(http.StatusCreated, toOrderResp(res.Order, res.Items))
}

func (h *OrderHandler) checkoutError(c echo.Context, err error) error {
	var (
		unavailable  *checkout.ItemUnavailableError
		insufficient *checkout.InsufficientStockError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyOrder):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order has no items"})
	case errors.Is(err, checkout.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be at least 1"})
	case errors.Is(err, checkout.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, checkout.ErrCartEntryNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cart entry not found"})
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is not available", "ticket": unavailable.Name})
	case errors.As(err, &insufficient):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "not enough stock",
			"ticket":    insufficient.Name,
			"available": insufficient.Available,
		})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
	}
}

// List returns the caller's orders, newest first, without items.
func (h *OrderHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]orderResp, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResp(&orders[i], nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get returns one order with its items. Foreign orders answer 404 for
// non-admin callers so existence never leaks.
func (h *OrderHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrOrderNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if o.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	items, err := h.Orders.ItemsByOrder(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toOrderResp(o, items))
}

// Pay marks a pending order as paid.
func (h *OrderHandler) Pay(c echo.Context) error {
	return h.lifecycle(c, queue.EventOrderPaid, h.Svc.Pay)
}

// Cancel cancels a pending order and restores its stock.
func (h *OrderHandler) Cancel(c echo.Context) error {
	return h.lifecycle(c, queue.EventOrderCancelled, h.Svc.Cancel)
}

type lifecycleFn func(ctx context.Context, actor checkout.Actor, orderID string) (*model.Order, error)

func (h *OrderHandler) lifecycle(c echo.Context, eventType string, fn lifecycleFn) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	order, err := fn(ctx, checkout.Actor{UserID: userID, Admin: isAdmin(c)}, id)
	if err != nil {
		return lifecycleError(c, err)
	}

	h.emit(eventType, order, nil)
	return c.JSON(http.StatusOK, toOrderResp(order, nil))
}

// lifecycleError maps service errors to HTTP responses. Both unknown
// and foreign orders answer 404.
func lifecycleError(c echo.Context, err error) error {
	var invalid *checkout.InvalidTransitionError
	switch {
	case errors.Is(err, checkout.ErrOrderNotFound), errors.Is(err, checkout.ErrUnauthorized):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.As(err, &invalid):
		return c.JSON(http.StatusConflict, echo.Map{"error": invalid.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
}

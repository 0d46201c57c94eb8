// This file defines the admin order endpoints: fleet-wide listing,
// completion of paid orders and forced status transitions.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-ticketing/internal/checkout"
	"github.com/iliyamo/tour-ticketing/internal/model"
	"github.com/iliyamo/tour-ticketing/internal/queue"
	"github.com/iliyamo/tour-ticketing/internal/repository"
	queue_publisher "github.com/iliyamo/tour-ticketing/internal/service"
)

// AdminOrderHandler bundles the checkout service with the order repo
// for staff-facing order management.
type AdminOrderHandler struct {
	Svc     *checkout.Service
	Orders  *repository.OrderRepo
	Publish func(ctx context.Context, ev queue.OrderEvent) error
}

func NewAdminOrderHandler(svc *checkout.Service, orders *repository.OrderRepo) *AdminOrderHandler {
	return &AdminOrderHandler{Svc: svc, Orders: orders, Publish: queue_publisher.PublishOrderEvent}
}

type forceStatusReq struct {
	Status string `json:"status"`
}

// ListAll returns every order, optionally filtered by ?status=.
func (h *AdminOrderHandler) ListAll(c echo.Context) error {
	status := model.OrderStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
	if status != "" && !status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.ListAll(ctx, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]orderResp, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResp(&orders[i], nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Complete moves a paid order to COMPLETED.
func (h *AdminOrderHandler) Complete(c echo.Context) error {
	return h.transition(c, model.OrderCompleted)
}

// ForceStatus drives any legal transition on behalf of staff; the
// target status comes from the body.
func (h *AdminOrderHandler) ForceStatus(c echo.Context) error {
	var req forceStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	target := model.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !target.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	return h.transition(c, target)
}

func (h *AdminOrderHandler) transition(c echo.Context, target model.OrderStatus) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	order, err := h.Svc.ForceStatus(ctx, checkout.Actor{UserID: userID, Admin: true}, id, target)
	if err != nil {
		return lifecycleError(c, err)
	}

	h.emitTransition(order)
	return c.JSON(http.StatusOK, toOrderResp(order, nil))
}

func (h *AdminOrderHandler) emitTransition(o *model.Order) {
	var eventType string
	switch o.Status {
	case model.OrderPaid:
		eventType = queue.EventOrderPaid
	case model.OrderCancelled:
		eventType = queue.EventOrderCancelled
	case model.OrderCompleted:
		eventType = queue.EventOrderCompleted
	default:
		return
	}
	ev := queue.OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Publish(ctx, ev)
	}()
}

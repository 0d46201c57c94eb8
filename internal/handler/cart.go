// This file defines the authenticated cart endpoints. Stock checks
// here are advisory only: they catch obvious mistakes early, but the
// binding check happens under lock at checkout.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-ticketing/internal/model"
	"github.com/iliyamo/tour-ticketing/internal/repository"
)

// CartHandler bundles the repositories the cart endpoints touch.
type CartHandler struct {
	Carts   *repository.CartRepo
	Tickets *repository.TicketRepo
}

func NewCartHandler(carts *repository.CartRepo, tickets *repository.TicketRepo) *CartHandler {
	return &CartHandler{Carts: carts, Tickets: tickets}
}

// cartAvailability applies the advisory checks shared by the add and
// set-quantity paths: an inactive ticket cannot be carted at all, and
// the requested quantity must fit current stock. It writes the 409 and
// reports ok=false when the quantity cannot be satisfied.
func cartAvailability(c echo.Context, t *model.Ticket, quantity uint32) (bool, error) {
	if !t.Sellable() {
		return false, c.JSON(http.StatusConflict, echo.Map{"error": "ticket is not available"})
	}
	if quantity > t.Stock {
		return false, c.JSON(http.StatusConflict, echo.Map{
			"error":     "not enough stock",
			"available": t.Stock,
		})
	}
	return true, nil
}

type addCartItemReq struct {
	TicketID uint64 `json:"ticket_id"`
	Quantity uint32 `json:"quantity"`
}

type setCartQuantityReq struct {
	Quantity uint32 `json:"quantity"`
}

type cartLineResp struct {
	ID         uint64 `json:"id"`
	TicketID   uint64 `json:"ticket_id"`
	TicketName string `json:"ticket_name"`
	SpotName   string `json:"spot_name"`
	UnitPrice  string `json:"unit_price"`
	Quantity   uint32 `json:"quantity"`
	Subtotal   string `json:"subtotal"`
	Stock      uint32 `json:"stock"`
	Available  bool   `json:"available"`
}

// Get returns the cart with a running total priced at current prices.
func (h *CartHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lines, err := h.Carts.ListWithTickets(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]cartLineResp, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		sub := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		total = total.Add(sub)
		out = append(out, cartLineResp{
			ID:         l.ID,
			TicketID:   l.TicketID,
			TicketName: l.TicketName,
			SpotName:   l.SpotName,
			UnitPrice:  l.UnitPrice.StringFixed(2),
			Quantity:   l.Quantity,
			Subtotal:   sub.StringFixed(2),
			Stock:      l.TicketStock,
			Available:  l.TicketStatus == model.TicketActive && l.TicketStock >= l.Quantity,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "total": total.StringFixed(2)})
}

// AddItem puts a ticket in the cart, adding to the quantity when the
// ticket is already there.
func (h *CartHandler) AddItem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req addCartItemReq
	if err := c.Bind(&req); err != nil || req.TicketID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_id required"})
	}
	if req.Quantity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be at least 1"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tickets.GetByID(ctx, req.TicketID)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	quantity := req.Quantity
	if existing, err := h.Carts.GetByUserAndTicket(ctx, userID, req.TicketID); err == nil {
		quantity += existing.Quantity
	} else if err != repository.ErrCartItemNotFound {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if ok, err := cartAvailability(c, t, quantity); !ok {
		return err
	}

	item, err := h.Carts.Upsert(ctx, userID, req.TicketID, quantity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        item.ID,
		"ticket_id": item.TicketID,
		"quantity":  item.Quantity,
	})
}

// UpdateItem sets the absolute quantity of one cart row; zero removes it.
func (h *CartHandler) UpdateItem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req setCartQuantityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	item, err := h.Carts.GetByIDForUser(ctx, id, userID)
	if err != nil {
		if err == repository.ErrCartItemNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cart item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if req.Quantity == 0 {
		if err := h.Carts.Delete(ctx, id, userID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.NoContent(http.StatusNoContent)
	}

	t, err := h.Tickets.GetByID(ctx, item.TicketID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if ok, err := cartAvailability(c, t, req.Quantity); !ok {
		return err
	}

	updated, err := h.Carts.Upsert(ctx, userID, item.TicketID, req.Quantity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        updated.ID,
		"ticket_id": updated.TicketID,
		"quantity":  updated.Quantity,
	})
}

// RemoveItem deletes one cart row.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Carts.Delete(ctx, id, userID); err != nil {
		if err == repository.ErrCartItemNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cart item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear empties the whole cart.
func (h *CartHandler) Clear(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	removed, err := h.Carts.Clear(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}

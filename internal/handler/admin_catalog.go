// This file defines the admin catalog endpoints: spot and ticket CRUD.
// Admin responses include inactive tickets and timestamps, unlike the
// sanitized public browse routes.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-ticketing/internal/model"
	"github.com/iliyamo/tour-ticketing/internal/repository"
)

// AdminCatalogHandler bundles the repositories for catalog management.
type AdminCatalogHandler struct {
	Spots   *repository.SpotRepo
	Tickets *repository.TicketRepo
}

func NewAdminCatalogHandler(spots *repository.SpotRepo, tickets *repository.TicketRepo) *AdminCatalogHandler {
	return &AdminCatalogHandler{Spots: spots, Tickets: tickets}
}

type spotReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ticketReq struct {
	SpotID    uint64     `json:"spot_id"`
	Name      string     `json:"name"`
	UnitPrice string     `json:"unit_price"` // decimal string, e.g. "45.50"
	Stock     uint32     `json:"stock"`
	Status    string     `json:"status"` // ACTIVE | INACTIVE
	ValidFrom *time.Time `json:"valid_from"`
	ValidTo   *time.Time `json:"valid_to"`
}

type adminSpotResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAdminSpotResp(s *model.Spot) adminSpotResp {
	return adminSpotResp{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type adminTicketResp struct {
	ID        uint64     `json:"id"`
	SpotID    uint64     `json:"spot_id"`
	Name      string     `json:"name"`
	UnitPrice string     `json:"unit_price"`
	Stock     uint32     `json:"stock"`
	Status    string     `json:"status"`
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toAdminTicketResp(t *model.Ticket) adminTicketResp {
	return adminTicketResp{
		ID:        t.ID,
		SpotID:    t.SpotID,
		Name:      t.Name,
		UnitPrice: t.UnitPrice.StringFixed(2),
		Stock:     t.Stock,
		Status:    t.Status,
		ValidFrom: t.ValidFrom,
		ValidTo:   t.ValidTo,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// CreateSpot adds a new spot; names are unique.
func (h *AdminCatalogHandler) CreateSpot(c echo.Context) error {
	var req spotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	spot := &model.Spot{Name: req.Name, Description: req.Description}
	if err := h.Spots.Create(ctx, spot); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "spot name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create spot failed"})
	}
	return c.JSON(http.StatusCreated, toAdminSpotResp(spot))
}

// UpdateSpot renames a spot or changes its description.
func (h *AdminCatalogHandler) UpdateSpot(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req spotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Spots.Update(ctx, id, req.Name, req.Description); err != nil {
		switch err {
		case repository.ErrSpotNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "spot not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "spot name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update spot failed"})
	}
	spot, err := h.Spots.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load spot failed"})
	}
	return c.JSON(http.StatusOK, toAdminSpotResp(spot))
}

// DeleteSpot removes a spot that has no tickets.
func (h *AdminCatalogHandler) DeleteSpot(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Spots.Delete(ctx, id); err != nil {
		switch err {
		case repository.ErrSpotNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "spot not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "spot still has tickets"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete spot failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTickets returns every ticket of a spot, inactive included.
func (h *AdminCatalogHandler) ListTickets(c echo.Context) error {
	spotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Spots.GetByID(ctx, spotID); err != nil {
		if err == repository.ErrSpotNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "spot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	tickets, err := h.Tickets.ListBySpot(ctx, spotID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]adminTicketResp, 0, len(tickets))
	for i := range tickets {
		out = append(out, toAdminTicketResp(&tickets[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func (h *AdminCatalogHandler) parseTicketReq(c echo.Context) (*ticketReq, decimal.Decimal, error) {
	var req ticketReq
	if err := c.Bind(&req); err != nil {
		return nil, decimal.Zero, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, decimal.Zero, c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.UnitPrice))
	if err != nil || price.IsNegative() {
		return nil, decimal.Zero, c.JSON(http.StatusBadRequest, echo.Map{"error": "unit_price must be a non-negative decimal"})
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = model.TicketActive
	}
	if req.Status != model.TicketActive && req.Status != model.TicketInactive {
		return nil, decimal.Zero, c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be ACTIVE or INACTIVE"})
	}
	if req.ValidFrom != nil && req.ValidTo != nil && req.ValidTo.Before(*req.ValidFrom) {
		return nil, decimal.Zero, c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_to before valid_from"})
	}
	return &req, price, nil
}

// CreateTicket adds a ticket to a spot.
func (h *AdminCatalogHandler) CreateTicket(c echo.Context) error {
	req, price, err := h.parseTicketReq(c)
	if req == nil {
		return err
	}
	if req.SpotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "spot_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Spots.GetByID(ctx, req.SpotID); err != nil {
		if err == repository.ErrSpotNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "spot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	t := &model.Ticket{
		SpotID:    req.SpotID,
		Name:      req.Name,
		UnitPrice: price,
		Stock:     req.Stock,
		Status:    req.Status,
		ValidFrom: req.ValidFrom,
		ValidTo:   req.ValidTo,
	}
	if err := h.Tickets.Create(ctx, t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ticket failed"})
	}
	return c.JSON(http.StatusCreated, toAdminTicketResp(t))
}

// UpdateTicket rewrites a ticket's fields. Stock set here is an
// absolute restock; orders in flight still decrement under lock.
func (h *AdminCatalogHandler) UpdateTicket(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	req, price, bindErr := h.parseTicketReq(c)
	if req == nil {
		return bindErr
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	existing.Name = req.Name
	existing.UnitPrice = price
	existing.Stock = req.Stock
	existing.Status = req.Status
	existing.ValidFrom = req.ValidFrom
	existing.ValidTo = req.ValidTo

	if err := h.Tickets.Update(ctx, existing); err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update ticket failed"})
	}
	return c.JSON(http.StatusOK, toAdminTicketResp(existing))
}

// DeleteTicket removes a ticket. Past order snapshots keep their copy
// of the name and price, so history survives the delete.
func (h *AdminCatalogHandler) DeleteTicket(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tickets.Delete(ctx, id); err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete ticket failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

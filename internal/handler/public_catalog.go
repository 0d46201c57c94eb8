// This file defines handlers for the public browsing API. These routes
// let unauthenticated users browse spots and their tickets. Responses
// are sanitized: internal timestamps and inactive tickets are filtered
// out.
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-ticketing/internal/repository"
)

// PublicHandler aggregates repositories needed for unauthenticated
// browsing.
type PublicHandler struct {
	SpotRepo   *repository.SpotRepo
	TicketRepo *repository.TicketRepo
}

func NewPublicHandler(spots *repository.SpotRepo, tickets *repository.TicketRepo) *PublicHandler {
	return &PublicHandler{SpotRepo: spots, TicketRepo: tickets}
}

// PublicSpot is a spot exposed via the public API.
type PublicSpot struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PublicTicket is a sellable ticket exposed via the public API. Price
// is serialized as a decimal string so clients never see float noise.
type PublicTicket struct {
	ID        uint64     `json:"id"`
	SpotID    uint64     `json:"spot_id"`
	Name      string     `json:"name"`
	UnitPrice string     `json:"unit_price"`
	Stock     uint32     `json:"stock"`
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
}

// GetSpots lists every spot.
func (h *PublicHandler) GetSpots(c echo.Context) error {
	ctx := c.Request().Context()
	spots, err := h.SpotRepo.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicSpot, 0, len(spots))
	for _, s := range spots {
		out = append(out, PublicSpot{ID: s.ID, Name: s.Name, Description: s.Description})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetSpot returns one spot with its sellable tickets.
func (h *PublicHandler) GetSpot(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	spot, err := h.SpotRepo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrSpotNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "spot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	tickets, err := h.TicketRepo.ListBySpot(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicTicket, 0, len(tickets))
	for _, t := range tickets {
		if !t.Sellable() {
			continue
		}
		out = append(out, PublicTicket{
			ID:        t.ID,
			SpotID:    t.SpotID,
			Name:      t.Name,
			UnitPrice: t.UnitPrice.StringFixed(2),
			Stock:     t.Stock,
			ValidFrom: t.ValidFrom,
			ValidTo:   t.ValidTo,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"spot":    PublicSpot{ID: spot.ID, Name: spot.Name, Description: spot.Description},
		"tickets": out,
	})
}

// GetTicketsBySpot lists the sellable tickets of one spot.
func (h *PublicHandler) GetTicketsBySpot(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	// ensure spot exists
	if _, err := h.SpotRepo.GetByID(ctx, id); err != nil {
		if err == repository.ErrSpotNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "spot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	tickets, err := h.TicketRepo.ListBySpot(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicTicket, 0, len(tickets))
	for _, t := range tickets {
		if !t.Sellable() {
			continue
		}
		out = append(out, PublicTicket{
			ID:        t.ID,
			SpotID:    t.SpotID,
			Name:      t.Name,
			UnitPrice: t.UnitPrice.StringFixed(2),
			Stock:     t.Stock,
			ValidFrom: t.ValidFrom,
			ValidTo:   t.ValidTo,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetTicket returns one sellable ticket.
func (h *PublicHandler) GetTicket(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	t, err := h.TicketRepo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !t.Sellable() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	}
	return c.JSON(http.StatusOK, PublicTicket{
		ID:        t.ID,
		SpotID:    t.SpotID,
		Name:      t.Name,
		UnitPrice: t.UnitPrice.StringFixed(2),
		Stock:     t.Stock,
		ValidFrom: t.ValidFrom,
		ValidTo:   t.ValidTo,
	})
}

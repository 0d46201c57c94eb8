package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-ticketing/internal/handler"
	"github.com/iliyamo/tour-ticketing/internal/middleware"
	"github.com/iliyamo/tour-ticketing/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, catalog *handler.AdminCatalogHandler, orders *handler.AdminOrderHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Spots ----
	g.POST("/spots", catalog.CreateSpot)
	g.PUT("/spots/:id", catalog.UpdateSpot)
	g.PATCH("/spots/:id", catalog.UpdateSpot)
	g.DELETE("/spots/:id", catalog.DeleteSpot)
	// Admin ticket listing includes inactive tickets, unlike the
	// public /v1/spots/:id/tickets route.
	g.GET("/spots/:id/tickets", catalog.ListTickets)

	// ---- Tickets ----
	g.POST("/tickets", catalog.CreateTicket)
	g.PUT("/tickets/:id", catalog.UpdateTicket)
	g.PATCH("/tickets/:id", catalog.UpdateTicket)
	g.DELETE("/tickets/:id", catalog.DeleteTicket)

	// ---- Orders ----
	g.GET("/orders", orders.ListAll)
	g.POST("/orders/:id/complete", orders.Complete)
	g.POST("/orders/:id/status", orders.ForceStatus)
}

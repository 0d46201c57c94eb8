package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-ticketing/internal/handler"
	"github.com/iliyamo/tour-ticketing/internal/middleware"
	"github.com/iliyamo/tour-ticketing/internal/model"
)

// RegisterCustomer registers the cart and order endpoints under /v1.
// All routes require a valid JWT; admins pass the role check too so
// staff accounts can place their own orders.
func RegisterCustomer(e *echo.Echo, cart *handler.CartHandler, orders *handler.OrderHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)

	// ---- Cart ----
	g.GET("/cart", cart.Get)
	g.POST("/cart/items", cart.AddItem)
	g.PUT("/cart/items/:id", cart.UpdateItem)
	g.PATCH("/cart/items/:id", cart.UpdateItem)
	g.DELETE("/cart/items/:id", cart.RemoveItem)
	g.DELETE("/cart", cart.Clear)

	// ---- Orders ----
	g.POST("/orders", orders.Create) // cart checkout or direct booking
	g.GET("/orders", orders.List)
	g.GET("/orders/:id", orders.Get)
	g.POST("/orders/:id/pay", orders.Pay)
	g.POST("/orders/:id/cancel", orders.Cancel)
}

// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-ticketing/internal/handler"
	"github.com/iliyamo/tour-ticketing/internal/middleware"
	"github.com/iliyamo/tour-ticketing/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes. Unauthenticated
// operations live under /v1/auth, protected ones under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout works without the JWT middleware so a client holding only
	// a refresh token can still end its session.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints.
// Responses are sanitized in the handlers; the optional cache
// middleware serves repeated catalog reads from Redis. Checkout and
// cart routes never go through the cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if cache != nil {
		mws = append(mws, cache)
	}
	e.GET("/v1/spots", p.GetSpots, mws...)
	e.GET("/v1/spots/:id", p.GetSpot, mws...)
	e.GET("/v1/spots/:id/tickets", p.GetTicketsBySpot, mws...)
	e.GET("/v1/tickets/:id", p.GetTicket, mws...)
}

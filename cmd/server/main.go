package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-ticketing/internal/checkout"
	"github.com/iliyamo/tour-ticketing/internal/config"
	"github.com/iliyamo/tour-ticketing/internal/database"
	"github.com/iliyamo/tour-ticketing/internal/handler"
	"github.com/iliyamo/tour-ticketing/internal/middleware"
	"github.com/iliyamo/tour-ticketing/internal/queue"
	"github.com/iliyamo/tour-ticketing/internal/repository"
	"github.com/iliyamo/tour-ticketing/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional; rate limiting and response caching degrade to
	// no-ops when it is absent.
	rdb := config.NewRedisClient()

	spots := repository.NewSpotRepo(db)
	tickets := repository.NewTicketRepo(db)
	carts := repository.NewCartRepo(db)
	orders := repository.NewOrderRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	store := repository.NewCheckoutStore(db, tickets, carts, orders)
	svc := checkout.NewService(store, cfg.OrderNoRetries)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(spots, tickets)
	cartH := handler.NewCartHandler(carts, tickets)
	orderH := handler.NewOrderHandler(svc, orders, time.Duration(cfg.CheckoutTimeoutS)*time.Second)
	adminCatalogH := handler.NewAdminCatalogHandler(spots, tickets)
	adminOrderH := handler.NewAdminOrderHandler(svc, orders)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, cartH, orderH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminCatalogH, adminOrderH, cfg.JWTSecret)

	// Background consumer mirrors order events into logs/orders.log.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

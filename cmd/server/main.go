package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/config"
	"github.com/hotelhq/room-reservation/internal/database"
	"github.com/hotelhq/room-reservation/internal/handler"
	"github.com/hotelhq/room-reservation/internal/middleware"
	"github.com/hotelhq/room-reservation/internal/queue"
	"github.com/hotelhq/room-reservation/internal/repository"
	"github.com/hotelhq/room-reservation/internal/router"
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

	userRepo := repository.NewUserRepo(db)
	guestRepo := repository.NewGuestRepo(db)
	roomRepo := repository.NewRoomRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	sequenceRepo := repository.NewSequenceRepo(db)

	authHandler := handler.NewAuthHandler(cfg, userRepo)
	reservationHandler := handler.NewReservationHandler(cfg, reservationRepo, paymentRepo, roomRepo, guestRepo, sequenceRepo)
	paymentHandler := handler.NewPaymentHandler(paymentRepo, reservationRepo)
	roomHandler := handler.NewRoomHandler(roomRepo, reservationRepo)

	// Redis is optional: without it rate limiting and response caching
	// degrade to pass-through.
	rdb := config.NewRedisClient()
	rateLimit := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb)
	respCache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler)
	api := router.Protected(e, cfg.JWTSecret, authHandler, rateLimit, respCache)
	router.RegisterReservations(api, reservationHandler)
	router.RegisterPayments(api, paymentHandler)
	router.RegisterRooms(api, roomHandler)

	go func() {
		if err := queue.StartConsumers(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

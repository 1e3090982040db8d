package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/database"
	"github.com/iliyamo/slot-reservation/internal/handler"
	"github.com/iliyamo/slot-reservation/internal/mail"
	"github.com/iliyamo/slot-reservation/internal/middleware"
	"github.com/iliyamo/slot-reservation/internal/notify"
	"github.com/iliyamo/slot-reservation/internal/payment"
	"github.com/iliyamo/slot-reservation/internal/pricing"
	"github.com/iliyamo/slot-reservation/internal/queue"
	"github.com/iliyamo/slot-reservation/internal/repository"
	"github.com/iliyamo/slot-reservation/internal/router"
	"github.com/iliyamo/slot-reservation/internal/service"
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

	// Redis is optional; a nil client disables rate limiting and caching.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting and caching disabled")
	}

	reservations := repository.NewReservationRepo(db)
	customers := repository.NewCustomerRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	var provider payment.Provider
	switch cfg.PaymentMode {
	case config.PaymentModeLive:
		provider = payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.BaseURL)
	default:
		provider = payment.NewSimulationProvider(cfg.BaseURL)
	}
	log.Printf("payment provider: %s", provider.Name())

	dispatcher := notify.NewDispatcher()
	lifecycle := service.NewLifecycle(reservations, customers, dispatcher)
	rates := pricing.FromConfig(cfg)

	// Event consumer: turns queued reservation events into mail. Runs for
	// the lifetime of the process and reconnects on broker failure.
	mailer := mail.NewFromEnv()
	go func() {
		if err := queue.StartConsumer(notify.MailHandler(mailer, cfg.BaseURL, cfg.AdminNotifyTo, cfg.AdminNotifyCC, cfg.AdminNotifyBCC)); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	e := echo.New()

	slotHandler := &handler.SlotHandler{Slots: cfg.Slots, Currency: cfg.Currency}
	resHandler := handler.NewReservationHandler(reservations, customers, rates, lifecycle, dispatcher, cfg.Slots)
	checkoutHandler := handler.NewCheckoutHandler(reservations, provider, lifecycle)
	webhookHandler := handler.NewWebhookHandler(provider, lifecycle)
	adminHandler := handler.NewAdminReservationHandler(reservations)
	adminCustomers := handler.NewAdminCustomerHandler(customers)
	authHandler := handler.NewAuthHandler(cfg, users, tokens)

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	// Registered per group rather than globally so it runs after JWTAuth
	// on protected routes and its user key strategy sees the subject.
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret, limit)
	router.RegisterPublic(e, slotHandler, resHandler, checkoutHandler, webhookHandler, cache, limit)
	router.RegisterReservations(e, resHandler, cfg.JWTSecret, limit)
	router.RegisterAdmin(e, adminHandler, adminCustomers, cfg.JWTSecret, limit)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	klog "github.com/go-kratos/kratos/v2/log"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "go.uber.org/automaxprocs"

	"github.com/iliyamo/study-abroad-marketplace/internal/config"
	"github.com/iliyamo/study-abroad-marketplace/internal/database"
	"github.com/iliyamo/study-abroad-marketplace/internal/handler"
	"github.com/iliyamo/study-abroad-marketplace/internal/middleware"
	"github.com/iliyamo/study-abroad-marketplace/internal/payment"
	"github.com/iliyamo/study-abroad-marketplace/internal/queue"
	"github.com/iliyamo/study-abroad-marketplace/internal/repository"
	"github.com/iliyamo/study-abroad-marketplace/internal/router"
	"github.com/iliyamo/study-abroad-marketplace/internal/service"
)

func main() {
	cfg := config.Load()
	payCfg := config.LoadPaymentConfig()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	events := queue.NewPublisher(config.LoadEventsConfig())
	defer events.Close()

	logger := klog.With(klog.NewStdLogger(os.Stdout),
		"ts", klog.DefaultTimestamp,
		"caller", klog.DefaultCaller,
	)

	provider := payment.NewStripe(payCfg.SecretKey, payCfg.WebhookSecret, payCfg.ProviderTimeout)
	apps := service.NewApplicationService(db, events, logger)
	payments := service.NewPaymentService(db, provider, events, logger, service.PaymentOptions{
		BaseURL:  cfg.BaseURL,
		Currency: payCfg.Currency,
		Locker:   service.NewRedsyncLocker(rdb, payCfg.LockTTL),
	})
	admin := service.NewAdminService(db, logger)

	cacheCfg := config.LoadCacheConfig()
	lim := router.Limits{
		API:     middleware.NewTokenBucket(config.LoadRateLimitConfig("api", 60), rdb),
		Auth:    middleware.NewTokenBucket(config.LoadRateLimitConfig("auth", 10), rdb),
		Webhook: middleware.NewTokenBucket(config.LoadRateLimitConfig("webhook", 200), rdb),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(echomw.Logger())

	users, tokens := repository.NewUserRepo(db), repository.NewTokenRepo(db)
	payHandler := handler.NewPaymentHandler(payments, cfg.LandingURL, payCfg.ProviderTimeout)

	guard := router.Guard{Secret: cfg.JWTSecret, Users: users}
	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Rdb: rdb})
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), guard, lim)
	router.RegisterPublic(e,
		handler.NewCatalogueHandler(repository.NewInstitutionRepo(db), repository.NewProgramRepo(db)),
		middleware.NewResponseCache(cacheCfg, rdb), lim)
	router.RegisterStudent(e, handler.NewApplicationHandler(apps, payments), payHandler, guard, lim)
	router.RegisterPayments(e, payHandler, guard, lim)
	router.RegisterAdmin(e, handler.NewAdminHandler(admin, apps, rdb, cacheCfg.Prefix), payHandler, guard, lim)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Print("server stopped")
}

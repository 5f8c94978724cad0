package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/judithshaven/storefront/internal/audit"
	"github.com/judithshaven/storefront/internal/cache"
	"github.com/judithshaven/storefront/internal/config"
	"github.com/judithshaven/storefront/internal/es"
	"github.com/judithshaven/storefront/internal/handlers"
	"github.com/judithshaven/storefront/internal/handlers/cart"
	"github.com/judithshaven/storefront/internal/logging"
	"github.com/judithshaven/storefront/internal/mail"
	"github.com/judithshaven/storefront/internal/middleware"
	"github.com/judithshaven/storefront/internal/mykafka"
	"github.com/judithshaven/storefront/internal/pricing"
	"github.com/judithshaven/storefront/internal/service"
	httpserver "github.com/judithshaven/storefront/internal/transport/http"
	"github.com/judithshaven/storefront/internal/validation"
	"github.com/judithshaven/storefront/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.RefreshSecret, "REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("db init: %v", err)
	}

	prod, err := mykafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		logger.Warn("kafka disabled", "error", err)
		prod = &mykafka.Producer{}
	}

	var indexer *es.Indexer
	var searchHandler *handlers.SearchHandler
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		indexer = &es.Indexer{Client: esClient, Index: es.ProductIndex}
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: es.ProductIndex}
	} else {
		logger.Warn("elasticsearch disabled, search unavailable")
		indexer = &es.Indexer{}
		searchHandler = &handlers.SearchHandler{}
	}

	productCache := &cache.ProductCache{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(cfg)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		productCache = &cache.ProductCache{RDB: rdb}
	} else {
		logger.Warn("redis disabled, product cache off")
	}

	mailer := mail.New(cfg)
	hub := ws.NewHub()
	recorder := &audit.Recorder{DB: db}
	tokens := &service.TokenService{DB: db, JWTSecret: cfg.JWTSecret, RefreshSecret: cfg.RefreshSecret}
	rates := pricing.Rates{
		TaxRate:           cfg.TaxRate,
		ShippingFlatRate:  cfg.ShippingFlatRate,
		FreeShippingAbove: cfg.FreeShippingAbove,
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:              db,
		JWTSecret:       cfg.JWTSecret,
		AuthHandler:     &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: prod},
		UserHandler:     &handlers.UserHandler{DB: db},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: prod, Cache: productCache, Indexer: indexer, Audit: recorder},
		CategoryHandler: &handlers.CategoryHandler{DB: db, Audit: recorder},
		CartHandler:     &cart.CartHandler{DB: db, Producer: prod},
		OrderHandler:    &handlers.OrderHandler{DB: db, Producer: prod, Cache: productCache, Hub: hub, Mailer: mailer, Audit: recorder, Rates: rates},
		CouponHandler:   &handlers.CouponHandler{DB: db, Audit: recorder},
		ReviewHandler:   &handlers.ReviewHandler{DB: db},
		WishlistHandler: &handlers.WishlistHandler{DB: db},
		ContactHandler:  &handlers.ContactHandler{DB: db, Mailer: mailer},
		SearchHandler:   searchHandler,
		AdminUsers:      &handlers.AdminUserHandler{DB: db, Audit: recorder},
		AuditLogs:       &handlers.AuditLogHandler{DB: db},
		WSHandler:       &handlers.WSHandler{DB: db, Hub: hub},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}

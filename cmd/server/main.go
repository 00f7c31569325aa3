package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"

	"github.com/cesargomez89/fetchpay/internal/app"
	"github.com/cesargomez89/fetchpay/internal/config"
	"github.com/cesargomez89/fetchpay/internal/fetcher"
	"github.com/cesargomez89/fetchpay/internal/handlers"
	"github.com/cesargomez89/fetchpay/internal/ledger"
	"github.com/cesargomez89/fetchpay/internal/logger"
	"github.com/cesargomez89/fetchpay/internal/notifier"
	"github.com/cesargomez89/fetchpay/internal/payments"
	"github.com/cesargomez89/fetchpay/internal/pricing"
	"github.com/cesargomez89/fetchpay/internal/queue"
	"github.com/cesargomez89/fetchpay/internal/ratelimit"
	"github.com/cesargomez89/fetchpay/internal/storage"
	"github.com/cesargomez89/fetchpay/internal/store"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.EnsureDir(cfg.DownloadsDir); err != nil {
		appLogger.Error("Failed to create downloads dir", "error", err)
		os.Exit(1)
	}

	// Ledger and pricing
	ldg := ledger.New(db, cfg.StartingBalance, appLogger)
	policy := pricing.DefaultPolicy()

	// Notifier: webhook when a callback URL is configured, log-only otherwise
	var notify queue.Notifier
	if cfg.CallbackURL != "" {
		notify = notifier.NewWebhook(cfg.CallbackURL, appLogger)
	} else {
		appLogger.Warn("CALLBACK_URL not set, notifications go to the log only")
		notify = notifier.NewLog(appLogger)
	}

	// Worker
	ytdlpFetcher := fetcher.New(appLogger)
	jobQueue := queue.NewQueue()
	w := queue.NewWorker(jobQueue, ytdlpFetcher, notify, db, cfg, appLogger)
	w.Start()
	defer w.Stop()

	// Optional Redis for the rate limiter
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}
	limiter := ratelimit.New(cfg.RateLimitRPM, redisClient)

	// Services
	fetchService := app.NewFetchService(db, ldg, ytdlpFetcher, jobQueue, policy, appLogger)
	payService := payments.NewService(db, ldg, payments.NewProvider(cfg.PayProviderURL, cfg.PayProviderToken), appLogger)

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := handlers.NewHandler(fetchService, payService, ldg, limiter, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"asset-tracker-backend/config"
	"asset-tracker-backend/internal/api"
	"asset-tracker-backend/internal/db"
	"asset-tracker-backend/internal/events"
	"asset-tracker-backend/internal/item"
	"asset-tracker-backend/internal/logger"
	"asset-tracker-backend/internal/mw"
	"asset-tracker-backend/internal/notification"
	"asset-tracker-backend/internal/photo"
	"asset-tracker-backend/internal/realtime"
	"asset-tracker-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log := logger.New("asset-tracker", cfg.Log.Level)
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("path", configPath))
	for _, key := range cfg.Defaulted {
		log.Warn("Invalid config value replaced by default", zap.String("key", key))
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := realtime.NewRegistry(log)

	var (
		pushDispatcher notification.Dispatcher
		webpushOptions *webpush.Options
	)
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, log)
		pool.Start(ctx)
		pushDispatcher = pool
		log.Info("Web push enabled", zap.Int("workers", cfg.WorkerPool.Size))
	} else {
		log.Warn("VAPID keys not configured, web push disabled")
	}

	publisher := newPublisher(cfg.Events, log)
	defer publisher.Close()

	fanout := notification.NewService(appStore, registry, pushDispatcher, log)
	items := item.NewService(appStore, fanout, publisher, log)

	photos, err := photo.NewStorage(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, cfg.Uploads.MaxDimension)
	if err != nil {
		log.Fatal("Failed to prepare upload storage", zap.Error(err))
	}

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateBurst)
	go limiter.RunJanitor(ctx, time.Minute, 10*time.Minute)

	handler := api.NewHandler(api.Deps{
		Store:    appStore,
		Items:    items,
		Inbox:    notification.NewReadState(appStore),
		Photos:   photos,
		Registry: registry,
		Webpush:  webpushOptions,
		Log:      log,
	})
	router := api.NewRouter(handler, cfg, limiter, log)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Info("Shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server Shutdown", zap.Error(err))
	}

	// Let in-flight notifications land before the workers stop.
	items.Wait()
	cancel()

	log.Info("Server gracefully stopped")
}

// newPublisher connects to RabbitMQ when configured. A broker that cannot be
// reached disables event publishing instead of blocking startup.
func newPublisher(cfg config.EventsConfig, log *zap.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.Noop{}
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange, log)
	if err != nil {
		log.Warn("Event publishing disabled", zap.Error(err))
		return events.Noop{}
	}
	return p
}

// Package main is the entry point for the Valentine card campaign server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cartecard/internal/analytics"
	"cartecard/internal/cache"
	"cartecard/internal/compositor"
	"cartecard/internal/config"
	"cartecard/internal/handlers"
	"cartecard/internal/liff"
	"cartecard/internal/router"
	"cartecard/internal/session"
	"cartecard/internal/storage"
)

func main() {
	// Local overrides from .env; absent in container deployments.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"base_path", cfg.BasePath,
	)

	// Connect to Valkey for session storage. Development falls back to the
	// in-memory store so the app runs without infrastructure.
	var sessionStore session.Store
	var imageCache *cache.ImageCache
	valkeyClient, err := session.Connect(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		if !cfg.IsDev() {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		slog.Warn("valkey unreachable, using in-memory sessions", "error", err)
		sessionStore = session.NewMemoryStore()
	} else {
		defer valkeyClient.Close()
		sessionStore = session.NewValkeyStore(valkeyClient)
		imageCache = cache.NewImageCache(valkeyClient, cache.DefaultImageTTL)
	}

	// Connect to S3-compatible object storage (optional, the app works
	// without it by returning cards as data URLs).
	archive, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3PublicURL,
	)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if archive != nil {
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, cards are delivered inline")
	}

	// LINE platform client. Token verification works without a channel
	// token; pushing cards to chats requires one.
	platform := liff.New(liff.Config{ChannelToken: cfg.LINEChannelToken})
	if !platform.CanPush() {
		slog.Warn("LINE channel token not configured, sharing to chat disabled")
	}

	// GA4 Measurement Protocol tracker; silent no-op when unconfigured.
	tracker := analytics.New(analytics.Config{
		MeasurementID: cfg.GAMeasurementID,
		APISecret:     cfg.GAAPISecret,
	})
	if tracker.Enabled() {
		slog.Info("analytics enabled", "measurement_id", cfg.GAMeasurementID)
	}

	// Card compositor: brand imagery as the background, gradient fallback
	// when the image host is unreachable.
	comp := compositor.New(compositor.NewHTTPLoader(nil, compositor.DefaultAllowedHosts...))

	// Create handler groups with their dependencies.
	wiz := handlers.NewWizard(sessionStore, platform, comp, tracker)
	delivery := handlers.NewDelivery(platform, archive, tracker)
	proxy := handlers.NewImageProxy(compositor.DefaultAllowedHosts, imageCache)

	// Set up the Chi router with all middleware and routes.
	r := router.New(cfg.BasePath, wiz, delivery, proxy)

	// WriteTimeout must accommodate the card render path, which fetches a
	// background image and paces the result.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

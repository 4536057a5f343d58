package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maisonmara/server/internal/catalog"
	"github.com/maisonmara/server/internal/checkout"
	"github.com/maisonmara/server/internal/circuitbreaker"
	"github.com/maisonmara/server/internal/config"
	"github.com/maisonmara/server/internal/httpserver"
	"github.com/maisonmara/server/internal/identity"
	"github.com/maisonmara/server/internal/logger"
	"github.com/maisonmara/server/internal/metrics"
	"github.com/maisonmara/server/internal/orders"
)

func main() {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("MARA_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := logger.New(logger.Config{Service: "maisonmara-server"})
		bootLogger.Fatal().Err(err).Msg("config.load_failed")
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "maisonmara-server",
		Environment: cfg.Logging.Environment,
	})

	store, err := orders.NewStore(cfg.Storage)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("storage.init_failed")
	}

	metricsCollector := metrics.New(prometheus.DefaultRegisterer)
	breakers := circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker)

	gateway := checkout.NewClient(cfg.Stripe, breakers, metricsCollector)
	catalogClient := catalog.NewClient(cfg.Catalog, breakers)
	identityClient := identity.NewClient(cfg.Identity, breakers)
	reconciler := checkout.NewReconciler(store, cfg.Checkout, cfg.Stripe, metricsCollector)

	server := httpserver.New(cfg, gateway, catalogClient, identityClient, reconciler, store, metricsCollector, appLogger)

	go func() {
		appLogger.Info().
			Str("address", cfg.Server.Address).
			Str("storage_backend", cfg.Storage.Backend).
			Str("stripe_mode", cfg.Stripe.Mode).
			Msg("server.started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("server.listen_failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("server.shutting_down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server.shutdown_failed")
	}
	if err := store.Close(); err != nil {
		appLogger.Error().Err(err).Msg("storage.close_failed")
	}
	appLogger.Info().Msg("server.stopped")
}

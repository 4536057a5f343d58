// Package httpserver wires the checkout API's routes, middleware, and
// dependencies behind a chi router.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	stripeapi "github.com/stripe/stripe-go/v72"

	"github.com/maisonmara/server/internal/catalog"
	"github.com/maisonmara/server/internal/checkout"
	"github.com/maisonmara/server/internal/config"
	"github.com/maisonmara/server/internal/identity"
	"github.com/maisonmara/server/internal/logger"
	"github.com/maisonmara/server/internal/metrics"
	"github.com/maisonmara/server/internal/orders"
	"github.com/maisonmara/server/internal/ratelimit"
)

var serverStartTime = time.Now()

// Gateway is the slice of the payment gateway client the handlers use.
type Gateway interface {
	CreateSession(ctx context.Context, req checkout.CreateSessionRequest) (checkout.CreatedSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripeapi.CheckoutSession, error)
	VerifyWebhook(payload []byte, signature string) (stripeapi.Event, error)
}

// CatalogReader fetches the live product snapshot.
type CatalogReader interface {
	ActiveProducts(ctx context.Context) (catalog.Snapshot, error)
}

// IdentityResolver exchanges bearer tokens for verified customers.
type IdentityResolver interface {
	Resolve(ctx context.Context, accessToken string) (identity.Customer, error)
}

// SessionReconciler turns session payloads into order writes.
type SessionReconciler interface {
	Reconcile(ctx context.Context, session *stripeapi.CheckoutSession, expectedUserID string) (checkout.SyncResult, error)
	HandleWebhookEvent(ctx context.Context, event stripeapi.Event) (checkout.WebhookResult, error)
}

// Server wires handlers, middleware, and dependencies.
type Server struct {
	handlers
	httpServer *http.Server
}

type handlers struct {
	cfg        *config.Config
	gateway    Gateway
	catalog    CatalogReader
	identity   IdentityResolver
	reconciler SessionReconciler
	store      orders.Store
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New builds the HTTP server with the configured router.
func New(cfg *config.Config, gateway Gateway, catalogClient CatalogReader, identityClient IdentityResolver, reconciler SessionReconciler, store orders.Store, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) *Server {
	router := chi.NewRouter()

	h := handlers{
		cfg:        cfg,
		gateway:    gateway,
		catalog:    catalogClient,
		identity:   identityClient,
		reconciler: reconciler,
		store:      store,
		metrics:    metricsCollector,
		logger:     appLogger,
	}

	s := &Server{
		handlers: h,
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
			Handler:      router,
		},
	}

	configureRouter(router, cfg, h, appLogger)
	return s
}

func configureRouter(router chi.Router, cfg *config.Config, h handlers, appLogger zerolog.Logger) {
	if len(cfg.Checkout.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.Checkout.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	router.Use(securityHeadersMiddleware)
	router.Use(logger.Middleware(appLogger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(metricsMiddleware(h.metrics))

	router.Use(ratelimit.GlobalLimiter(cfg.RateLimit))
	router.Use(ratelimit.IPLimiter(cfg.RateLimit))

	// Lightweight endpoints get a short timeout so a wedged dependency
	// cannot stall health checks.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/health", h.health)
		r.Handle("/metrics", promhttp.Handler())
	})

	// Checkout and reconciliation endpoints block on the gateway, catalog,
	// and identity services; their timeout covers the slowest of those.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/checkout/session", h.createCheckoutSession)
		r.Post("/checkout/session/{sessionID}/sync", h.syncCheckoutSession)

		// Webhook URLs stay stable; the gateway is configured with this path.
		r.Post("/checkout/webhook/stripe", h.handleStripeWebhook)

		r.Get("/account/orders", h.listAccountOrders)
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

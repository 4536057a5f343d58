package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/maisonmara/server/internal/config"
)

// ServiceType identifies different external services for circuit breaker isolation.
type ServiceType string

const (
	ServiceStripe   ServiceType = "stripe_api"
	ServiceCatalog  ServiceType = "catalog"
	ServiceIdentity ServiceType = "identity"
)

// Manager holds one circuit breaker per external service. Each service has its
// own breaker so a degraded catalog cannot trip checkout's Stripe calls.
type Manager struct {
	breakers map[ServiceType]*gobreaker.CircuitBreaker
	enabled  bool
}

// NewManagerFromConfig creates a circuit breaker manager from application config.
func NewManagerFromConfig(cfg config.CircuitBreakerConfig) *Manager {
	m := &Manager{
		breakers: make(map[ServiceType]*gobreaker.CircuitBreaker),
		enabled:  cfg.Enabled,
	}
	if !cfg.Enabled {
		return m
	}

	m.breakers[ServiceStripe] = gobreaker.NewCircuitBreaker(toSettings(ServiceStripe, cfg.StripeAPI))
	m.breakers[ServiceCatalog] = gobreaker.NewCircuitBreaker(toSettings(ServiceCatalog, cfg.Catalog))
	m.breakers[ServiceIdentity] = gobreaker.NewCircuitBreaker(toSettings(ServiceIdentity, cfg.Identity))
	return m
}

// Execute wraps a call with circuit breaker protection. Disabled or unknown
// services pass through.
func (m *Manager) Execute(service ServiceType, fn func() (interface{}, error)) (interface{}, error) {
	if m == nil || !m.enabled {
		return fn()
	}
	breaker, ok := m.breakers[service]
	if !ok {
		return fn()
	}
	return breaker.Execute(fn)
}

// State returns the current state of a service's breaker.
func (m *Manager) State(service ServiceType) string {
	if m == nil || !m.enabled {
		return "disabled"
	}
	breaker, ok := m.breakers[service]
	if !ok {
		return "not_configured"
	}
	return breaker.State().String()
}

// IsOpen reports whether a call was rejected by an open breaker.
func IsOpen(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}

func toSettings(service ServiceType, cfg config.BreakerServiceConfig) gobreaker.Settings {
	interval := cfg.Interval.Duration
	if interval <= 0 {
		interval = 60 * time.Second
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.Settings{
		Name:        string(service),
		MaxRequests: cfg.MaxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
}

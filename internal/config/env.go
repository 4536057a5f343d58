package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration.
// All env vars use the MARA_ prefix for namespace isolation.
func (c *Config) applyEnvOverrides() {
	// Server config
	setIfEnv(&c.Server.Address, "MARA_SERVER_ADDRESS")

	// Logging config
	setIfEnv(&c.Logging.Level, "MARA_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "MARA_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "MARA_ENVIRONMENT")

	// Stripe config
	setIfEnv(&c.Stripe.SecretKey, "MARA_STRIPE_SECRET_KEY")
	setIfEnv(&c.Stripe.WebhookSecret, "MARA_STRIPE_WEBHOOK_SECRET")
	setIfEnv(&c.Stripe.Currency, "MARA_STRIPE_CURRENCY")
	setIfEnv(&c.Stripe.Mode, "MARA_STRIPE_MODE")

	// Checkout config
	if v := os.Getenv("MARA_CHECKOUT_ALLOWED_ORIGINS"); v != "" {
		c.Checkout.AllowedOrigins = splitAndTrim(v)
	}
	setIfEnv(&c.Checkout.DefaultOrigin, "MARA_CHECKOUT_DEFAULT_ORIGIN")
	setIfEnv(&c.Checkout.StoreCode, "MARA_CHECKOUT_STORE_CODE")

	// Catalog service config
	setIfEnv(&c.Catalog.BaseURL, "MARA_CATALOG_URL")
	setIfEnv(&c.Catalog.APIKey, "MARA_CATALOG_API_KEY")
	setDurationIfEnv(&c.Catalog.Timeout, "MARA_CATALOG_TIMEOUT")

	// Identity service config
	setIfEnv(&c.Identity.BaseURL, "MARA_IDENTITY_URL")
	setIfEnv(&c.Identity.APIKey, "MARA_IDENTITY_API_KEY")
	setDurationIfEnv(&c.Identity.Timeout, "MARA_IDENTITY_TIMEOUT")

	// Storage config
	setIfEnv(&c.Storage.Backend, "MARA_STORAGE_BACKEND")
	setIfEnv(&c.Storage.PostgresURL, "MARA_STORAGE_POSTGRES_URL")
	setIfEnv(&c.Storage.MongoDBURL, "MARA_STORAGE_MONGODB_URL")
	setIfEnv(&c.Storage.MongoDBDatabase, "MARA_STORAGE_MONGODB_DATABASE")
	setIfEnv(&c.Storage.OrdersTable, "MARA_STORAGE_ORDERS_TABLE")

	// Rate limiting config
	setBoolIfEnv(&c.RateLimit.GlobalEnabled, "MARA_RATE_LIMIT_GLOBAL_ENABLED")
	setIntIfEnv(&c.RateLimit.GlobalLimit, "MARA_RATE_LIMIT_GLOBAL_LIMIT")
	setBoolIfEnv(&c.RateLimit.PerIPEnabled, "MARA_RATE_LIMIT_PER_IP_ENABLED")
	setIntIfEnv(&c.RateLimit.PerIPLimit, "MARA_RATE_LIMIT_PER_IP_LIMIT")

	// Circuit breaker config
	setBoolIfEnv(&c.CircuitBreaker.Enabled, "MARA_CIRCUIT_BREAKER_ENABLED")
}

func setIfEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*target = parsed
		}
	}
}

func setIntIfEnv(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		}
	}
}

func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: parsed}
		}
	}
}

func splitAndTrim(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		cleaned := strings.TrimSpace(part)
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}

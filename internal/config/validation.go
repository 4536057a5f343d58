package config

import (
	"fmt"
	"strings"
)

// finalize normalizes derived values and validates the merged configuration.
func (c *Config) finalize() error {
	c.Stripe.Currency = strings.ToLower(strings.TrimSpace(c.Stripe.Currency))
	if len(c.Stripe.Currency) != 3 || !isAlpha(c.Stripe.Currency) {
		return fmt.Errorf("stripe.currency must be a 3-letter ISO code, got %q", c.Stripe.Currency)
	}

	c.Checkout.StoreCode = strings.ToUpper(strings.TrimSpace(c.Checkout.StoreCode))
	if c.Checkout.StoreCode == "" {
		return fmt.Errorf("checkout.store_code must not be empty")
	}
	if c.Checkout.DefaultOrigin == "" {
		return fmt.Errorf("checkout.default_origin must not be empty")
	}

	switch c.Storage.Backend {
	case "", "memory", "postgres", "mongodb":
	default:
		return fmt.Errorf("storage.backend must be memory, postgres, or mongodb, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresURL == "" {
		return fmt.Errorf("storage.postgres_url required when storage.backend is postgres")
	}
	if c.Storage.Backend == "mongodb" && c.Storage.MongoDBURL == "" {
		return fmt.Errorf("storage.mongodb_url required when storage.backend is mongodb")
	}
	if c.Storage.OrdersTable == "" {
		c.Storage.OrdersTable = "customer_orders"
	}

	if c.Catalog.Timeout.Duration <= 0 {
		return fmt.Errorf("catalog.timeout must be positive")
	}
	if c.Identity.Timeout.Duration <= 0 {
		return fmt.Errorf("identity.timeout must be positive")
	}

	return nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return len(s) > 0
}

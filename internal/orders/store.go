// Package orders persists confirmed orders. The at-most-one-order-per-session
// invariant lives here: every backend implements UpsertOrder as a single
// atomic merge-on-conflict write keyed on order_number, so concurrent
// reconciliation attempts for the same session converge to one row.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/maisonmara/server/internal/config"
)

// ErrNotFound is returned when a requested order is missing from the store.
var ErrNotFound = errors.New("orders: not found")

// StatusBeingPrepared is the initial status of every confirmed order.
const StatusBeingPrepared = "being prepared"

// ConfirmedOrder is the canonical order record derived from a paid session.
type ConfirmedOrder struct {
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	TotalAmount string    `json:"total_amount"` // major units, two decimals
	Currency    string    `json:"currency"`     // 3-letter uppercase code
	ItemsCount  int       `json:"items_count"`
	OrderedAt   time.Time `json:"ordered_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store captures the persistence requirements for confirmed orders.
type Store interface {
	// UpsertOrder inserts the order or, when a row with the same order_number
	// exists, overwrites it (last write wins). It returns the persisted row.
	// The write must be a single atomic operation, never read-then-write.
	UpsertOrder(ctx context.Context, order ConfirmedOrder) (ConfirmedOrder, error)

	// GetOrder retrieves an order by order number.
	GetOrder(ctx context.Context, orderNumber string) (ConfirmedOrder, error)

	// ListOrdersByUser returns a user's orders, most recent first.
	ListOrdersByUser(ctx context.Context, userID string) ([]ConfirmedOrder, error)

	Close() error
}

// NewStore creates a Store instance based on the provided configuration.
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		// Memory backend loses orders on restart - development/testing only.
		return NewMemoryStore(), nil
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("postgres backend requires postgres_url")
		}
		return NewPostgresStore(cfg.PostgresURL, cfg.OrdersTable, cfg.PostgresPool)
	case "mongodb":
		if cfg.MongoDBURL == "" {
			return nil, fmt.Errorf("mongodb backend requires mongodb_url")
		}
		database := cfg.MongoDBDatabase
		if database == "" {
			database = "maisonmara"
		}
		return NewMongoStore(cfg.MongoDBURL, database, cfg.OrdersTable)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// MemoryStore is an in-memory Store implementation for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]ConfirmedOrder // order_number -> order
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]ConfirmedOrder)}
}

// UpsertOrder inserts or overwrites the order under its order number.
func (m *MemoryStore) UpsertOrder(_ context.Context, order ConfirmedOrder) (ConfirmedOrder, error) {
	if order.OrderNumber == "" {
		return ConfirmedOrder{}, fmt.Errorf("orders: order number required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.orders[order.OrderNumber]; ok {
		order.CreatedAt = existing.CreatedAt
	} else if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	m.orders[order.OrderNumber] = order
	return order, nil
}

// GetOrder retrieves an order by order number.
func (m *MemoryStore) GetOrder(_ context.Context, orderNumber string) (ConfirmedOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[orderNumber]
	if !ok {
		return ConfirmedOrder{}, ErrNotFound
	}
	return order, nil
}

// ListOrdersByUser returns a user's orders sorted by ordered_at descending.
func (m *MemoryStore) ListOrdersByUser(_ context.Context, userID string) ([]ConfirmedOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ConfirmedOrder
	for _, order := range m.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OrderedAt.After(out[j].OrderedAt)
	})
	return out, nil
}

// Close implements the Store interface.
func (m *MemoryStore) Close() error {
	return nil
}

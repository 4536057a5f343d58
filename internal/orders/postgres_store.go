package orders

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"

	"github.com/maisonmara/server/internal/config"
)

// PostgresStore implements Store using PostgreSQL. The uniqueness constraint
// on order_number plus ON CONFLICT DO UPDATE gives the idempotent write the
// reconciler depends on.
type PostgresStore struct {
	db     *sql.DB
	ownsDB bool
	table  string
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(connectionString, table string, pool config.PostgresPoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		// Close() error during initialization cleanup is not actionable;
		// the connection failure is the error worth returning.
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime.Duration)
	}

	store := &PostgresStore{db: db, ownsDB: true, table: tableOrDefault(table)}
	if err := store.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB creates a store over an existing connection pool.
func NewPostgresStoreWithDB(db *sql.DB, table string) (*PostgresStore, error) {
	store := &PostgresStore{db: db, ownsDB: false, table: tableOrDefault(table)}
	if err := store.createTable(); err != nil {
		return nil, err
	}
	return store, nil
}

func tableOrDefault(table string) string {
	if table == "" {
		return "customer_orders"
	}
	return table
}

func (s *PostgresStore) createTable() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			order_number TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			total_amount NUMERIC(12,2) NOT NULL,
			currency TEXT NOT NULL,
			items_count INTEGER NOT NULL,
			ordered_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS idx_%s_user ON %s(user_id);
		CREATE INDEX IF NOT EXISTS idx_%s_user_ordered ON %s(user_id, ordered_at DESC);
	`, s.table, s.table, s.table, s.table, s.table)

	_, err := s.db.Exec(schema)
	return err
}

// UpsertOrder performs the atomic merge-on-conflict write. Concurrent calls
// for the same order_number serialize inside Postgres; the last write wins
// and the persisted row is returned.
func (s *PostgresStore) UpsertOrder(ctx context.Context, order ConfirmedOrder) (ConfirmedOrder, error) {
	if order.OrderNumber == "" {
		return ConfirmedOrder{}, fmt.Errorf("orders: order number required")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (order_number, user_id, status, total_amount, currency, items_count, ordered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_number) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			status = EXCLUDED.status,
			total_amount = EXCLUDED.total_amount,
			currency = EXCLUDED.currency,
			items_count = EXCLUDED.items_count,
			ordered_at = EXCLUDED.ordered_at
		RETURNING order_number, user_id, status, total_amount::text, currency, items_count, ordered_at, created_at
	`, s.table)

	row := s.db.QueryRowContext(ctx, query,
		order.OrderNumber,
		order.UserID,
		order.Status,
		order.TotalAmount,
		order.Currency,
		order.ItemsCount,
		order.OrderedAt,
	)
	return scanOrder(row)
}

// GetOrder retrieves an order by order number.
func (s *PostgresStore) GetOrder(ctx context.Context, orderNumber string) (ConfirmedOrder, error) {
	query := fmt.Sprintf(`
		SELECT order_number, user_id, status, total_amount::text, currency, items_count, ordered_at, created_at
		FROM %s WHERE order_number = $1
	`, s.table)

	order, err := scanOrder(s.db.QueryRowContext(ctx, query, orderNumber))
	if err == sql.ErrNoRows {
		return ConfirmedOrder{}, ErrNotFound
	}
	return order, err
}

// ListOrdersByUser returns a user's orders, most recent first.
func (s *PostgresStore) ListOrdersByUser(ctx context.Context, userID string) ([]ConfirmedOrder, error) {
	query := fmt.Sprintf(`
		SELECT order_number, user_id, status, total_amount::text, currency, items_count, ordered_at, created_at
		FROM %s WHERE user_id = $1
		ORDER BY ordered_at DESC
	`, s.table)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []ConfirmedOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

// Close releases the connection pool when this store owns it.
func (s *PostgresStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (ConfirmedOrder, error) {
	var order ConfirmedOrder
	var totalAmount string
	err := row.Scan(
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&totalAmount,
		&order.Currency,
		&order.ItemsCount,
		&order.OrderedAt,
		&order.CreatedAt,
	)
	if err != nil {
		return ConfirmedOrder{}, err
	}
	order.TotalAmount = normalizeAmount(totalAmount)
	return order, nil
}

// normalizeAmount keeps NUMERIC text output at exactly two decimals.
func normalizeAmount(raw string) string {
	if raw == "" {
		return raw
	}
	// NUMERIC(12,2)::text already renders two decimals; guard against plain
	// integers from older rows.
	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' {
			return raw
		}
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return raw + ".00"
	}
	return raw
}

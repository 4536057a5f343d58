package orders

import (
	"context"
	"testing"
	"time"

	"github.com/maisonmara/server/internal/config"
)

func TestMemoryStoreUpsertIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	order := ConfirmedOrder{
		OrderNumber: "MM-CSTESTABC123",
		UserID:      "5f6e4a1c-9d2b-4c3e-8f7a-1b2c3d4e5f6a",
		Status:      StatusBeingPrepared,
		TotalAmount: "149.97",
		Currency:    "EUR",
		ItemsCount:  3,
		OrderedAt:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}

	first, err := store.UpsertOrder(ctx, order)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set on insert")
	}

	second, err := store.UpsertOrder(ctx, order)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on re-upsert: %v vs %v", second.CreatedAt, first.CreatedAt)
	}
	if second.TotalAmount != first.TotalAmount || second.ItemsCount != first.ItemsCount {
		t.Errorf("replayed upsert changed fields: %+v vs %+v", second, first)
	}

	got, err := store.ListOrdersByUser(ctx, order.UserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one order after duplicate upserts, got %d", len(got))
	}
}

func TestMemoryStoreUpsertLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := ConfirmedOrder{
		OrderNumber: "MM-CSLIVE99XYZ01",
		UserID:      "guest-fallback",
		Status:      StatusBeingPrepared,
		TotalAmount: "49.99",
		Currency:    "EUR",
		ItemsCount:  1,
		OrderedAt:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
	if _, err := store.UpsertOrder(ctx, base); err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated := base
	updated.UserID = "5f6e4a1c-9d2b-4c3e-8f7a-1b2c3d4e5f6a"
	updated.TotalAmount = "99.98"
	updated.ItemsCount = 2
	if _, err := store.UpsertOrder(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetOrder(ctx, base.OrderNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != updated.UserID {
		t.Errorf("user_id = %q, want %q", got.UserID, updated.UserID)
	}
	if got.TotalAmount != "99.98" || got.ItemsCount != 2 {
		t.Errorf("fields not overwritten: %+v", got)
	}
}

func TestMemoryStoreRejectsEmptyOrderNumber(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.UpsertOrder(context.Background(), ConfirmedOrder{UserID: "u"}); err == nil {
		t.Fatal("expected error for empty order number")
	}
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetOrder(context.Background(), "MM-MISSING"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListOrdering(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	userID := "5f6e4a1c-9d2b-4c3e-8f7a-1b2c3d4e5f6a"

	times := []time.Time{
		time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC),
	}
	for i, at := range times {
		order := ConfirmedOrder{
			OrderNumber: "MM-ORDER" + string(rune('A'+i)),
			UserID:      userID,
			Status:      StatusBeingPrepared,
			TotalAmount: "10.00",
			Currency:    "EUR",
			ItemsCount:  1,
			OrderedAt:   at,
		}
		if _, err := store.UpsertOrder(ctx, order); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	// One order for another user should not appear.
	other := ConfirmedOrder{
		OrderNumber: "MM-OTHER",
		UserID:      "someone-else",
		Status:      StatusBeingPrepared,
		TotalAmount: "5.00",
		Currency:    "EUR",
		ItemsCount:  1,
		OrderedAt:   time.Now().UTC(),
	}
	if _, err := store.UpsertOrder(ctx, other); err != nil {
		t.Fatalf("upsert other: %v", err)
	}

	got, err := store.ListOrdersByUser(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].OrderedAt.After(got[i-1].OrderedAt) {
			t.Errorf("orders not sorted most recent first: %v before %v", got[i-1].OrderedAt, got[i].OrderedAt)
		}
	}
}

func TestNewStoreBackendSelection(t *testing.T) {
	store, err := NewStore(config.StorageConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}

	if _, err := NewStore(config.StorageConfig{Backend: "postgres"}); err == nil {
		t.Error("expected error for postgres backend without URL")
	}
	if _, err := NewStore(config.StorageConfig{Backend: "mongodb"}); err == nil {
		t.Error("expected error for mongodb backend without URL")
	}
	if _, err := NewStore(config.StorageConfig{Backend: "cassandra"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNormalizeAmount(t *testing.T) {
	cases := map[string]string{
		"49.99": "49.99",
		"50":    "50.00",
		"":      "",
		"10.5":  "10.5",
	}
	for in, want := range cases {
		if got := normalizeAmount(in); got != want {
			t.Errorf("normalizeAmount(%q) = %q, want %q", in, got, want)
		}
	}
}

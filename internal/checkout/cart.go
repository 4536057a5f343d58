// Package checkout implements the payment session lifecycle: normalizing a
// shopping cart against the live catalog, creating the gateway session, and
// reconciling session outcomes into confirmed orders.
package checkout

import (
	"strings"

	"github.com/maisonmara/server/internal/catalog"
	apierrors "github.com/maisonmara/server/internal/errors"
	"github.com/maisonmara/server/internal/money"
)

const (
	maxCartLines    = 50
	maxLineQuantity = 20

	// defaultSize labels lines submitted without a size so that sized and
	// unsized variants of the same product never merge together.
	defaultSize = "no size"
)

// CartLine is one raw entry from the client's cart payload.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// ResolvedLineItem is a merged cart line priced from the catalog snapshot.
// Prices always come from the catalog, never from the client payload.
type ResolvedLineItem struct {
	ProductID       string
	Name            string
	Image           string
	Size            string
	UnitAmountMinor int64
	Quantity        int64
}

// NormalizedCart is the validated, merged, catalog-priced cart.
type NormalizedCart struct {
	Items      []ResolvedLineItem
	ItemsCount int64 // sum of merged quantities, carried as session metadata
}

// NormalizeCart validates the raw lines, merges duplicates sharing
// (product_id, size) in first-occurrence order, and resolves each merged line
// against the active catalog snapshot.
func NormalizeCart(lines []CartLine, snapshot catalog.Snapshot) (NormalizedCart, error) {
	if len(lines) == 0 {
		return NormalizedCart{}, apierrors.New(apierrors.ErrCodeEmptyCart, "cart is empty")
	}
	if len(lines) > maxCartLines {
		return NormalizedCart{}, apierrors.Newf(apierrors.ErrCodeInvalidCartItem, "cart exceeds %d lines", maxCartLines)
	}

	type mergeKey struct {
		productID string
		size      string
	}

	merged := make(map[mergeKey]int)
	var keys []mergeKey
	quantities := make(map[mergeKey]int64)

	for i, line := range lines {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			return NormalizedCart{}, apierrors.Newf(apierrors.ErrCodeInvalidCartItem, "cart line %d missing product_id", i+1)
		}
		if line.Quantity <= 0 || line.Quantity > maxLineQuantity {
			return NormalizedCart{}, apierrors.Newf(apierrors.ErrCodeInvalidQuantity,
				"cart line %d quantity must be between 1 and %d", i+1, maxLineQuantity)
		}

		size := strings.TrimSpace(line.Size)
		if size == "" {
			size = defaultSize
		}

		key := mergeKey{productID: productID, size: size}
		if _, seen := merged[key]; !seen {
			merged[key] = len(keys)
			keys = append(keys, key)
		}
		quantities[key] += line.Quantity
	}

	cart := NormalizedCart{Items: make([]ResolvedLineItem, 0, len(keys))}
	for _, key := range keys {
		product, ok := snapshot[key.productID]
		if !ok || !product.Active {
			return NormalizedCart{}, apierrors.Newf(apierrors.ErrCodeProductUnavailable,
				"product %s is unavailable", key.productID)
		}

		unitAmount, err := money.ToMinorUnits(product.Price.String())
		if err != nil || unitAmount <= 0 {
			return NormalizedCart{}, apierrors.Newf(apierrors.ErrCodeInvalidPrice,
				"product %s has an invalid price", key.productID)
		}

		cart.Items = append(cart.Items, ResolvedLineItem{
			ProductID:       product.ID,
			Name:            product.Name,
			Image:           product.FirstImage(),
			Size:            key.size,
			UnitAmountMinor: unitAmount,
			Quantity:        quantities[key],
		})
		cart.ItemsCount += quantities[key]
	}
	return cart, nil
}

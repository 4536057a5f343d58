// Package catalog reads the live product catalog from the external catalog
// service. Checkout resolves cart lines against this snapshot so prices are
// always the catalog's, never the client's.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	apierrors "github.com/maisonmara/server/internal/errors"

	"github.com/maisonmara/server/internal/circuitbreaker"
	"github.com/maisonmara/server/internal/config"
)

const productsPath = "/rest/v1/catalog_products"

// Product is one active catalog entry as returned by the catalog service.
type Product struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Price  json.Number `json:"price"`
	Images []string    `json:"images"`
	Active bool        `json:"is_active"`
}

// FirstImage returns the first non-blank image URL, or "".
func (p Product) FirstImage() string {
	for _, image := range p.Images {
		if cleaned := strings.TrimSpace(image); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

// Snapshot is a point-in-time view of the active catalog keyed by product id.
type Snapshot map[string]Product

// Client calls the catalog service over HTTP.
type Client struct {
	cfg      config.CatalogConfig
	http     *http.Client
	breakers *circuitbreaker.Manager
}

// NewClient builds a catalog client with a request timeout from config.
func NewClient(cfg config.CatalogConfig, breakers *circuitbreaker.Manager) *Client {
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout.Duration},
		breakers: breakers,
	}
}

// ActiveProducts fetches the active catalog and indexes it by product id.
// Blank-id rows are skipped rather than failing the whole snapshot.
func (c *Client) ActiveProducts(ctx context.Context) (Snapshot, error) {
	if c.cfg.BaseURL == "" || c.cfg.APIKey == "" {
		return nil, apierrors.New(apierrors.ErrCodeConfigError, "catalog service not configured")
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + productsPath
	query := url.Values{}
	query.Set("select", "id,name,price,images,is_active")
	query.Set("is_active", "eq.true")

	result, err := c.breakers.Execute(circuitbreaker.ServiceCatalog, func() (interface{}, error) {
		return c.fetchProducts(ctx, endpoint+"?"+query.Encode())
	})
	if err != nil {
		if circuitbreaker.IsOpen(err) {
			return nil, apierrors.New(apierrors.ErrCodeUnavailable, "catalog temporarily unavailable")
		}
		return nil, err
	}

	products := result.([]Product)
	snapshot := make(Snapshot, len(products))
	for _, product := range products {
		id := strings.TrimSpace(product.ID)
		if id == "" {
			continue
		}
		product.ID = id
		snapshot[id] = product
	}
	return snapshot, nil
}

func (c *Client) fetchProducts(ctx context.Context, endpoint string) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.ErrCodeInternalError, "build catalog request", err)
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, apierrors.New(apierrors.ErrCodeUnavailable, "catalog timeout")
		}
		return nil, apierrors.New(apierrors.ErrCodeUnavailable, "catalog network error")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, apierrors.New(apierrors.ErrCodeUnavailable, "catalog read error")
	}

	if resp.StatusCode >= 400 {
		return nil, apierrors.WithStatus(
			apierrors.ErrCodeUpstreamError,
			extractErrorMessage(body, resp.StatusCode),
			resp.StatusCode,
		)
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, apierrors.WithStatus(apierrors.ErrCodeUpstreamError, "invalid catalog payload", 502)
	}
	return products, nil
}

// extractErrorMessage pulls a human message out of a structured error body.
func extractErrorMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, candidate := range []string{payload.Message, payload.Error, payload.Details} {
			if cleaned := strings.TrimSpace(candidate); cleaned != "" {
				return cleaned
			}
		}
	}
	return fmt.Sprintf("catalog request failed (%d)", status)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}

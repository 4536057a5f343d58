// Package identity resolves bearer credentials against the external identity
// service. A missing credential is not an error; checkout supports guests.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/maisonmara/server/internal/circuitbreaker"
	"github.com/maisonmara/server/internal/config"
	apierrors "github.com/maisonmara/server/internal/errors"
)

const userPath = "/auth/v1/user"

// Customer is a verified identity attached to a checkout or sync request.
type Customer struct {
	UserID string
	Email  string
}

// Client calls the identity service over HTTP.
type Client struct {
	cfg      config.IdentityConfig
	http     *http.Client
	breakers *circuitbreaker.Manager
}

// NewClient builds an identity client with a request timeout from config.
func NewClient(cfg config.IdentityConfig, breakers *circuitbreaker.Manager) *Client {
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout.Duration},
		breakers: breakers,
	}
}

// Resolve exchanges a bearer token for a verified customer. The returned user
// id is guaranteed to be a syntactically valid UUID.
func (c *Client) Resolve(ctx context.Context, accessToken string) (Customer, error) {
	if c.cfg.BaseURL == "" || c.cfg.APIKey == "" {
		return Customer{}, apierrors.New(apierrors.ErrCodeConfigError, "identity service not configured")
	}
	if strings.TrimSpace(accessToken) == "" {
		return Customer{}, apierrors.New(apierrors.ErrCodeInvalidCredential, "missing bearer token")
	}

	result, err := c.breakers.Execute(circuitbreaker.ServiceIdentity, func() (interface{}, error) {
		return c.fetchUser(ctx, accessToken)
	})
	if err != nil {
		if circuitbreaker.IsOpen(err) {
			return Customer{}, apierrors.New(apierrors.ErrCodeUnavailable, "identity temporarily unavailable")
		}
		return Customer{}, err
	}
	return result.(Customer), nil
}

func (c *Client) fetchUser(ctx context.Context, accessToken string) (Customer, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + userPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Customer{}, apierrors.Wrap(apierrors.ErrCodeInternalError, "build identity request", err)
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Customer{}, apierrors.New(apierrors.ErrCodeUnavailable, "identity timeout")
		}
		return Customer{}, apierrors.New(apierrors.ErrCodeUnavailable, "identity network error")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Customer{}, apierrors.New(apierrors.ErrCodeUnavailable, "identity read error")
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Customer{}, apierrors.New(apierrors.ErrCodeInvalidCredential, "invalid or expired session")
	}
	if resp.StatusCode >= 400 {
		return Customer{}, apierrors.WithStatus(apierrors.ErrCodeUpstreamError, "identity request failed", resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Customer{}, apierrors.WithStatus(apierrors.ErrCodeUpstreamError, "invalid identity payload", 502)
	}

	userID := strings.TrimSpace(payload.ID)
	if _, err := uuid.Parse(userID); err != nil {
		return Customer{}, apierrors.WithStatus(apierrors.ErrCodeUpstreamError, "identity returned malformed user id", 502)
	}

	return Customer{
		UserID: userID,
		Email:  strings.TrimSpace(payload.Email),
	}, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}

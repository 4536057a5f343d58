package checkout

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"

	"github.com/maisonmara/server/internal/circuitbreaker"
	"github.com/maisonmara/server/internal/config"
	apierrors "github.com/maisonmara/server/internal/errors"
	"github.com/maisonmara/server/internal/identity"
	"github.com/maisonmara/server/internal/metrics"
)

const maxIdempotencyKeyLength = 255

// Client wraps stripe-go operations used by the checkout flow.
type Client struct {
	cfg      config.StripeConfig
	breakers *circuitbreaker.Manager
	metrics  *metrics.Metrics
}

// NewClient sets up stripe-go with the provided credentials. Transient gateway
// failures are retried twice at the transport layer before surfacing.
func NewClient(cfg config.StripeConfig, breakers *circuitbreaker.Manager, metricsCollector *metrics.Metrics) *Client {
	stripeapi.Key = cfg.SecretKey
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		MaxNetworkRetries: stripeapi.Int64(2),
	})
	stripeapi.SetBackend(stripeapi.APIBackend, backend)
	return &Client{
		cfg:      cfg,
		breakers: breakers,
		metrics:  metricsCollector,
	}
}

// CreateSessionRequest captures everything needed to open a gateway session.
type CreateSessionRequest struct {
	Cart           NormalizedCart
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
	Customer       *identity.Customer
}

// CreatedSession is the client-facing result of session creation.
type CreatedSession struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateSession builds a gateway checkout session from a normalized cart and
// submits it. When an idempotency key is supplied the gateway returns the
// original session for replayed submissions instead of opening a new one.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (CreatedSession, error) {
	if c.cfg.SecretKey == "" {
		return CreatedSession{}, apierrors.New(apierrors.ErrCodeConfigError, "payment gateway not configured")
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		return CreatedSession{}, apierrors.Newf(apierrors.ErrCodeIdempotencyKeyLong,
			"idempotency key exceeds %d characters", maxIdempotencyKeyLength)
	}
	if len(req.Cart.Items) == 0 {
		return CreatedSession{}, apierrors.New(apierrors.ErrCodeEmptyCart, "cart is empty")
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		SuccessURL:         stripeapi.String(req.SuccessURL),
		CancelURL:          stripeapi.String(req.CancelURL),
		LineItems:          make([]*stripeapi.CheckoutSessionLineItemParams, 0, len(req.Cart.Items)),
	}

	for _, item := range req.Cart.Items {
		productData := &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripeapi.String(item.Name),
			Metadata: map[string]string{"product_id": item.ProductID},
		}
		if item.Image != "" {
			productData.Images = []*string{stripeapi.String(item.Image)}
		}
		if item.Size != defaultSize {
			productData.Metadata["size"] = item.Size
		}
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(item.Quantity),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripeapi.String(c.cfg.Currency),
				UnitAmount:  stripeapi.Int64(item.UnitAmountMinor),
				ProductData: productData,
			},
		})
	}

	metadata := map[string]string{
		"items_count": strconv.FormatInt(req.Cart.ItemsCount, 10),
	}
	if req.Customer != nil {
		metadata["user_id"] = req.Customer.UserID
		params.ClientReferenceID = stripeapi.String(req.Customer.UserID)
		if req.Customer.Email != "" {
			params.CustomerEmail = stripeapi.String(req.Customer.Email)
		}
	}
	params.Metadata = metadata

	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	result, err := c.breakers.Execute(circuitbreaker.ServiceStripe, func() (interface{}, error) {
		s, err := session.New(params)
		if err != nil {
			return nil, mapGatewayError(err)
		}
		return s, nil
	})
	if err != nil {
		c.metrics.RecordSessionCreated("error")
		if circuitbreaker.IsOpen(err) {
			return CreatedSession{}, apierrors.New(apierrors.ErrCodeUnavailable, "payment gateway temporarily unavailable")
		}
		return CreatedSession{}, err
	}

	s := result.(*stripeapi.CheckoutSession)
	if s.ID == "" || s.URL == "" {
		c.metrics.RecordSessionCreated("error")
		return CreatedSession{}, apierrors.New(apierrors.ErrCodeStripeError, "gateway returned malformed session")
	}

	c.metrics.RecordSessionCreated("ok")
	if c.metrics != nil {
		c.metrics.CartLinesTotal.Add(float64(len(req.Cart.Items)))
	}
	return CreatedSession{SessionID: s.ID, CheckoutURL: s.URL}, nil
}

// RetrieveSession fetches a session by id for client-driven reconciliation.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*stripeapi.CheckoutSession, error) {
	if c.cfg.SecretKey == "" {
		return nil, apierrors.New(apierrors.ErrCodeConfigError, "payment gateway not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apierrors.New(apierrors.ErrCodeInvalidSession, "missing session id")
	}

	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx

	result, err := c.breakers.Execute(circuitbreaker.ServiceStripe, func() (interface{}, error) {
		s, err := session.Get(sessionID, params)
		if err != nil {
			return nil, mapGatewayError(err)
		}
		return s, nil
	})
	if err != nil {
		if circuitbreaker.IsOpen(err) {
			return nil, apierrors.New(apierrors.ErrCodeUnavailable, "payment gateway temporarily unavailable")
		}
		return nil, err
	}
	return result.(*stripeapi.CheckoutSession), nil
}

// mapGatewayError converts stripe-go errors into the service error taxonomy.
func mapGatewayError(err error) error {
	var gatewayErr *stripeapi.Error
	if errors.As(err, &gatewayErr) {
		switch gatewayErr.Type {
		case stripeapi.ErrorTypeAuthentication:
			return apierrors.New(apierrors.ErrCodeConfigError, "payment gateway rejected credentials")
		case stripeapi.ErrorTypeRateLimit:
			return apierrors.New(apierrors.ErrCodeUnavailable, "payment gateway rate limited")
		}
		if gatewayErr.Code == stripeapi.ErrorCodeResourceMissing {
			return apierrors.New(apierrors.ErrCodeSessionNotFound, "session not found")
		}
		return apierrors.WithStatus(apierrors.ErrCodeStripeError, "payment gateway request failed", gatewayErr.HTTPStatusCode)
	}
	if isTimeout(err) {
		return apierrors.New(apierrors.ErrCodeUnavailable, "payment gateway timeout")
	}
	return apierrors.New(apierrors.ErrCodeUnavailable, "payment gateway network error")
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}

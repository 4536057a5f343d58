package checkout

import (
	stripeapi "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"

	apierrors "github.com/maisonmara/server/internal/errors"
)

// Settlement-relevant gateway event types. Everything else is acknowledged
// and ignored.
const (
	EventSessionCompleted      = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// VerifyWebhook checks the gateway signature over the raw payload and parses
// the event. Verification fails closed: any signature or parse failure is a
// signature error and nothing downstream runs.
func (c *Client) VerifyWebhook(payload []byte, signature string) (stripeapi.Event, error) {
	if c.cfg.WebhookSecret == "" {
		return stripeapi.Event{}, apierrors.New(apierrors.ErrCodeConfigError, "webhook secret not configured")
	}
	event, err := webhook.ConstructEvent(payload, signature, c.cfg.WebhookSecret)
	if err != nil {
		return stripeapi.Event{}, apierrors.Wrap(apierrors.ErrCodeInvalidSignature, "webhook signature verification failed", err)
	}
	return event, nil
}

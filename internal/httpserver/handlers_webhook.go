package httpserver

import (
	"io"
	"net/http"

	apierrors "github.com/maisonmara/server/internal/errors"
	"github.com/maisonmara/server/internal/logger"
	"github.com/maisonmara/server/pkg/responders"
)

// maxWebhookBody caps webhook payload reads. Gateway events are a few KB;
// anything near the cap is not a legitimate delivery.
const maxWebhookBody = 1 << 20

type webhookAck struct {
	Received bool `json:"received"`
}

// handleStripeWebhook processes gateway webhook deliveries. The body must be
// read raw before any parsing: the signature covers the exact bytes sent.
func (h *handlers) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	signature := r.Header.Get("Stripe-Signature")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Error().Err(err).Msg("stripe.webhook.read_body_failed")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "read body failed")
		return
	}

	event, err := h.gateway.VerifyWebhook(body, signature)
	if err != nil {
		log.Warn().Err(err).Msg("stripe.webhook.invalid_signature")
		apierrors.WriteError(w, err)
		return
	}

	log.Info().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Msg("stripe.webhook.received")

	result, err := h.reconciler.HandleWebhookEvent(r.Context(), event)
	if err != nil {
		log.Error().
			Err(err).
			Str("event_type", event.Type).
			Msg("stripe.webhook.reconcile_failed")
		apierrors.WriteError(w, err)
		return
	}

	if result.OrderRecorded {
		log.Info().
			Str("event_type", result.EventType).
			Str("order_number", result.OrderNumber).
			Msg("stripe.webhook.order_recorded")
	}
	responders.JSON(w, http.StatusOK, webhookAck{Received: true})
}

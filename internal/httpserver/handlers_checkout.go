package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maisonmara/server/internal/checkout"
	apierrors "github.com/maisonmara/server/internal/errors"
	"github.com/maisonmara/server/internal/identity"
	"github.com/maisonmara/server/internal/logger"
	"github.com/maisonmara/server/pkg/responders"
)

type createCheckoutRequest struct {
	Items []checkout.CartLine `json:"items"`
}

// createCheckoutSession opens a gateway checkout session from the caller's
// cart. Authentication is optional; guests check out without attribution and
// can claim the order later through an authenticated sync.
func (h *handlers) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req createCheckoutRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		log.Warn().Err(err).Msg("checkout.session.invalid_body")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "invalid request body")
		return
	}

	customer, err := h.resolveCustomer(r)
	if err != nil {
		log.Warn().Err(err).Msg("checkout.session.auth_failed")
		apierrors.WriteError(w, err)
		return
	}

	snapshot, err := h.catalog.ActiveProducts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("checkout.session.catalog_failed")
		apierrors.WriteError(w, err)
		return
	}

	cart, err := checkout.NormalizeCart(req.Items, snapshot)
	if err != nil {
		log.Warn().Err(err).Int("lines", len(req.Items)).Msg("checkout.session.invalid_cart")
		apierrors.WriteError(w, err)
		return
	}

	origin := h.resolveOrigin(r)
	created, err := h.gateway.CreateSession(r.Context(), checkout.CreateSessionRequest{
		Cart:           cart,
		SuccessURL:     origin + "/order/confirmation?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      origin + "/order/cancelled",
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Customer:       customer,
	})
	if err != nil {
		log.Error().Err(err).Msg("checkout.session.create_failed")
		apierrors.WriteError(w, err)
		return
	}

	log.Info().
		Str("session_id", logger.TruncateID(created.SessionID)).
		Int64("items_count", cart.ItemsCount).
		Bool("authenticated", customer != nil).
		Msg("checkout.session.created")
	responders.JSON(w, http.StatusOK, created)
}

// syncCheckoutSession is the client-driven reconciliation path: the browser
// lands on the confirmation page and asks the server to fold the session
// outcome into an order. Safe to call any number of times.
func (h *handlers) syncCheckoutSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	customer, err := h.resolveCustomer(r)
	if err != nil {
		log.Warn().Err(err).Msg("checkout.sync.auth_failed")
		apierrors.WriteError(w, err)
		return
	}
	expectedUserID := ""
	if customer != nil {
		expectedUserID = customer.UserID
	}

	session, err := h.gateway.RetrieveSession(r.Context(), sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", logger.TruncateID(sessionID)).Msg("checkout.sync.retrieve_failed")
		apierrors.WriteError(w, err)
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), session, expectedUserID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", logger.TruncateID(sessionID)).Msg("checkout.sync.failed")
		apierrors.WriteError(w, err)
		return
	}

	result.LogOutcome(log, logger.TruncateID(sessionID))
	responders.JSON(w, http.StatusOK, result)
}

// resolveCustomer maps an optional bearer credential to a verified customer.
// No credential means guest, which is never an error; a malformed credential is.
func (h *handlers) resolveCustomer(r *http.Request) (*identity.Customer, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}
	customer, err := h.identity.Resolve(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

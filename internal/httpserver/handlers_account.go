package httpserver

import (
	"net/http"

	apierrors "github.com/maisonmara/server/internal/errors"
	"github.com/maisonmara/server/internal/logger"
	"github.com/maisonmara/server/internal/orders"
	"github.com/maisonmara/server/pkg/responders"
)

type accountOrdersResponse struct {
	Orders []orders.ConfirmedOrder `json:"orders"`
}

// listAccountOrders returns the authenticated customer's orders, most recent
// first. Unlike checkout, this endpoint has no guest path.
func (h *handlers) listAccountOrders(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	token, err := bearerToken(r)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	if token == "" {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidCredential, "missing bearer token")
		return
	}

	customer, err := h.identity.Resolve(r.Context(), token)
	if err != nil {
		log.Warn().Err(err).Msg("account.orders.auth_failed")
		apierrors.WriteError(w, err)
		return
	}

	list, err := h.store.ListOrdersByUser(r.Context(), customer.UserID)
	if err != nil {
		log.Error().Err(err).Msg("account.orders.list_failed")
		apierrors.WriteSimpleError(w, apierrors.ErrCodeDatabaseError, "could not load orders")
		return
	}
	if list == nil {
		list = []orders.ConfirmedOrder{}
	}

	responders.JSON(w, http.StatusOK, accountOrdersResponse{Orders: list})
}

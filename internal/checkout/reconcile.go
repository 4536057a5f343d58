package checkout

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	stripeapi "github.com/stripe/stripe-go/v72"

	"github.com/maisonmara/server/internal/config"
	apierrors "github.com/maisonmara/server/internal/errors"
	"github.com/maisonmara/server/internal/metrics"
	"github.com/maisonmara/server/internal/money"
	"github.com/maisonmara/server/internal/orders"
)

// Reconciliation source channels, used as metric labels.
const (
	sourceSync    = "sync"
	sourceWebhook = "webhook"
)

// orderNumberSuffixLen is how much of the cleaned session id survives into
// the order number.
const orderNumberSuffixLen = 12

// Reconciler maps gateway session payloads to order writes. Derivation is a
// pure function of the payload; idempotence comes entirely from the store's
// merge-on-conflict upsert, so concurrent attempts for the same session are
// safe without any in-process coordination.
type Reconciler struct {
	store           orders.Store
	storeCode       string
	defaultCurrency string
	metrics         *metrics.Metrics
}

// NewReconciler builds a reconciler over the given order store.
func NewReconciler(store orders.Store, checkoutCfg config.CheckoutConfig, stripeCfg config.StripeConfig, metricsCollector *metrics.Metrics) *Reconciler {
	return &Reconciler{
		store:           store,
		storeCode:       checkoutCfg.StoreCode,
		defaultCurrency: stripeCfg.Currency,
		metrics:         metricsCollector,
	}
}

// SyncResult reports the outcome of reconciling one session. OrderNumber is
// null in the JSON body unless an order was recorded.
type SyncResult struct {
	PaymentStatus string  `json:"payment_status"`
	OrderRecorded bool    `json:"order_recorded"`
	OrderNumber   *string `json:"order_number"`
}

// WebhookResult reports how a verified webhook event was handled.
type WebhookResult struct {
	EventType     string
	Relevant      bool
	OrderRecorded bool
	OrderNumber   string
}

// DeriveOrder derives the canonical order record from a session payload.
// It returns (nil, nil) when no attributable user exists, which is a
// legitimate nothing-to-record outcome, not an error. createdEpoch is the
// session's creation timestamp in unix seconds; zero means unknown and the
// order is stamped with the current time instead.
func (r *Reconciler) DeriveOrder(session *stripeapi.CheckoutSession, createdEpoch int64, fallbackUserID string) (*orders.ConfirmedOrder, error) {
	sessionID := strings.TrimSpace(session.ID)
	if sessionID == "" {
		return nil, apierrors.New(apierrors.ErrCodeInvalidSession, "session payload missing id")
	}

	userID := resolveAttribution(session, fallbackUserID)
	if userID == "" {
		return nil, nil
	}

	if session.AmountTotal < 0 {
		return nil, apierrors.New(apierrors.ErrCodeInvalidField, "session amount_total is negative")
	}

	orderNumber, err := r.deriveOrderNumber(sessionID)
	if err != nil {
		return nil, err
	}

	orderedAt := time.Now().UTC()
	if createdEpoch > 0 {
		orderedAt = time.Unix(createdEpoch, 0).UTC()
	}

	return &orders.ConfirmedOrder{
		OrderNumber: orderNumber,
		UserID:      userID,
		Status:      orders.StatusBeingPrepared,
		TotalAmount: money.FromMinorUnits(session.AmountTotal),
		Currency:    r.resolveCurrency(string(session.Currency)),
		ItemsCount:  resolveItemsCount(session.Metadata),
		OrderedAt:   orderedAt,
	}, nil
}

// Reconcile is the client-driven path. When expectedUserID is set (the caller
// authenticated), the session must attribute to that same user; syncing
// somebody else's session id is an authorization failure.
func (r *Reconciler) Reconcile(ctx context.Context, session *stripeapi.CheckoutSession, expectedUserID string) (SyncResult, error) {
	defer r.metrics.ObserveReconcile(sourceSync, time.Now())

	status := string(session.PaymentStatus)
	if status == "" {
		status = "unknown"
	}
	if session.PaymentStatus != stripeapi.CheckoutSessionPaymentStatusPaid {
		r.metrics.RecordSkip(sourceSync, "unpaid")
		return SyncResult{PaymentStatus: status}, nil
	}

	order, err := r.DeriveOrder(session, sessionCreatedEpoch(session), expectedUserID)
	if err != nil {
		return SyncResult{}, err
	}
	if order == nil {
		r.metrics.RecordSkip(sourceSync, "unattributed")
		return SyncResult{PaymentStatus: status}, nil
	}

	if expectedUserID != "" && order.UserID != expectedUserID {
		return SyncResult{}, apierrors.New(apierrors.ErrCodeSessionNotLinked, "session is not linked to this account")
	}

	persisted, err := r.store.UpsertOrder(ctx, *order)
	if err != nil {
		return SyncResult{}, apierrors.Wrap(apierrors.ErrCodeDatabaseError, "record order", err)
	}

	r.metrics.RecordOrder(sourceSync)
	return SyncResult{
		PaymentStatus: status,
		OrderRecorded: true,
		OrderNumber:   &persisted.OrderNumber,
	}, nil
}

// sessionCreatedEpoch extracts the session's creation timestamp from the raw
// gateway response. The typed session struct does not carry the field, so it
// is re-read from the response body; zero means unknown.
func sessionCreatedEpoch(session *stripeapi.CheckoutSession) int64 {
	if session.LastResponse == nil || len(session.LastResponse.RawJSON) == 0 {
		return 0
	}
	var payload struct {
		Created int64 `json:"created"`
	}
	if err := json.Unmarshal(session.LastResponse.RawJSON, &payload); err != nil {
		return 0
	}
	return payload.Created
}

// HandleWebhookEvent is the gateway-push path. The completed event re-checks
// payment_status before writing; the async-succeeded event is trusted as-is
// since its delivery already implies settlement. No expected-user constraint
// applies here, the webhook carries no client-asserted identity.
func (r *Reconciler) HandleWebhookEvent(ctx context.Context, event stripeapi.Event) (WebhookResult, error) {
	result := WebhookResult{EventType: event.Type}

	switch event.Type {
	case EventSessionCompleted, EventAsyncPaymentSucceeded:
	default:
		r.metrics.RecordWebhook(event.Type, "ignored")
		return result, nil
	}
	result.Relevant = true
	defer r.metrics.ObserveReconcile(sourceWebhook, time.Now())

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		r.metrics.RecordWebhook(event.Type, "malformed")
		return result, apierrors.Wrap(apierrors.ErrCodeInvalidSignature, "malformed event payload", err)
	}
	// The typed session struct drops the payload's created field; re-read it.
	var envelope struct {
		Created int64 `json:"created"`
	}
	_ = json.Unmarshal(event.Data.Raw, &envelope)

	if event.Type == EventSessionCompleted &&
		session.PaymentStatus != stripeapi.CheckoutSessionPaymentStatusPaid {
		r.metrics.RecordWebhook(event.Type, "unpaid")
		r.metrics.RecordSkip(sourceWebhook, "unpaid")
		return result, nil
	}

	order, err := r.DeriveOrder(&session, envelope.Created, "")
	if err != nil {
		r.metrics.RecordWebhook(event.Type, "error")
		return result, err
	}
	if order == nil {
		r.metrics.RecordWebhook(event.Type, "unattributed")
		r.metrics.RecordSkip(sourceWebhook, "unattributed")
		return result, nil
	}

	persisted, err := r.store.UpsertOrder(ctx, *order)
	if err != nil {
		r.metrics.RecordWebhook(event.Type, "error")
		return result, apierrors.Wrap(apierrors.ErrCodeDatabaseError, "record order", err)
	}

	r.metrics.RecordOrder(sourceWebhook)
	r.metrics.RecordWebhook(event.Type, "recorded")
	result.OrderRecorded = true
	result.OrderNumber = persisted.OrderNumber
	return result, nil
}

// LogOutcome writes the reconciliation outcome at the level the boundary
// expects: recorded orders at info, everything else at debug.
func (res SyncResult) LogOutcome(logger zerolog.Logger, sessionID string) {
	event := logger.Debug()
	if res.OrderRecorded {
		event = logger.Info()
	}
	orderNumber := ""
	if res.OrderNumber != nil {
		orderNumber = *res.OrderNumber
	}
	event.
		Str("session_id", sessionID).
		Str("payment_status", res.PaymentStatus).
		Bool("order_recorded", res.OrderRecorded).
		Str("order_number", orderNumber).
		Msg("checkout.session.reconciled")
}

// resolveAttribution picks the order's user id: the session's client
// reference, else its user_id metadata, else the caller-supplied fallback.
// Candidates that are not syntactically valid UUIDs are skipped.
func resolveAttribution(session *stripeapi.CheckoutSession, fallbackUserID string) string {
	candidates := []string{session.ClientReferenceID}
	if session.Metadata != nil {
		candidates = append(candidates, session.Metadata["user_id"])
	}
	candidates = append(candidates, fallbackUserID)

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, err := uuid.Parse(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// deriveOrderNumber turns an opaque session id into a stable human-facing
// order number: uppercase, keep A-Z0-9 only, take the last 12 characters,
// prefix with the store code.
func (r *Reconciler) deriveOrderNumber(sessionID string) (string, error) {
	var cleaned strings.Builder
	for _, ch := range strings.ToUpper(sessionID) {
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			cleaned.WriteRune(ch)
		}
	}
	suffix := cleaned.String()
	if suffix == "" {
		return "", apierrors.New(apierrors.ErrCodeInvalidSession, "session id has no usable characters")
	}
	if len(suffix) > orderNumberSuffixLen {
		suffix = suffix[len(suffix)-orderNumberSuffixLen:]
	}
	return r.storeCode + "-" + suffix, nil
}

// resolveCurrency upper-cases a well-formed session currency, falling back to
// the configured default when the session's value is absent or malformed.
func (r *Reconciler) resolveCurrency(sessionCurrency string) string {
	code := strings.TrimSpace(sessionCurrency)
	if isCurrencyCode(code) {
		return strings.ToUpper(code)
	}
	return strings.ToUpper(r.defaultCurrency)
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, ch := range code {
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') {
			return false
		}
	}
	return true
}

// resolveItemsCount reads the items_count metadata, defaulting to 1 when it
// is missing, non-positive, or unparseable.
func resolveItemsCount(metadata map[string]string) int {
	raw, ok := metadata["items_count"]
	if !ok {
		return 1
	}
	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || count <= 0 {
		return 1
	}
	return count
}

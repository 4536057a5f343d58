package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	stripeapi "github.com/stripe/stripe-go/v72"

	"github.com/maisonmara/server/internal/catalog"
	"github.com/maisonmara/server/internal/checkout"
	"github.com/maisonmara/server/internal/config"
	apierrors "github.com/maisonmara/server/internal/errors"
	"github.com/maisonmara/server/internal/identity"
	"github.com/maisonmara/server/internal/orders"
)

const (
	userAlice = "11111111-1111-1111-1111-111111111111"
	userBob   = "22222222-2222-2222-2222-222222222222"
)

type fakeGateway struct {
	createCalls   int
	lastCreateReq checkout.CreateSessionRequest
	createResult  checkout.CreatedSession
	createErr     error

	session     *stripeapi.CheckoutSession
	retrieveErr error

	event     stripeapi.Event
	verifyErr error
}

func (f *fakeGateway) CreateSession(_ context.Context, req checkout.CreateSessionRequest) (checkout.CreatedSession, error) {
	if len(req.IdempotencyKey) > 255 {
		return checkout.CreatedSession{}, apierrors.New(apierrors.ErrCodeIdempotencyKeyLong, "idempotency key exceeds 255 characters")
	}
	f.createCalls++
	f.lastCreateReq = req
	return f.createResult, f.createErr
}

func (f *fakeGateway) RetrieveSession(_ context.Context, _ string) (*stripeapi.CheckoutSession, error) {
	return f.session, f.retrieveErr
}

func (f *fakeGateway) VerifyWebhook(_ []byte, _ string) (stripeapi.Event, error) {
	return f.event, f.verifyErr
}

type fakeCatalog struct {
	snapshot catalog.Snapshot
	err      error
}

func (f *fakeCatalog) ActiveProducts(_ context.Context) (catalog.Snapshot, error) {
	return f.snapshot, f.err
}

type fakeIdentity struct {
	customer identity.Customer
	err      error
}

func (f *fakeIdentity) Resolve(_ context.Context, _ string) (identity.Customer, error) {
	return f.customer, f.err
}

type fixture struct {
	server  *Server
	gateway *fakeGateway
	store   *orders.MemoryStore
}

func newFixture(t *testing.T, gateway *fakeGateway, identityClient IdentityResolver) fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Checkout = config.CheckoutConfig{
		AllowedOrigins: []string{"https://shop.example"},
		DefaultOrigin:  "https://maisonmara.example",
		StoreCode:      "MM",
	}
	cfg.Stripe.Currency = "eur"
	cfg.Storage.Backend = "memory"

	store := orders.NewMemoryStore()
	reconciler := checkout.NewReconciler(store, cfg.Checkout, cfg.Stripe, nil)

	snapshot := catalog.Snapshot{
		"p1": {ID: "p1", Name: "Silk Dress", Price: json.Number("49.99"), Active: true},
	}

	server := New(cfg, gateway, &fakeCatalog{snapshot: snapshot}, identityClient, reconciler, store, nil, zerolog.Nop())
	return fixture{server: server, gateway: gateway, store: store}
}

func (f fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateCheckoutSessionGuest(t *testing.T) {
	gateway := &fakeGateway{
		createResult: checkout.CreatedSession{SessionID: "cs_test_1", CheckoutURL: "https://pay.example/cs_test_1"},
	}
	fx := newFixture(t, gateway, &fakeIdentity{})

	body := `{"items":[{"product_id":"p1","quantity":2,"size":"38"},{"product_id":"p1","quantity":1,"size":"38"}]}`
	req := httptest.NewRequest(http.MethodPost, "/checkout/session", strings.NewReader(body))
	rec := fx.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp checkout.CreatedSession
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "cs_test_1" {
		t.Errorf("session_id = %q", resp.SessionID)
	}

	sent := gateway.lastCreateReq
	if len(sent.Cart.Items) != 1 || sent.Cart.Items[0].Quantity != 3 {
		t.Errorf("merged cart not sent to gateway: %+v", sent.Cart)
	}
	if sent.Customer != nil {
		t.Error("guest request should carry no customer")
	}
}

func TestCreateCheckoutSessionOriginResolution(t *testing.T) {
	gateway := &fakeGateway{createResult: checkout.CreatedSession{SessionID: "cs_1", CheckoutURL: "u"}}
	fx := newFixture(t, gateway, &fakeIdentity{})
	body := `{"items":[{"product_id":"p1","quantity":1}]}`

	req := httptest.NewRequest(http.MethodPost, "/checkout/session", strings.NewReader(body))
	req.Header.Set("Origin", "https://shop.example")
	if rec := fx.do(req); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(gateway.lastCreateReq.SuccessURL, "https://shop.example/order/confirmation") {
		t.Errorf("allow-listed origin not used: %q", gateway.lastCreateReq.SuccessURL)
	}

	req = httptest.NewRequest(http.MethodPost, "/checkout/session", strings.NewReader(body))
	req.Header.Set("Origin", "https://evil.example")
	if rec := fx.do(req); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(gateway.lastCreateReq.SuccessURL, "https://maisonmara.example/order/confirmation") {
		t.Errorf("unlisted origin should fall back to default: %q", gateway.lastCreateReq.SuccessURL)
	}
	if gateway.lastCreateReq.CancelURL != "https://maisonmara.example/order/cancelled" {
		t.Errorf("cancel url = %q", gateway.lastCreateReq.CancelURL)
	}
}

func TestCreateCheckoutSessionAuthenticated(t *testing.T) {
	gateway := &fakeGateway{createResult: checkout.CreatedSession{SessionID: "cs_1", CheckoutURL: "u"}}
	fx := newFixture(t, gateway, &fakeIdentity{customer: identity.Customer{UserID: userAlice, Email: "a@example.com"}})

	req := httptest.NewRequest(http.MethodPost, "/checkout/session", strings.NewReader(`{"items":[{"product_id":"p1","quantity":1}]}`))
	req.Header.Set("Authorization", "Bearer token123")
	if rec := fx.do(req); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gateway.lastCreateReq.Customer == nil || gateway.lastCreateReq.Customer.UserID != userAlice {
		t.Errorf("customer not forwarded: %+v", gateway.lastCreateReq.Customer)
	}
}

func TestCreateCheckoutSessionRejectsBadCredential(t *testing.T) {
	gateway := &fakeGateway{}
	fx := newFixture(t, gateway, &fakeIdentity{err: apierrors.New(apierrors.ErrCodeInvalidCredential, "invalid or expired session")})

	req := httptest.NewRequest(http.MethodPost, "/checkout/session", strings.NewReader(`{"items":[{"product_id":"p1","quantity":1}]}`))
	req.Header.Set("Authorization", "Bearer expired")
	rec := fx.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if gateway.createCalls != 0 {
		t.Error("gateway should not be called with a bad credential")
	}
}

func TestCreateCheckoutSessionValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"items":`, http.StatusBadRequest},
		{"unknown field", `{"cart":[]}`, http.StatusBadRequest},
		{"empty cart", `{"items":[]}`, http.StatusBadRequest},
		{"bad quantity", `{"items":[{"product_id":"p1","quantity":0}]}`, http.StatusBadRequest},
		{"unknown product", `{"items":[{"product_id":"ghost","quantity":1}]}`, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := &fakeGateway{}
			fx := newFixture(t, gateway, &fakeIdentity{})
			rec := fx.do(httptest.NewRequest(http.MethodPost, "/checkout/session", strings.NewReader(tc.body)))
			if rec.Code != tc.code {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.code, rec.Body.String())
			}
			if gateway.createCalls != 0 {
				t.Error("gateway should not be called for invalid input")
			}
		})
	}
}

func TestCreateCheckoutSessionLongIdempotencyKey(t *testing.T) {
	gateway := &fakeGateway{}
	fx := newFixture(t, gateway, &fakeIdentity{})

	req := httptest.NewRequest(http.MethodPost, "/checkout/session", strings.NewReader(`{"items":[{"product_id":"p1","quantity":1}]}`))
	req.Header.Set("Idempotency-Key", strings.Repeat("k", 256))
	rec := fx.do(req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if gateway.createCalls != 0 {
		t.Error("oversized key must be rejected before the gateway call")
	}
}

func paidTestSession(id, clientRef string) *stripeapi.CheckoutSession {
	return &stripeapi.CheckoutSession{
		ID:                id,
		PaymentStatus:     stripeapi.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: clientRef,
		AmountTotal:       4999,
		Currency:          "eur",
		Metadata:          map[string]string{"items_count": "1"},
	}
}

func TestSyncCheckoutSessionRecordsOrder(t *testing.T) {
	gateway := &fakeGateway{session: paidTestSession("cs_test_AbC123!!", userAlice)}
	fx := newFixture(t, gateway, &fakeIdentity{})

	rec := fx.do(httptest.NewRequest(http.MethodPost, "/checkout/session/cs_test_AbC123!!/sync", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result checkout.SyncResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.OrderRecorded || result.OrderNumber == nil || *result.OrderNumber != "MM-CSTESTABC123" {
		t.Errorf("result = %+v", result)
	}

	if _, err := fx.store.GetOrder(context.Background(), "MM-CSTESTABC123"); err != nil {
		t.Errorf("order not persisted: %v", err)
	}
}

func TestSyncCheckoutSessionForeignSession(t *testing.T) {
	gateway := &fakeGateway{session: paidTestSession("cs_test_foreign", userBob)}
	fx := newFixture(t, gateway, &fakeIdentity{customer: identity.Customer{UserID: userAlice}})

	req := httptest.NewRequest(http.MethodPost, "/checkout/session/cs_test_foreign/sync", nil)
	req.Header.Set("Authorization", "Bearer token123")
	rec := fx.do(req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}
	if got, _ := fx.store.ListOrdersByUser(context.Background(), userBob); len(got) != 0 {
		t.Error("foreign sync must not write")
	}
}

func TestSyncCheckoutSessionMalformedAuthScheme(t *testing.T) {
	// A present but non-bearer Authorization header must fail authentication,
	// not silently degrade to the guest path and skip the expected-user check.
	gateway := &fakeGateway{session: paidTestSession("cs_test_scheme", userBob)}
	fx := newFixture(t, gateway, &fakeIdentity{customer: identity.Customer{UserID: userAlice}})

	req := httptest.NewRequest(http.MethodPost, "/checkout/session/cs_test_scheme/sync", nil)
	req.Header.Set("Authorization", "Token stolen-or-typoed")
	rec := fx.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 (body %s)", rec.Code, rec.Body.String())
	}
	if got, _ := fx.store.ListOrdersByUser(context.Background(), userBob); len(got) != 0 {
		t.Error("malformed credential must not reconcile")
	}
}

func TestSyncCheckoutSessionNotFound(t *testing.T) {
	gateway := &fakeGateway{retrieveErr: apierrors.New(apierrors.ErrCodeSessionNotFound, "session not found")}
	fx := newFixture(t, gateway, &fakeIdentity{})

	rec := fx.do(httptest.NewRequest(http.MethodPost, "/checkout/session/cs_missing/sync", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	gateway := &fakeGateway{verifyErr: apierrors.New(apierrors.ErrCodeInvalidSignature, "webhook signature verification failed")}
	fx := newFixture(t, gateway, &fakeIdentity{})

	req := httptest.NewRequest(http.MethodPost, "/checkout/webhook/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := fx.do(req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got, _ := fx.store.ListOrdersByUser(context.Background(), userAlice); len(got) != 0 {
		t.Error("unverified webhook must not reconcile")
	}
}

func TestWebhookRecordsOrder(t *testing.T) {
	session := paidTestSession("cs_test_AbC123!!", userAlice)
	raw, _ := json.Marshal(session)
	gateway := &fakeGateway{event: stripeapi.Event{
		ID:   "evt_1",
		Type: "checkout.session.completed",
		Data: &stripeapi.EventData{Raw: raw},
	}}
	fx := newFixture(t, gateway, &fakeIdentity{})

	req := httptest.NewRequest(http.MethodPost, "/checkout/webhook/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	rec := fx.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var ack webhookAck
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil || !ack.Received {
		t.Errorf("ack = %+v, err %v", ack, err)
	}
	if _, err := fx.store.GetOrder(context.Background(), "MM-CSTESTABC123"); err != nil {
		t.Errorf("order not persisted: %v", err)
	}
}

func TestAccountOrdersRequiresAuth(t *testing.T) {
	fx := newFixture(t, &fakeGateway{}, &fakeIdentity{})
	rec := fx.do(httptest.NewRequest(http.MethodGet, "/account/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAccountOrdersListsOwnOrders(t *testing.T) {
	fx := newFixture(t, &fakeGateway{}, &fakeIdentity{customer: identity.Customer{UserID: userAlice}})

	_, err := fx.store.UpsertOrder(context.Background(), orders.ConfirmedOrder{
		OrderNumber: "MM-ONE",
		UserID:      userAlice,
		Status:      orders.StatusBeingPrepared,
		TotalAmount: "49.99",
		Currency:    "EUR",
		ItemsCount:  1,
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/account/orders", nil)
	req.Header.Set("Authorization", "Bearer token123")
	rec := fx.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp accountOrdersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].OrderNumber != "MM-ONE" {
		t.Errorf("orders = %+v", resp.Orders)
	}
}

func TestHealthEndpoint(t *testing.T) {
	fx := newFixture(t, &fakeGateway{}, &fakeIdentity{})
	rec := fx.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.StorageBackend != "memory" {
		t.Errorf("health = %+v", resp)
	}
}

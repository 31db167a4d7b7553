package server_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	checkoutdomain "github.com/funnelbase/funnelbase/internal/checkout/domain"
	"github.com/funnelbase/funnelbase/internal/config"
	emaildomain "github.com/funnelbase/funnelbase/internal/email/domain"
	paymentdomain "github.com/funnelbase/funnelbase/internal/payment/domain"
	plandomain "github.com/funnelbase/funnelbase/internal/plan/domain"
	"github.com/funnelbase/funnelbase/internal/server"
)

type fakeCheckoutService struct {
	resp    *checkoutdomain.CreateOrderResponse
	err     error
	lastReq checkoutdomain.CreateOrderRequest
}

func (f *fakeCheckoutService) CreateOrder(ctx context.Context, req checkoutdomain.CreateOrderRequest) (*checkoutdomain.CreateOrderResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakePaymentService struct {
	err           error
	lastPayload   []byte
	lastRequestID string
}

func (f *fakePaymentService) IngestWebhook(ctx context.Context, payload []byte, requestID string) error {
	f.lastPayload = payload
	f.lastRequestID = requestID
	return f.err
}

func (f *fakePaymentService) ProcessPaymentConfirmation(ctx context.Context, paymentID string) error {
	return nil
}

type fakeEmailService struct {
	seq *emaildomain.EmailSequence
	err error
}

func (f *fakeEmailService) StartSequence(ctx context.Context, req emaildomain.StartSequenceRequest) (*emaildomain.EmailSequence, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.seq, nil
}

func (f *fakeEmailService) SendPending(ctx context.Context, limit int) (emaildomain.SendReport, error) {
	return emaildomain.SendReport{}, nil
}

type fakePlanRepo struct {
	plans []plandomain.Plan
	err   error
}

func (f *fakePlanRepo) FindByID(ctx context.Context, db *gorm.DB, id string) (*plandomain.Plan, error) {
	for i := range f.plans {
		if f.plans[i].ID == id {
			return &f.plans[i], nil
		}
	}
	return nil, nil
}

func (f *fakePlanRepo) ListActive(ctx context.Context, db *gorm.DB) ([]plandomain.Plan, error) {
	return f.plans, f.err
}

type serverFixture struct {
	checkoutSvc *fakeCheckoutService
	paymentSvc  *fakePaymentService
	emailSvc    *fakeEmailService
	planRepo    *fakePlanRepo
	srv         *server.Server
	engine      http.Handler
}

func newServerFixture(t *testing.T, cfg config.Config) *serverFixture {
	t.Helper()

	f := &serverFixture{
		checkoutSvc: &fakeCheckoutService{},
		paymentSvc:  &fakePaymentService{},
		emailSvc:    &fakeEmailService{},
		planRepo:    &fakePlanRepo{},
	}
	engine := server.NewEngine(zap.NewNop())
	f.srv = server.NewServer(server.ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		Log:         zap.NewNop(),
		CheckoutSvc: f.checkoutSvc,
		PaymentSvc:  f.paymentSvc,
		EmailSvc:    f.emailSvc,
		PlanRepo:    f.planRepo,
	})
	server.RegisterRoutes(f.srv)
	f.engine = engine
	return f
}

func (f *serverFixture) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decodeErrorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error.Type
}

func signWebhook(body []byte, secret string) string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "."))
	mac.Write(body)
	return fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	cfg := config.Config{MercadoPago: config.MercadoPagoConfig{WebhookSecret: "whsec_test"}}
	f := newServerFixture(t, cfg)

	body := []byte(`{"id":1,"type":"payment","data":{"id":"555"}}`)
	rec := f.do(http.MethodPost, "/webhooks/mercadopago", body, map[string]string{
		"x-signature": "ts=1,v1=deadbeef",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeErrorType(t, rec); got != "unauthorized" {
		t.Fatalf("expected unauthorized error type, got %q", got)
	}
	if f.paymentSvc.lastPayload != nil {
		t.Fatal("payload must not reach the service on a bad signature")
	}
}

func TestWebhookAcceptsValidSignature(t *testing.T) {
	cfg := config.Config{MercadoPago: config.MercadoPagoConfig{WebhookSecret: "whsec_test"}}
	f := newServerFixture(t, cfg)

	body := []byte(`{"id":1,"type":"payment","data":{"id":"555"}}`)
	rec := f.do(http.MethodPost, "/webhooks/mercadopago", body, map[string]string{
		"x-signature": signWebhook(body, "whsec_test"),
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(f.paymentSvc.lastPayload, body) {
		t.Fatalf("service saw payload %s", f.paymentSvc.lastPayload)
	}
	if f.paymentSvc.lastRequestID == "" {
		t.Fatal("expected a request id to be forwarded")
	}
}

func TestWebhookDuplicateDeliveryStillAcknowledged(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	f.paymentSvc.err = paymentdomain.ErrEventAlreadyProcessed

	body := []byte(`{"id":1,"type":"payment","data":{"id":"555"}}`)
	rec := f.do(http.MethodPost, "/webhooks/mercadopago", body, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookInvalidPayload(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	f.paymentSvc.err = paymentdomain.ErrInvalidPayload

	rec := f.do(http.MethodPost, "/webhooks/mercadopago", []byte(`not json`), nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateOrder(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	f.checkoutSvc.resp = &checkoutdomain.CreateOrderResponse{
		ID:           "123",
		Status:       "pending",
		PreferenceID: "pref_1",
		InitPoint:    "https://mp.example/init",
	}

	body := []byte(`{"user_id":"u1","plan_id":"pro-monthly"}`)
	rec := f.do(http.MethodPost, "/api/checkout/orders", body, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp checkoutdomain.CreateOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PreferenceID != "pref_1" || resp.InitPoint == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if f.checkoutSvc.lastReq.UserID != "u1" || f.checkoutSvc.lastReq.PlanID != "pro-monthly" {
		t.Fatalf("service saw request %+v", f.checkoutSvc.lastReq)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	rec := f.do(http.MethodPost, "/api/checkout/orders", []byte(`{"plan_id":"pro-monthly"}`), nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeErrorType(t, rec); got != "validation_error" {
		t.Fatalf("expected validation_error, got %q", got)
	}
}

func TestCreateOrderPlanNotFound(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	f.checkoutSvc.err = plandomain.ErrPlanNotFound

	body := []byte(`{"user_id":"u1","plan_id":"ghost"}`)
	rec := f.do(http.MethodPost, "/api/checkout/orders", body, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStartSequence(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	f.emailSvc.seq = &emaildomain.EmailSequence{
		LeadEmail:  "lead@example.com",
		Tier:       emaildomain.TierHot,
		TotalSteps: 3,
		Status:     emaildomain.SequenceStatusActive,
	}

	body := []byte(`{"lead_email":"lead@example.com","tier":"hot"}`)
	rec := f.do(http.MethodPost, "/api/leads/sequences", body, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	f.emailSvc.err = emaildomain.ErrSequenceAlreadyActive
	rec = f.do(http.MethodPost, "/api/leads/sequences", body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on re-enrollment, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListPlans(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	f.planRepo.plans = []plandomain.Plan{
		{ID: "starter-monthly", Name: "Starter", Amount: 97, Currency: "BRL", Active: true},
		{ID: "pro-monthly", Name: "Pro", Amount: 297, Currency: "BRL", Active: true},
	}

	rec := f.do(http.MethodGet, "/api/plans", nil, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Plans []plandomain.Plan `json:"plans"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Plans) != 2 || body.Plans[1].ID != "pro-monthly" {
		t.Fatalf("unexpected plans: %+v", body.Plans)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	rec := f.do(http.MethodGet, "/health", nil, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

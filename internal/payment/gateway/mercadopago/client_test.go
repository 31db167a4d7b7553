package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/funnelbase/funnelbase/internal/config"
	paymentdomain "github.com/funnelbase/funnelbase/internal/payment/domain"
)

func TestCreatePreference(t *testing.T) {
	var gotAuth string
	var gotReq paymentdomain.PreferenceRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/preferences" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref_123","init_point":"https://pay/123","external_reference":"ref-1"}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(config.MercadoPagoConfig{AccessToken: "tok_test"}, srv.URL)

	pref, err := client.CreatePreference(context.Background(), paymentdomain.PreferenceRequest{
		ExternalReference: "ref-1",
		Items: []paymentdomain.PreferenceItem{{
			ID: "pro-monthly", Title: "Pro", Quantity: 1, UnitPrice: 297, CurrencyID: "BRL",
		}},
	})
	if err != nil {
		t.Fatalf("create preference: %v", err)
	}
	if gotAuth != "Bearer tok_test" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if gotReq.ExternalReference != "ref-1" {
		t.Fatalf("expected external reference ref-1, got %q", gotReq.ExternalReference)
	}
	if pref.ID != "pref_123" || pref.InitPoint != "https://pay/123" {
		t.Fatalf("unexpected preference: %+v", pref)
	}
}

func TestGetPayment(t *testing.T) {
	// point_of_interaction is not part of the typed struct; the raw body must
	// still carry it through for audit storage.
	body := `{"id":12345,"status":"approved","transaction_amount":297,"currency_id":"BRL","metadata":{"user_id":"u1","plan_id":"pro-monthly"},"point_of_interaction":{"type":"CHECKOUT"}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/12345" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(config.MercadoPagoConfig{AccessToken: "tok_test"}, srv.URL)

	payment, err := client.GetPayment(context.Background(), "12345")
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if payment.ID != 12345 || payment.Status != "approved" {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if payment.Metadata["user_id"] != "u1" {
		t.Fatalf("expected metadata user_id, got %+v", payment.Metadata)
	}
	if string(payment.Raw) != body {
		t.Fatalf("expected response body verbatim, got %s", payment.Raw)
	}
}

func TestGetPaymentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Payment not found"}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(config.MercadoPagoConfig{AccessToken: "tok_test"}, srv.URL)

	_, err := client.GetPayment(context.Background(), "404")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", apiErr.StatusCode)
	}
}

func TestClientNotConfigured(t *testing.T) {
	client := NewClient(config.MercadoPagoConfig{})

	if client.Configured() {
		t.Fatalf("expected client without token to be unconfigured")
	}
	if _, err := client.GetPayment(context.Background(), "1"); !errors.Is(err, paymentdomain.ErrGatewayNotConfigured) {
		t.Fatalf("expected ErrGatewayNotConfigured, got %v", err)
	}
	if _, err := client.CreatePreference(context.Background(), paymentdomain.PreferenceRequest{}); !errors.Is(err, paymentdomain.ErrGatewayNotConfigured) {
		t.Fatalf("expected ErrGatewayNotConfigured, got %v", err)
	}
}

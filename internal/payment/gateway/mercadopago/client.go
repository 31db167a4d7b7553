// Package mercadopago wraps the Mercado Pago Checkout Pro REST API.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/funnelbase/funnelbase/internal/config"
	paymentdomain "github.com/funnelbase/funnelbase/internal/payment/domain"
)

const defaultBaseURL = "https://api.mercadopago.com"

// requestTimeout bounds every gateway call; a timed-out call surfaces as a
// plain error to the caller, there is no retry at this layer.
const requestTimeout = 10 * time.Second

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewClient(cfg config.MercadoPagoConfig) *Client {
	return &Client{
		baseURL:     defaultBaseURL,
		accessToken: strings.TrimSpace(cfg.AccessToken),
		httpClient:  &http.Client{Timeout: requestTimeout},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(cfg config.MercadoPagoConfig, baseURL string) *Client {
	c := NewClient(cfg)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *Client) Configured() bool {
	return c != nil && c.accessToken != ""
}

func (c *Client) CreatePreference(ctx context.Context, req paymentdomain.PreferenceRequest) (*paymentdomain.Preference, error) {
	if !c.Configured() {
		return nil, paymentdomain.ErrGatewayNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var pref paymentdomain.Preference
	if _, err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*paymentdomain.Payment, error) {
	if !c.Configured() {
		return nil, paymentdomain.ErrGatewayNotConfigured
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	var payment paymentdomain.Payment
	raw, err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &payment)
	if err != nil {
		return nil, err
	}
	// The unmodified body rides along for audit storage.
	payment.Raw = raw
	return &payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(payload)}
	}

	if out == nil {
		return payload, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return nil, fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return payload, nil
}

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.StatusCode, e.Body)
}

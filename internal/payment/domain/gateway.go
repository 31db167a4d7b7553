package domain

import "context"

// PreferenceRequest is the hosted-checkout configuration submitted to the
// gateway.
type PreferenceRequest struct {
	Items             []PreferenceItem  `json:"items"`
	Payer             Payer             `json:"payer"`
	BackURLs          BackURLs          `json:"back_urls"`
	NotificationURL   string            `json:"notification_url"`
	ExternalReference string            `json:"external_reference"`
	PaymentMethods    PaymentMethods    `json:"payment_methods"`
	Metadata          map[string]string `json:"metadata"`
}

type PreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type Payer struct {
	Email string `json:"email"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type PaymentMethods struct {
	Installments           int      `json:"installments"`
	ExcludedPaymentTypes   []string `json:"excluded_payment_types"`
	ExcludedPaymentMethods []string `json:"excluded_payment_methods"`
}

// Preference is the gateway's hosted-checkout handle.
type Preference struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

// Payment is the authoritative payment resource fetched from the gateway,
// returned verbatim with no shape translation.
type Payment struct {
	ID                int64             `json:"id"`
	Status            string            `json:"status"`
	StatusDetail      string            `json:"status_detail"`
	TransactionAmount float64           `json:"transaction_amount"`
	CurrencyID        string            `json:"currency_id"`
	PaymentTypeID     string            `json:"payment_type_id"`
	ExternalReference string            `json:"external_reference"`
	Metadata          map[string]string `json:"metadata"`
	DateApproved      string            `json:"date_approved"`

	// Raw is the provider's exact response body. Audit storage persists these
	// bytes so provider fields outside this struct are not dropped.
	Raw []byte `json:"-"`
}

// Notification is the asynchronous webhook payload shape.
type Notification struct {
	ID            int64            `json:"id"`
	LiveMode      bool             `json:"live_mode"`
	Type          string           `json:"type"`
	DateCreated   string           `json:"date_created"`
	ApplicationID int64            `json:"application_id"`
	UserID        string           `json:"user_id"`
	APIVersion    string           `json:"api_version"`
	Action        string           `json:"action"`
	Data          NotificationData `json:"data"`
}

type NotificationData struct {
	ID string `json:"id"`
}

// Gateway is the payments provider client surface used by the checkout and
// confirmation flows. Configured reports the enabled/disabled credential
// state; every entry point checks it before any network call.
type Gateway interface {
	Configured() bool
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

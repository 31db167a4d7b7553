package email

import "context"

// Provider delivers a single rendered message and returns the provider-side
// message id for tracking.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) (string, error)
}

// NoOpProvider swallows sends. Used when SMTP credentials are absent so the
// drip pipeline advances without delivering anything.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) (string, error) {
	return "", nil
}

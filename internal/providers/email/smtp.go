package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/google/uuid"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) (string, error) {
	if len(to) == 0 {
		return "", fmt.Errorf("no recipients")
	}

	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	messageID := uuid.NewString()
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nMessage-ID: <%s@%s>\r\n%s\r\n%s",
		to[0], subject, messageID, p.cfg.Host, mime, htmlBody))

	if err := smtp.SendMail(addr, auth, p.cfg.From, to, msg); err != nil {
		return "", err
	}
	return messageID, nil
}

// Package email delivers candidate notifications over SMTP for agents whose
// contact handle is an email address.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"estate_portal_backend/internal/channel"
	"estate_portal_backend/platform/config"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
)

const subject = "New lead available"

// Sender implements channel.Sender over a direct SMTP connection via go-mail.
type Sender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSender creates the SMTP sender, or nil when SMTP is not configured.
func NewSender(cfg config.SMTPConfig) *Sender {
	if !cfg.IsSMTPEnabled() {
		return nil
	}

	return &Sender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// Send delivers the message and returns a synthetic delivery id (SMTP has
// no gateway-assigned id to hand back).
func (s *Sender) Send(ctx context.Context, contactHandle, message string) (string, error) {
	if s == nil {
		return "", channel.NewDeliveryError(contactHandle, fmt.Errorf("smtp sender not configured"))
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return "", channel.NewDeliveryError(contactHandle, fmt.Errorf("smtp from: %w", err))
	}
	if err := msg.To(contactHandle); err != nil {
		return "", channel.NewDeliveryError(contactHandle, fmt.Errorf("smtp to: %w", err))
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, message)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return "", channel.NewDeliveryError(contactHandle, fmt.Errorf("smtp client: %w", err))
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", channel.NewDeliveryError(contactHandle, fmt.Errorf("smtp send: %w", err))
	}

	return uuid.NewString(), nil
}

var _ channel.Sender = (*Sender)(nil)

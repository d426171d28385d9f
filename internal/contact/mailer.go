package contact

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"atsquick/internal/config"
	"atsquick/internal/errors"

	"github.com/wneessen/go-mail"
)

// Email is one outgoing notification
type Email struct {
	FromName string
	From     string
	To       string
	ReplyTo  string
	Subject  string
	HTMLBody string
}

// Mailer delivers an email
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMTPMailer delivers mail through an SMTP relay
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send dials the relay and sends a single message
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	msg, err := buildMessage(email)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeDeliveryFailed, "cannot create SMTP client", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.NewNetworkError(errors.ErrCodeDeliveryFailed, "SMTP delivery failed", err).
			WithContext("smtp_host", m.cfg.Host)
	}
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	port := m.cfg.Port
	if port == 0 {
		port = 587
	}
	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(tlsPolicy(m.cfg.TLSPolicy)),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch strings.ToLower(name) {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// buildMessage converts an Email into a MIME message
func buildMessage(email Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(email.FromName, email.From); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid sender address", err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid receiver address", err)
	}
	if email.ReplyTo != "" {
		if err := msg.ReplyTo(email.ReplyTo); err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid reply-to address", err)
		}
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.HTMLBody)
	return msg, nil
}

// renderBody builds the HTML notification. All submitted values are escaped.
func renderBody(name, address, message string) string {
	var b strings.Builder
	b.WriteString("<h2>New Contact Form Submission</h2>\n")
	fmt.Fprintf(&b, "<p><b>Name:</b> %s</p>\n", html.EscapeString(name))
	fmt.Fprintf(&b, "<p><b>Email:</b> %s</p>\n", html.EscapeString(address))
	b.WriteString("<p><b>Message:</b></p>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n", strings.ReplaceAll(html.EscapeString(message), "\n", "<br>"))
	return b.String()
}

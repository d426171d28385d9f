// Package contact validates contact form submissions, checks them for bots and
// forwards them by email.
package contact

import (
	"context"
	"fmt"
	"strings"

	"atsquick/internal/config"
	"atsquick/internal/errors"
	"atsquick/internal/types"
)

// Messages returned to the submitter
const (
	MessageMissingFields      = "Missing required fields."
	MessageMissingToken       = "reCAPTCHA token missing."
	MessageVerificationFailed = "reCAPTCHA verification failed."
	MessageScoreTooLow        = "reCAPTCHA score too low."
	MessageSent               = "Message sent successfully!"
	MessageServerError        = "Server error. Please try again later."
)

// Service handles contact submissions
type Service struct {
	verifier BotVerifier
	mailer   Mailer
	cfg      config.ContactConfig
	logger   *errors.Logger
}

// NewService creates a contact service with the reCAPTCHA verifier and SMTP mailer
func NewService(cfg config.ContactConfig, logger *errors.Logger) *Service {
	return NewServiceWith(NewRecaptchaVerifier(cfg.Recaptcha), NewSMTPMailer(cfg.SMTP), cfg, logger)
}

// NewServiceWith creates a contact service with explicit collaborators
func NewServiceWith(verifier BotVerifier, mailer Mailer, cfg config.ContactConfig, logger *errors.Logger) *Service {
	return &Service{
		verifier: verifier,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Submit validates, verifies and delivers msg. Errors are AppErrors whose code
// tells the caller which response to send.
func (s *Service) Submit(ctx context.Context, msg types.ContactMessage, remoteIP string) error {
	if strings.TrimSpace(msg.Name) == "" || strings.TrimSpace(msg.Email) == "" || strings.TrimSpace(msg.Message) == "" {
		return errors.NewValidationError(errors.ErrCodeMissingFields, MessageMissingFields, nil)
	}
	if strings.TrimSpace(msg.RecaptchaToken) == "" {
		return errors.NewValidationError(errors.ErrCodeMissingToken, MessageMissingToken, nil)
	}

	verification, err := s.verifier.Verify(ctx, msg.RecaptchaToken, remoteIP)
	if err != nil {
		return err
	}

	s.logger.Debug("Bot verification result",
		"success", verification.Success,
		"score", verification.Score,
		"action", verification.Action,
		"hostname", verification.Hostname)

	if err := checkVerification(verification, s.cfg.Recaptcha.MinScore); err != nil {
		return err
	}

	email := Email{
		FromName: s.cfg.SMTP.FromName,
		From:     s.cfg.SMTP.Username,
		To:       s.cfg.Receiver,
		ReplyTo:  strings.TrimSpace(msg.Email),
		Subject:  fmt.Sprintf("New contact message from %s", strings.TrimSpace(msg.Name)),
		HTMLBody: renderBody(msg.Name, msg.Email, msg.Message),
	}
	if err := s.mailer.Send(ctx, email); err != nil {
		return err
	}

	s.logger.Info("Contact message delivered", "receiver", s.cfg.Receiver)
	return nil
}

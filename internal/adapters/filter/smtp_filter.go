package filter

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/core"
	"go.uber.org/zap"
)

// Processor runs one inbound email through the intake pipeline
type Processor interface {
	Process(ctx context.Context, email *core.Email) (*core.IntakeResult, error)
}

// SMTPFilter accepts vendor mail over SMTP and feeds it to the intake pipeline
type SMTPFilter struct {
	processor Processor
	logger    *zap.Logger
	cfg       config.ServerConfig
	server    *smtp.Server
}

// NewSMTPFilter creates a new SMTP intake filter
func NewSMTPFilter(processor Processor, logger *zap.Logger, cfg config.ServerConfig) *SMTPFilter {
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 60 * time.Second
	}
	return &SMTPFilter{
		processor: processor,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start starts listening for mail in the background
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.cfg.ListenAddress
	f.server.Domain = f.cfg.Domain
	f.server.ReadTimeout = f.cfg.ReadTimeout
	f.server.WriteTimeout = f.cfg.WriteTimeout
	f.server.MaxMessageBytes = f.cfg.MaxMessageBytes
	f.server.MaxRecipients = f.cfg.MaxRecipients

	f.logger.Info("SMTP intake starting", zap.String("address", f.cfg.ListenAddress))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop closes the listener and open sessions
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail runs an already parsed email through the pipeline
func (f *SMTPFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.IntakeResult, error) {
	return f.processor.Process(ctx, email)
}

// deliver parses and processes one message received from sender
func (f *SMTPFilter) deliver(sender string, recipients []string, raw []byte) error {
	email, err := ParseMessage(raw)
	if err != nil {
		// Keep the message for review rather than bouncing it
		f.logger.Warn("Failed to parse message, processing raw body",
			zap.String("sender", sender),
			zap.Error(err))
		email = &core.Email{PlainText: string(raw)}
	}
	if email.From == "" {
		email.From = sender
	}
	if len(email.To) == 0 {
		email.To = recipients
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.ProcessTimeout)
	defer cancel()

	result, err := f.processor.Process(ctx, email)
	if err != nil {
		f.logger.Error("Failed to process email",
			zap.String("sender", sender),
			zap.String("subject", email.Subject),
			zap.Error(err))
		// Ask the relay to retry later; nothing was lost
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary failure recording message",
		}
	}

	f.logger.Info("Accepted email",
		zap.String("sender", sender),
		zap.String("email_id", result.EmailID),
		zap.String("parse_status", string(result.ParseStatus)))

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SMTPFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	return nil
}

// Mail sets the envelope sender
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message and hands it to the pipeline
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	return s.filter.deliver(s.sender, s.recipients, raw)
}

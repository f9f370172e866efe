package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mikey/vendor-order-intake/internal/core"
	"go.uber.org/zap"
)

// CliFilter runs single emails through the pipeline and prints the outcome as JSON
type CliFilter struct {
	processor Processor
	logger    *zap.Logger
	out       io.Writer
	verbose   bool
}

// NewCliFilter creates a new CLI filter writing to stdout
func NewCliFilter(processor Processor, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	return NewCliFilterWithWriter(processor, logger, verbose, os.Stdout), nil
}

// NewCliFilterWithWriter creates a CLI filter writing to out
func NewCliFilterWithWriter(processor Processor, logger *zap.Logger, verbose bool, out io.Writer) *CliFilter {
	return &CliFilter{
		processor: processor,
		logger:    logger,
		out:       out,
		verbose:   verbose,
	}
}

// ProcessEmail processes an email and prints the result
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.IntakeResult, error) {
	f.logger.Debug("Processing email",
		zap.String("sender", email.From),
		zap.String("subject", email.Subject))

	start := time.Now()
	result, err := f.processor.Process(ctx, email)
	if err != nil {
		f.logger.Error("Failed to process email", zap.Error(err))
		return nil, err
	}

	if f.verbose {
		f.logger.Info("Processed email",
			zap.String("email_id", result.EmailID),
			zap.Duration("duration", time.Since(start)))
	}

	if err := f.PrintResult(result); err != nil {
		return result, err
	}

	return result, nil
}

// PrintResult writes result as indented JSON
func (f *CliFilter) PrintResult(result *core.IntakeResult) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}

// webhookPayload is the JSON shape inbound-mail webhooks deliver
type webhookPayload struct {
	From        string            `json:"from"`
	To          json.RawMessage   `json:"to"`
	Subject     string            `json:"subject"`
	Date        string            `json:"date"`
	PlainText   string            `json:"plainText"`
	HTML        string            `json:"html"`
	Attachments []core.Attachment `json:"attachments"`
	SpamScore   float64           `json:"spamScore"`
}

var payloadDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseInput reads either a webhook JSON payload or a raw RFC 5322 message
func ParseInput(data []byte) (*core.Email, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	if trimmed[0] != '{' {
		return ParseMessage(data)
	}

	var payload webhookPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	email := &core.Email{
		From:        payload.From,
		To:          decodeRecipients(payload.To),
		Subject:     payload.Subject,
		Date:        parsePayloadDate(payload.Date),
		PlainText:   payload.PlainText,
		HTML:        payload.HTML,
		Attachments: payload.Attachments,
		SpamScore:   payload.SpamScore,
	}
	return email, nil
}

// decodeRecipients accepts either a single string or a list
func decodeRecipients(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		var out []string
		for _, part := range strings.Split(single, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

func parsePayloadDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t
	}
	for _, layout := range payloadDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

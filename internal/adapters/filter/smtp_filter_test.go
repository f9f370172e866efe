package filter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/vendor-order-intake/internal/config"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProcessor struct {
	emails []*core.Email
	err    error
}

func (p *fakeProcessor) Process(_ context.Context, email *core.Email) (*core.IntakeResult, error) {
	p.emails = append(p.emails, email)
	if p.err != nil {
		return nil, p.err
	}
	return &core.IntakeResult{EmailID: "email-1", ParseStatus: core.ParseStatusParsed}, nil
}

func newTestSession(p Processor) *smtpSession {
	f := NewSMTPFilter(p, zap.NewNop(), config.ServerConfig{ProcessTimeout: time.Second})
	backend := &smtpBackend{filter: f}
	session, _ := backend.NewSession(nil)
	return session.(*smtpSession)
}

func TestSMTPSession_DeliversParsedEmail(t *testing.T) {
	p := &fakeProcessor{}
	s := newTestSession(p)

	require.NoError(t, s.Mail("relay@forwarder.com", nil))
	require.NoError(t, s.Rcpt("orders@shop.com", nil))
	require.NoError(t, s.Data(strings.NewReader(string(crlf(nestedMessage)))))

	require.Len(t, p.emails, 1)
	assert.Equal(t, "orders@safilo.com", p.emails[0].From)
	assert.Equal(t, "Order = 1234", p.emails[0].PlainText)
}

func TestSMTPSession_FallsBackToEnvelope(t *testing.T) {
	p := &fakeProcessor{}
	s := newTestSession(p)

	require.NoError(t, s.Mail("vendor@luxottica.com", nil))
	require.NoError(t, s.Rcpt("orders@shop.com", nil))
	require.NoError(t, s.Data(strings.NewReader("this is not a header line\r\n")))

	require.Len(t, p.emails, 1)
	assert.Equal(t, "vendor@luxottica.com", p.emails[0].From)
	assert.Equal(t, []string{"orders@shop.com"}, p.emails[0].To)
	assert.Contains(t, p.emails[0].PlainText, "not a header line")
}

func TestSMTPSession_StorageFailureIsTemporary(t *testing.T) {
	p := &fakeProcessor{err: errors.New("database is locked")}
	s := newTestSession(p)

	require.NoError(t, s.Mail("orders@safilo.com", nil))
	err := s.Data(strings.NewReader(string(crlf(nestedMessage))))

	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 451, smtpErr.Code)
	assert.Equal(t, smtp.EnhancedCode{4, 3, 0}, smtpErr.EnhancedCode)
}

func TestSMTPSession_Reset(t *testing.T) {
	s := newTestSession(&fakeProcessor{})
	require.NoError(t, s.Mail("a@b.com", nil))
	require.NoError(t, s.Rcpt("c@d.com", nil))

	s.Reset()
	assert.Empty(t, s.sender)
	assert.Empty(t, s.recipients)
	assert.NoError(t, s.Logout())
}

func TestSMTPFilter_StopBeforeStart(t *testing.T) {
	f := NewSMTPFilter(&fakeProcessor{}, zap.NewNop(), config.ServerConfig{})
	assert.NoError(t, f.Stop())
}

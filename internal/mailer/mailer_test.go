package mailer

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/luminosity-leds/luminosity/internal/config"
)

func TestNewSelectsDriver(t *testing.T) {
	m, err := New(config.MailConfig{Driver: "log"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = New(config.MailConfig{Driver: "smtp", Host: "mail.example.com", Port: 25}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	_, err = New(config.MailConfig{Driver: "fax"}, zap.NewNop())
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewLog(zap.New(core))
	msg := Verification("ada@example.com", "Ada", "http://localhost/verifyemail?token=abc", time.Hour)
	require.NoError(t, m.Send(context.Background(), msg))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "ada@example.com", fields["to"])
	assert.Contains(t, fields["body"], "token=abc")
}

func TestSMTPMailerFormatsMessage(t *testing.T) {
	m := NewSMTP(config.MailConfig{Host: "mail.example.com", Port: 2525, From: "no-reply@example.com", Username: "u", Password: "p"})
	assert.Equal(t, "mail.example.com:2525", m.addr)
	assert.NotNil(t, m.auth)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}
	require.NoError(t, m.Send(context.Background(), Message{To: "ada@example.com", Subject: "Hi", Body: "line1\nline2"}))
	assert.Equal(t, "mail.example.com:2525", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	body := string(gotMsg)
	assert.True(t, strings.HasPrefix(body, "From: no-reply@example.com\r\n"))
	assert.Contains(t, body, "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(body, "line1\r\nline2"))
}

func TestSMTPMailerRejectsHeaderInjection(t *testing.T) {
	m := NewSMTP(config.MailConfig{Host: "mail.example.com", Port: 25})
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return nil }
	err := m.Send(context.Background(), Message{To: "a@example.com\r\nBcc: b@example.com"})
	assert.Error(t, err)
}

func TestSMTPMailerHonoursContext(t *testing.T) {
	m := NewSMTP(config.MailConfig{Host: "mail.example.com", Port: 25})
	release := make(chan struct{})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := m.Send(ctx, Message{To: "a@example.com"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVerificationStatesLinkLifetime(t *testing.T) {
	for ttl, want := range map[time.Duration]string{
		time.Hour:        "expires in 1 hour.",
		3 * time.Hour:    "expires in 3 hours.",
		48 * time.Hour:   "expires in 2 days.",
		30 * time.Minute: "expires in 30 minutes.",
		90 * time.Second: "expires in 1m30s.",
	} {
		msg := Verification("ada@example.com", "Ada", "http://localhost/verifyemail?token=abc", ttl)
		assert.Contains(t, msg.Body, want, ttl.String())
	}
}

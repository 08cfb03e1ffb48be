package email

import (
	"context"
	"log/slog"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j7-dev/powerfunnel/pkg/config"
)

func TestSendTemplateBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	sender := NewSender(config.EmailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "noreply@example.com",
	}, slog.Default())

	sender.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg

		return nil
	}

	err := sender.SendTemplate(context.Background(), "alice@example.com", map[string]any{
		"subject": "Welcome",
		"body":    "Hi Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Welcome\r\n")
	assert.Contains(t, string(gotMsg), "Hi Alice")
}

func TestDeliverHonorsCancelledContext(t *testing.T) {
	sender := NewSender(config.EmailConfig{Host: "smtp.example.com", Port: 587}, slog.Default())

	called := false
	sender.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true

		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.SendText(ctx, "alice@example.com", "hello")
	require.Error(t, err)
	assert.False(t, called)
}

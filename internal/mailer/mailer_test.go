package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/solodesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPicksProvider(t *testing.T) {
	assert.IsType(t, &SMTP{}, New(config.MailConfig{SMTPEnabled: true}))
	assert.IsType(t, &Resend{}, New(config.MailConfig{ResendAPIKey: "re_123"}))
	assert.IsType(t, LogSender{}, New(config.MailConfig{}))
}

func TestResendSend(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.MailConfig{FromEmail: "billing@solodesk.local", ResendAPIKey: "re_key"}
	s := NewResend(cfg, srv.URL, srv.Client())
	err := s.Send(context.Background(), Message{To: "a@acme.com", Subject: "Receipt", HTML: "<p>Thanks</p>"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_key", auth)
	assert.Equal(t, []string{"a@acme.com"}, got.To)
	assert.Equal(t, "billing@solodesk.local", got.From)
	assert.Equal(t, "Receipt", got.Subject)
}

func TestResendSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewResend(config.MailConfig{}, srv.URL, srv.Client())
	err := s.Send(context.Background(), Message{To: "a@acme.com"})
	assert.ErrorContains(t, err, "status 422")
}

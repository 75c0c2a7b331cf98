package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridMailerSend(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		payload sendgridPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m, err := NewSendGridMailer("sg-key", "sales@tradedesk.test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{
		To:      []string{" Buyer@Example.com ", "buyer@example.com", ""},
		Subject: "Quote ready",
		Text:    "Your quote is ready",
		HTML:    "<p>Your quote is ready</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v3/mail/send", gotPath)
	assert.Equal(t, "Bearer sg-key", gotAuth)
	require.Len(t, payload.Personalizations, 1)
	assert.Equal(t, []sendgridAddress{{Email: "buyer@example.com"}}, payload.Personalizations[0].To)
	assert.Equal(t, "sales@tradedesk.test", payload.From.Email)
	require.Len(t, payload.Content, 2)
	assert.Equal(t, "text/plain", payload.Content[0].Type)
	assert.Equal(t, "text/html", payload.Content[1].Type)
}

func TestSendGridMailerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	m, err := NewSendGridMailer("sg-key", "sales@tradedesk.test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewSendGridMailerRequiresKey(t *testing.T) {
	_, err := NewSendGridMailer(" ", "sales@tradedesk.test")
	require.Error(t, err)
}

func TestMessageValidate(t *testing.T) {
	msg := Message{To: []string{""}, Subject: "s", Text: "t"}
	assert.True(t, pkgerrors.IsCode(msg.Validate(), pkgerrors.CodeValidation))

	msg = Message{To: []string{"a@b.c"}, Subject: "s"}
	assert.True(t, pkgerrors.IsCode(msg.Validate(), pkgerrors.CodeValidation))
}

func TestLogMailerSend(t *testing.T) {
	m := NewLogMailer(nil)
	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s", Text: "t"}))
	require.Error(t, m.Send(context.Background(), Message{Subject: "s", Text: "t"}))
}

func TestFromConfigFallsBackToLogMailer(t *testing.T) {
	m, err := FromConfig(config.SendgridConfig{DefaultFrom: "sales@tradedesk.test"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = FromConfig(config.SendgridConfig{APIKey: "sg-key", DefaultFrom: "sales@tradedesk.test"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SendGridMailer{}, m)
}

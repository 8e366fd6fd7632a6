package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/shaharia-lab/angelia/internal/channel"
)

var validConfig = channel.Config{
	"client_id":     "id.apps.googleusercontent.com",
	"client_secret": "secret",
	"refresh_token": "1//refresh",
}

func testChannel(t *testing.T, handler http.HandlerFunc) *Channel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := ParseConfig(validConfig)
	require.NoError(t, err)
	c.Endpoint = srv.URL + "/"
	svc, err := newService(context.Background(), c, option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return newChannel(c, svc)
}

func TestParseConfig(t *testing.T) {
	for _, key := range []string{"client_id", "client_secret", "refresh_token"} {
		cfg := validConfig.Clone()
		delete(cfg, key)
		_, err := ParseConfig(cfg)
		assert.ErrorIs(t, err, channel.ErrMissingRequiredKey, key)
	}

	cfg := validConfig.Clone()
	cfg["endpoint"] = "::"
	_, err := ParseConfig(cfg)
	assert.ErrorIs(t, err, channel.ErrInvalidValue)

	c, err := ParseConfig(validConfig)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, channel.DefaultCooldown, c.Cooldown)
	assert.Equal(t, "text", c.Format)
}

func TestNew(t *testing.T) {
	ch, err := New(validConfig)
	require.NoError(t, err)
	assert.Equal(t, "gmail", ch.Name())
}

func TestSend(t *testing.T) {
	var raw string
	ch := testChannel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/gmail/v1/users/me/messages/send", r.URL.Path)
		var msg struct {
			Raw string `json:"raw"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		raw = msg.Raw
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"18c1"}`))
	})

	err := ch.Send(context.Background(), channel.Notification{
		Recipient: "ops@example.com",
		Subject:   "disk full",
		Body:      "/var is at 98%",
	})
	require.NoError(t, err)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "ops@example.com")
	assert.Contains(t, string(decoded), "Subject: disk full")
	assert.Contains(t, string(decoded), "/var is at 98%")
}

func TestRaw_BccOnlyInGmailHeader(t *testing.T) {
	c, err := ParseConfig(validConfig)
	require.NoError(t, err)
	ch := newChannel(c, nil)

	raw, err := ch.raw(channel.Notification{
		Recipient: "ops@example.com",
		Body:      "To: dba@example.com\nBcc: secret@example.com\nSubject: lag\n\nlag is 300s\n",
	})
	require.NoError(t, err)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(decoded), "Bcc: <secret@example.com>\r\n"))
	assert.Equal(t, 1, strings.Count(string(decoded), "secret@example.com"))
}

func TestSend_APIErrorThrottles(t *testing.T) {
	var calls atomic.Int32
	ch := testChannel(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Invalid To header"}}`))
	})

	n := channel.Notification{Recipient: "ops@example.com", Subject: "s", Body: "b"}
	err := ch.Send(context.Background(), n)
	require.ErrorIs(t, err, channel.ErrTransportFailure)
	assert.Contains(t, err.Error(), "gmail api error 400: Invalid To header")

	err = ch.Send(context.Background(), n)
	require.ErrorIs(t, err, channel.ErrThrottled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_InvalidRecipientSkipsGuard(t *testing.T) {
	var calls atomic.Int32
	ch := testChannel(t, func(http.ResponseWriter, *http.Request) { calls.Add(1) })

	err := ch.Send(context.Background(), channel.Notification{Recipient: "not an address", Body: "b"})
	require.ErrorIs(t, err, channel.ErrTransportFailure)
	assert.True(t, ch.guard.MayAttempt())
	assert.Zero(t, calls.Load())
}

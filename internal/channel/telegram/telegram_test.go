package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/angelia/internal/channel"
)

func testChannel(t *testing.T, cfg channel.Config, handler http.HandlerFunc) *Channel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg = cfg.Clone()
	cfg["bot_token"] = "123:abc"
	cfg["endpoint"] = srv.URL
	c, err := ParseConfig(cfg)
	require.NoError(t, err)
	return newChannel(c, srv.Client())
}

func TestParseConfig(t *testing.T) {
	_, err := ParseConfig(channel.Config{})
	assert.ErrorIs(t, err, channel.ErrMissingRequiredKey)

	_, err = ParseConfig(channel.Config{"bot_token": "t", "endpoint": "api.telegram.org"})
	assert.ErrorIs(t, err, channel.ErrInvalidValue)

	_, err = ParseConfig(channel.Config{"bot_token": "t", "format": "bbcode"})
	assert.ErrorIs(t, err, channel.ErrInvalidValue)

	c, err := ParseConfig(channel.Config{"bot_token": "t", "silent": "true"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.telegram.org", c.Endpoint)
	assert.Equal(t, "text", c.Format)
	assert.True(t, c.DisableNotification)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, channel.DefaultCooldown, c.Cooldown)
}

func TestNew(t *testing.T) {
	ch, err := New(channel.Config{"bot_token": "t"})
	require.NoError(t, err)
	assert.Equal(t, "telegram", ch.Name())
}

func TestSend(t *testing.T) {
	var got sendMessageRequest
	ch := testChannel(t, channel.Config{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	})

	err := ch.Send(context.Background(), channel.Notification{
		Recipient: "-100123",
		Subject:   "db01 down",
		Body:      "connection refused",
	})
	require.NoError(t, err)
	assert.Equal(t, sendMessageRequest{ChatID: "-100123", Text: "db01 down\n\nconnection refused"}, got)
}

func TestSend_Markdown(t *testing.T) {
	var got sendMessageRequest
	ch := testChannel(t, channel.Config{"format": "markdown"}, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	err := ch.Send(context.Background(), channel.Notification{
		Recipient: "@ops",
		Subject:   "a<b",
		Body:      "**urgent**",
	})
	require.NoError(t, err)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Equal(t, "<b>a&lt;b</b>\n\n<strong>urgent</strong>", got.Text)
}

func TestSend_APIErrorThrottles(t *testing.T) {
	var calls atomic.Int32
	ch := testChannel(t, channel.Config{}, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})

	n := channel.Notification{Recipient: "42", Body: "b"}
	err := ch.Send(context.Background(), n)
	require.ErrorIs(t, err, channel.ErrTransportFailure)
	assert.Contains(t, err.Error(), "telegram api error 400: Bad Request: chat not found")

	err = ch.Send(context.Background(), n)
	require.ErrorIs(t, err, channel.ErrThrottled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_TransportErrorHidesToken(t *testing.T) {
	c, err := ParseConfig(channel.Config{"bot_token": "123:secret", "endpoint": "http://127.0.0.1:1"})
	require.NoError(t, err)
	ch := newChannel(c, &http.Client{Timeout: time.Second})

	err = ch.Send(context.Background(), channel.Notification{Recipient: "42", Body: "b"})
	require.ErrorIs(t, err, channel.ErrTransportFailure)
	assert.NotContains(t, err.Error(), "secret")
}

func TestSend_EmptyMessageSkipsGuard(t *testing.T) {
	var calls atomic.Int32
	ch := testChannel(t, channel.Config{}, func(http.ResponseWriter, *http.Request) { calls.Add(1) })

	err := ch.Send(context.Background(), channel.Notification{Recipient: "42"})
	require.ErrorIs(t, err, channel.ErrTransportFailure)
	assert.True(t, ch.guard.MayAttempt())
	assert.Zero(t, calls.Load())
}

func TestMessage_Truncates(t *testing.T) {
	c, err := ParseConfig(channel.Config{"bot_token": "t"})
	require.NoError(t, err)
	ch := newChannel(c, http.DefaultClient)

	req, err := ch.message(channel.Notification{Recipient: "42", Body: strings.Repeat("é", maxMessageRunes+10)})
	require.NoError(t, err)
	assert.Len(t, []rune(req.Text), maxMessageRunes)
}

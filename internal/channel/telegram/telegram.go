// Package telegram delivers notifications as Telegram bot messages.
//
// Recipients look like telegram://123456789 or telegram://@channelname; the
// address is used as the chat_id of a sendMessage call.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shaharia-lab/angelia/internal/build"
	"github.com/shaharia-lab/angelia/internal/channel"
	"github.com/shaharia-lab/angelia/internal/channel/markdown"
)

// Scheme is the recipient scheme served by this channel.
const Scheme = "telegram"

const (
	defaultEndpoint = "https://api.telegram.org"
	defaultTimeout  = 30 * time.Second
	// maxMessageRunes is the Bot API limit for a text message.
	maxMessageRunes = 4096
	maxResponseBody = 1 << 20
)

// Config holds the resolved Telegram settings.
type Config struct {
	BotToken            string
	Endpoint            string
	Format              string
	DisableNotification bool
	Timeout             time.Duration
	Cooldown            time.Duration
}

// ParseConfig applies defaults to cfg and validates it.
func ParseConfig(cfg channel.Config) (Config, error) {
	c := Config{Endpoint: strings.TrimRight(cfg.String("endpoint", defaultEndpoint), "/")}
	var err error
	if c.BotToken, err = cfg.RequiredString("bot_token"); err != nil {
		return Config{}, err
	}
	if u, perr := url.Parse(c.Endpoint); perr != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, channel.InvalidValue("endpoint", c.Endpoint)
	}
	if c.Format, err = cfg.OneOf("format", markdown.FormatText, markdown.FormatText, markdown.FormatMarkdown); err != nil {
		return Config{}, err
	}
	if c.DisableNotification, err = cfg.Bool("silent", false); err != nil {
		return Config{}, err
	}
	if c.Timeout, err = cfg.Duration("timeout", defaultTimeout); err != nil {
		return Config{}, err
	}
	if c.Cooldown, err = cfg.Duration("cooldown", channel.DefaultCooldown); err != nil {
		return Config{}, err
	}
	return c, nil
}

type sendMessageRequest struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

// apiResponse is the Bot API response envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Channel sends messages through the Telegram Bot API.
type Channel struct {
	config Config
	client *http.Client
	guard  *channel.Guard
}

// New is the channel.Factory for the telegram scheme.
func New(cfg channel.Config) (channel.Channel, error) {
	c, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := &http.Client{
		Timeout:   c.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return newChannel(c, client), nil
}

func newChannel(c Config, client *http.Client, opts ...channel.GuardOption) *Channel {
	return &Channel{
		config: c,
		client: client,
		guard:  channel.NewGuard(Scheme, c.Cooldown, opts...),
	}
}

// Register adds the Telegram channel to r.
func Register(r *channel.Registry) error {
	return r.Register(Scheme, New)
}

// Name returns the provider identifier.
func (c *Channel) Name() string { return Scheme }

// Send posts n to the chat named by n.Recipient.
func (c *Channel) Send(ctx context.Context, n channel.Notification) error {
	req, err := c.message(n)
	if err != nil {
		return &channel.TransportError{Channel: Scheme, Err: err}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return &channel.TransportError{Channel: Scheme, Err: fmt.Errorf("marshaling request: %w", err)}
	}
	return c.guard.Do(ctx, func(ctx context.Context) error {
		return c.call(ctx, "sendMessage", body)
	})
}

func (c *Channel) message(n channel.Notification) (sendMessageRequest, error) {
	chatID := strings.TrimSpace(n.Recipient)
	if chatID == "" {
		return sendMessageRequest{}, fmt.Errorf("missing chat id")
	}
	req := sendMessageRequest{
		ChatID:              chatID,
		DisableNotification: c.config.DisableNotification,
	}

	subject, body := n.Subject, n.Body
	if c.config.Format == markdown.FormatMarkdown {
		rendered, err := markdown.ToTelegramHTML(body)
		if err != nil {
			return sendMessageRequest{}, err
		}
		body = rendered
		if subject != "" {
			subject = "<b>" + escapeHTML(subject) + "</b>"
		}
		req.ParseMode = "HTML"
	}
	req.Text = truncate(joinText(subject, body), maxMessageRunes)
	if strings.TrimSpace(req.Text) == "" {
		return sendMessageRequest{}, fmt.Errorf("empty message")
	}
	return req, nil
}

func (c *Channel) call(ctx context.Context, method string, body []byte) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.config.Endpoint, c.config.BotToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", build.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of logs and history.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("calling telegram %s: %w", method, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	var tgResp apiResponse
	if err := json.Unmarshal(raw, &tgResp); err != nil {
		return fmt.Errorf("telegram http %d: parsing response: %w", resp.StatusCode, err)
	}
	if !tgResp.OK {
		return fmt.Errorf("telegram api error %d: %s", tgResp.ErrorCode, tgResp.Description)
	}
	return nil
}

func joinText(subject, body string) string {
	switch {
	case subject == "":
		return body
	case body == "":
		return subject
	default:
		return subject + "\n\n" + body
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

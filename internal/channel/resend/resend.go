// Package resend delivers email notifications through the Resend HTTP API.
//
// Recipients look like resend://ops@example.com. Bodies go through the same
// structured-message handling as the mailto channel.
package resend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shaharia-lab/angelia/internal/channel"
	"github.com/shaharia-lab/angelia/internal/channel/markdown"
)

// Scheme is the recipient scheme served by this channel.
const Scheme = "resend"

const defaultTimeout = 30 * time.Second

// Config holds the resolved Resend settings.
type Config struct {
	APIKey   string
	From     string
	Endpoint string
	Format   string
	Timeout  time.Duration
	Cooldown time.Duration
}

// ParseConfig applies defaults to cfg and validates it.
func ParseConfig(cfg channel.Config) (Config, error) {
	var c Config
	var err error
	if c.APIKey, err = cfg.RequiredString("api_key"); err != nil {
		return Config{}, err
	}
	if c.From, err = cfg.RequiredString("from"); err != nil {
		return Config{}, err
	}
	c.Endpoint = cfg.String("endpoint", "")
	if c.Endpoint != "" {
		if u, perr := url.Parse(c.Endpoint); perr != nil || u.Scheme == "" || u.Host == "" {
			return Config{}, channel.InvalidValue("endpoint", c.Endpoint)
		}
	}
	if c.Format, err = cfg.OneOf("format", markdown.FormatText, markdown.FormatText, markdown.FormatMarkdown); err != nil {
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

// emailSender is the part of the Resend emails service used by the channel.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Channel delivers email through Resend.
type Channel struct {
	config Config
	emails emailSender
	guard  *channel.Guard
}

// New is the channel.Factory for the resend scheme.
func New(cfg channel.Config) (channel.Channel, error) {
	c, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := resend.NewCustomClient(&http.Client{
		Timeout:   c.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, c.APIKey)
	if c.Endpoint != "" {
		// Validated in ParseConfig.
		client.BaseURL, _ = url.Parse(c.Endpoint)
	}
	return newChannel(c, client.Emails), nil
}

func newChannel(c Config, emails emailSender, opts ...channel.GuardOption) *Channel {
	return &Channel{
		config: c,
		emails: emails,
		guard:  channel.NewGuard(Scheme, c.Cooldown, opts...),
	}
}

// Register adds the Resend channel to r.
func Register(r *channel.Registry) error {
	return r.Register(Scheme, New)
}

// Name returns the provider identifier.
func (c *Channel) Name() string { return Scheme }

// Send delivers n as an email. With the markdown format the body is also
// sent as rendered HTML.
func (c *Channel) Send(ctx context.Context, n channel.Notification) error {
	req, err := c.request(n)
	if err != nil {
		return &channel.TransportError{Channel: Scheme, Err: err}
	}
	return c.guard.Do(ctx, func(ctx context.Context) error {
		if _, err := c.emails.SendWithContext(ctx, req); err != nil {
			return fmt.Errorf("resend: %w", err)
		}
		return nil
	})
}

func (c *Channel) request(n channel.Notification) (*resend.SendEmailRequest, error) {
	composed := channel.ComposeMail(n, c.config.From)
	req := &resend.SendEmailRequest{
		From:    composed.From,
		To:      composed.To,
		Cc:      composed.Cc,
		Bcc:     composed.Bcc,
		Subject: composed.Subject,
		Text:    composed.Body,
	}
	if len(composed.Headers) > 0 {
		req.Headers = make(map[string]string, len(composed.Headers))
		for k, v := range composed.Headers {
			if k == "Mime-Version" || strings.HasPrefix(k, "Content-") {
				continue
			}
			req.Headers[k] = v
		}
	}
	if c.config.Format == markdown.FormatMarkdown {
		html, err := markdown.ToHTML(composed.Body)
		if err != nil {
			return nil, err
		}
		req.Html = html
	}
	return req, nil
}

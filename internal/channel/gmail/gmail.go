// Package gmail delivers email notifications through the Gmail API.
//
// Recipients look like gmail://ops@example.com. The channel authenticates
// with an OAuth2 refresh token and sends as the account that granted it.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/shaharia-lab/angelia/internal/build"
	"github.com/shaharia-lab/angelia/internal/channel"
	"github.com/shaharia-lab/angelia/internal/channel/mailto"
	"github.com/shaharia-lab/angelia/internal/channel/markdown"
)

// Scheme is the recipient scheme served by this channel.
const Scheme = "gmail"

const (
	defaultTimeout = 30 * time.Second
	// sendAs is the Gmail user ID meaning "the authenticated account".
	sendAs = "me"
)

// Config holds the resolved Gmail settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// From overrides the sender header; Gmail uses the account address when empty.
	From     string
	Endpoint string
	Format   string
	Timeout  time.Duration
	Cooldown time.Duration
}

// ParseConfig applies defaults to cfg and validates it.
func ParseConfig(cfg channel.Config) (Config, error) {
	c := Config{
		From:     cfg.String("from", ""),
		Endpoint: cfg.String("endpoint", ""),
	}
	var err error
	for _, req := range []struct {
		key string
		dst *string
	}{
		{"client_id", &c.ClientID},
		{"client_secret", &c.ClientSecret},
		{"refresh_token", &c.RefreshToken},
	} {
		if *req.dst, err = cfg.RequiredString(req.key); err != nil {
			return Config{}, err
		}
	}
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

// Channel delivers email through the Gmail API.
type Channel struct {
	config  Config
	service *gmail.Service
	guard   *channel.Guard
}

// New is the channel.Factory for the gmail scheme. No request is made until
// the first Send.
func New(cfg channel.Config) (channel.Channel, error) {
	c, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}

	base := &http.Client{
		Timeout:   c.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	oauthCfg := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	client := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: c.RefreshToken})
	client.Timeout = c.Timeout

	svc, err := newService(ctx, c, option.WithHTTPClient(client))
	if err != nil {
		return nil, &channel.ConfigError{Key: "endpoint", Err: fmt.Errorf("%w: %w", channel.ErrInvalidValue, err)}
	}
	return newChannel(c, svc), nil
}

func newService(ctx context.Context, c Config, opts ...option.ClientOption) (*gmail.Service, error) {
	opts = append(opts, option.WithUserAgent(build.UserAgent()))
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	return gmail.NewService(ctx, opts...)
}

func newChannel(c Config, svc *gmail.Service, opts ...channel.GuardOption) *Channel {
	return &Channel{
		config:  c,
		service: svc,
		guard:   channel.NewGuard(Scheme, c.Cooldown, opts...),
	}
}

// Register adds the Gmail channel to r.
func Register(r *channel.Registry) error {
	return r.Register(Scheme, New)
}

// Name returns the provider identifier.
func (c *Channel) Name() string { return Scheme }

// Send delivers n through users.messages.send.
func (c *Channel) Send(ctx context.Context, n channel.Notification) error {
	raw, err := c.raw(n)
	if err != nil {
		return &channel.TransportError{Channel: Scheme, Err: err}
	}
	return c.guard.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
		_, err := c.service.Users.Messages.Send(sendAs, &gmail.Message{Raw: raw}).Context(ctx).Do()
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				return fmt.Errorf("gmail api error %d: %s", apiErr.Code, apiErr.Message)
			}
			return err
		}
		return nil
	})
}

// raw renders n as a base64url encoded RFC 5322 message.
func (c *Channel) raw(n channel.Notification) (string, error) {
	msg, err := mailto.BuildMessage(n, c.config.From, c.config.Format)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	// go-mail never writes Bcc; Gmail reads it from the raw message, delivers
	// to those addresses and strips the header.
	if bcc := msg.GetBccString(); len(bcc) > 0 {
		buf.WriteString("Bcc: " + strings.Join(bcc, ", ") + "\r\n")
	}
	if _, err := msg.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("encoding message: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// Package mailto delivers notifications over SMTP using the go-mail library.
//
// Recipients look like mailto://ops@example.com. The message body may be a
// complete RFC 5322 message produced by a template; see channel.ComposeMail
// for how its headers combine with the subject and recipient arguments.
package mailto

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/shaharia-lab/angelia/internal/channel"
	"github.com/shaharia-lab/angelia/internal/channel/markdown"
)

// Scheme is the recipient scheme served by this channel.
const Scheme = "mailto"

const defaultTimeout = 30 * time.Second

// Config holds the resolved SMTP settings.
type Config struct {
	Server   string
	Port     int
	Domain   string
	Username string
	Password string
	From     string
	// TLS is one of "none", "opportunistic" or "mandatory".
	TLS     string
	SSLMode string
	// Format is "text" or "markdown"; markdown adds an HTML alternative part.
	Format   string
	Timeout  time.Duration
	Cooldown time.Duration
}

// ParseConfig applies defaults to cfg and validates it.
func ParseConfig(cfg channel.Config) (Config, error) {
	c := Config{
		Server:   cfg.String("server", "localhost"),
		Domain:   cfg.String("domain", "localhost.localdomain"),
		Username: cfg.String("username", ""),
		Password: cfg.String("password", ""),
		From:     cfg.String("from", ""),
		SSLMode:  cfg.String("sslmode", ""),
	}
	var err error
	if c.Port, err = cfg.Int("port", 25); err != nil {
		return Config{}, err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return Config{}, channel.InvalidValue("port", c.Port)
	}
	if c.TLS, err = cfg.OneOf("tls", "none", "none", "opportunistic", "mandatory"); err != nil {
		return Config{}, err
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

// sender is the part of *mail.Client used by the channel.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Channel delivers notifications through an SMTP relay.
type Channel struct {
	config Config
	client sender
	guard  *channel.Guard
}

// New is the channel.Factory for the mailto scheme.
func New(cfg channel.Config) (channel.Channel, error) {
	c, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := newClient(c)
	if err != nil {
		return nil, &channel.ConfigError{Key: "server", Err: fmt.Errorf("%w: %w", channel.ErrInvalidValue, err)}
	}
	return newChannel(c, client), nil
}

func newChannel(c Config, client sender, opts ...channel.GuardOption) *Channel {
	return &Channel{
		config: c,
		client: client,
		guard:  channel.NewGuard(Scheme, c.Cooldown, opts...),
	}
}

// Register adds the mailto channel to r.
func Register(r *channel.Registry) error {
	return r.Register(Scheme, New)
}

// Name returns the provider identifier.
func (c *Channel) Name() string { return Scheme }

// Send delivers n using the configured SMTP server.
func (c *Channel) Send(ctx context.Context, n channel.Notification) error {
	msg, err := BuildMessage(n, c.config.From, c.config.Format)
	if err != nil {
		// A message that cannot be built never reaches the server, so the
		// guard is not involved.
		return &channel.TransportError{Channel: Scheme, Err: err}
	}
	return c.guard.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
		return c.client.DialAndSendWithContext(ctx, msg)
	})
}

// BuildMessage composes n into a go-mail message. Headers of a structured
// body are carried over, its Cc and Bcc become recipients, and from is used
// when the body names no sender. With the
// markdown format the body is also attached as rendered HTML.
func BuildMessage(n channel.Notification, from, format string) (*mail.Msg, error) {
	composed := channel.ComposeMail(n, from)

	m := mail.NewMsg()
	if composed.From != "" {
		if err := m.From(composed.From); err != nil {
			return nil, fmt.Errorf("invalid from address: %w", err)
		}
	}
	if len(composed.To) == 0 {
		return nil, fmt.Errorf("message has no recipient")
	}
	if err := m.To(composed.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", strings.Join(composed.To, ","), err)
	}
	if len(composed.Cc) > 0 {
		if err := m.Cc(composed.Cc...); err != nil {
			return nil, fmt.Errorf("invalid cc %q: %w", strings.Join(composed.Cc, ","), err)
		}
	}
	// go-mail keeps Bcc in the envelope and never writes the header.
	if len(composed.Bcc) > 0 {
		if err := m.Bcc(composed.Bcc...); err != nil {
			return nil, fmt.Errorf("invalid bcc: %w", err)
		}
	}
	m.Subject(composed.Subject)
	if composed.MessageID != "" {
		m.SetMessageIDWithValue(composed.MessageID)
	}
	if !composed.Date.IsZero() {
		m.SetDateWithValue(composed.Date)
	}
	for k, v := range composed.Headers {
		if managedHeader(k) {
			continue
		}
		m.SetGenHeader(mail.Header(k), v)
	}
	m.SetBodyString(mail.TypeTextPlain, composed.Body)
	if format == markdown.FormatMarkdown {
		html, err := markdown.ToHTML(composed.Body)
		if err != nil {
			return nil, err
		}
		m.AddAlternativeString(mail.TypeTextHTML, html)
	}
	return m, nil
}

// managedHeader reports whether go-mail derives the header from the body
// parts itself.
func managedHeader(k string) bool {
	k = strings.ToLower(k)
	return k == "mime-version" || strings.HasPrefix(k, "content-")
}

func newClient(c Config) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(c.Port),
		mail.WithHELO(c.Domain),
		mail.WithTimeout(c.Timeout),
		mail.WithTLSPolicy(tlsPolicy(c.TLS)),
	}
	// Authenticate only when both credentials are present.
	if c.Username != "" && c.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.Username),
			mail.WithPassword(c.Password),
		)
	}
	if strings.EqualFold(c.SSLMode, "none") {
		//nolint:gosec // explicitly requested by the operator
		opts = append(opts, mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true, ServerName: c.Server}))
	}
	return mail.NewClient(c.Server, opts...)
}

// tlsPolicy converts the tls setting to a go-mail TLSPolicy.
func tlsPolicy(s string) mail.TLSPolicy {
	switch s {
	case "mandatory":
		return mail.TLSMandatory
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}

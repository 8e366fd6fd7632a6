// Package ovhsoap sends SMS messages through the legacy OVH SOAPI
// telephonySmsUserSend call. New deployments should prefer the ovh (REST)
// channel; this one is kept for accounts that only have SOAPI credentials.
//
// Recipients look like ovhsoap://33612345678.
package ovhsoap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shaharia-lab/angelia/internal/build"
	"github.com/shaharia-lab/angelia/internal/channel"
)

// Scheme is the recipient scheme served by this channel.
const Scheme = "ovhsoap"

// DefaultEndpoint is the SOAPI RPC endpoint.
const DefaultEndpoint = "https://www.ovh.com/soapi/soapi-re-1.63.cgi"

const (
	soapNamespace  = "http://soapi.ovh.com/manager"
	defaultTimeout = 30 * time.Second
	maxFaultBody   = 64 << 10
)

// Config holds the resolved SOAPI settings.
type Config struct {
	Endpoint   string
	Login      string
	Password   string
	Account    string
	NumberFrom string
	Validity   int
	Class      int
	Deferred   int
	Priority   int
	Coding     int
	Tag        string
	NoStop     bool
	Timeout    time.Duration
	Cooldown   time.Duration
}

// ParseConfig applies defaults to cfg and validates it.
func ParseConfig(cfg channel.Config) (Config, error) {
	c := Config{
		Endpoint: cfg.String("endpoint", DefaultEndpoint),
		Tag:      cfg.String("tag", ""),
	}

	var err error
	for _, req := range []struct {
		key string
		dst *string
	}{
		{"login", &c.Login},
		{"password", &c.Password},
		{"smsaccount", &c.Account},
		{"numberfrom", &c.NumberFrom},
	} {
		if *req.dst, err = cfg.RequiredString(req.key); err != nil {
			return Config{}, err
		}
	}

	for _, opt := range []struct {
		key      string
		def      int
		min, max int
		dst      *int
	}{
		{"smsvalidity", 10, 1, 2880, &c.Validity},
		{"smsclass", 1, 0, 3, &c.Class},
		{"smsdeferred", 0, 0, 525600, &c.Deferred},
		{"smspriority", 3, 0, 3, &c.Priority},
		{"smscoding", 1, 1, 2, &c.Coding},
	} {
		v, err := cfg.Int(opt.key, opt.def)
		if err != nil {
			return Config{}, err
		}
		if v < opt.min || v > opt.max {
			return Config{}, channel.InvalidValue(opt.key, v)
		}
		*opt.dst = v
	}

	if c.NoStop, err = cfg.Bool("nostop", false); err != nil {
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

// Channel sends SMS through the OVH SOAPI.
type Channel struct {
	config Config
	client *http.Client
	guard  *channel.Guard
}

// New is the channel.Factory for the ovhsoap scheme.
func New(cfg channel.Config) (channel.Channel, error) {
	c, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return newChannel(c, &http.Client{
		Timeout:   c.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}), nil
}

func newChannel(c Config, client *http.Client, opts ...channel.GuardOption) *Channel {
	return &Channel{
		config: c,
		client: client,
		guard:  channel.NewGuard(Scheme, c.Cooldown, opts...),
	}
}

// Register adds the OVH SOAPI channel to r.
func Register(r *channel.Registry) error {
	return r.Register(Scheme, New)
}

// Name returns the provider identifier.
func (c *Channel) Name() string { return Scheme }

// Send calls telephonySmsUserSend for n.Recipient. The subject is ignored.
func (c *Channel) Send(ctx context.Context, n channel.Notification) error {
	payload, err := c.envelope(n)
	if err != nil {
		return &channel.TransportError{Channel: Scheme, Err: err}
	}
	return c.guard.Do(ctx, func(ctx context.Context) error {
		return c.call(ctx, payload)
	})
}

func (c *Channel) call(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapNamespace+"#telephonySmsUserSend")
	req.Header.Set("User-Agent", build.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFaultBody))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var env responseEnvelope
	if xmlErr := xml.Unmarshal(body, &env); xmlErr == nil && env.Body.Fault != nil {
		return fmt.Errorf("soap fault %s: %s", env.Body.Fault.Code, env.Body.Fault.String)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Channel) envelope(n channel.Notification) ([]byte, error) {
	env := requestEnvelope{
		SoapNS: "http://schemas.xmlsoap.org/soap/envelope/",
		XsiNS:  "http://www.w3.org/2001/XMLSchema-instance",
		XsdNS:  "http://www.w3.org/2001/XMLSchema",
		Body: requestBody{Call: smsUserSend{
			NS:          soapNamespace,
			Login:       typed("xsd:string", c.config.Login),
			Password:    typed("xsd:string", c.config.Password),
			SmsAccount:  typed("xsd:string", c.config.Account),
			NumberFrom:  typed("xsd:string", c.config.NumberFrom),
			NumberTo:    typed("xsd:string", channel.NormalizeMSISDN(n.Recipient)),
			Message:     typed("xsd:string", n.Body),
			SmsValidity: typed("xsd:int", fmt.Sprint(c.config.Validity)),
			SmsClass:    typed("xsd:int", fmt.Sprint(c.config.Class)),
			SmsDeferred: typed("xsd:int", fmt.Sprint(c.config.Deferred)),
			SmsPriority: typed("xsd:int", fmt.Sprint(c.config.Priority)),
			SmsCoding:   typed("xsd:int", fmt.Sprint(c.config.Coding)),
			Tag:         typed("xsd:string", c.config.Tag),
			NoStop:      typed("xsd:boolean", fmt.Sprint(c.config.NoStop)),
		}},
	}
	out, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding soap envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Package ovhrest sends SMS messages through the OVH SMS REST API.
//
// Recipients look like ovh://33612345678 or ovh://+33612345678; numbers are
// always submitted in international format. After a failed submission the
// channel waits out its cooldown before contacting the API again.
package ovhrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ovh/go-ovh/ovh"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shaharia-lab/angelia/internal/channel"
)

// Scheme is the recipient scheme served by this channel.
const Scheme = "ovh"

const defaultTimeout = 30 * time.Second

// Config holds the resolved OVH REST settings.
type Config struct {
	Endpoint          string
	ApplicationKey    string
	ApplicationSecret string
	ConsumerKey       string
	Account           string
	Class             string
	Coding            string
	Deferred          int
	NoStop            bool
	Priority          string
	NumberFrom        string
	SenderForResponse bool
	Tag               string
	Validity          int
	Timeout           time.Duration
	Cooldown          time.Duration
}

// ParseConfig applies defaults to cfg and validates it.
func ParseConfig(cfg channel.Config) (Config, error) {
	c := Config{
		Endpoint:   cfg.String("endpoint", ovh.OvhEU),
		NumberFrom: cfg.String("numberfrom", ""),
		Tag:        cfg.String("tag", ""),
	}

	var err error
	for _, req := range []struct {
		key string
		dst *string
	}{
		{"application_key", &c.ApplicationKey},
		{"application_secret", &c.ApplicationSecret},
		{"consumer_key", &c.ConsumerKey},
		{"smsaccount", &c.Account},
	} {
		if *req.dst, err = cfg.RequiredString(req.key); err != nil {
			return Config{}, err
		}
	}

	if c.Class, err = cfg.OneOf("smsclass", "phoneDisplay", "flash", "phoneDisplay", "sim", "toolkit"); err != nil {
		return Config{}, err
	}
	if c.Coding, err = cfg.OneOf("smscoding", "7bit", "7bit", "8bit"); err != nil {
		return Config{}, err
	}
	if c.Priority, err = cfg.OneOf("smspriority", "high", "high", "medium", "low", "veryLow"); err != nil {
		return Config{}, err
	}
	if c.Deferred, err = cfg.Int("smsdeferred", 0); err != nil {
		return Config{}, err
	}
	if c.Validity, err = cfg.Int("smsvalidity", 10); err != nil {
		return Config{}, err
	}
	if c.NoStop, err = cfg.Bool("nostop", false); err != nil {
		return Config{}, err
	}
	if c.SenderForResponse, err = cfg.Bool("sender_for_response", false); err != nil {
		return Config{}, err
	}
	if c.SenderForResponse && c.NumberFrom != "" {
		return Config{}, &channel.ConfigError{
			Key: "sender_for_response",
			Err: fmt.Errorf("%w: not compatible with numberfrom", channel.ErrInvalidValue),
		}
	}
	if c.Timeout, err = cfg.Duration("timeout", defaultTimeout); err != nil {
		return Config{}, err
	}
	if c.Cooldown, err = cfg.Duration("cooldown", channel.DefaultCooldown); err != nil {
		return Config{}, err
	}
	return c, nil
}

// jobRequest is the body of POST /sms/{serviceName}/jobs.
type jobRequest struct {
	Charset           string   `json:"charset"`
	Class             string   `json:"class"`
	Coding            string   `json:"coding"`
	DifferedPeriod    int      `json:"differedPeriod"`
	Message           string   `json:"message"`
	NoStopClause      bool     `json:"noStopClause"`
	Priority          string   `json:"priority"`
	Receivers         []string `json:"receivers"`
	Sender            string   `json:"sender,omitempty"`
	SenderForResponse bool     `json:"senderForResponse"`
	Tag               string   `json:"tag,omitempty"`
	ValidityPeriod    int      `json:"validityPeriod"`
}

// jobResponse is the subset of the API answer the channel inspects.
type jobResponse struct {
	IDs              []int64  `json:"ids"`
	InvalidReceivers []string `json:"invalidReceivers"`
}

// poster is the part of *ovh.Client used by the channel.
type poster interface {
	PostWithContext(ctx context.Context, url string, reqBody, resType interface{}) error
}

// Channel sends SMS through the OVH REST API.
type Channel struct {
	config Config
	client poster
	guard  *channel.Guard
}

// New is the channel.Factory for the ovh scheme.
func New(cfg channel.Config) (channel.Channel, error) {
	c, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := ovh.NewClient(c.Endpoint, c.ApplicationKey, c.ApplicationSecret, c.ConsumerKey)
	if err != nil {
		return nil, &channel.ConfigError{Key: "endpoint", Err: fmt.Errorf("%w: %w", channel.ErrInvalidValue, err)}
	}
	client.Timeout = c.Timeout
	client.Client = &http.Client{
		Timeout:   c.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return newChannel(c, client), nil
}

func newChannel(c Config, client poster, opts ...channel.GuardOption) *Channel {
	return &Channel{
		config: c,
		client: client,
		guard:  channel.NewGuard(Scheme, c.Cooldown, opts...),
	}
}

// Register adds the OVH REST channel to r.
func Register(r *channel.Registry) error {
	return r.Register(Scheme, New)
}

// Name returns the provider identifier.
func (c *Channel) Name() string { return Scheme }

// Send submits an SMS job for n.Recipient. The subject is not part of an SMS
// and is ignored.
func (c *Channel) Send(ctx context.Context, n channel.Notification) error {
	req := c.jobFor(n)
	return c.guard.Do(ctx, func(ctx context.Context) error {
		var res jobResponse
		if err := c.client.PostWithContext(ctx, "/sms/"+c.config.Account+"/jobs", req, &res); err != nil {
			var apiErr *ovh.APIError
			if errors.As(err, &apiErr) {
				return fmt.Errorf("ovh api error %d: %s", apiErr.Code, apiErr.Message)
			}
			return err
		}
		if len(res.InvalidReceivers) > 0 && len(res.IDs) == 0 {
			return fmt.Errorf("receiver rejected: %v", res.InvalidReceivers)
		}
		return nil
	})
}

func (c *Channel) jobFor(n channel.Notification) jobRequest {
	return jobRequest{
		Charset:           "UTF-8",
		Class:             c.config.Class,
		Coding:            c.config.Coding,
		DifferedPeriod:    c.config.Deferred,
		Message:           n.Body,
		NoStopClause:      c.config.NoStop,
		Priority:          c.config.Priority,
		Receivers:         []string{channel.NormalizeMSISDN(n.Recipient)},
		Sender:            c.config.NumberFrom,
		SenderForResponse: c.config.SenderForResponse,
		Tag:               c.config.Tag,
		ValidityPeriod:    c.config.Validity,
	}
}

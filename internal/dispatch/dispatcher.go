// Package dispatch routes a notification to the channel selected by the
// scheme of its recipient address.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/shaharia-lab/angelia/internal/channel"
)

const tracerName = "github.com/shaharia-lab/angelia/internal/dispatch"

// Dispatcher resolves recipients to channels and delivers notifications.
//
// Channel instances are built lazily on first use and cached per scheme and
// configuration fingerprint. The dispatcher holds no lock while a channel is
// sending, so slow providers never block unrelated dispatches.
type Dispatcher struct {
	registry *channel.Registry
	configs  map[string]channel.Config
	logger   *slog.Logger
	tracer   trace.Tracer
	duration metric.Float64Histogram

	mu        sync.RWMutex
	instances map[string]channel.Channel // scheme|fingerprint → instance
	group     singleflight.Group
}

// New creates a Dispatcher. The registry is sealed: registration must be
// complete before dispatching starts. configs maps a scheme to the
// configuration handed to its factory; a scheme without an entry is built
// from an empty configuration.
func New(registry *channel.Registry, configs map[string]channel.Config, logger *slog.Logger) *Dispatcher {
	registry.Seal()
	if logger == nil {
		logger = slog.Default()
	}
	own := make(map[string]channel.Config, len(configs))
	for scheme, cfg := range configs {
		own[scheme] = cfg.Clone()
	}
	duration, err := otel.Meter(tracerName).Float64Histogram("angelia.dispatch.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent dispatching a notification."),
	)
	if err != nil {
		logger.Warn("dispatch duration histogram unavailable", "error", err)
	}
	return &Dispatcher{
		registry:  registry,
		configs:   own,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		duration:  duration,
		instances: make(map[string]channel.Channel),
	}
}

// Dispatch delivers subject and body to recipientURI ("scheme://address").
// It makes a single attempt; every failure is returned as an *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, recipientURI, subject, body string) error {
	ctx, span := d.tracer.Start(ctx, "dispatch.Dispatch")
	defer span.End()

	start := time.Now()
	scheme, err := d.dispatch(ctx, span, recipientURI, subject, body)
	outcome := "sent"
	if err != nil {
		outcome = KindOf(err).String()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if d.duration != nil {
		d.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("scheme", scheme),
			attribute.String("outcome", outcome),
		))
	}
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, span trace.Span, recipientURI, subject, body string) (string, error) {
	scheme, address, err := channel.SplitRecipient(recipientURI)
	if err != nil {
		return "", &Error{Kind: KindMalformedRecipient, Err: err}
	}
	span.SetAttributes(attribute.String("angelia.scheme", scheme))

	ch, err := d.instance(scheme)
	if err != nil {
		return scheme, err
	}

	d.logger.Debug("sending notification",
		"scheme", scheme,
		"recipient", address,
		"subject", subject,
	)
	if err := ch.Send(ctx, channel.Notification{Recipient: address, Subject: subject, Body: body}); err != nil {
		if errors.Is(err, channel.ErrThrottled) {
			d.logger.Warn("notification throttled", "scheme", scheme, "error", err)
		} else {
			d.logger.Warn("notification delivery failed", "scheme", scheme, "recipient", address, "error", err)
		}
		return scheme, &Error{Kind: KindDeliveryFailed, Scheme: scheme, Err: err}
	}
	d.logger.Info("notification sent", "scheme", scheme, "recipient", address)
	return scheme, nil
}

// instance returns the cached channel for scheme, constructing it on first use.
func (d *Dispatcher) instance(scheme string) (channel.Channel, error) {
	factory, err := d.registry.Resolve(scheme)
	if err != nil {
		return nil, &Error{Kind: KindUnknownChannel, Scheme: scheme, Err: err}
	}

	cfg := d.configs[scheme]
	if cfg == nil {
		cfg = channel.Config{}
	}
	key := scheme + "|" + cfg.Fingerprint()

	d.mu.RLock()
	ch, ok := d.instances[key]
	d.mu.RUnlock()
	if ok {
		return ch, nil
	}

	v, err, _ := d.group.Do(key, func() (any, error) {
		d.mu.RLock()
		existing, ok := d.instances[key]
		d.mu.RUnlock()
		if ok {
			return existing, nil
		}

		built, err := factory(cfg)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.instances[key] = built
		d.mu.Unlock()
		d.logger.Debug("channel constructed", "scheme", scheme)
		return built, nil
	})
	if err != nil {
		d.logger.Error("channel construction failed", "scheme", scheme, "error", err)
		return nil, &Error{Kind: KindConstructionFailed, Scheme: scheme, Err: err}
	}
	return v.(channel.Channel), nil
}

// Schemes returns the schemes the dispatcher can route to.
func (d *Dispatcher) Schemes() []string {
	return d.registry.Schemes()
}

// Configured reports whether a configuration block exists for scheme.
func (d *Dispatcher) Configured(scheme string) bool {
	_, ok := d.configs[scheme]
	return ok
}

// Close releases every constructed channel that holds resources.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for key, ch := range d.instances {
		if c, ok := ch.(channel.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		delete(d.instances, key)
	}
	return errors.Join(errs...)
}

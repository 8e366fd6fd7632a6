// Package metrics exposes Prometheus counters for dispatch outcomes.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaharia-lab/angelia/internal/eventbus"
)

// Collector counts dispatch outcomes by scheme and status.
type Collector struct {
	dispatches *prometheus.CounterVec
}

// New creates a Collector and registers it with reg. A collector already
// registered under the same name is reused.
func New(reg prometheus.Registerer) (*Collector, error) {
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "angelia",
		Name:      "dispatch_total",
		Help:      "Notification dispatch attempts by recipient scheme and outcome.",
	}, []string{"scheme", "status"})

	if err := reg.Register(dispatches); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("registering dispatch counter: %w", err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("registering dispatch counter: %w", err)
		}
		dispatches = existing
	}
	return &Collector{dispatches: dispatches}, nil
}

// Subscribe registers the collector on bus.
func (c *Collector) Subscribe(bus eventbus.EventBus) {
	bus.Subscribe(c.Handle)
}

// Handle increments the counter for notification events.
func (c *Collector) Handle(e eventbus.Event) {
	if e.Type != eventbus.TypeNotificationDelivered && e.Type != eventbus.TypeNotificationFailed {
		return
	}
	scheme := e.Payload[eventbus.KeyScheme]
	if scheme == "" {
		scheme = "none"
	}
	status := e.Payload[eventbus.KeyStatus]
	if status == "" {
		status = "unknown"
	}
	c.dispatches.WithLabelValues(scheme, status).Inc()
}

// Package channel defines the delivery contract shared by every notification
// transport together with the registry that maps recipient schemes to channel
// factories and the failure guard that keeps a channel from hammering a
// remote API that is currently failing.
package channel

import "context"

// Notification is a single outbound message. It exists only for the duration
// of one Send call.
type Notification struct {
	Recipient string
	Subject   string
	Body      string
}

// Channel is the interface for notification delivery backends.
//
// Implementations must be safe for concurrent use. Every failure returned by
// Send is either a *ThrottledError or a *TransportError.
type Channel interface {
	// Name returns the scheme the channel was registered under (e.g. "mailto").
	Name() string
	// Send delivers n using the channel's transport.
	Send(ctx context.Context, n Notification) error
}

// Closer is implemented by channels holding resources that must be released
// at shutdown.
type Closer interface {
	Close() error
}

// Factory builds a configured Channel. It validates required keys and applies
// defaults for optional ones, returning a *ConfigError on bad configuration.
type Factory func(cfg Config) (Channel, error)

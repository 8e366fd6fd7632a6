package dispatch

import (
	"errors"
	"fmt"
)

// Kind classifies a dispatch failure.
type Kind int

const (
	// KindMalformedRecipient means the recipient has no usable scheme://address form.
	KindMalformedRecipient Kind = iota + 1
	// KindUnknownChannel means no channel is registered for the scheme.
	KindUnknownChannel
	// KindConstructionFailed means the channel rejected its configuration.
	KindConstructionFailed
	// KindDeliveryFailed means the channel was throttled or its transport failed.
	KindDeliveryFailed
)

func (k Kind) String() string {
	switch k {
	case KindMalformedRecipient:
		return "malformed_recipient"
	case KindUnknownChannel:
		return "unknown_channel"
	case KindConstructionFailed:
		return "channel_construction_failed"
	case KindDeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

// Error is returned by Dispatch. Err carries the originating cause.
type Error struct {
	Kind   Kind
	Scheme string
	Err    error
}

func (e *Error) Error() string {
	if e.Scheme == "" {
		return fmt.Sprintf("dispatch: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("dispatch %s: %s: %v", e.Scheme, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or zero when err is not a dispatch error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

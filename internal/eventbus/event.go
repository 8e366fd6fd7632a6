package eventbus

import "time"

// Event types published by the notification service.
const (
	TypeNotificationDelivered = "notification.delivered"
	TypeNotificationFailed    = "notification.failed"
)

// Payload keys used by notification events.
const (
	KeyDispatchID = "dispatch_id"
	KeyRecipient  = "recipient"
	KeyScheme     = "scheme"
	KeySubject    = "subject"
	KeyStatus     = "status"
	KeyErrorKind  = "error_kind"
	KeyError      = "error"
)

// Event represents an application event published to the bus.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Listener is a function that handles an event.
type Listener func(Event)

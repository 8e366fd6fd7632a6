package service

// EventPublisher emits delivery outcomes (eventbus.TypeNotificationDelivered,
// eventbus.TypeNotificationFailed). eventbus.EventBus satisfies it.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

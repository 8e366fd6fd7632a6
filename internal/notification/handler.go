// Package notification turns dispatch outcome events into persisted
// delivery history.
package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaharia-lab/angelia/internal/eventbus"
	"github.com/shaharia-lab/angelia/internal/storage"
)

const storeTimeout = 5 * time.Second

// HistoryHandler receives notification events from the bus and records each
// one in the notification log.
type HistoryHandler struct {
	store  storage.NotificationStore
	logger *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(store storage.NotificationStore, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{store: store, logger: logger}
}

// Subscribe registers the handler on bus.
func (h *HistoryHandler) Subscribe(bus eventbus.EventBus) {
	bus.Subscribe(h.Handle)
}

// Handle persists notification.delivered and notification.failed events.
// Other event types are ignored.
func (h *HistoryHandler) Handle(e eventbus.Event) {
	if e.Type != eventbus.TypeNotificationDelivered && e.Type != eventbus.TypeNotificationFailed {
		return
	}

	entry := storage.NotificationLogEntry{
		DispatchID: e.Payload[eventbus.KeyDispatchID],
		Recipient:  e.Payload[eventbus.KeyRecipient],
		Scheme:     e.Payload[eventbus.KeyScheme],
		Subject:    e.Payload[eventbus.KeySubject],
		Status:     e.Payload[eventbus.KeyStatus],
		ErrorKind:  e.Payload[eventbus.KeyErrorKind],
		ErrorMsg:   e.Payload[eventbus.KeyError],
		CreatedAt:  e.Timestamp,
	}
	if entry.Status == "" {
		entry.Status = storage.StatusSent
		if e.Type == eventbus.TypeNotificationFailed {
			entry.Status = storage.StatusFailed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.store.LogNotification(ctx, entry); err != nil {
		h.logger.Error("failed to record notification history",
			"dispatch_id", entry.DispatchID,
			"error", err,
		)
	}
}

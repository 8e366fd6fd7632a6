package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaharia-lab/angelia/internal/channel"
	"github.com/shaharia-lab/angelia/internal/dispatch"
	"github.com/shaharia-lab/angelia/internal/eventbus"
	"github.com/shaharia-lab/angelia/internal/storage"
)

// MaxBodyBytes bounds the size of a notification body.
const MaxBodyBytes = 1 << 20

// Dispatcher delivers a notification to a scheme://address recipient.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipientURI, subject, body string) error
	Schemes() []string
	Configured(scheme string) bool
}

// SendRequest is a single notification to deliver.
type SendRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// SendResult describes the outcome of a Send call.
type SendResult struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Scheme    string    `json:"scheme,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChannelInfo describes a registered channel.
type ChannelInfo struct {
	Scheme     string `json:"scheme"`
	Configured bool   `json:"configured"`
}

// NotificationService sends notifications and exposes their delivery history.
type NotificationService interface {
	// Send dispatches req once. Delivery failures return a non-nil result
	// alongside the dispatch error so callers can report the dispatch ID.
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
	// ListLog returns the most recent notification log entries.
	ListLog(ctx context.Context, filter storage.NotificationFilter) ([]storage.NotificationLogEntry, error)
	// Channels lists every registered channel.
	Channels() []ChannelInfo
	// Channel returns a single registered channel or a NotFoundError.
	Channel(scheme string) (*ChannelInfo, error)
}

// notificationServiceImpl implements NotificationService.
type notificationServiceImpl struct {
	dispatcher Dispatcher
	store      storage.NotificationStore
	publisher  EventPublisher
	now        func() time.Time
}

// NewNotificationService creates a new NotificationService. publisher may be nil.
func NewNotificationService(
	dispatcher Dispatcher,
	store storage.NotificationStore,
	publisher EventPublisher,
) NotificationService {
	return &notificationServiceImpl{
		dispatcher: dispatcher,
		store:      store,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Send validates req, dispatches it and publishes the outcome.
func (s *notificationServiceImpl) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		return nil, &ValidationError{Field: "recipient", Message: "recipient is required"}
	}
	if len(req.Body) > MaxBodyBytes {
		return nil, &ValidationError{Field: "body", Message: fmt.Sprintf("body exceeds %d bytes", MaxBodyBytes)}
	}

	result := &SendResult{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Status:    storage.StatusSent,
		CreatedAt: s.now().UTC(),
	}
	if scheme, _, err := channel.SplitRecipient(recipient); err == nil {
		result.Scheme = scheme
	}

	err := s.dispatcher.Dispatch(ctx, recipient, req.Subject, req.Body)

	payload := map[string]string{
		eventbus.KeyDispatchID: result.ID,
		eventbus.KeyRecipient:  result.Recipient,
		eventbus.KeyScheme:     result.Scheme,
		eventbus.KeySubject:    req.Subject,
	}
	eventType := eventbus.TypeNotificationDelivered
	if err != nil {
		eventType = eventbus.TypeNotificationFailed
		result.Status = statusOf(err)
		result.Error = err.Error()
		payload[eventbus.KeyErrorKind] = dispatch.KindOf(err).String()
		payload[eventbus.KeyError] = result.Error
	}
	payload[eventbus.KeyStatus] = result.Status
	if s.publisher != nil {
		s.publisher.Publish(eventType, payload)
	}

	return result, err
}

func statusOf(err error) string {
	if errors.Is(err, channel.ErrThrottled) {
		return storage.StatusThrottled
	}
	return storage.StatusFailed
}

// ListLog returns the most recent notification log entries.
func (s *notificationServiceImpl) ListLog(ctx context.Context, filter storage.NotificationFilter) ([]storage.NotificationLogEntry, error) {
	if filter.Limit < 0 {
		return nil, &ValidationError{Field: "limit", Message: "limit must not be negative"}
	}
	switch filter.Status {
	case "", storage.StatusSent, storage.StatusFailed, storage.StatusThrottled:
	default:
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", filter.Status)}
	}
	filter.Scheme = strings.ToLower(filter.Scheme)
	return s.store.ListNotifications(ctx, filter)
}

// Channels lists every registered channel in scheme order.
func (s *notificationServiceImpl) Channels() []ChannelInfo {
	schemes := s.dispatcher.Schemes()
	out := make([]ChannelInfo, 0, len(schemes))
	for _, scheme := range schemes {
		out = append(out, ChannelInfo{Scheme: scheme, Configured: s.dispatcher.Configured(scheme)})
	}
	return out
}

// Channel returns the channel registered for scheme.
func (s *notificationServiceImpl) Channel(scheme string) (*ChannelInfo, error) {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	for _, c := range s.Channels() {
		if c.Scheme == scheme {
			return &c, nil
		}
	}
	return nil, &NotFoundError{Resource: "channel", ID: scheme}
}

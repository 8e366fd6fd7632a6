package storage

import (
	"context"
	"time"
)

// Delivery outcomes recorded in the notification log.
const (
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusThrottled = "throttled"
)

// NotificationLogEntry records a single dispatch attempt.
type NotificationLogEntry struct {
	ID         int64     `json:"id"`
	DispatchID string    `json:"dispatch_id"`
	Recipient  string    `json:"recipient"`
	Scheme     string    `json:"scheme"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	ErrorMsg   string    `json:"error_msg,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationFilter narrows ListNotifications. Zero values match everything.
type NotificationFilter struct {
	Limit  int
	Scheme string
	Status string
}

// NotificationStore defines the interface for persisting notification delivery logs.
type NotificationStore interface {
	// LogNotification records a dispatch attempt.
	LogNotification(ctx context.Context, entry NotificationLogEntry) error
	// ListNotifications returns the most recent entries matching filter, newest first.
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]NotificationLogEntry, error)
	// PruneNotifications deletes entries created before the given time and
	// returns how many were removed.
	PruneNotifications(ctx context.Context, before time.Time) (int64, error)
}

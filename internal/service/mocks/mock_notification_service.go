package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/angelia/internal/service"
	"github.com/shaharia-lab/angelia/internal/storage"
)

// MockNotificationService is a mock implementation of service.NotificationService.
type MockNotificationService struct {
	mock.Mock
}

//nolint:revive
func (m *MockNotificationService) Send(ctx context.Context, req service.SendRequest) (*service.SendResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendResult), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) ListLog(ctx context.Context, filter storage.NotificationFilter) ([]storage.NotificationLogEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.NotificationLogEntry), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) Channels() []service.ChannelInfo {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]service.ChannelInfo)
}

//nolint:revive
func (m *MockNotificationService) Channel(scheme string) (*service.ChannelInfo, error) {
	args := m.Called(scheme)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChannelInfo), args.Error(1)
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/angelia/internal/channel"
)

// MockChannel is a mock implementation of channel.Channel.
type MockChannel struct {
	mock.Mock
}

//nolint:revive
func (m *MockChannel) Name() string {
	args := m.Called()
	return args.String(0)
}

//nolint:revive
func (m *MockChannel) Send(ctx context.Context, n channel.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockFactory records the configurations a channel.Factory was called with.
type MockFactory struct {
	mock.Mock
}

// Factory returns a channel.Factory bound to this mock.
func (m *MockFactory) Factory() channel.Factory {
	return func(cfg channel.Config) (channel.Channel, error) {
		args := m.MethodCalled("Factory", cfg)
		if args.Get(0) == nil {
			return nil, args.Error(1)
		}
		return args.Get(0).(channel.Channel), args.Error(1)
	}
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDispatcher is a mock implementation of service.Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

//nolint:revive
func (m *MockDispatcher) Dispatch(ctx context.Context, recipientURI, subject, body string) error {
	args := m.Called(ctx, recipientURI, subject, body)
	return args.Error(0)
}

//nolint:revive
func (m *MockDispatcher) Schemes() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

//nolint:revive
func (m *MockDispatcher) Configured(scheme string) bool {
	args := m.Called(scheme)
	return args.Bool(0)
}

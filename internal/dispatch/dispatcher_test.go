package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/angelia/internal/channel"
	"github.com/shaharia-lab/angelia/internal/channel/mocks"
	"github.com/shaharia-lab/angelia/internal/dispatch"
)

func TestDispatch_MalformedRecipient(t *testing.T) {
	factory := &mocks.MockFactory{}
	r := channel.NewRegistry()
	require.NoError(t, r.Register("mailto", factory.Factory()))
	d := dispatch.New(r, nil, nil)

	for _, uri := range []string{"", "ops@example.com", "://ops@example.com", "mailto://"} {
		err := d.Dispatch(context.Background(), uri, "s", "b")
		require.Error(t, err, uri)
		assert.Equal(t, dispatch.KindMalformedRecipient, dispatch.KindOf(err), uri)
	}
	factory.AssertNotCalled(t, "Factory", mock.Anything)
	factory.AssertExpectations(t)
}

func TestDispatch_UnknownSchemeConstructsNothing(t *testing.T) {
	factory := &mocks.MockFactory{}
	r := channel.NewRegistry()
	require.NoError(t, r.Register("mailto", factory.Factory()))
	d := dispatch.New(r, nil, nil)

	err := d.Dispatch(context.Background(), "sms://+33600000000", "s", "b")
	require.Error(t, err)
	assert.Equal(t, dispatch.KindUnknownChannel, dispatch.KindOf(err))
	assert.ErrorIs(t, err, channel.ErrUnknownScheme)

	var de *dispatch.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "sms", de.Scheme)
	assert.Empty(t, factory.Calls)
}

func TestDispatch_DeliversAddressWithoutScheme(t *testing.T) {
	ch := &mocks.MockChannel{}
	ch.On("Send", mock.Anything, channel.Notification{
		Recipient: "ops@example.com",
		Subject:   "disk full",
		Body:      "/var is at 97%",
	}).Return(nil).Once()

	factory := &mocks.MockFactory{}
	factory.On("Factory", channel.Config{"server": "smtp.example.com"}).Return(ch, nil).Once()

	r := channel.NewRegistry()
	require.NoError(t, r.Register("mailto", factory.Factory()))
	d := dispatch.New(r, map[string]channel.Config{"mailto": {"server": "smtp.example.com"}}, nil)

	require.NoError(t, d.Dispatch(context.Background(), "MAILTO://ops@example.com", "disk full", "/var is at 97%"))
	ch.AssertExpectations(t)
	factory.AssertExpectations(t)
}

func TestDispatch_ConstructionFailure(t *testing.T) {
	factory := &mocks.MockFactory{}
	cause := &channel.ConfigError{Key: "smsaccount", Err: channel.ErrMissingRequiredKey}
	factory.On("Factory", channel.Config{}).Return(nil, cause)

	r := channel.NewRegistry()
	require.NoError(t, r.Register("ovh", factory.Factory()))
	d := dispatch.New(r, nil, nil)

	err := d.Dispatch(context.Background(), "ovh://+33600000000", "", "hello")
	require.Error(t, err)
	assert.Equal(t, dispatch.KindConstructionFailed, dispatch.KindOf(err))
	assert.ErrorIs(t, err, channel.ErrMissingRequiredKey)

	// A failed construction is not cached; the next dispatch tries again.
	_ = d.Dispatch(context.Background(), "ovh://+33600000000", "", "hello")
	factory.AssertNumberOfCalls(t, "Factory", 2)
}

func TestDispatch_DeliveryFailureKeepsCause(t *testing.T) {
	transportErr := &channel.TransportError{Channel: "mailto", Err: errors.New("connection refused")}
	ch := &mocks.MockChannel{}
	ch.On("Send", mock.Anything, mock.Anything).Return(transportErr)

	factory := &mocks.MockFactory{}
	factory.On("Factory", mock.Anything).Return(ch, nil)

	r := channel.NewRegistry()
	require.NoError(t, r.Register("mailto", factory.Factory()))
	d := dispatch.New(r, nil, nil)

	err := d.Dispatch(context.Background(), "mailto://ops@example.com", "s", "b")
	require.Error(t, err)
	assert.Equal(t, dispatch.KindDeliveryFailed, dispatch.KindOf(err))
	assert.ErrorIs(t, err, channel.ErrTransportFailure)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDispatch_InstanceIsReused(t *testing.T) {
	ch := &mocks.MockChannel{}
	ch.On("Send", mock.Anything, mock.Anything).Return(nil)

	factory := &mocks.MockFactory{}
	factory.On("Factory", mock.Anything).Return(ch, nil).Once()

	r := channel.NewRegistry()
	require.NoError(t, r.Register("mailto", factory.Factory()))
	d := dispatch.New(r, nil, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Dispatch(context.Background(), "mailto://ops@example.com", "s", "b"))
	}
	factory.AssertNumberOfCalls(t, "Factory", 1)
	ch.AssertNumberOfCalls(t, "Send", 3)
}

func TestDispatch_ConcurrentFirstUseConstructsOnce(t *testing.T) {
	var constructed atomic.Int32
	r := channel.NewRegistry()
	require.NoError(t, r.Register("test", func(channel.Config) (channel.Channel, error) {
		constructed.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &countingChannel{}, nil
	}))
	d := dispatch.New(r, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Dispatch(context.Background(), "test://x", "s", "b"))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), constructed.Load())
}

func TestDispatch_ConcurrentFailuresReachTransportOnce(t *testing.T) {
	ch := &guardedChannel{guard: channel.NewGuard("test", 0), err: errors.New("smtp down")}
	r := channel.NewRegistry()
	require.NoError(t, r.Register("test", func(channel.Config) (channel.Channel, error) { return ch, nil }))
	d := dispatch.New(r, nil, nil)

	const n = 50
	var (
		wg        sync.WaitGroup
		throttled atomic.Int32
		transport atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.Dispatch(context.Background(), "test://x", "s", "b")
			switch {
			case errors.Is(err, channel.ErrThrottled):
				throttled.Add(1)
			case errors.Is(err, channel.ErrTransportFailure):
				transport.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ch.calls.Load())
	assert.Equal(t, int32(1), transport.Load())
	assert.Equal(t, int32(n-1), throttled.Load())
}

func TestDispatch_SchemesAndConfigured(t *testing.T) {
	r := channel.NewRegistry()
	require.NoError(t, r.Register("mailto", func(channel.Config) (channel.Channel, error) { return &countingChannel{}, nil }))
	require.NoError(t, r.Register("ovh", func(channel.Config) (channel.Channel, error) { return &countingChannel{}, nil }))

	configs := map[string]channel.Config{"mailto": {"server": "a"}}
	d := dispatch.New(r, configs, nil)
	configs["ovh"] = channel.Config{}

	assert.Equal(t, []string{"mailto", "ovh"}, d.Schemes())
	assert.True(t, d.Configured("mailto"))
	assert.False(t, d.Configured("ovh"))
}

func TestNew_SealsRegistry(t *testing.T) {
	r := channel.NewRegistry()
	dispatch.New(r, nil, nil)
	err := r.Register("late", func(channel.Config) (channel.Channel, error) { return &countingChannel{}, nil })
	assert.ErrorIs(t, err, channel.ErrRegistrySealed)
}

func TestClose_ReleasesClosers(t *testing.T) {
	closable := &countingChannel{}
	r := channel.NewRegistry()
	require.NoError(t, r.Register("test", func(channel.Config) (channel.Channel, error) { return closable, nil }))
	d := dispatch.New(r, nil, nil)

	require.NoError(t, d.Dispatch(context.Background(), "test://x", "s", "b"))
	require.NoError(t, d.Close())
	assert.True(t, closable.closed.Load())
}

func TestError_Message(t *testing.T) {
	err := &dispatch.Error{Kind: dispatch.KindUnknownChannel, Scheme: "sms", Err: channel.ErrUnknownScheme}
	assert.Contains(t, err.Error(), "sms")
	assert.Contains(t, err.Error(), "unknown_channel")
	assert.Equal(t, dispatch.Kind(0), dispatch.KindOf(errors.New("other")))
}

type countingChannel struct {
	sent   atomic.Int32
	closed atomic.Bool
}

func (c *countingChannel) Name() string { return "test" }

func (c *countingChannel) Send(context.Context, channel.Notification) error {
	c.sent.Add(1)
	return nil
}

func (c *countingChannel) Close() error {
	c.closed.Store(true)
	return nil
}

type guardedChannel struct {
	guard *channel.Guard
	err   error
	calls atomic.Int32
}

func (c *guardedChannel) Name() string { return "test" }

func (c *guardedChannel) Send(ctx context.Context, _ channel.Notification) error {
	return c.guard.Do(ctx, func(context.Context) error {
		c.calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return c.err
	})
}

package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spoolbridge/spoolbridge-go/pkg/connection"
	"github.com/spoolbridge/spoolbridge-go/pkg/eventlog"
	"github.com/spoolbridge/spoolbridge-go/pkg/spool"
)

// fakeToken is an already-resolved paho token.
type fakeToken struct {
	err  error
	done chan struct{}
}

func resolvedToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

// fakeMessage carries a report payload into the receive loop.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// fakeBroker scripts connection attempts and hands out fake MQTT clients.
type fakeBroker struct {
	mu           sync.Mutex
	connectErrs  []error // per attempt; attempts beyond the slice succeed
	subscribeErr error
	attempts     int
	subscribed   chan *fakeMQTTClient
}

func newFakeBroker(connectErrs ...error) *fakeBroker {
	return &fakeBroker{
		connectErrs: connectErrs,
		subscribed:  make(chan *fakeMQTTClient, 8),
	}
}

func (b *fakeBroker) factory(opts *mqtt.ClientOptions) mqtt.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &fakeMQTTClient{broker: b, opts: opts, subscribeErr: b.subscribeErr}
	if b.attempts < len(b.connectErrs) {
		c.connectErr = b.connectErrs[b.attempts]
	}
	b.attempts++
	return c
}

func (b *fakeBroker) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// fakeMQTTClient is one scripted broker connection.
type fakeMQTTClient struct {
	broker       *fakeBroker
	opts         *mqtt.ClientOptions
	connectErr   error
	subscribeErr error

	mu        sync.Mutex
	handler   mqtt.MessageHandler
	connected bool
}

func (c *fakeMQTTClient) Connect() mqtt.Token {
	if c.connectErr != nil {
		return resolvedToken(c.connectErr)
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return resolvedToken(nil)
}

func (c *fakeMQTTClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	if c.subscribeErr != nil {
		return resolvedToken(c.subscribeErr)
	}
	c.mu.Lock()
	c.handler = cb
	c.mu.Unlock()
	c.broker.subscribed <- c
	return resolvedToken(nil)
}

func (c *fakeMQTTClient) Disconnect(uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// deliver pushes one message through the registered subscription handler.
func (c *fakeMQTTClient) deliver(topic string, payload []byte) {
	c.mu.Lock()
	cb := c.handler
	c.mu.Unlock()
	if cb != nil {
		cb(c, &fakeMessage{topic: topic, payload: payload})
	}
}

// lose fires the connection-lost handler the client registered.
func (c *fakeMQTTClient) lose(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	if c.opts.OnConnectionLost != nil {
		c.opts.OnConnectionLost(c, err)
	}
}

func (c *fakeMQTTClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeMQTTClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeMQTTClient) Publish(string, byte, bool, interface{}) mqtt.Token {
	return resolvedToken(nil)
}

func (c *fakeMQTTClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return resolvedToken(nil)
}

func (c *fakeMQTTClient) Unsubscribe(...string) mqtt.Token { return resolvedToken(nil) }

func (c *fakeMQTTClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *fakeMQTTClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// recordingEvents captures the event trace for assertions.
type recordingEvents struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (r *recordingEvents) Log(e eventlog.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEvents) StateChanges() []eventlog.StateChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []eventlog.StateChangeEvent
	for _, e := range r.events {
		if e.Category == eventlog.CategoryStateChange && e.StateChange != nil {
			out = append(out, *e.StateChange)
		}
	}
	return out
}

func newSupervisedClient(t *testing.T, broker *fakeBroker, store *fakeStore, events eventlog.Logger, backoff connection.BackoffConfig) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		BrokerURL:   "tls://printer.test:8883",
		Username:    "bblp",
		Password:    "12345678",
		Serial:      "01S00C123456789",
		Mapping:     spool.Mapping{"0": 11},
		Sessions:    store,
		Backoff:     backoff,
		Logger:      discardLogger(),
		EventLogger: events,
	})
	require.NoError(t, err)
	c.newMQTTClient = broker.factory
	return c
}

func runInBackground(t *testing.T, c *Client) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func waitSubscribed(t *testing.T, broker *fakeBroker) *fakeMQTTClient {
	t.Helper()
	select {
	case conn := <-broker.subscribed:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("no subscription established")
		return nil
	}
}

func TestRunDeliversMessagesToStore(t *testing.T) {
	broker := newFakeBroker()
	store := &fakeStore{}
	c := newSupervisedClient(t, broker, store, eventlog.NoopLogger{}, connection.BackoffConfig{})

	done := runInBackground(t, c)
	conn := waitSubscribed(t, broker)

	require.Eventually(t, func() bool {
		return c.State() == connection.StateSubscribed
	}, 5*time.Second, 10*time.Millisecond)

	conn.deliver(c.Topic(), report(`{"id": "0", "remain": 60, "tray_weight": 1000}`))

	require.Eventually(t, func() bool {
		return len(store.Updates()) == 1
	}, 5*time.Second, 10*time.Millisecond, "message never reached the store")
	assert.Equal(t, storeUpdate{11, 600.0}, store.Updates()[0])

	c.Stop()
	waitRun(t, done)
	assert.Equal(t, connection.StateStopped, c.State())
	assert.False(t, conn.IsConnected(), "stop must disconnect the broker session")
}

func TestRunBacksOffAndResetsAfterSubscribe(t *testing.T) {
	connErr := errors.New("connection refused")
	broker := newFakeBroker(connErr, connErr)
	store := &fakeStore{}
	events := &recordingEvents{}
	c := newSupervisedClient(t, broker, store, events, connection.BackoffConfig{
		Initial: time.Millisecond,
		Max:     4 * time.Millisecond,
	})

	done := runInBackground(t, c)

	// Two failures, then a successful connect+subscribe.
	conn := waitSubscribed(t, broker)
	assert.Equal(t, 3, broker.Attempts())

	// Drop the live connection; the next attempt succeeds immediately.
	conn.lose(errors.New("EOF"))
	conn = waitSubscribed(t, broker)

	c.Stop()
	waitRun(t, done)

	var delays []time.Duration
	for _, sc := range events.StateChanges() {
		if sc.NewState == connection.StateDisconnected.String() {
			delays = append(delays, sc.BackoffDelay)
		}
	}
	require.Len(t, delays, 3)
	assert.Equal(t, time.Millisecond, delays[0])
	assert.Equal(t, 2*time.Millisecond, delays[1])
	// Reset after the successful subscribe: back to the initial delay.
	assert.Equal(t, time.Millisecond, delays[2])
}

func TestRunStopInterruptsBackoffWait(t *testing.T) {
	broker := newFakeBroker(errors.New("connection refused"))
	store := &fakeStore{}
	events := &recordingEvents{}
	c := newSupervisedClient(t, broker, store, events, connection.BackoffConfig{
		Initial: time.Hour,
	})

	done := runInBackground(t, c)

	require.Eventually(t, func() bool {
		return c.State() == connection.StateDisconnected
	}, 5*time.Second, 10*time.Millisecond)

	c.Stop()
	waitRun(t, done)
	assert.Equal(t, connection.StateStopped, c.State())
	assert.Equal(t, 1, broker.Attempts(), "no reconnect after stop")
}

func TestRunSubscribeRejectionBacksOff(t *testing.T) {
	broker := newFakeBroker()
	broker.subscribeErr = errors.New("not authorized")
	store := &fakeStore{}
	events := &recordingEvents{}
	c := newSupervisedClient(t, broker, store, events, connection.BackoffConfig{
		Initial: time.Millisecond,
		Max:     2 * time.Millisecond,
	})

	done := runInBackground(t, c)

	// Every attempt connects but fails to subscribe, so the supervisor
	// keeps cycling through backoff.
	require.Eventually(t, func() bool {
		return broker.Attempts() >= 3
	}, 5*time.Second, time.Millisecond)

	c.Stop()
	waitRun(t, done)

	for _, sc := range events.StateChanges() {
		assert.NotEqual(t, connection.StateSubscribed.String(), sc.NewState,
			"a rejected subscribe must not count as established")
	}
}

func TestRunSecondCallRejected(t *testing.T) {
	broker := newFakeBroker()
	store := &fakeStore{}
	c := newSupervisedClient(t, broker, store, eventlog.NoopLogger{}, connection.BackoffConfig{})

	done := runInBackground(t, c)
	waitSubscribed(t, broker)

	assert.ErrorIs(t, c.Run(context.Background()), ErrAlreadyRunning)

	c.Stop()
	waitRun(t, done)
}

func TestRunAfterStopReturnsImmediately(t *testing.T) {
	broker := newFakeBroker()
	store := &fakeStore{}
	c := newSupervisedClient(t, broker, store, eventlog.NoopLogger{}, connection.BackoffConfig{})

	c.Stop()
	c.Stop() // idempotent

	assert.ErrorIs(t, c.Run(context.Background()), ErrStopped)
	assert.Equal(t, 0, broker.Attempts())
}

func TestRunContextCancelStops(t *testing.T) {
	broker := newFakeBroker()
	store := &fakeStore{}
	c := newSupervisedClient(t, broker, store, eventlog.NoopLogger{}, connection.BackoffConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	waitSubscribed(t, broker)

	cancel()
	waitRun(t, done)
	assert.Equal(t, connection.StateStopped, c.State())
}

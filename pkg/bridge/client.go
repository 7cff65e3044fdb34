package bridge

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/spoolbridge/spoolbridge-go/pkg/connection"
	"github.com/spoolbridge/spoolbridge-go/pkg/eventlog"
	"github.com/spoolbridge/spoolbridge-go/pkg/spool"
	"github.com/spoolbridge/spoolbridge-go/pkg/tracker"
)

// Client errors.
var (
	ErrAlreadyRunning = errors.New("bridge: client already running")
	ErrStopped        = errors.New("bridge: client stopped")
	ErrNoBroker       = errors.New("bridge: broker URL is required")
	ErrNoSerial       = errors.New("bridge: printer serial is required")
	ErrNoMapping      = errors.New("bridge: slot mapping is required")
	ErrNoSessions     = errors.New("bridge: session factory is required")
)

// DefaultConnectTimeout bounds one broker connection attempt.
const DefaultConnectTimeout = 10 * time.Second

// ClientConfig configures a bridge client.
type ClientConfig struct {
	// BrokerURL is the printer broker endpoint, e.g. tls://192.168.1.50:8883.
	BrokerURL string

	// Username is the MQTT username.
	Username string

	// Password is the MQTT password (LAN-mode access code).
	Password string

	// Serial is the printer serial; the report topic derives from it.
	Serial string

	// VerifyCertificate enables peer certificate and hostname verification
	// for tls:// brokers. Off by default: the printers present self-signed
	// certificates.
	VerifyCertificate bool

	// Mapping maps printer slot IDs to inventory spool IDs.
	Mapping spool.Mapping

	// Sessions opens inventory store sessions, one per message.
	Sessions spool.SessionFactory

	// Threshold is the change-detection threshold in percentage points
	// (default: 0.5).
	Threshold float64

	// ConnectTimeout bounds one connection attempt (default: 10s).
	ConnectTimeout time.Duration

	// Backoff customizes reconnect backoff. Zero values use the defaults
	// (5s doubling to 300s).
	Backoff connection.BackoffConfig

	// Logger receives operational diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// EventLogger receives the structured event trace. Defaults to noop.
	EventLogger eventlog.Logger
}

// Client bridges one printer to the inventory store.
type Client struct {
	cfg   ClientConfig
	topic string

	logger *slog.Logger
	events eventlog.Logger

	track      *tracker.SlotTracker
	resolver   *spool.Resolver
	dispatcher *spool.Dispatcher
	backoff    *connection.Backoff

	// newMQTTClient builds the underlying MQTT client. Tests inject fakes.
	newMQTTClient func(*mqtt.ClientOptions) mqtt.Client

	mu     sync.Mutex
	state  connection.State
	connID string

	running  bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewClient creates a bridge client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BrokerURL == "" {
		return nil, ErrNoBroker
	}
	if cfg.Serial == "" {
		return nil, ErrNoSerial
	}
	if len(cfg.Mapping) == 0 {
		return nil, ErrNoMapping
	}
	if cfg.Sessions == nil {
		return nil, ErrNoSessions
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.EventLogger == nil {
		cfg.EventLogger = eventlog.NoopLogger{}
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = tracker.DefaultThreshold
	}

	logger := cfg.Logger.With("serial", cfg.Serial)

	return &Client{
		cfg:           cfg,
		topic:         fmt.Sprintf("device/%s/report", cfg.Serial),
		logger:        logger,
		events:        cfg.EventLogger,
		track:         tracker.NewWithThreshold(threshold),
		resolver:      spool.NewResolver(cfg.Mapping),
		dispatcher:    spool.NewDispatcher(logger),
		backoff:       connection.NewBackoffWithConfig(cfg.Backoff),
		newMQTTClient: mqtt.NewClient,
		state:         connection.StateDisconnected,
		stopCh:        make(chan struct{}),
	}, nil
}

// Topic returns the subscribed report topic.
func (c *Client) Topic() string {
	return c.topic
}

// State returns the current supervisor state.
func (c *Client) State() connection.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop requests a graceful shutdown. Idempotent. The supervisor observes
// the request at the top of the reconnect loop and inside the receive
// iteration and exits without reconnecting.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// stopRequested reports whether Stop has been called.
func (c *Client) stopRequested() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// setState transitions the supervisor state and emits a state-change event.
func (c *Client) setState(next connection.State, reason string, backoffDelay time.Duration) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	connID := c.connID
	c.mu.Unlock()

	if prev == next {
		return
	}

	c.logger.Debug("state change", "from", prev.String(), "to", next.String(), "reason", reason)
	c.events.Log(eventlog.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Serial:       c.cfg.Serial,
		Category:     eventlog.CategoryStateChange,
		StateChange: &eventlog.StateChangeEvent{
			OldState:     prev.String(),
			NewState:     next.String(),
			Reason:       reason,
			BackoffDelay: backoffDelay,
		},
	})
}

// clientOptions builds the paho options for one connection attempt.
// Auto-reconnect stays off: reconnection policy belongs to the supervisor.
func (c *Client) clientOptions(connID string, onMessage mqtt.MessageHandler, onLost mqtt.ConnectionLostHandler) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID("spoolbridge-" + shortID(connID)).
		SetUsername(c.cfg.Username).
		SetPassword(c.cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetKeepAlive(30 * time.Second).
		SetConnectionLostHandler(onLost).
		SetDefaultPublishHandler(onMessage)

	if isTLSBroker(c.cfg.BrokerURL) {
		opts.SetTLSConfig(&tls.Config{
			// Self-signed printer certificates: skip chain and hostname
			// checks unless verification was requested.
			InsecureSkipVerify: !c.cfg.VerifyCertificate,
		})
	}

	return opts
}

// isTLSBroker reports whether the broker URL uses a TLS scheme.
func isTLSBroker(url string) bool {
	for _, scheme := range []string{"tls://", "ssl://", "mqtts://", "tcps://"} {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}

// newConnID generates a connection identifier for the event trace.
func newConnID() string {
	return uuid.New().String()
}

// shortID returns the compact form of a connection ID for MQTT client IDs.
func shortID(connID string) string {
	if len(connID) > 8 {
		return connID[:8]
	}
	return connID
}

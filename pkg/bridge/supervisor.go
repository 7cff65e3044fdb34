package bridge

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/spoolbridge/spoolbridge-go/pkg/connection"
)

// mqttSession is one broker connection's plumbing. The message and
// connection-lost channels feed the synchronous receive loop.
type mqttSession struct {
	client mqtt.Client
	connID string
	msgCh  chan mqtt.Message
	lostCh chan error
	done   chan struct{}
}

func (s *mqttSession) close() {
	close(s.done)
	s.client.Disconnect(250)
}

// Run drives the connect/subscribe/receive loop until Stop is called or
// the context is cancelled. It blocks; host processes run it in a
// goroutine per printer.
//
// All transport errors are recoverable: the loop waits with exponential
// backoff and reconnects. Run returns nil after a clean stop.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	if c.stopRequested() {
		c.mu.Unlock()
		return ErrStopped
	}
	c.running = true
	c.mu.Unlock()

	c.logger.Info("bridge starting",
		"broker", c.cfg.BrokerURL,
		"topic", c.topic,
		"slots", len(c.cfg.Mapping),
	)

	for {
		if c.stopRequested() || ctx.Err() != nil {
			break
		}

		sess, err := c.connect(ctx)
		if err != nil {
			if c.stopRequested() || ctx.Err() != nil {
				break
			}
			c.logger.Error("connection failed", "error", err)
			if !c.backoffAndWait(ctx, err.Error()) {
				break
			}
			continue
		}

		// Subscribe acknowledged: the session is live.
		c.backoff.Reset()
		c.setState(connection.StateSubscribed, "", 0)
		c.logger.Info("subscribed", "topic", c.topic)

		reason, stopped := c.receive(ctx, sess)
		sess.close()

		if stopped {
			break
		}

		c.logger.Warn("connection lost", "reason", reason)
		if !c.backoffAndWait(ctx, reason) {
			break
		}
	}

	c.setState(connection.StateStopped, "stop requested", 0)
	c.logger.Info("bridge stopped")
	return nil
}

// connect opens a broker session and subscribes to the report topic.
// Both steps must succeed before the supervisor considers the connection
// established; a broker that accepts the connection but rejects the
// subscribe is a connection failure.
func (c *Client) connect(ctx context.Context) (*mqttSession, error) {
	connID := newConnID()

	c.mu.Lock()
	c.connID = connID
	c.mu.Unlock()

	c.setState(connection.StateConnecting, "", 0)

	sess := &mqttSession{
		connID: connID,
		msgCh:  make(chan mqtt.Message, 16),
		lostCh: make(chan error, 1),
		done:   make(chan struct{}),
	}

	onMessage := func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case sess.msgCh <- msg:
		case <-sess.done:
		case <-c.stopCh:
		}
	}
	onLost := func(_ mqtt.Client, err error) {
		select {
		case sess.lostCh <- err:
		default:
		}
	}

	sess.client = c.newMQTTClient(c.clientOptions(connID, onMessage, onLost))

	if err := c.waitToken(ctx, sess.client.Connect()); err != nil {
		return nil, err
	}

	if err := c.waitToken(ctx, sess.client.Subscribe(c.topic, 0, onMessage)); err != nil {
		sess.client.Disconnect(0)
		return nil, err
	}

	return sess, nil
}

// waitToken waits for a paho operation, honoring stop and cancellation.
func (c *Client) waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-c.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// receive iterates incoming messages until the connection drops or a stop
// is requested. It returns the loss reason and whether the loop should
// stop for good.
func (c *Client) receive(ctx context.Context, sess *mqttSession) (reason string, stopped bool) {
	for {
		select {
		case msg := <-sess.msgCh:
			c.processMessage(ctx, sess.connID, msg.Payload())

		case err := <-sess.lostCh:
			reason := "stream ended"
			if err != nil {
				reason = err.Error()
			}
			return reason, false

		case <-c.stopCh:
			c.setState(connection.StateDraining, "stop requested", 0)
			return "stop requested", true

		case <-ctx.Done():
			c.setState(connection.StateDraining, ctx.Err().Error(), 0)
			return ctx.Err().Error(), true
		}
	}
}

// backoffAndWait transitions to Disconnected, recording the upcoming
// backoff delay, and sleeps. It returns false when a stop request or
// cancellation arrived during the wait.
func (c *Client) backoffAndWait(ctx context.Context, reason string) bool {
	delay := c.backoff.Next()

	c.setState(connection.StateDisconnected, reason, delay)
	c.logger.Info("reconnecting", "delay", delay, "attempt", c.backoff.Attempts())

	select {
	case <-time.After(delay):
		return true
	case <-c.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

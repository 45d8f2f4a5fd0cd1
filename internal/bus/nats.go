package bus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSTransport adapts core NATS pub/sub to the relay's endpoint model so the
// double can serve a system under test running in another process. Endpoint
// strings are NATS subjects. The connection is owned by the caller and shared
// by both endpoints; closing an endpoint leaves it open.
type NATSTransport struct {
	conn *nats.Conn
}

func NewNATSTransport(conn *nats.Conn) *NATSTransport {
	return &NATSTransport{conn: conn}
}

// Connect establishes a NATS connection with unlimited reconnects.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

func (t *NATSTransport) BindCollector(endpoint string, hwm int) (Collector, error) {
	ch := make(chan *nats.Msg, hwm)
	sub, err := t.conn.ChanSubscribe(endpoint, ch)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", endpoint, err)
	}
	// Overflow beyond the channel buffer is dropped by the client, matching
	// the collector's high-water-mark loss model.
	if err := sub.SetPendingLimits(hwm, -1); err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("pending limits %s: %w", endpoint, err)
	}
	return &natsCollector{conn: t.conn, sub: sub, ch: ch}, nil
}

func (t *NATSTransport) BindBroadcaster(endpoint string) (Broadcaster, error) {
	return &natsBroadcaster{conn: t.conn, subject: endpoint}, nil
}

type natsCollector struct {
	conn *nats.Conn
	sub  *nats.Subscription
	ch   chan *nats.Msg
}

func (c *natsCollector) TryRecv() (string, bool, error) {
	select {
	case msg := <-c.ch:
		return string(msg.Data), true, nil
	default:
		if c.conn.IsClosed() {
			return "", false, ErrClosed
		}
		return "", false, nil
	}
}

func (c *natsCollector) Close() error {
	return c.sub.Unsubscribe()
}

type natsBroadcaster struct {
	conn    *nats.Conn
	subject string
}

func (b *natsBroadcaster) Send(msg string) error {
	return b.conn.Publish(b.subject, []byte(msg))
}

func (b *natsBroadcaster) Close() error {
	// Flush so nothing published before shutdown is stuck in client buffers.
	return b.conn.Flush()
}

// Package bus provides the message transports the relay binds to: an
// in-process simulation for same-process harness code and a NATS adapter for
// out-of-process consumers.
package bus

import "errors"

var (
	// ErrAlreadyBound is returned when a second endpoint binds the same address.
	ErrAlreadyBound = errors.New("bus: endpoint already bound")
	// ErrUnbound is returned when producing to an address nothing listens on.
	ErrUnbound = errors.New("bus: endpoint not bound")
	// ErrClosed is returned on use of a closed endpoint.
	ErrClosed = errors.New("bus: endpoint closed")
)

// Transport binds the two endpoints the relay owns.
type Transport interface {
	// BindCollector claims the many-to-one inbound endpoint. Messages beyond
	// hwm queued entries are dropped by the transport.
	BindCollector(endpoint string, hwm int) (Collector, error)
	// BindBroadcaster claims the one-to-many outbound endpoint.
	BindBroadcaster(endpoint string) (Broadcaster, error)
}

// Collector is the inbound side. TryRecv never blocks: the second return is
// false when no message is pending. A non-nil error is fatal for the endpoint.
type Collector interface {
	TryRecv() (string, bool, error)
	Close() error
}

// Broadcaster fans a payload out to every subscriber.
type Broadcaster interface {
	Send(msg string) error
	Close() error
}

package bus

import (
	"sync"
	"time"
)

// MemoryBus is the in-process bus simulation. Endpoints are registered under
// their address strings, so double-binding fails the way a real socket bind
// would, but delivery is plain bounded channels: a collector drops pushes
// beyond its high-water mark and a broadcaster drops to any subscriber whose
// buffer is full. That loss model is intentional — it mirrors the
// backpressure behavior of the transport it stands in for.
type MemoryBus struct {
	mu           sync.Mutex
	collectors   map[string]*memoryCollector
	broadcasters map[string]*memoryBroadcaster
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		collectors:   map[string]*memoryCollector{},
		broadcasters: map[string]*memoryBroadcaster{},
	}
}

func (b *MemoryBus) BindCollector(endpoint string, hwm int) (Collector, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.collectors[endpoint]; taken {
		return nil, ErrAlreadyBound
	}
	c := &memoryCollector{
		bus:      b,
		endpoint: endpoint,
		queue:    make(chan string, hwm),
	}
	b.collectors[endpoint] = c
	return c, nil
}

func (b *MemoryBus) BindBroadcaster(endpoint string) (Broadcaster, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.broadcasters[endpoint]; taken {
		return nil, ErrAlreadyBound
	}
	bc := &memoryBroadcaster{
		bus:      b,
		endpoint: endpoint,
		subs:     map[uint64]chan string{},
	}
	b.broadcasters[endpoint] = bc
	return bc, nil
}

// Producer returns the push side of a collector endpoint, the surface the
// system under test (or a test) uses to hand messages to the relay.
func (b *MemoryBus) Producer(endpoint string) *Producer {
	return &Producer{bus: b, endpoint: endpoint}
}

// Subscribe attaches a subscriber to a broadcaster endpoint.
func (b *MemoryBus) Subscribe(endpoint string, buffer int) (*Subscription, error) {
	b.mu.Lock()
	bc, ok := b.broadcasters[endpoint]
	b.mu.Unlock()
	if !ok {
		return nil, ErrUnbound
	}
	return bc.subscribe(buffer), nil
}

type memoryCollector struct {
	bus      *MemoryBus
	endpoint string
	queue    chan string

	mu     sync.Mutex
	closed bool
}

func (c *memoryCollector) TryRecv() (string, bool, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return "", false, ErrClosed
	}
	select {
	case msg := <-c.queue:
		return msg, true, nil
	default:
		return "", false, nil
	}
}

func (c *memoryCollector) push(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.queue <- msg:
	default:
		// Past the high-water mark the transport loses the message.
	}
}

func (c *memoryCollector) Close() error {
	c.bus.mu.Lock()
	delete(c.bus.collectors, c.endpoint)
	c.bus.mu.Unlock()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Producer pushes into a bound collector.
type Producer struct {
	bus      *MemoryBus
	endpoint string
}

func (p *Producer) Push(msg string) error {
	p.bus.mu.Lock()
	c, ok := p.bus.collectors[p.endpoint]
	p.bus.mu.Unlock()
	if !ok {
		return ErrUnbound
	}
	c.push(msg)
	return nil
}

type memoryBroadcaster struct {
	bus      *MemoryBus
	endpoint string

	mu     sync.Mutex
	subs   map[uint64]chan string
	nextID uint64
	closed bool
}

func (b *memoryBroadcaster) Send(msg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// Slow subscriber, message lost for that subscriber only.
		}
	}
	return nil
}

func (b *memoryBroadcaster) subscribe(buffer int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan string, buffer)
	b.subs[id] = ch
	return &Subscription{broadcaster: b, id: id, ch: ch}
}

func (b *memoryBroadcaster) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

func (b *memoryBroadcaster) Close() error {
	b.bus.mu.Lock()
	delete(b.bus.broadcasters, b.endpoint)
	b.bus.mu.Unlock()

	b.mu.Lock()
	b.closed = true
	b.subs = map[uint64]chan string{}
	b.mu.Unlock()
	return nil
}

// Subscription receives everything the broadcaster publishes from the moment
// it attaches.
type Subscription struct {
	broadcaster *memoryBroadcaster
	id          uint64
	ch          chan string
}

// C exposes the raw receive channel for select-based consumers.
func (s *Subscription) C() <-chan string { return s.ch }

// Recv waits up to timeout for the next message.
func (s *Subscription) Recv(timeout time.Duration) (string, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-s.ch:
		return msg, true
	case <-timer.C:
		return "", false
	}
}

func (s *Subscription) Unsubscribe() {
	s.broadcaster.unsubscribe(s.id)
}

package bus_test

import (
	"testing"
	"time"

	"lakemock/internal/bus"
)

// ============================================================================
// Test: binding
// ============================================================================

func TestBindCollector_DoubleBindFails(t *testing.T) {
	b := bus.NewMemoryBus()
	if _, err := b.BindCollector("tcp://127.0.0.1:5562", 100); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if _, err := b.BindCollector("tcp://127.0.0.1:5562", 100); err != bus.ErrAlreadyBound {
		t.Errorf("second bind got %v, want %v", err, bus.ErrAlreadyBound)
	}
}

func TestBindBroadcaster_DoubleBindFails(t *testing.T) {
	b := bus.NewMemoryBus()
	if _, err := b.BindBroadcaster("tcp://127.0.0.1:5561"); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if _, err := b.BindBroadcaster("tcp://127.0.0.1:5561"); err != bus.ErrAlreadyBound {
		t.Errorf("second bind got %v, want %v", err, bus.ErrAlreadyBound)
	}
}

func TestBindCollector_RebindAfterClose(t *testing.T) {
	b := bus.NewMemoryBus()
	c, err := b.BindCollector("ep", 10)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	c.Close()
	if _, err := b.BindCollector("ep", 10); err != nil {
		t.Errorf("rebind after close got %v, want nil", err)
	}
}

// ============================================================================
// Test: collector
// ============================================================================

func TestCollector_TryRecvDoesNotBlock(t *testing.T) {
	b := bus.NewMemoryBus()
	c, _ := b.BindCollector("ep", 10)

	_, ok, err := c.TryRecv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if ok {
		t.Error("empty collector should report no message")
	}
}

func TestCollector_DeliversInOrder(t *testing.T) {
	b := bus.NewMemoryBus()
	c, _ := b.BindCollector("ep", 10)
	p := b.Producer("ep")

	p.Push("one")
	p.Push("two")

	for _, want := range []string{"one", "two"} {
		msg, ok, err := c.TryRecv()
		if err != nil || !ok {
			t.Fatalf("recv got ok=%v err=%v", ok, err)
		}
		if msg != want {
			t.Errorf("got %q, want %q", msg, want)
		}
	}
}

func TestCollector_DropsBeyondHighWaterMark(t *testing.T) {
	b := bus.NewMemoryBus()
	c, _ := b.BindCollector("ep", 2)
	p := b.Producer("ep")

	p.Push("one")
	p.Push("two")
	p.Push("lost")

	var got []string
	for {
		msg, ok, _ := c.TryRecv()
		if !ok {
			break
		}
		got = append(got, msg)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2 (third dropped at hwm)", len(got))
	}
	if got[0] != "one" || got[1] != "two" {
		t.Errorf("got %v, want the first two pushes", got)
	}
}

func TestCollector_RecvAfterCloseFails(t *testing.T) {
	b := bus.NewMemoryBus()
	c, _ := b.BindCollector("ep", 10)
	c.Close()

	if _, _, err := c.TryRecv(); err != bus.ErrClosed {
		t.Errorf("got %v, want %v", err, bus.ErrClosed)
	}
}

func TestProducer_UnboundEndpoint(t *testing.T) {
	b := bus.NewMemoryBus()
	if err := b.Producer("nowhere").Push("msg"); err != bus.ErrUnbound {
		t.Errorf("got %v, want %v", err, bus.ErrUnbound)
	}
}

// ============================================================================
// Test: broadcaster
// ============================================================================

func TestBroadcaster_FansOutToAllSubscribers(t *testing.T) {
	b := bus.NewMemoryBus()
	bc, _ := b.BindBroadcaster("pub")
	s1, err := b.Subscribe("pub", 10)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	s2, _ := b.Subscribe("pub", 10)

	bc.Send("hello")

	for i, s := range []*bus.Subscription{s1, s2} {
		msg, ok := s.Recv(time.Second)
		if !ok {
			t.Fatalf("subscriber %d received nothing", i)
		}
		if msg != "hello" {
			t.Errorf("subscriber %d got %q, want %q", i, msg, "hello")
		}
	}
}

func TestBroadcaster_DropsToSlowSubscriberOnly(t *testing.T) {
	b := bus.NewMemoryBus()
	bc, _ := b.BindBroadcaster("pub")
	slow, _ := b.Subscribe("pub", 1)
	fast, _ := b.Subscribe("pub", 10)

	bc.Send("one")
	bc.Send("two")

	if msg, ok := slow.Recv(time.Second); !ok || msg != "one" {
		t.Errorf("slow subscriber got %q ok=%v, want buffered first message", msg, ok)
	}
	if _, ok := slow.Recv(50 * time.Millisecond); ok {
		t.Error("slow subscriber should have lost the overflow message")
	}

	for _, want := range []string{"one", "two"} {
		msg, ok := fast.Recv(time.Second)
		if !ok || msg != want {
			t.Errorf("fast subscriber got %q ok=%v, want %q", msg, ok, want)
		}
	}
}

func TestBroadcaster_UnsubscribeStopsDelivery(t *testing.T) {
	b := bus.NewMemoryBus()
	bc, _ := b.BindBroadcaster("pub")
	s, _ := b.Subscribe("pub", 10)

	s.Unsubscribe()
	bc.Send("after")

	if _, ok := s.Recv(50 * time.Millisecond); ok {
		t.Error("unsubscribed subscription should receive nothing")
	}
}

func TestBroadcaster_SendAfterCloseFails(t *testing.T) {
	b := bus.NewMemoryBus()
	bc, _ := b.BindBroadcaster("pub")
	bc.Close()

	if err := bc.Send("msg"); err != bus.ErrClosed {
		t.Errorf("got %v, want %v", err, bus.ErrClosed)
	}
}

func TestSubscribe_UnboundEndpoint(t *testing.T) {
	b := bus.NewMemoryBus()
	if _, err := b.Subscribe("nowhere", 10); err != bus.ErrUnbound {
		t.Errorf("got %v, want %v", err, bus.ErrUnbound)
	}
}

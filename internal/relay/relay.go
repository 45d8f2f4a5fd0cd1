// Package relay multiplexes the settlement bus: every message pushed at the
// collector endpoint is rebroadcast verbatim to subscribers, and messages that
// form a well-formed account event request are additionally dispatched to the
// vault, with the reply published back onto the bus.
package relay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"lakemock/internal/bus"
	"lakemock/internal/message"
	"lakemock/internal/observability"
	"lakemock/internal/vault"
)

// Fixed local endpoints for a test run, and the collector queue depth beyond
// which the transport loses messages.
const (
	DefaultBroadcastEndpoint = "tcp://127.0.0.1:5561"
	DefaultCollectorEndpoint = "tcp://127.0.0.1:5562"
	DefaultHighWaterMark     = 100
	defaultPollInterval      = time.Millisecond
)

var (
	ErrAlreadyStarted = errors.New("relay: already started")
	ErrNotStarted     = errors.New("relay: not started")
)

// Config carries the endpoint bindings. The zero value is completed with the
// defaults above by Start.
type Config struct {
	CollectorEndpoint string
	BroadcastEndpoint string
	HighWaterMark     int
	PollInterval      time.Duration
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.CollectorEndpoint == "" {
		cfg.CollectorEndpoint = DefaultCollectorEndpoint
	}
	if cfg.BroadcastEndpoint == "" {
		cfg.BroadcastEndpoint = DefaultBroadcastEndpoint
	}
	if cfg.HighWaterMark <= 0 {
		cfg.HighWaterMark = DefaultHighWaterMark
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return cfg
}

// Relay owns both bus endpoints and the single worker goroutine that drains
// the collector. All vault mutation happens on that worker, which is what
// lets the vault stay lock-free.
type Relay struct {
	transport bus.Transport
	vault     *vault.Vault
	cfg       Config
	log       zerolog.Logger
	metrics   *observability.Metrics

	collector   bus.Collector
	broadcaster bus.Broadcaster

	mu      sync.Mutex
	backlog []string

	quiet atomic.Bool

	started  atomic.Bool
	cancel   chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	errMu    sync.Mutex
	fatalErr error
}

// New builds a relay over the given transport and vault. Metrics may be nil.
func New(transport bus.Transport, v *vault.Vault, cfg Config, log zerolog.Logger, metrics *observability.Metrics) *Relay {
	return &Relay{
		transport: transport,
		vault:     v,
		cfg:       cfg.withDefaults(),
		log:       log,
		metrics:   metrics,
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start binds both endpoints and launches the worker. A bind failure is
// returned synchronously and leaves nothing running.
func (r *Relay) Start() error {
	if r.started.Load() {
		return ErrAlreadyStarted
	}

	broadcaster, err := r.transport.BindBroadcaster(r.cfg.BroadcastEndpoint)
	if err != nil {
		return err
	}
	collector, err := r.transport.BindCollector(r.cfg.CollectorEndpoint, r.cfg.HighWaterMark)
	if err != nil {
		broadcaster.Close()
		return err
	}

	r.broadcaster = broadcaster
	r.collector = collector
	r.started.Store(true)

	r.log.Info().
		Str("collector", r.cfg.CollectorEndpoint).
		Str("broadcast", r.cfg.BroadcastEndpoint).
		Msg("relay started")

	go r.run()
	return nil
}

// run is the worker loop. Receive is non-blocking with a short poll sleep;
// cancellation is cooperative and checked every iteration. Any receive error
// is fatal for the worker.
func (r *Relay) run() {
	defer close(r.done)

	for {
		select {
		case <-r.cancel:
			return
		default:
		}

		msg, ok, err := r.collector.TryRecv()
		if err != nil {
			r.errMu.Lock()
			r.fatalErr = err
			r.errMu.Unlock()
			r.log.Error().Err(err).Msg("relay receive failed, worker exiting")
			return
		}
		if !ok {
			time.Sleep(r.cfg.PollInterval)
			continue
		}
		r.handle(msg)
	}
}

func (r *Relay) handle(msg string) {
	if r.metrics != nil {
		r.metrics.MessagesReceived.Inc()
	}

	if r.quiet.Load() {
		if r.metrics != nil {
			r.metrics.MessagesSilenced.Inc()
		}
		return
	}

	// Forward verbatim before any parsing so observers see malformed
	// traffic too.
	if err := r.broadcaster.Send(msg); err != nil {
		r.log.Warn().Err(err).Msg("forward failed")
	} else if r.metrics != nil {
		r.metrics.MessagesForwarded.Inc()
	}

	r.mu.Lock()
	r.backlog = append(r.backlog, msg)
	backlogLen := len(r.backlog)
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.BacklogSize.Set(float64(backlogLen))
	}

	if !message.IsRequestCandidate(msg) {
		return
	}

	req, ok := message.ParseRequest(msg)
	if !ok {
		if r.metrics != nil {
			r.metrics.RequestsUnparsed.Inc()
		}
		r.log.Warn().Str("payload", msg).Msg("unparsable vault request")
		return
	}

	code := r.vault.ProcessAccountEvent(req.Tenant, req.Account, req.Kind, req.Transaction, req.Amount, req.Currency)
	reply := message.NewReply(req, string(code))
	if err := r.broadcaster.Send(reply.String()); err != nil {
		r.log.Warn().Err(err).Msg("reply publish failed")
		return
	}
	if r.metrics != nil {
		r.metrics.RepliesSent.WithLabelValues(string(code)).Inc()
	}
	r.log.Debug().
		Str("tenant", req.Tenant).
		Str("account", req.Account).
		Str("kind", req.Kind).
		Str("transaction", req.Transaction).
		Str("reply", string(code)).
		Msg("account event processed")
}

// Stop cancels the worker, waits for it to exit, then closes both endpoints.
// Idempotent; no message is processed after it returns.
func (r *Relay) Stop() {
	if !r.started.Load() {
		return
	}
	r.stopOnce.Do(func() {
		close(r.cancel)
		<-r.done
		r.collector.Close()
		r.broadcaster.Close()
		r.log.Info().Msg("relay stopped")
	})
}

// Done is closed when the worker has exited, whether by Stop or by a fatal
// receive error.
func (r *Relay) Done() <-chan struct{} { return r.done }

// Err reports the fatal receive error that killed the worker, if any.
func (r *Relay) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.fatalErr
}

// Send publishes an arbitrary payload directly on the broadcaster. Used by
// harness code to inject synthetic bus traffic. Fails until Start has bound
// the endpoints.
func (r *Relay) Send(raw string) error {
	if !r.started.Load() {
		return ErrNotStarted
	}
	return r.broadcaster.Send(raw)
}

// Ack removes the first backlog entry equal to raw, giving assertions
// exactly-once consumption of duplicate payloads.
func (r *Relay) Ack(raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.backlog {
		if entry == raw {
			r.backlog = append(r.backlog[:i], r.backlog[i+1:]...)
			if r.metrics != nil {
				r.metrics.BacklogSize.Set(float64(len(r.backlog)))
			}
			return
		}
	}
}

// Backlog returns a copy of the forwarded-message record.
func (r *Relay) Backlog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.backlog))
	copy(out, r.backlog)
	return out
}

// Silence makes the relay drop inbound traffic entirely: no forward, no
// backlog, no processing.
func (r *Relay) Silence() {
	r.quiet.Store(true)
}

// Clear leaves silenced mode. Safe to call when never silenced.
func (r *Relay) Clear() {
	r.quiet.Store(false)
}

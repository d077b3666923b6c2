package bridge

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gadenbuie/countdown/internal/clock"
	"github.com/gadenbuie/countdown/internal/countdown"
)

const (
	// DefaultRetryInterval is the wait before retrying a not-ready host.
	DefaultRetryInterval = 100 * time.Millisecond
	// DefaultMaxPending bounds the events held for a host that never
	// becomes ready.
	DefaultMaxPending = 1024
)

// Host receives events. Send returns ErrNotReady while the host cannot
// take them; other errors drop the event.
type Host interface {
	Send(ev HostEvent) error
}

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithOutboxClock sets the clock used to schedule retries.
func WithOutboxClock(c clock.Clock) OutboxOption {
	return func(o *Outbox) { o.clock = c }
}

// WithRetryInterval sets the retry cadence.
func WithRetryInterval(d time.Duration) OutboxOption {
	return func(o *Outbox) {
		if d > 0 {
			o.retry = d
		}
	}
}

// WithMaxPending sets the queue bound; the oldest event is dropped when full.
func WithMaxPending(n int) OutboxOption {
	return func(o *Outbox) {
		if n > 0 {
			o.maxPending = n
		}
	}
}

// WithOutboxLogger sets the logger.
func WithOutboxLogger(l *slog.Logger) OutboxOption {
	return func(o *Outbox) { o.logger = l }
}

// Outbox queues timer events for a Host and delivers them in order,
// retrying the oldest on a fixed cadence while the host is not ready.
type Outbox struct {
	host       Host
	clock      clock.Clock
	logger     *slog.Logger
	retry      time.Duration
	maxPending int

	mu      sync.Mutex
	queue   []queued
	seq     uint64
	timer   clock.Timer
	sending bool
	closed  bool
	dropped int
}

type queued struct {
	seq uint64
	ev  HostEvent
}

// NewOutbox returns an Outbox delivering to host.
func NewOutbox(host Host, opts ...OutboxOption) *Outbox {
	o := &Outbox{
		host:       host,
		clock:      clock.Real(),
		logger:     slog.Default(),
		retry:      DefaultRetryInterval,
		maxPending: DefaultMaxPending,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Deliver queues an engine event. It never blocks on the host.
func (o *Outbox) Deliver(e countdown.Event) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.seq++
	o.queue = append(o.queue, queued{seq: o.seq, ev: NewHostEvent(e)})
	if len(o.queue) > o.maxPending {
		old := o.queue[0].ev
		o.queue = o.queue[1:]
		o.dropped++
		o.logger.Warn("host event dropped",
			slog.String("timer_id", old.ID),
			slog.String("action", string(old.Event.Action)),
			slog.Int("pending", len(o.queue)),
		)
	}
	if o.sending || o.timer != nil {
		o.mu.Unlock()
		return
	}
	o.sending = true
	o.mu.Unlock()

	o.flush()
}

// Pending returns the number of undelivered events.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Dropped returns how many events were discarded because the queue was full.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Close cancels any retry and discards pending events.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.queue = nil
}

// flush sends queued events until the queue is empty or the host is not
// ready. The caller must have set sending.
func (o *Outbox) flush() {
	for {
		o.mu.Lock()
		if o.closed || len(o.queue) == 0 {
			o.sending = false
			o.mu.Unlock()
			return
		}
		head := o.queue[0]
		o.mu.Unlock()

		err := o.host.Send(head.ev)

		o.mu.Lock()
		switch {
		case errors.Is(err, ErrNotReady):
			o.sending = false
			if !o.closed {
				o.logger.Debug("host not ready, retrying",
					slog.String("timer_id", head.ev.ID),
					slog.Duration("after", o.retry),
				)
				o.timer = o.clock.AfterFunc(o.retry, o.retryFlush)
			}
			o.mu.Unlock()
			return
		case err != nil:
			o.logger.Warn("host event failed",
				slog.String("timer_id", head.ev.ID),
				slog.String("action", string(head.ev.Event.Action)),
				slog.Any("error", err),
			)
		}
		if len(o.queue) > 0 && o.queue[0].seq == head.seq {
			o.queue = o.queue[1:]
		}
		o.mu.Unlock()
	}
}

func (o *Outbox) retryFlush() {
	o.mu.Lock()
	o.timer = nil
	if o.closed || o.sending {
		o.mu.Unlock()
		return
	}
	o.sending = true
	o.mu.Unlock()

	o.flush()
}

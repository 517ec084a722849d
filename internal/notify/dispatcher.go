package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/outrclub/outr-api/internal/ratelimit"
)

// gateKey is the single bucket all outbound notifications share.
const gateKey = "outbound"

// Dispatcher queues events for a background worker that hands them to a
// Sender. Events are dropped, never queued indefinitely, when the outbound
// gate is closed or the queue is full.
type Dispatcher struct {
	sender  Sender
	gate    *ratelimit.Limiter
	timeout time.Duration

	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once

	// mu orders sends against Close so nothing lands in ch after the
	// worker's final drain.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the delivery worker. gate may be nil to disable
// outbound throttling; timeout bounds each Send.
func NewDispatcher(sender Sender, gate *ratelimit.Limiter, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}

	d := &Dispatcher{
		sender:  sender,
		gate:    gate,
		timeout: timeout,
		ch:      make(chan Event, queueSize),
		done:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case e := <-d.ch:
			d.deliver(e)
		case <-d.done:
			for {
				select {
				case e := <-d.ch:
					d.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.sender.Send(ctx, e); err != nil {
		slog.Warn("notification delivery failed", "type", e.Type, "error", err)
	}
}

// Notify implements Notifier. Events offered after Close count as dropped.
func (d *Dispatcher) Notify(e Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	if d.gate != nil {
		if decision := d.gate.Allow(gateKey); !decision.Allowed {
			d.dropped.Add(1)
			slog.Debug("notification throttled", "type", e.Type, "retry_after_seconds", decision.RetryAfterSeconds())
			return
		}
	}

	select {
	case d.ch <- e:
	default:
		d.dropped.Add(1)
		slog.Debug("notification queue full", "type", e.Type)
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()

		d.wg.Wait()
	})
}

// Dropped returns how many events were throttled or discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

package sellerhub

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditEventTypes indexes the per-event drop counters. Anything else is
// counted under auditEventOther.
var auditEventTypes = [...]string{
	auditEventSignIn,
	auditEventSubjectCreated,
	auditEventSessionIssued,
	auditEventRefreshSuccess,
	auditEventRefreshInvalid,
	auditEventRefreshMismatch,
	auditEventLogout,
	auditEventRateLimited,
	auditEventOther,
}

const auditEventOther = "other"

func auditEventIndex(eventType string) int {
	for i, t := range auditEventTypes[:len(auditEventTypes)-1] {
		if t == eventType {
			return i
		}
	}
	return len(auditEventTypes) - 1
}

// auditDispatcher decouples request goroutines from the sink. One worker
// drains a bounded channel; Close flushes whatever is still queued.
type auditDispatcher struct {
	cfg       AuditConfig
	sink      AuditSink
	ch        chan AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	droppedBy [len(auditEventTypes)]atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan AuditEvent, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues event. With DropIfFull a full buffer drops the event and
// counts it; otherwise Emit blocks until there is room, ctx ends, or the
// dispatcher closes.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
			d.droppedBy[auditEventIndex(event.EventType)].Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close stops accepting events and waits for the queue to drain. Safe to call twice.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns how many events were discarded because the buffer was full.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByEvent breaks Dropped down by event type. Only types with at least
// one drop are present.
func (d *auditDispatcher) DroppedByEvent() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	for i := range d.droppedBy {
		if n := d.droppedBy[i].Load(); n > 0 {
			out[auditEventTypes[i]] = n
		}
	}
	return out
}

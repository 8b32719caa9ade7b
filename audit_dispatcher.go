package goSession

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// auditDispatcher stamps events on the request goroutine and hands them to
// the sink on a single background goroutine. With DropIfFull the request
// path never blocks on the sink.
type auditDispatcher struct {
	cfg       AuditConfig
	sink      AuditSink
	log       zerolog.Logger
	now       func() time.Time
	ch        chan AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, log zerolog.Logger, now func() time.Time) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if now == nil {
		now = time.Now
	}

	d := &auditDispatcher{
		cfg:  cfg,
		sink: sink,
		log:  log,
		now:  now,
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
			d.deliver(event)
		case <-d.done:
			// drain what was accepted before Close
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver isolates the dispatcher goroutine from a panicking sink.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("event_type", event.EventType).
				Str("audit_id", event.ID).
				Interface("panic", r).
				Msg("audit sink panicked")
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// stamp assigns the ULID and timestamp. Events emitted later on the same
// goroutine always sort after earlier ones.
func (d *auditDispatcher) stamp(event *AuditEvent) {
	at := d.now().UTC()
	if event.Timestamp.IsZero() {
		event.Timestamp = at
	}
	if event.ID != "" {
		return
	}
	id, err := ulid.New(ulid.Timestamp(at), ulid.DefaultEntropy())
	if err != nil {
		// monotonic entropy exhausted within one millisecond
		id = ulid.Make()
	}
	event.ID = id.String()
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.stamp(&event)

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			n := d.dropped.Add(1)
			// first drop, then every 1024th
			if n == 1 || n%1024 == 0 {
				d.log.Warn().
					Str("event_type", event.EventType).
					Str("subject_id", event.UserID).
					Uint64("dropped_total", n).
					Msg("audit buffer full, event dropped")
			}
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events, flushes the buffer and waits for the sink.
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

// Dropped counts events discarded because the buffer was full or the
// emitting request was cancelled first.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"
)

type queued struct {
	ctx context.Context
	ev  Event
}

// Dispatcher runs fan-out on a bounded queue drained by a fixed worker pool.
type Dispatcher struct {
	handler Handler
	workers int

	mu     sync.RWMutex
	queue  chan queued
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given worker count and queue size.
func NewDispatcher(handler Handler, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		handler: handler,
		workers: workers,
		queue:   make(chan queued, queueSize),
	}
}

// Start launches the workers. They exit when ctx is cancelled or Close has
// drained the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-d.queue:
			if !ok {
				return
			}
			d.handle(item)
		}
	}
}

func (d *Dispatcher) handle(item queued) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic in notification worker",
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	// Fanout logs and counts its own failures.
	_ = d.handler.Handle(item.ctx, item.ev)
}

// Publish enqueues ev without blocking. A full or closed queue drops the event.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.closed {
		select {
		case d.queue <- queued{ctx: context.WithoutCancel(ctx), ev: ev}:
			return
		default:
		}
	}
	observability.NotificationDrops.WithLabelValues(string(ev.Kind)).Inc()
	middleware.Logger.WarnContext(ctx, "notification queue full, event dropped",
		slog.String("event", string(ev.Kind)),
		slog.Uint64("actor_id", uint64(ev.ActorID)))
}

// Close stops accepting events and waits for queued ones to be handled.
// Events left behind by workers that never started, or that stopped with
// their context, are handled inline.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()

	drained := 0
	for item := range d.queue {
		d.handle(item)
		drained++
	}
	if drained > 0 {
		middleware.Logger.Info("notification queue drained on close", slog.Int("events", drained))
	}
}

// Sync runs the handler inline. Used by CLIs and tests.
type Sync struct {
	Handler Handler
}

// Publish handles ev before returning. Errors are already logged by the handler.
func (s Sync) Publish(ctx context.Context, ev Event) {
	if s.Handler == nil {
		return
	}
	_ = s.Handler.Handle(ctx, ev)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}

package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingHandler struct {
	handled atomic.Int32
	block   chan struct{}
}

func (h *countingHandler) Handle(context.Context, Event) error {
	if h.block != nil {
		<-h.block
	}
	h.handled.Add(1)
	return nil
}

func TestDispatcher_DrainsOnClose(t *testing.T) {
	t.Parallel()
	h := &countingHandler{}
	d := NewDispatcher(h, 2, 16)
	d.Start(context.Background())

	for i := 0; i < 10; i++ {
		d.Publish(context.Background(), Event{Kind: WallPostCreated})
	}
	d.Close()
	assert.EqualValues(t, 10, h.handled.Load())

	d.Publish(context.Background(), Event{Kind: WallPostCreated})
	assert.EqualValues(t, 10, h.handled.Load(), "publish after close is dropped")
	d.Close()
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	t.Parallel()
	h := &countingHandler{block: make(chan struct{})}
	d := NewDispatcher(h, 1, 1)
	d.Start(context.Background())

	// The worker takes the first event and blocks; the second fills the
	// queue; the rest are dropped without blocking the caller.
	d.Publish(context.Background(), Event{Kind: CommentCreated})
	assert.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Publish(context.Background(), Event{Kind: CommentCreated})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	close(h.block)
	d.Close()
	assert.EqualValues(t, 2, h.handled.Load())
}

func TestDispatcher_PublishSurvivesCancelledRequest(t *testing.T) {
	t.Parallel()
	h := &countingHandler{}
	d := NewDispatcher(h, 1, 4)

	ctx, cancel := context.WithCancel(context.Background())
	d.Publish(ctx, Event{Kind: WallPostCreated})
	cancel()

	d.Start(context.Background())
	d.Close()
	assert.EqualValues(t, 1, h.handled.Load())
}

func TestDispatcher_CloseHandlesLeftoverEvents(t *testing.T) {
	t.Parallel()

	t.Run("never started", func(t *testing.T) {
		h := &countingHandler{}
		d := NewDispatcher(h, 2, 8)
		for i := 0; i < 3; i++ {
			d.Publish(context.Background(), Event{Kind: CommentCreated})
		}
		d.Close()
		assert.EqualValues(t, 3, h.handled.Load())
	})

	t.Run("workers cancelled", func(t *testing.T) {
		h := &countingHandler{}
		d := NewDispatcher(h, 1, 8)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.Start(ctx)
		for i := 0; i < 4; i++ {
			d.Publish(context.Background(), Event{Kind: WallPostCreated})
		}
		d.Close()
		assert.EqualValues(t, 4, h.handled.Load())
	})
}

func TestSync_HandlesInline(t *testing.T) {
	t.Parallel()
	h := &countingHandler{}
	Sync{Handler: h}.Publish(context.Background(), Event{Kind: WallPostCreated})
	assert.EqualValues(t, 1, h.handled.Load())

	Sync{}.Publish(context.Background(), Event{})
	Discard{}.Publish(context.Background(), Event{})
}

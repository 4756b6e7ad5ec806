// Package pipeline provides the bounded, drop-oldest, close-cascading
// stage primitive used throughout the casting pipeline (capture, encode,
// packetize, transport egress on the sender side; transport ingress,
// depacketize, reorder, decode on the receiver side). Generalized from the
// teacher's buffered-channel subscribe/broadcast-with-drop pattern into a
// typed generic worker stage.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/mycrl/mirror/internal/metrics"
)

// VideoQueueCapacity is the bounded capacity for video frame queues.
const VideoQueueCapacity = 4

// PacketQueueCapacity is the bounded capacity for transport packet queues.
const PacketQueueCapacity = 16

// DrainTimeout bounds how long Close waits for the worker goroutine to
// observe the closed input and exit before it is abandoned.
const DrainTimeout = 250 * time.Millisecond

// Stage runs fn once per input item on its own goroutine, reading from a
// bounded input queue with a drop-oldest backpressure policy: when Push is
// called against a full queue, the oldest queued item is discarded to make
// room for the new one, rather than blocking the producer.
type Stage[T any] struct {
	name  string
	queue chan T
	fn    func(context.Context, T)
	done  chan struct{}
	once  sync.Once
}

// NewStage starts a Stage named name with the given bounded capacity,
// invoking fn for every pushed item until the stage is closed.
func NewStage[T any](ctx context.Context, name string, capacity int, fn func(context.Context, T)) *Stage[T] {
	s := &Stage[T]{
		name:  name,
		queue: make(chan T, capacity),
		fn:    fn,
		done:  make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *Stage[T]) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-s.queue:
			if !ok {
				return
			}
			metrics.StageQueueDepth.WithLabelValues(s.name).Set(float64(len(s.queue)))
			s.fn(ctx, item)
		}
	}
}

// Push enqueues item, dropping the oldest queued item first if the stage's
// bounded queue is full.
func (s *Stage[T]) Push(item T) {
	for {
		select {
		case s.queue <- item:
			metrics.StageQueueDepth.WithLabelValues(s.name).Set(float64(len(s.queue)))
			return
		default:
		}
		select {
		case <-s.queue:
			metrics.DroppedFrames.WithLabelValues(s.name).Inc()
		default:
		}
	}
}

// Len reports the number of items currently queued.
func (s *Stage[T]) Len() int { return len(s.queue) }

// Close closes the input queue and waits up to DrainTimeout for the worker
// to finish processing whatever was already queued, then returns
// regardless. Close is idempotent.
func (s *Stage[T]) Close() {
	s.once.Do(func() {
		close(s.queue)
	})
	select {
	case <-s.done:
	case <-time.After(DrainTimeout):
	}
}

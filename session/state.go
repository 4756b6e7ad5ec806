package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mycrl/mirror/internal/metrics"
)

// SenderState is one state of the sender lifecycle state machine.
type SenderState int

const (
	SenderIdle SenderState = iota
	SenderConfiguring
	SenderRunning
	SenderClosing
	SenderTerminated
)

func (s SenderState) String() string {
	switch s {
	case SenderIdle:
		return "idle"
	case SenderConfiguring:
		return "configuring"
	case SenderRunning:
		return "running"
	case SenderClosing:
		return "closing"
	case SenderTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ReceiverState is one state of the receiver lifecycle state machine.
type ReceiverState int

const (
	ReceiverIdle ReceiverState = iota
	ReceiverAwaitingKey
	ReceiverPlaying
	ReceiverStalled
	ReceiverClosing
	ReceiverTerminated
)

func (s ReceiverState) String() string {
	switch s {
	case ReceiverIdle:
		return "idle"
	case ReceiverAwaitingKey:
		return "awaiting_key"
	case ReceiverPlaying:
		return "playing"
	case ReceiverStalled:
		return "stalled"
	case ReceiverClosing:
		return "closing"
	case ReceiverTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// DrainDeadline is the sender's stage drain bound. Sender.Close does not
// read it; the wait it applies is pipeline.DrainTimeout, which has the
// same value.
const DrainDeadline = 250 * time.Millisecond

// StallDeadline is how long a receiver may go without a usable packet
// before moving from Playing to Stalled.
const StallDeadline = 50 * time.Millisecond

// AbandonmentDeadline is how long a receiver may remain Stalled before
// abandoning the session entirely.
const AbandonmentDeadline = 5000 * time.Millisecond

// closer runs a teardown function and close callback exactly once and
// records the final state transition, shared by Sender and Receiver. Close
// can be triggered concurrently from more than one goroutine (a transport
// error, a stall watchdog, a rejecting sink); once guards the whole
// teardown, not just the final callback, so collaborators like sinks.OnClose
// are never invoked twice.
type closer struct {
	closed  atomic.Bool
	once    sync.Once
	role    string
	onClose func(reason error)
}

func (c *closer) close(reason error, finalState fmt.Stringer, teardown func()) {
	c.once.Do(func() {
		teardown()
		c.closed.Store(true)
		metrics.SessionState.WithLabelValues(c.role, finalState.String()).Inc()
		if c.onClose != nil {
			c.onClose(reason)
		}
	})
}

func (c *closer) isClosed() bool { return c.closed.Load() }

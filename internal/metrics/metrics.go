// Package metrics exposes Prometheus instrumentation for pipeline stage
// queue depth, dropped frames, reorder-buffer skips and session state
// transitions. This is passive observability, not rate control: nothing
// here feeds back into pipeline behavior.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// StageQueueDepth reports the current number of items queued in a
	// pipeline.Stage, labeled by stage name.
	StageQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mirror",
		Subsystem: "pipeline",
		Name:      "stage_queue_depth",
		Help:      "Current number of items queued in a pipeline stage.",
	}, []string{"stage"})

	// DroppedFrames counts frames/packets dropped by a stage's
	// drop-oldest backpressure policy.
	DroppedFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "pipeline",
		Name:      "dropped_total",
		Help:      "Frames or packets dropped by backpressure.",
	}, []string{"stage"})

	// ReorderSkips counts times the jitter buffer skipped forward to the
	// next key-frame boundary after a stall deadline elapsed.
	ReorderSkips = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "jitter",
		Name:      "skips_total",
		Help:      "Times the reorder buffer skipped to the next key frame after a stall.",
	})

	// SessionState counts sessions reaching their terminal state, labeled
	// by role (sender/receiver) and that final state. Intermediate state
	// transitions are not counted.
	SessionState = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mirror",
		Subsystem: "session",
		Name:      "state_transitions_total",
		Help:      "Session state machine transitions into the terminal state.",
	}, []string{"role", "state"})
)

func init() {
	prometheus.MustRegister(StageQueueDepth, DroppedFrames, ReorderSkips, SessionState)
}

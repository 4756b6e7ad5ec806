// Package jitter implements the receiver-side reorder/stall buffer
// described by the casting protocol: a bounded, sequence-keyed buffer that
// delivers packets in order, skips forward to the next key-frame boundary
// after a stall deadline, and silently discards duplicates.
package jitter

import (
	"sync"
	"time"

	"github.com/mycrl/mirror/internal/metrics"
	"github.com/mycrl/mirror/packet"
)

// StallDeadline is the time the buffer waits for the next expected
// sequence number before skipping forward to the next key frame.
const StallDeadline = 50 * time.Millisecond

// fragGroup accumulates the wire fragments of one logical packet (spec §3:
// fragments of a sequence share sequence/flags/timestamp and differ only in
// fragment index) until every fragment has arrived.
type fragGroup struct {
	total    uint16
	have     uint16
	parts    []packet.Packet
	seen     []bool
	keyFrame bool
}

func newFragGroup(total uint16) *fragGroup {
	return &fragGroup{total: total, parts: make([]packet.Packet, total), seen: make([]bool, total)}
}

func (g *fragGroup) add(p packet.Packet) bool {
	idx := int(p.Header.FragmentIndex)
	if idx < 0 || idx >= len(g.parts) {
		return false
	}
	if g.seen[idx] {
		return false // duplicate fragment
	}
	g.seen[idx] = true
	g.parts[idx] = p
	g.have++
	if p.Header.Flags&packet.FlagKeyFrame != 0 {
		g.keyFrame = true
	}
	return true
}

func (g *fragGroup) complete() bool { return g.have == g.total }

// Buffer reorders packets of one stream (video or audio) by sequence
// number, bounded in the number of sequences it holds (see NewBuffer). It
// groups fragments by sequence and only makes a sequence available to Pop
// once every one of its fragments has arrived.
type Buffer struct {
	mu        sync.Mutex
	capacity  int
	pending   map[uint32]*fragGroup
	expected  uint32
	have      bool
	delivered bool
	lastSeen  time.Time
}

// NewBuffer constructs a Buffer with capacity
// keyFrameInterval*maxFragmentsPerFrame + maxFragmentsPerFrame. The bound
// applies to the number of buffered sequences (logical packets), not to
// individual fragments: when more sequences than that are pending, the
// oldest one is dropped.
func NewBuffer(keyFrameInterval, maxFragmentsPerFrame int) *Buffer {
	capacity := keyFrameInterval*maxFragmentsPerFrame + maxFragmentsPerFrame
	if capacity < maxFragmentsPerFrame {
		capacity = maxFragmentsPerFrame
	}
	return &Buffer{
		capacity: capacity,
		pending:  make(map[uint32]*fragGroup, capacity),
	}
}

// Push admits one wire fragment into the buffer. Fragments are grouped by
// sequence number; a sequence already fully delivered, or a fragment index
// already seen within its group, is silently discarded.
func (b *Buffer) Push(p packet.Packet) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case !b.have:
		b.expected = p.Header.Sequence
		b.have = true
	case !b.delivered && packet.SequenceLess(p.Header.Sequence, b.expected):
		// Nothing has been delivered yet, so an earlier-arriving packet
		// lowers the baseline rather than being treated as a duplicate.
		b.expected = p.Header.Sequence
	case packet.SequenceLess(p.Header.Sequence, b.expected):
		return // duplicate / already delivered
	}

	g, ok := b.pending[p.Header.Sequence]
	if !ok {
		g = newFragGroup(p.Header.FragmentCount)
		b.pending[p.Header.Sequence] = g
	}
	g.add(p)
	b.lastSeen = time.Now()

	if len(b.pending) > b.capacity {
		b.dropOldestLocked()
	}
}

func (b *Buffer) dropOldestLocked() {
	var oldest uint32
	first := true
	for seq := range b.pending {
		if first || packet.SequenceLess(seq, oldest) {
			oldest = seq
			first = false
		}
	}
	delete(b.pending, oldest)
	metrics.DroppedFrames.WithLabelValues("jitter").Inc()
}

// Pop returns the fragments of the next in-order, fully-reassembled
// sequence if available, in fragment-index order. If the expected sequence
// has not completed within StallDeadline of the last admitted fragment,
// Pop instead skips forward to the next complete buffered key frame (if
// any) and returns it, reporting skipped=true.
func (b *Buffer) Pop() (fragments []packet.Packet, ok bool, skipped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.have {
		return nil, false, false
	}
	if g, found := b.pending[b.expected]; found && g.complete() {
		delete(b.pending, b.expected)
		b.expected++
		b.delivered = true
		return g.parts, true, false
	}
	if len(b.pending) == 0 || time.Since(b.lastSeen) < StallDeadline {
		return nil, false, false
	}

	// Stalled: skip forward to the next complete key frame boundary.
	var nextKey uint32
	foundKey := false
	for seq, g := range b.pending {
		if !g.complete() || !g.keyFrame {
			continue
		}
		if !foundKey || packet.SequenceLess(seq, nextKey) {
			nextKey = seq
			foundKey = true
		}
	}
	if !foundKey {
		return nil, false, false
	}
	g := b.pending[nextKey]
	delete(b.pending, nextKey)
	// Discard everything older than the key frame we're skipping to.
	for seq := range b.pending {
		if packet.SequenceLess(seq, nextKey) {
			delete(b.pending, seq)
		}
	}
	b.expected = nextKey + 1
	b.delivered = true
	metrics.ReorderSkips.Inc()
	return g.parts, true, true
}

// Len reports the number of sequences currently buffered (complete or not).
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

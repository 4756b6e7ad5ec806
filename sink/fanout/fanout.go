// Package fanout multiplexes one decode stage's output to N sink.Bundle
// subscribers (e.g. a local preview plus a diagnostics recorder) without
// changing the decode stage's calling convention, modeled on the
// subscribe/broadcast shape used for multi-subscriber relay fan-out.
package fanout

import (
	"sync"

	"github.com/mycrl/mirror/media"
	"github.com/mycrl/mirror/sink"
)

// Fanout implements sink.Bundle by broadcasting to every currently
// subscribed bundle. It accepts (returns true) as long as at least one
// subscriber accepts, or if there are no subscribers at all.
type Fanout struct {
	mu   sync.RWMutex
	subs map[int]sink.Bundle
	next int
}

func New() *Fanout { return &Fanout{subs: make(map[int]sink.Bundle)} }

// Subscribe adds b and returns a token to later Unsubscribe it.
func (f *Fanout) Subscribe(b sink.Bundle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = b
	return id
}

// Unsubscribe removes the subscriber added by the matching Subscribe call.
func (f *Fanout) Unsubscribe(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, id)
}

func (f *Fanout) OnVideo(frame media.VideoFrame) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.subs) == 0 {
		return true
	}
	accepted := false
	for _, s := range f.subs {
		if s.OnVideo(frame) {
			accepted = true
		}
	}
	return accepted
}

func (f *Fanout) OnAudio(frame media.AudioFrame) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.subs) == 0 {
		return true
	}
	accepted := false
	for _, s := range f.subs {
		if s.OnAudio(frame) {
			accepted = true
		}
	}
	return accepted
}

func (f *Fanout) OnClose() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.subs {
		s.OnClose()
	}
}

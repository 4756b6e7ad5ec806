// Package sink describes the capability bundle a receiver delivers
// decoded frames to. Calls are made synchronously from the decode stage's
// worker goroutine and must not block; a sink that returns false signals
// it can no longer accept frames, which walks the receiver's close
// cascade.
package sink

import "github.com/mycrl/mirror/media"

// VideoSink receives decoded video frames. The frame is borrowed: the
// implementation must copy Plane data before returning if it needs to
// retain it.
type VideoSink interface {
	OnVideo(media.VideoFrame) bool
}

// AudioSink receives decoded audio frames, borrowed the same way.
type AudioSink interface {
	OnAudio(media.AudioFrame) bool
}

// CloseSink is notified exactly once when the owning session begins its
// close cascade.
type CloseSink interface {
	OnClose()
}

// Bundle composes the three sink capabilities a receiver session needs.
// Any field may be nil, in which case frames/close notifications for that
// capability are simply dropped.
type Bundle struct {
	Video VideoSink
	Audio AudioSink
	Close CloseSink
}

func (b Bundle) onVideo(f media.VideoFrame) bool {
	if b.Video == nil {
		return true
	}
	return b.Video.OnVideo(f)
}

func (b Bundle) onAudio(f media.AudioFrame) bool {
	if b.Audio == nil {
		return true
	}
	return b.Audio.OnAudio(f)
}

func (b Bundle) onClose() {
	if b.Close != nil {
		b.Close.OnClose()
	}
}

// OnVideo dispatches to the bundle's VideoSink, or accepts trivially if
// none is set.
func (b Bundle) OnVideo(f media.VideoFrame) bool { return b.onVideo(f) }

// OnAudio dispatches to the bundle's AudioSink, or accepts trivially if
// none is set.
func (b Bundle) OnAudio(f media.AudioFrame) bool { return b.onAudio(f) }

// OnClose dispatches to the bundle's CloseSink, a no-op if none is set.
func (b Bundle) OnClose() { b.onClose() }

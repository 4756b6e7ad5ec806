package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mycrl/mirror/codec"
	"github.com/mycrl/mirror/internal/mirrerr"
	"github.com/mycrl/mirror/internal/xlog"
	"github.com/mycrl/mirror/jitter"
	"github.com/mycrl/mirror/packet"
	"github.com/mycrl/mirror/sink"
	"github.com/mycrl/mirror/transport"
)

// Receiver drives the receiver-side state machine: Idle -> AwaitingKey ->
// Playing -> Stalled -> Closing -> Terminated. Audio keeps flowing
// independently of a video stall; only the video state gates.
type Receiver struct {
	ID uuid.UUID

	mu    sync.Mutex
	state ReceiverState
	closer

	cfg       Config
	transport transport.Strategy
	videoBuf  *jitter.Buffer
	audioBuf  *jitter.Buffer
	videoAsm  packet.Reassembler
	audioAsm  packet.Reassembler
	videoDec  codec.VideoDecoder
	audioDec  codec.AudioDecoder
	sinks     sink.Bundle

	lastVideoActivity time.Time
	cancel            context.CancelFunc
}

// ReceiverDeps supplies the external collaborators a Receiver wires
// together.
type ReceiverDeps struct {
	Transport    transport.Strategy
	VideoDecoder codec.VideoDecoder
	AudioDecoder codec.AudioDecoder
	Sinks        sink.Bundle
}

const maxFragmentsPerUnit = 16

// NewReceiver validates cfg, wires deps into a running transport->
// depacketize->reorder->decode->sink pipeline, and returns the Receiver in
// ReceiverAwaitingKey.
func NewReceiver(ctx context.Context, cfg Config, deps ReceiverDeps, onClose func(error)) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Receiver{
		ID:        uuid.New(),
		state:     ReceiverAwaitingKey,
		cfg:       cfg,
		transport: deps.Transport,
		videoDec:  deps.VideoDecoder,
		audioDec:  deps.AudioDecoder,
		sinks:     deps.Sinks,
		videoBuf:  jitter.NewBuffer(cfg.Video.KeyFrameInterval, maxFragmentsPerUnit),
		audioBuf:  jitter.NewBuffer(cfg.Video.KeyFrameInterval, maxFragmentsPerUnit),
	}
	r.closer = closer{role: "receiver", onClose: onClose}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.recvLoop(runCtx)
	go r.drainLoop(runCtx, packet.KindVideo)
	go r.drainLoop(runCtx, packet.KindAudio)
	go r.stallWatchdog(runCtx)

	return r, nil
}

func (r *Receiver) setState(st ReceiverState) {
	r.mu.Lock()
	r.state = st
	r.mu.Unlock()
}

// State returns the receiver's current lifecycle state.
func (r *Receiver) State() ReceiverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Receiver) recvLoop(ctx context.Context) {
	log := xlog.For("session.receiver")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		b, err := r.transport.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Debug("transport receive error")
			r.Close(mirrerr.New(mirrerr.TransportUnreachable, "session.receiver.recv", err))
			return
		}
		p, err := packet.UnmarshalPacket(b)
		if err != nil {
			continue
		}
		switch p.Header.Kind {
		case packet.KindVideo:
			r.videoBuf.Push(p)
		case packet.KindAudio:
			r.audioBuf.Push(p)
		}
	}
}

func (r *Receiver) drainLoop(ctx context.Context, kind packet.Kind) {
	buf := r.videoBuf
	asm := &r.videoAsm
	if kind == packet.KindAudio {
		buf = r.audioBuf
		asm = &r.audioAsm
	}
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				fragments, ok, _ := buf.Pop()
				if !ok {
					break
				}
				for _, p := range fragments {
					if u, complete := asm.Add(p); complete {
						r.deliver(kind, u)
					}
				}
			}
		}
	}
}

func (r *Receiver) deliver(kind packet.Kind, u packet.Unit) {
	cu := codec.Unit{KeyFrame: u.KeyFrame, Config: u.Config, Timestamp: u.Timestamp, Payload: u.Payload}
	log := xlog.For("session.receiver")

	switch kind {
	case packet.KindVideo:
		r.mu.Lock()
		st := r.state
		r.mu.Unlock()
		if (st == ReceiverAwaitingKey || st == ReceiverStalled) && !u.KeyFrame {
			return
		}
		if r.videoDec == nil {
			return
		}
		r.mu.Lock()
		r.lastVideoActivity = time.Now()
		r.mu.Unlock()
		frame, err := r.videoDec.Decode(cu)
		if err != nil {
			log.WithError(err).Debug("transient video decode error")
			return
		}
		if frame == nil {
			return
		}
		r.setState(ReceiverPlaying)
		if !r.sinks.OnVideo(*frame) {
			r.Close(mirrerr.New(mirrerr.InternalFatal, "session.receiver.sink_rejected", nil))
		}
	case packet.KindAudio:
		if r.audioDec == nil {
			return
		}
		frame, err := r.audioDec.Decode(cu)
		if err != nil {
			log.WithError(err).Debug("transient audio decode error")
			return
		}
		if frame == nil {
			return
		}
		// Audio flows independently of a stalled/awaiting-key video state.
		if !r.sinks.OnAudio(*frame) {
			r.Close(mirrerr.New(mirrerr.InternalFatal, "session.receiver.sink_rejected", nil))
		}
	}
}

func (r *Receiver) stallWatchdog(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	var stalledSince time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			st := r.state
			lastActivity := r.lastVideoActivity
			r.mu.Unlock()
			if st != ReceiverPlaying && st != ReceiverStalled {
				continue
			}
			idle := time.Since(lastActivity)
			switch {
			case st == ReceiverPlaying && idle > StallDeadline:
				r.setState(ReceiverStalled)
				stalledSince = time.Now()
			case st == ReceiverStalled && idle <= StallDeadline:
				r.setState(ReceiverPlaying)
			case st == ReceiverStalled && time.Since(stalledSince) > AbandonmentDeadline:
				r.Close(mirrerr.New(mirrerr.AbandonmentTimeout, "session.receiver.stall_watchdog", nil))
				return
			}
		}
	}
}

// Close begins the close cascade: -> Closing -> Terminated. Idempotent:
// concurrent callers (recvLoop, stallWatchdog, deliver) all race here, but
// the teardown below runs exactly once.
func (r *Receiver) Close(reason error) {
	r.mu.Lock()
	if r.state != ReceiverTerminated {
		r.state = ReceiverClosing
	}
	r.mu.Unlock()
	r.closer.close(reason, ReceiverTerminated, func() {
		if r.cancel != nil {
			r.cancel()
		}
		if r.videoDec != nil {
			_ = r.videoDec.Close()
		}
		if r.audioDec != nil {
			_ = r.audioDec.Close()
		}
		if r.transport != nil {
			_ = r.transport.Close()
		}
		r.sinks.OnClose()
		r.setState(ReceiverTerminated)
	})
}

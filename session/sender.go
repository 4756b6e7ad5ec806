package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mycrl/mirror/capture"
	"github.com/mycrl/mirror/codec"
	"github.com/mycrl/mirror/encode"
	"github.com/mycrl/mirror/internal/xlog"
	"github.com/mycrl/mirror/media"
	"github.com/mycrl/mirror/packet"
	"github.com/mycrl/mirror/transport"
)

// Sender drives the sender-side state machine: Idle -> Configuring ->
// Running -> Closing -> Terminated.
type Sender struct {
	ID uuid.UUID

	mu    sync.Mutex
	state SenderState
	closer

	cfg       Config
	transport transport.Strategy
	videoPkt  *packet.Packetizer
	audioPkt  *packet.Packetizer
	videoEnc  codec.VideoEncoder
	audioEnc  codec.AudioEncoder
	videoCap  *capture.VideoStage
	audioCap  *capture.AudioStage
	pacer     *encode.Pacer

	cancel context.CancelFunc
}

// SenderDeps supplies the external collaborators a Sender wires together.
type SenderDeps struct {
	Transport    transport.Strategy
	VideoEncoder codec.VideoEncoder
	AudioEncoder codec.AudioEncoder
	VideoSource  capture.VideoSource
	AudioSource  capture.AudioSource
}

// NewSender validates cfg, wires deps into a running capture->encode->
// packetize->transport pipeline, and returns the Sender in SenderRunning.
// onClose is invoked exactly once when the session's close cascade runs,
// whatever triggered it.
func NewSender(ctx context.Context, cfg Config, deps SenderDeps, onClose func(error)) (*Sender, error) {
	log := xlog.For("session.sender")

	s := &Sender{ID: uuid.New(), state: SenderConfiguring}
	s.closer = closer{role: "sender", onClose: onClose}

	if err := cfg.Validate(); err != nil {
		s.closer.close(err, SenderTerminated, func() {})
		return nil, err
	}
	s.cfg = cfg
	s.transport = deps.Transport
	s.videoEnc = deps.VideoEncoder
	s.audioEnc = deps.AudioEncoder
	s.videoPkt = packet.NewPacketizer(cfg.MTU)
	s.audioPkt = packet.NewPacketizer(cfg.MTU)
	s.pacer = encode.NewPacer(cfg.Video.BitRate)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	fail := func(err error) {
		log.WithError(err).Warn("sender closing")
		s.Close(err)
	}

	if deps.VideoSource != nil {
		vc, err := capture.StartVideo(runCtx, deps.VideoSource, s.onVideoFrame, fail)
		if err != nil {
			cancel()
			s.closer.close(err, SenderTerminated, func() {})
			return nil, err
		}
		s.videoCap = vc
	}
	if deps.AudioSource != nil {
		ac, err := capture.StartAudio(runCtx, deps.AudioSource, s.onAudioFrame, fail)
		if err != nil {
			cancel()
			s.closer.close(err, SenderTerminated, func() {})
			return nil, err
		}
		s.audioCap = ac
	}

	s.setState(SenderRunning)
	return s, nil
}

func (s *Sender) setState(st SenderState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State returns the sender's current lifecycle state.
func (s *Sender) State() SenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sender) onVideoFrame(f media.VideoFrame) {
	units, err := s.videoEnc.Encode(f)
	if err != nil {
		xlog.For("session.sender").WithError(err).Debug("transient video encode error")
		return
	}
	s.emit(packet.KindVideo, units)
}

func (s *Sender) onAudioFrame(f media.AudioFrame) {
	units, err := s.audioEnc.Encode(f)
	if err != nil {
		xlog.For("session.sender").WithError(err).Debug("transient audio encode error")
		return
	}
	s.emit(packet.KindAudio, units)
}

func (s *Sender) emit(kind packet.Kind, units []codec.Unit) {
	pk := s.videoPkt
	if kind == packet.KindAudio {
		pk = s.audioPkt
	}
	for _, u := range units {
		pu := packet.Unit{
			Kind:      kind,
			KeyFrame:  u.KeyFrame,
			Config:    u.Config,
			Timestamp: u.Timestamp,
			Payload:   u.Payload,
		}
		for _, p := range pk.Packetize(pu) {
			if kind == packet.KindVideo {
				_ = s.pacer.Wait(context.Background(), len(p.Payload))
			}
			if err := s.transport.Send(context.Background(), p.Marshal()); err != nil {
				s.Close(err)
				return
			}
		}
	}
}

// Close begins the close cascade: Running/Configuring -> Closing ->
// Terminated. It cancels the session context and then closes each capture
// stage, waiting up to pipeline.DrainTimeout for the stage worker to exit;
// since the context is already cancelled, frames still queued at that
// point may be discarded rather than encoded. Idempotent: concurrent
// callers (emit's transport error, a capture disconnect) all race here,
// but the teardown below runs exactly once.
func (s *Sender) Close(reason error) {
	s.mu.Lock()
	if s.state != SenderTerminated {
		s.state = SenderClosing
	}
	s.mu.Unlock()
	s.closer.close(reason, SenderTerminated, func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.videoCap != nil {
			s.videoCap.Close()
		}
		if s.audioCap != nil {
			s.audioCap.Close()
		}
		if s.videoEnc != nil {
			_ = s.videoEnc.Close()
		}
		if s.audioEnc != nil {
			_ = s.audioEnc.Close()
		}
		if s.transport != nil {
			_ = s.transport.Close()
		}
		s.setState(SenderTerminated)
	})
}

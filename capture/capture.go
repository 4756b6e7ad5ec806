// Package capture wraps an external frame source (a platform screen,
// camera or audio capture backend) with the pipeline's drop-oldest
// backpressure policy and close-cascade semantics. Real capture backends
// are an external collaborator; this package only supplies the stage that
// sits between them and the encoder.
package capture

import (
	"context"

	"github.com/mycrl/mirror/internal/mirrerr"
	"github.com/mycrl/mirror/media"
	"github.com/mycrl/mirror/pipeline"
)

// VideoSource is an external collaborator that produces video frames
// until ctx is done or it encounters an unrecoverable error, in which case
// it closes the returned channel and frames stops flowing.
type VideoSource interface {
	VideoFrames(ctx context.Context) (<-chan media.VideoFrame, error)
}

// AudioSource is the audio equivalent of VideoSource.
type AudioSource interface {
	AudioFrames(ctx context.Context) (<-chan media.AudioFrame, error)
}

// VideoStage adapts a VideoSource into a pipeline.Stage, applying
// drop-oldest backpressure to downstream encode consumers.
type VideoStage struct {
	stage *pipeline.Stage[media.VideoFrame]
}

// StartVideo begins reading src until ctx is done, invoking onFrame for
// every admitted frame and onDisconnect (SourceDisconnected) if src's
// channel closes before ctx is done.
func StartVideo(ctx context.Context, src VideoSource, onFrame func(media.VideoFrame), onDisconnect func(error)) (*VideoStage, error) {
	frames, err := src.VideoFrames(ctx)
	if err != nil {
		return nil, mirrerr.New(mirrerr.SourceDisconnected, "capture.video.open", err)
	}
	stage := pipeline.NewStage(ctx, "capture.video", pipeline.VideoQueueCapacity, func(_ context.Context, f media.VideoFrame) {
		onFrame(f)
	})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-frames:
				if !ok {
					onDisconnect(mirrerr.New(mirrerr.SourceDisconnected, "capture.video", nil))
					return
				}
				stage.Push(f)
			}
		}
	}()
	return &VideoStage{stage: stage}, nil
}

// Close releases the stage's resources.
func (s *VideoStage) Close() { s.stage.Close() }

// AudioStage adapts an AudioSource into a pipeline.Stage.
type AudioStage struct {
	stage *pipeline.Stage[media.AudioFrame]
}

// StartAudio mirrors StartVideo for audio frames.
func StartAudio(ctx context.Context, src AudioSource, onFrame func(media.AudioFrame), onDisconnect func(error)) (*AudioStage, error) {
	frames, err := src.AudioFrames(ctx)
	if err != nil {
		return nil, mirrerr.New(mirrerr.SourceDisconnected, "capture.audio.open", err)
	}
	stage := pipeline.NewStage(ctx, "capture.audio", pipeline.VideoQueueCapacity, func(_ context.Context, f media.AudioFrame) {
		onFrame(f)
	})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-frames:
				if !ok {
					onDisconnect(mirrerr.New(mirrerr.SourceDisconnected, "capture.audio", nil))
					return
				}
				stage.Push(f)
			}
		}
	}()
	return &AudioStage{stage: stage}, nil
}

func (s *AudioStage) Close() { s.stage.Close() }

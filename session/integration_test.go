package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mycrl/mirror/capture"
	"github.com/mycrl/mirror/codec/passthrough"
	"github.com/mycrl/mirror/media"
	"github.com/mycrl/mirror/sink"
	"github.com/mycrl/mirror/transport"
)

// loopbackVideoSource emits a fixed number of synthetic frames, then
// stops, standing in for a real capture backend in this end-to-end test.
type loopbackVideoSource struct {
	count int
}

func (s *loopbackVideoSource) VideoFrames(ctx context.Context) (<-chan media.VideoFrame, error) {
	out := make(chan media.VideoFrame)
	go func() {
		defer close(out)
		for i := 0; i < s.count; i++ {
			select {
			case <-ctx.Done():
				return
			case out <- media.VideoFrame{
				Width: 4, Height: 4,
				Planes:    [3]media.Plane{{Data: []byte{1, 2, 3, 4}}},
				Timestamp: uint64(i) * 1000,
			}:
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	return out, nil
}

type recordingSink struct {
	mu     sync.Mutex
	frames int
}

func (r *recordingSink) OnVideo(media.VideoFrame) bool {
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
	return true
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

var _ capture.VideoSource = (*loopbackVideoSource)(nil)
var _ sink.VideoSink = (*recordingSink)(nil)

func TestSenderReceiverEndToEndOverDirectTransport(t *testing.T) {
	recvTransport, err := transport.ListenDirect("127.0.0.1:0")
	require.NoError(t, err)
	defer recvTransport.Close()

	sendTransport, err := transport.DialDirect(recvTransport.LocalAddr().String())
	require.NoError(t, err)

	rec := &recordingSink{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	receiver, err := NewReceiver(ctx, Config{
		Strategy: transport.KindDirect,
		Address:  recvTransport.LocalAddr().String(),
		MTU:      DefaultMTU,
		Video:    media.VideoParams{KeyFrameInterval: media.DefaultKeyFrameInterval},
	}, ReceiverDeps{
		Transport:    recvTransport,
		VideoDecoder: passthrough.NewDecoder(),
		Sinks:        sink.Bundle{Video: rec},
	}, func(error) {})
	require.NoError(t, err)

	sender, err := NewSender(ctx, Config{
		Strategy: transport.KindDirect,
		Address:  recvTransport.LocalAddr().String(),
		MTU:      DefaultMTU,
		Video:    media.VideoParams{KeyFrameInterval: media.DefaultKeyFrameInterval, BitRate: 0},
	}, SenderDeps{
		Transport:    sendTransport,
		VideoEncoder: passthrough.NewEncoder(media.DefaultKeyFrameInterval),
		VideoSource:  &loopbackVideoSource{count: 30},
	}, func(error) {})
	require.NoError(t, err)
	defer sender.Close(nil)

	require.Eventually(t, func() bool {
		return rec.count() > 0
	}, time.Second, 10*time.Millisecond, fmt.Sprintf("expected at least one decoded frame, got %d", rec.count()))

	require.Equal(t, ReceiverPlaying, receiver.State())
}

// Command mirror-receiver runs a receiver session against the passthrough
// reference codec, logging decoded frame arrivals, for exercising the
// casting pipeline and transport strategies without a real platform
// render backend.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mycrl/mirror/codec/passthrough"
	"github.com/mycrl/mirror/discovery"
	"github.com/mycrl/mirror/internal/diagnostics"
	"github.com/mycrl/mirror/internal/xlog"
	"github.com/mycrl/mirror/media"
	"github.com/mycrl/mirror/session"
	"github.com/mycrl/mirror/sink"
	"github.com/mycrl/mirror/sink/fanout"
	"github.com/mycrl/mirror/transport"
)

// logSink is a sink.VideoSink/AudioSink/CloseSink that just logs arrivals,
// standing in for a real renderer.
type logSink struct{}

func (logSink) OnVideo(f media.VideoFrame) bool {
	xlog.For("cmd.mirror-receiver").WithField("size", fmt.Sprintf("%dx%d", f.Width, f.Height)).Debug("video frame")
	return true
}

func (logSink) OnAudio(f media.AudioFrame) bool {
	xlog.For("cmd.mirror-receiver").WithField("frames", f.Frames).Debug("audio frame")
	return true
}

func (logSink) OnClose() {
	xlog.For("cmd.mirror-receiver").Info("sink closed")
}

// frameStats tallies delivered frames per kind so the debug server can
// report counts alongside the session state, independent of logSink.
type frameStats struct {
	video atomic.Int64
	audio atomic.Int64
}

func (s *frameStats) OnVideo(media.VideoFrame) bool { s.video.Add(1); return true }
func (s *frameStats) OnAudio(media.AudioFrame) bool { s.audio.Add(1); return true }

func main() {
	var (
		strategy  string
		addr      string
		discover  bool
		debugAddr string
	)

	cmd := &cobra.Command{
		Use:   "mirror-receiver",
		Short: "Run a casting receiver session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := xlog.For("cmd.mirror-receiver")

			var strat transport.Kind
			var tr transport.Strategy
			var err error
			switch strategy {
			case "direct":
				strat = transport.KindDirect
				tr, err = transport.ListenDirect(addr)
			case "multicast":
				strat = transport.KindMulticast
				tr, err = transport.JoinMulticast(addr, "", transport.DefaultMulticastTTL)
			default:
				return fmt.Errorf("unsupported strategy %q (want direct|multicast)", strategy)
			}
			if err != nil {
				return err
			}

			cfg := session.Config{
				Strategy: strat,
				Address:  addr,
				MTU:      session.DefaultMTU,
				Video:    media.VideoParams{KeyFrameInterval: media.DefaultKeyFrameInterval},
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// Fan out decoded frames to the logging sink and, independently,
			// to an in-process counter the debug server can report on.
			stats := &frameStats{}
			fo := fanout.New()
			fo.Subscribe(sink.Bundle{Video: logSink{}, Audio: logSink{}, Close: logSink{}})
			fo.Subscribe(sink.Bundle{Video: stats, Audio: stats})

			receiver, err := session.NewReceiver(ctx, cfg, session.ReceiverDeps{
				Transport:    tr,
				VideoDecoder: passthrough.NewDecoder(),
				Sinks:        sink.Bundle{Video: fo, Audio: fo, Close: fo},
			}, func(reason error) {
				log.WithError(reason).Info("receiver closed")
			})
			if err != nil {
				return err
			}

			log.WithField("session", receiver.ID).Info("receiver running")

			if debugAddr != "" {
				hub := diagnostics.NewHub()
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				mux.Handle("/diagnostics", hub)
				go func() {
					if err := http.ListenAndServe(debugAddr, mux); err != nil {
						log.WithError(err).Warn("debug server exited")
					}
				}()
				go publishReceiverSnapshots(ctx, hub, receiver, stats)
			}

			if discover {
				go func() {
					err := discovery.Query(ctx, func(_ net.IP, rec discovery.Record) {
						log.WithField("sender", rec.ID).WithField("properties", rec.Properties).Info("discovered sender")
					})
					if err != nil && ctx.Err() == nil {
						log.WithError(err).Warn("discovery query failed")
					}
				}()
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			receiver.Close(nil)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "direct", "transport strategy: direct|multicast")
	cmd.Flags().StringVar(&addr, "addr", ":9000", "transport address")
	cmd.Flags().BoolVar(&discover, "discover", false, "log senders announced over LAN discovery")
	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", "if set, serve /metrics and /diagnostics on this address")

	if err := cmd.Execute(); err != nil {
		xlog.For("cmd.mirror-receiver").WithError(err).Error("exiting")
		os.Exit(1)
	}
}

func publishReceiverSnapshots(ctx context.Context, hub *diagnostics.Hub, receiver *session.Receiver, stats *frameStats) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hub.Publish(diagnostics.Snapshot{
				SessionID: receiver.ID.String(),
				Role:      "receiver",
				State:     receiver.State().String(),
				QueueDepths: map[string]int{
					"video_frames": int(stats.video.Load()),
					"audio_frames": int(stats.audio.Load()),
				},
				Timestamp: time.Now().Unix(),
			})
		}
	}
}

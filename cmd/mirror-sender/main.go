// Command mirror-sender runs a sender session against a synthetic video
// source and the passthrough reference codec, for exercising the casting
// pipeline and transport strategies without a real platform capture
// backend.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mycrl/mirror/capture"
	"github.com/mycrl/mirror/codec/passthrough"
	"github.com/mycrl/mirror/discovery"
	"github.com/mycrl/mirror/internal/diagnostics"
	"github.com/mycrl/mirror/internal/xlog"
	"github.com/mycrl/mirror/media"
	"github.com/mycrl/mirror/session"
	"github.com/mycrl/mirror/source"
	"github.com/mycrl/mirror/source/fake"
	"github.com/mycrl/mirror/transport"
)

// syntheticVideo generates solid-color frames at a fixed rate, standing in
// for a real screen/camera capture backend.
type syntheticVideo struct {
	width, height, fps int
}

func (s syntheticVideo) VideoFrames(ctx context.Context) (<-chan media.VideoFrame, error) {
	out := make(chan media.VideoFrame)
	go func() {
		defer close(out)
		interval := time.Second / time.Duration(s.fps)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var ts uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pixels := make([]byte, s.width*s.height)
				frame := media.VideoFrame{
					Format:    media.PixelFormatI420,
					SubFormat: media.SubFormatSystemMemory,
					Width:     s.width,
					Height:    s.height,
					Planes:    [3]media.Plane{{Data: pixels, Stride: s.width}},
					Timestamp: ts,
				}
				ts += uint64(interval / time.Microsecond)
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func main() {
	var (
		strategy    string
		addr        string
		width       int
		height      int
		fps         int
		bitRate     int
		debugAddr   string
		announce    bool
		listSources bool
	)

	cmd := &cobra.Command{
		Use:   "mirror-sender",
		Short: "Run a casting sender session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := xlog.For("cmd.mirror-sender")

			if listSources {
				fake.Register()
				for _, kind := range []source.Kind{source.KindScreen, source.KindCamera, source.KindAudio, source.KindWindow} {
					descs, err := source.List(cmd.Context(), kind)
					if err != nil {
						return err
					}
					for _, d := range descs {
						fmt.Printf("%v\t%s\t%s\tdefault=%v\n", d.Kind, d.ID, d.Name, d.Default)
					}
				}
				return nil
			}

			var strat transport.Kind
			var tr transport.Strategy
			var err error
			switch strategy {
			case "direct":
				strat = transport.KindDirect
				tr, err = transport.DialDirect(addr)
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
				Video: media.VideoParams{
					Codec: media.VideoCodecH264, Width: width, Height: height,
					FrameRate: fps, BitRate: bitRate, KeyFrameInterval: media.DefaultKeyFrameInterval,
				},
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sender, err := session.NewSender(ctx, cfg, session.SenderDeps{
				Transport:    tr,
				VideoEncoder: passthrough.NewEncoder(media.DefaultKeyFrameInterval),
				VideoSource:  syntheticVideo{width: width, height: height, fps: fps},
			}, func(reason error) {
				log.WithError(reason).Info("sender closed")
			})
			if err != nil {
				return err
			}

			log.WithField("session", sender.ID).Info("sender running")

			if announce {
				_, err := discovery.Register(ctx, discovery.Record{
					ID: sender.ID.String(),
					Properties: map[string]string{
						"strategy": strategy,
						"address":  addr,
						"width":    fmt.Sprint(width),
						"height":   fmt.Sprint(height),
						"fps":      fmt.Sprint(fps),
					},
				})
				if err != nil {
					log.WithError(err).Warn("discovery announce failed")
				}
			}

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
				go publishSenderSnapshots(ctx, hub, sender)
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			sender.Close(nil)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "direct", "transport strategy: direct|multicast")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9000", "transport address")
	cmd.Flags().IntVar(&width, "width", 1280, "frame width")
	cmd.Flags().IntVar(&height, "height", 720, "frame height")
	cmd.Flags().IntVar(&fps, "fps", 30, "frame rate")
	cmd.Flags().IntVar(&bitRate, "bitrate", 4_000_000, "video bit rate in bits/sec")
	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", "if set, serve /metrics and /diagnostics on this address")
	cmd.Flags().BoolVar(&announce, "announce", false, "announce this session over LAN discovery")
	cmd.Flags().BoolVar(&listSources, "list-sources", false, "list available capture sources and exit")

	if err := cmd.Execute(); err != nil {
		xlog.For("cmd.mirror-sender").WithError(err).Error("exiting")
		os.Exit(1)
	}
}

var _ capture.VideoSource = syntheticVideo{}

func publishSenderSnapshots(ctx context.Context, hub *diagnostics.Hub, sender *session.Sender) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hub.Publish(diagnostics.Snapshot{
				SessionID: sender.ID.String(),
				Role:      "sender",
				State:     sender.State().String(),
				Timestamp: time.Now().Unix(),
			})
		}
	}
}

// Package discovery implements LAN service discovery for casting
// sessions: announce/query of a session's port and properties (id,
// strategy, address, width, height, fps) over a fixed multicast group.
// Unlike RFC 6762 mDNS hostname resolution (which cannot carry arbitrary
// properties), this is a small hand-rolled JSON announce/query protocol
// reusing the multicast group-join plumbing transport.Multicast provides.
package discovery

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"time"

	"github.com/mycrl/mirror/internal/xlog"
	"github.com/mycrl/mirror/transport"
)

// ServiceGroup is the fixed multicast group/port all discovery traffic
// uses, independent of any casting session's own media transport.
const ServiceGroup = "239.255.250.1:9999"

// AnnounceInterval is how often a registered Record is re-broadcast.
const AnnounceInterval = 2 * time.Second

// Record is one announced session's discoverable information.
type Record struct {
	ID         string            `json:"id"`
	Port       int               `json:"port"`
	Properties map[string]string `json:"properties"`
}

type envelope struct {
	Record Record `json:"record"`
}

// Register periodically announces rec on the discovery multicast group
// until the returned io.Closer is closed, which stops the announce
// goroutine and leaves the group.
func Register(ctx context.Context, rec Record) (io.Closer, error) {
	mc, err := transport.JoinMulticast(ServiceGroup, "", 1)
	if err != nil {
		return nil, err
	}
	stop := make(chan struct{})
	go announceLoop(ctx, mc, rec, stop)
	return &registration{mc: mc, stop: stop}, nil
}

type registration struct {
	mc   *transport.Multicast
	stop chan struct{}
}

func (r *registration) Close() error {
	close(r.stop)
	return r.mc.Close()
}

func announceLoop(ctx context.Context, mc *transport.Multicast, rec Record, stop chan struct{}) {
	log := xlog.For("discovery")
	ticker := time.NewTicker(AnnounceInterval)
	defer ticker.Stop()
	send := func() {
		b, err := json.Marshal(envelope{Record: rec})
		if err != nil {
			log.WithError(err).Warn("failed to marshal discovery record")
			return
		}
		if err := mc.Send(ctx, b); err != nil {
			log.WithError(err).Debug("failed to announce discovery record")
		}
	}
	send()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			send()
		}
	}
}

// Query joins the discovery multicast group and invokes cb for every
// announcement observed, until ctx is done.
func Query(ctx context.Context, cb func(addr net.IP, rec Record)) error {
	mc, err := transport.JoinMulticast(ServiceGroup, "", 1)
	if err != nil {
		return err
	}
	defer mc.Close()

	// RecvFrom does not observe ctx, so close the socket on cancellation to
	// unblock it.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			mc.Close()
		case <-stop:
		}
	}()

	log := xlog.For("discovery")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		b, from, err := mc.RecvFrom(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var env envelope
		if err := json.Unmarshal(b, &env); err != nil {
			log.WithError(err).Debug("discarding malformed discovery announcement")
			continue
		}
		var addr net.IP
		if from != nil {
			addr = from.IP
		}
		cb(addr, env.Record)
	}
}

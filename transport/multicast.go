package transport

import (
	"context"
	"net"

	"golang.org/x/net/ipv4"

	"github.com/mycrl/mirror/internal/mirrerr"
	"github.com/mycrl/mirror/internal/xlog"
)

// DefaultMulticastTTL is the default time-to-live for multicast datagrams,
// restricting them to the local network segment.
const DefaultMulticastTTL = 1

// Multicast is a class-D UDP group transport: every session member joins
// the same multicast group and receives every other member's datagrams,
// grounded in the ipv4.PacketConn group-join/TTL pattern used for LAN
// media fan-out.
type Multicast struct {
	conn    *net.UDPConn
	pktConn *ipv4.PacketConn
	group   *net.UDPAddr
	ttl     int
}

// JoinMulticast binds to group (e.g. "239.255.0.1:9100") on the named
// network interface (empty string selects the default interface) and
// joins the multicast group with the given TTL (0 selects
// DefaultMulticastTTL).
func JoinMulticast(group string, iface string, ttl int) (*Multicast, error) {
	if ttl <= 0 {
		ttl = DefaultMulticastTTL
	}
	gaddr, err := net.ResolveUDPAddr("udp4", group)
	if err != nil {
		return nil, mirrerr.New(mirrerr.ParameterRejected, "transport.multicast.join", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: gaddr.Port})
	if err != nil {
		return nil, mirrerr.New(mirrerr.TransportUnreachable, "transport.multicast.listen", err)
	}

	pktConn := ipv4.NewPacketConn(conn)
	var ifi *net.Interface
	if iface != "" {
		ifi, err = net.InterfaceByName(iface)
		if err != nil {
			conn.Close()
			return nil, mirrerr.New(mirrerr.ParameterRejected, "transport.multicast.iface", err)
		}
	}
	if err := pktConn.JoinGroup(ifi, gaddr); err != nil {
		conn.Close()
		return nil, mirrerr.New(mirrerr.TransportUnreachable, "transport.multicast.join_group", err)
	}
	if err := pktConn.SetMulticastTTL(ttl); err != nil {
		xlog.For("transport.multicast").WithError(err).Warn("failed to set multicast TTL")
	}
	if err := pktConn.SetMulticastLoopback(true); err != nil {
		xlog.For("transport.multicast").WithError(err).Debug("failed to enable multicast loopback")
	}

	return &Multicast{conn: conn, pktConn: pktConn, group: gaddr, ttl: ttl}, nil
}

func (m *Multicast) Send(_ context.Context, b []byte) error {
	if _, err := m.conn.WriteToUDP(b, m.group); err != nil {
		xlog.For("transport.multicast").WithError(err).Debug("dropped datagram")
		return nil
	}
	return nil
}

func (m *Multicast) Recv(_ context.Context) ([]byte, error) {
	buf := make([]byte, 65535)
	n, _, err := m.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, mirrerr.New(mirrerr.TransportUnreachable, "transport.multicast.recv", err)
	}
	return buf[:n], nil
}

// RecvFrom behaves like Recv but also returns the sender's address, for
// callers (e.g. discovery) that need to know who a datagram came from.
func (m *Multicast) RecvFrom(_ context.Context) ([]byte, *net.UDPAddr, error) {
	buf := make([]byte, 65535)
	n, addr, err := m.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, mirrerr.New(mirrerr.TransportUnreachable, "transport.multicast.recvfrom", err)
	}
	return buf[:n], addr, nil
}

func (m *Multicast) Close() error {
	if err := m.pktConn.LeaveGroup(nil, m.group); err != nil {
		xlog.For("transport.multicast").WithError(err).Debug("leave group failed")
	}
	return m.conn.Close()
}

// SetTTL updates the multicast TTL for subsequent sends, guarded by the
// underlying socket's own locking.
func (m *Multicast) SetTTL(ttl int) error {
	m.ttl = ttl
	return m.pktConn.SetMulticastTTL(ttl)
}

// SetInterface changes the outbound multicast interface.
func (m *Multicast) SetInterface(iface string) error {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return mirrerr.New(mirrerr.ParameterRejected, "transport.multicast.set_iface", err)
	}
	return m.pktConn.SetMulticastInterface(ifi)
}

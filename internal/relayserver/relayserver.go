// Package relayserver implements the server side of the relay transport
// strategy: a UDP server that fans out each session's datagrams to every
// other subscriber of that session, keyed by a 16-byte session-id token
// prepended by transport.Relay clients. Modeled on the teacher's sfuRoom
// broadcast-to-subscribers pattern (webrtc/sfu.go), generalized from
// WebSocket/WebRTC signaling fan-out to raw UDP datagram fan-out.
package relayserver

import (
	"net"
	"sync"
	"time"

	"github.com/mycrl/mirror/internal/xlog"
)

const tokenSize = 16

// subscriberTTL is how long a subscriber address is kept after its last
// datagram before being dropped from the session's fan-out set.
const subscriberTTL = 30 * time.Second

type session struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
}

type subscriber struct {
	addr     *net.UDPAddr
	lastSeen time.Time
}

// Server is a relay server instance bound to one UDP socket.
type Server struct {
	conn     *net.UDPConn
	mu       sync.Mutex
	sessions map[[tokenSize]byte]*session
}

// Listen binds a relay server to addr (e.g. ":9500").
func Listen(addr string) (*Server, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	return &Server{conn: conn, sessions: make(map[[tokenSize]byte]*session)}, nil
}

// Serve runs the relay loop until the server's socket is closed.
func (s *Server) Serve() error {
	log := xlog.For("relayserver")
	buf := make([]byte, 65535)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		if n < tokenSize {
			continue
		}
		var token [tokenSize]byte
		copy(token[:], buf[:tokenSize])
		payload := append([]byte(nil), buf[tokenSize:n]...)
		s.forward(token, addr, payload)
		log.WithField("bytes", n).Trace("relayed datagram")
	}
}

func (s *Server) forward(token [tokenSize]byte, from *net.UDPAddr, payload []byte) {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	if !ok {
		sess = &session{subscribers: make(map[string]*subscriber)}
		s.sessions[token] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	sess.subscribers[from.String()] = &subscriber{addr: from, lastSeen: time.Now()}
	targets := make([]*net.UDPAddr, 0, len(sess.subscribers))
	for key, sub := range sess.subscribers {
		if time.Since(sub.lastSeen) > subscriberTTL {
			delete(sess.subscribers, key)
			continue
		}
		if key == from.String() {
			continue
		}
		targets = append(targets, sub.addr)
	}
	sess.mu.Unlock()

	for _, addr := range targets {
		_, _ = s.conn.WriteToUDP(payload, addr)
	}
}

// Close shuts down the relay server's socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

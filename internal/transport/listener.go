// Package transport implements the TCP listener and the concurrent RPC
// fan-out that together move Message frames between peers. Each inbound or
// outbound hop is a single dial/write/read over one connection, not a
// framed RPC session, so the fault-injection profile can act directly on
// the line.
package transport

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"adelaide/council/internal/clog"
	"adelaide/council/internal/message"
	"adelaide/council/internal/profile"
)

// InboundReadTimeout bounds how long handleConnection will wait for a peer
// to finish sending its frame. Matches DefaultRPCTimeout so neither side of
// a hop can block longer than the other.
const InboundReadTimeout = DefaultRPCTimeout

// Dispatcher processes one parsed inbound Message and returns the reply to
// write back, or a zero Message with ok=false to send no reply at all.
type Dispatcher interface {
	Dispatch(m message.Message) (reply message.Message, ok bool)
}

// Listener accepts one connection per inbound message, consults the
// inbound profile hooks, and dispatches.
type Listener struct {
	addr    string
	profile *profile.Profile
	dispose Dispatcher
	log     *clog.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewListener constructs a Listener bound to addr once Serve is called.
func NewListener(addr string, p *profile.Profile, d Dispatcher, log *clog.Logger) *Listener {
	return &Listener{addr: addr, profile: p, dispose: d, log: log}
}

// Serve binds the listening socket and runs the accept loop until ctx is
// canceled or Close is called. It blocks until the accept loop exits.
func (s *Listener) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Debugf(clog.Listener, "LISTENING on %s", s.addr)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return err
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// Close closes the listening socket, causing the accept loop to terminate.
func (s *Listener) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Listener) handleConnection(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(InboundReadTimeout))

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return // peer closed without sending a frame
	}
	line = trimNewline(line)

	if s.profile.ShouldDrop() {
		s.log.Debugf(clog.Drop, "DROP msg due to failing profile: %s", line)
		return
	}
	s.profile.Delay()

	req, err := message.Parse(line)
	if err != nil {
		s.log.Debugf(clog.Listener, "malformed frame dropped: %v", err)
		return
	}

	reply, ok := s.dispose.Dispatch(req)
	if !ok {
		return
	}
	_, _ = conn.Write([]byte(reply.Serialize() + "\n"))
}

func trimNewline(s string) string {
	n := len(s)
	for n > 0 && (s[n-1] == '\n' || s[n-1] == '\r') {
		n--
	}
	return s[:n]
}

package transport

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"adelaide/council/internal/clog"
	"adelaide/council/internal/config"
	"adelaide/council/internal/message"
	"adelaide/council/internal/profile"
)

// Default connect and RPC-round-trip timeouts; the proposer broadcasts
// through a Fanout configured with these.
const (
	DefaultConnectTimeout = 800 * time.Millisecond
	DefaultRPCTimeout     = 2000 * time.Millisecond
)

// Fanout sends a Message to every peer except self in parallel and collects
// replies bounded by a deadline: one goroutine per peer, a WaitGroup join,
// replies counted by type rather than by position since arrival order is
// not guaranteed.
type Fanout struct {
	selfID         string
	peers          []config.Peer
	profile        *profile.Profile
	log            *clog.Logger
	connectTimeout time.Duration
	rpcTimeout     time.Duration
}

// NewFanout constructs a Fanout that addresses every peer in others.
func NewFanout(selfID string, others []config.Peer, p *profile.Profile, log *clog.Logger) *Fanout {
	return &Fanout{
		selfID:         selfID,
		peers:          others,
		profile:        p,
		log:            log,
		connectTimeout: DefaultConnectTimeout,
		rpcTimeout:     DefaultRPCTimeout,
	}
}

// Broadcast sends msg to every peer except self and returns whatever
// replies arrive before the RPC deadline elapses. Order is unspecified;
// callers must count by reply type, never by position.
func (f *Fanout) Broadcast(ctx context.Context, msg message.Message) []message.Message {
	ctx, cancel := context.WithTimeout(ctx, f.rpcTimeout)
	defer cancel()

	results := make(chan message.Message, len(f.peers))
	var wg sync.WaitGroup
	for _, peer := range f.peers {
		wg.Add(1)
		go func(peer config.Peer) {
			defer wg.Done()
			reply, ok := f.call(ctx, peer, msg)
			if ok {
				results <- reply
			}
		}(peer)
	}

	// close(results) only happens after every sender has finished, so the
	// collection loop below never ranges over a channel with a live writer
	// still behind it. ctx.Done() only cuts the loop's own wait short; it
	// never closes results early.
	go func() {
		wg.Wait()
		close(results)
	}()

	replies := make([]message.Message, 0, len(f.peers))
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return replies
			}
			replies = append(replies, r)
		case <-ctx.Done():
			// Deadline hit before every call finished; late arrivals are
			// discarded by simply returning without draining further.
			return replies
		}
	}
}

// call performs one outbound request: dial, simulate sender-side
// drop/delay, write the frame, read one reply line, parse it. Every
// failure mode collapses to (zero, false) — an absent reply, never an
// error — so the proposer only ever has to count promises and accepts.
func (f *Fanout) call(ctx context.Context, peer config.Peer, msg message.Message) (message.Message, bool) {
	dialCtx, cancel := context.WithTimeout(ctx, f.connectTimeout)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", peer.Addr())
	if err != nil {
		return message.Message{}, false
	}
	defer conn.Close()

	if f.profile.ShouldDrop() {
		f.log.Debugf(clog.Drop, "DROP outbound -> %s : %s", peer.ID, msg.Serialize())
		return message.Message{}, false
	}
	f.profile.Delay()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(msg.Serialize() + "\n")); err != nil {
		return message.Message{}, false
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return message.Message{}, false
	}
	line = trimNewline(line)

	reply, err := message.Parse(line)
	if err != nil {
		return message.Message{}, false
	}
	return reply, true
}

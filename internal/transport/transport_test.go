package transport_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adelaide/council/internal/clog"
	"adelaide/council/internal/config"
	"adelaide/council/internal/message"
	"adelaide/council/internal/paxosnum"
	"adelaide/council/internal/profile"
	"adelaide/council/internal/transport"
)

// echoDispatcher answers every PREPARE with a PROMISE and drops everything
// else, enough surface to exercise the listener and fanout together.
type echoDispatcher struct {
	id string
}

func (e echoDispatcher) Dispatch(m message.Message) (message.Message, bool) {
	if m.Type != message.PREPARE {
		return message.Message{}, false
	}
	return message.Promise(e.id, m.N, m.N, "seen"), true
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func startListener(t *testing.T, id string, addr string, prof *profile.Profile) {
	t.Helper()
	log := clog.New(id)
	l := transport.NewListener(addr, prof, echoDispatcher{id: id}, log)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		go func() {
			// give Serve a moment to bind before the caller dials.
			time.Sleep(20 * time.Millisecond)
			close(ready)
		}()
		_ = l.Serve(ctx)
	}()
	<-ready
	t.Cleanup(func() {
		cancel()
		l.Close()
	})
}

func TestFanout_BroadcastCollectsPromisesFromReliablePeers(t *testing.T) {
	prof := profile.New(profile.Reliable, 1)

	portA, portB := freePort(t), freePort(t)
	addrA := "127.0.0.1:" + strconv.Itoa(portA)
	addrB := "127.0.0.1:" + strconv.Itoa(portB)
	startListener(t, "M2", addrA, prof)
	startListener(t, "M3", addrB, prof)

	others := []config.Peer{
		{ID: "M2", Host: "127.0.0.1", Port: portA},
		{ID: "M3", Host: "127.0.0.1", Port: portB},
	}
	fanout := transport.NewFanout("M1", others, prof, clog.New("M1"))

	n := paxosnum.ProposalNum{Counter: 1, Member: 1}
	replies := fanout.Broadcast(context.Background(), message.Prepare("M1", n))

	require.Len(t, replies, 2)
	for _, r := range replies {
		require.Equal(t, message.PROMISE, r.Type)
		require.Equal(t, "seen", r.AcceptedV)
	}
}

func TestFanout_UnreachablePeerYieldsNoReplyNotError(t *testing.T) {
	prof := profile.New(profile.Reliable, 2)
	deadPort := freePort(t) // nothing listens here

	others := []config.Peer{{ID: "M2", Host: "127.0.0.1", Port: deadPort}}
	fanout := transport.NewFanout("M1", others, prof, clog.New("M1"))

	n := paxosnum.ProposalNum{Counter: 1, Member: 1}
	replies := fanout.Broadcast(context.Background(), message.Prepare("M1", n))
	require.Empty(t, replies)
}

func TestListener_InboundReadDeadlineUnblocksOnSilentPeer(t *testing.T) {
	prof := profile.New(profile.Reliable, 5)
	port := freePort(t)
	addr := "127.0.0.1:" + strconv.Itoa(port)
	startListener(t, "M2", addr, prof)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	// Open the connection and send nothing: handleConnection must not block
	// forever waiting for a line that never arrives.

	_ = conn.SetReadDeadline(time.Now().Add(transport.InboundReadTimeout + 2*time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err, "the listener must close the idle connection once its read deadline elapses")
}

func TestFanout_BroadcastDoesNotPanicWhenRepliesLandAtDeadline(t *testing.T) {
	// A latent peer's round trip (200-599 ms outbound plus 200-599 ms
	// inbound) straddles the 800 ms deadline each broadcast runs under, so
	// replies land right around the fan-out's deadline. This exercises the
	// close(results)-after-wg.Wait ordering in Broadcast: a late send must
	// never race a closed channel.
	prof := profile.New(profile.Latent, 6)
	port := freePort(t)
	addr := "127.0.0.1:" + strconv.Itoa(port)
	startListener(t, "M2", addr, prof)

	others := []config.Peer{{ID: "M2", Host: "127.0.0.1", Port: port}}
	fanout := transport.NewFanout("M1", others, prof, clog.New("M1"))

	n := paxosnum.ProposalNum{Counter: 1, Member: 1}
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		require.NotPanics(t, func() {
			fanout.Broadcast(ctx, message.Prepare("M1", n))
		})
		cancel()
	}
}

func TestFanout_FailingProfileDropsSomeRepliesAcrossManyAttempts(t *testing.T) {
	prof := profile.New(profile.Failing, 3)
	port := freePort(t)
	addr := "127.0.0.1:" + strconv.Itoa(port)
	startListener(t, "M2", addr, prof)

	others := []config.Peer{{ID: "M2", Host: "127.0.0.1", Port: port}}
	fanout := transport.NewFanout("M1", others, prof, clog.New("M1"))

	n := paxosnum.ProposalNum{Counter: 1, Member: 1}
	gotReply, gotDrop := false, false
	for i := 0; i < 60 && !(gotReply && gotDrop); i++ {
		replies := fanout.Broadcast(context.Background(), message.Prepare("M1", n))
		if len(replies) == 1 {
			gotReply = true
		} else {
			gotDrop = true
		}
	}
	require.True(t, gotDrop, "failing profile should drop at least one of many attempts")
}

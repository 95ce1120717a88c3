// Package member wires one peer's acceptor, learner, proposer, and
// transport together and implements transport.Dispatcher by routing
// inbound requests to the acceptor or learner.
package member

import (
	"context"

	"adelaide/council/internal/acceptor"
	"adelaide/council/internal/clog"
	"adelaide/council/internal/config"
	"adelaide/council/internal/learner"
	"adelaide/council/internal/message"
	"adelaide/council/internal/paxosnum"
	"adelaide/council/internal/profile"
	"adelaide/council/internal/proposer"
	"adelaide/council/internal/transport"
)

// Member is one council member process: it plays proposer, acceptor, and
// learner simultaneously over the same static peer table.
type Member struct {
	ID string

	acceptor *acceptor.Acceptor
	learner  *learner.Learner
	proposer *proposer.Proposer
	listener *transport.Listener
	log      *clog.Logger
}

// New constructs a Member for id, bound to the address the config table
// resolves for id, addressing every other peer in the table.
func New(id string, table *config.Table, prof *profile.Profile) (*Member, error) {
	self, ok := table.Lookup(id)
	if !ok {
		return nil, &UnknownMemberError{ID: id}
	}
	memberIdx, err := paxosnum.MemberIndex(id)
	if err != nil {
		return nil, err
	}

	log := clog.New(id)
	acc := acceptor.New(id, log)
	lrn := learner.New(id, log)
	fanout := transport.NewFanout(id, table.Others(id), prof, log)
	prop := proposer.New(id, memberIdx, table.Majority(), fanout, lrn, log)

	m := &Member{ID: id, acceptor: acc, learner: lrn, proposer: prop, log: log}
	m.listener = transport.NewListener(self.Addr(), prof, m, log)
	return m, nil
}

// UnknownMemberError reports that id has no entry in the static peer table.
type UnknownMemberError struct{ ID string }

func (e *UnknownMemberError) Error() string {
	return "member: unknown member in config: " + e.ID
}

// Serve runs the listener's accept loop until ctx is canceled.
func (m *Member) Serve(ctx context.Context) error {
	return m.listener.Serve(ctx)
}

// Close closes the listening socket, causing Serve to return.
func (m *Member) Close() error {
	return m.listener.Close()
}

// Propose runs one proposer attempt for candidate.
func (m *Member) Propose(ctx context.Context, candidate string) proposer.Result {
	return m.proposer.Propose(ctx, candidate)
}

// Decided reports whether this member's learner has learned a value.
func (m *Member) Decided() (bool, string) {
	return m.learner.Decided()
}

// Acceptor exposes the underlying acceptor, for tests that need to
// pre-seed state to exercise value carry-forward.
func (m *Member) Acceptor() *acceptor.Acceptor {
	return m.acceptor
}

// Dispatch implements transport.Dispatcher: PREPARE and ACCEPT_REQUEST go
// to the acceptor, DECIDE goes to the learner, and anything else gets an
// ERROR reply.
func (m *Member) Dispatch(req message.Message) (message.Message, bool) {
	switch req.Type {
	case message.PREPARE:
		return m.acceptor.HandlePrepare(req.From, req.N), true
	case message.ACCEPT_REQUEST:
		return m.acceptor.HandleAcceptRequest(req.From, req.N, req.Value), true
	case message.DECIDE:
		return m.learner.HandleDecide(req.Value), true
	default:
		return message.Err(m.ID, "unknown type"), true
	}
}

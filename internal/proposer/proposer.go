// Package proposer implements the two-phase proposer protocol: prepare,
// value-carry-forward, accept, decide. A proposal attempt never retries on
// its own; a caller that wants another round issues a fresh Propose call,
// which mints a new, strictly higher proposal number.
package proposer

import (
	"context"
	"sync/atomic"

	"adelaide/council/internal/clog"
	"adelaide/council/internal/learner"
	"adelaide/council/internal/message"
	"adelaide/council/internal/paxosnum"
)

// Broadcaster is the fan-out dependency the proposer drives phase 1 and
// phase 2 through. transport.Fanout satisfies this; tests substitute a
// fake to exercise quorum/value-carry-forward logic without real sockets.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg message.Message) []message.Message
}

// Outcome tags how a single Propose attempt ended.
type Outcome int

const (
	Decided Outcome = iota
	Phase1NoQuorum
	Phase2NoQuorum
)

func (o Outcome) String() string {
	switch o {
	case Decided:
		return "decided"
	case Phase1NoQuorum:
		return "phase1-no-quorum"
	case Phase2NoQuorum:
		return "phase2-no-quorum"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of one propose() attempt.
type Result struct {
	Outcome Outcome
	N       paxosnum.ProposalNum
	Value   string // the value actually proposed in phase 2, if reached
}

// Proposer drives propose attempts for one member. All state is ephemeral
// per attempt; only localCounter is shared across attempts.
type Proposer struct {
	id           string
	memberIdx    int
	majority     int
	localCounter atomic.Int64

	fanout       Broadcaster
	localLearner *learner.Learner
	log          *clog.Logger
}

// New constructs a Proposer for member id (memberIdx is id's numeric
// suffix, e.g. M3 -> 3) addressing a cluster whose quorum size is majority.
func New(id string, memberIdx int, majority int, fanout Broadcaster, localLearner *learner.Learner, log *clog.Logger) *Proposer {
	return &Proposer{
		id:           id,
		memberIdx:    memberIdx,
		majority:     majority,
		fanout:       fanout,
		localLearner: localLearner,
		log:          log,
	}
}

// nextProposalNum mints the next proposal number. The counter increment is
// a single atomic operation; the memberIdx suffix guarantees global
// uniqueness across proposers minting concurrently.
func (p *Proposer) nextProposalNum() paxosnum.ProposalNum {
	c := p.localCounter.Add(1)
	return paxosnum.ProposalNum{Counter: int(c), Member: p.memberIdx}
}

// Propose runs one complete proposal attempt for candidate.
func (p *Proposer) Propose(ctx context.Context, candidate string) Result {
	n := p.nextProposalNum()
	p.log.Debugf(clog.Proposer, "PROPOSE start n=%s v=%q", n, candidate)

	value, ok := p.runPhase1(ctx, n, candidate)
	if !ok {
		return Result{Outcome: Phase1NoQuorum, N: n}
	}

	if !p.runPhase2(ctx, n, value) {
		return Result{Outcome: Phase2NoQuorum, N: n, Value: value}
	}

	p.broadcastDecide(ctx, value)
	return Result{Outcome: Decided, N: n, Value: value}
}

// runPhase1 broadcasts PREPARE(n), applies the value-carry-forward rule
// across the promises received, and reports whether a majority promised.
func (p *Proposer) runPhase1(ctx context.Context, n paxosnum.ProposalNum, candidate string) (string, bool) {
	replies := p.fanout.Broadcast(ctx, message.Prepare(p.id, n))

	highestAcceptedN := paxosnum.MinProposalNum
	value := candidate
	promiseCount := 0
	for _, r := range replies {
		if r.Type != message.PROMISE {
			continue
		}
		promiseCount++
		if r.HasAccN && r.HasAccV && paxosnum.Less(highestAcceptedN, r.AcceptedN) {
			highestAcceptedN = r.AcceptedN
			value = r.AcceptedV
		}
	}

	p.log.Debugf(clog.Proposer, "PHASE1 n=%s promises=%d/%d", n, promiseCount, p.majority)
	return value, promiseCount >= p.majority
}

// runPhase2 broadcasts ACCEPT_REQUEST(n, v) and reports whether a majority
// accepted.
func (p *Proposer) runPhase2(ctx context.Context, n paxosnum.ProposalNum, value string) bool {
	replies := p.fanout.Broadcast(ctx, message.AcceptRequest(p.id, n, value))

	acceptedCount := 0
	for _, r := range replies {
		if r.Type == message.ACCEPTED {
			acceptedCount++
		}
	}

	p.log.Debugf(clog.Proposer, "PHASE2 n=%s accepted=%d/%d", n, acceptedCount, p.majority)
	return acceptedCount >= p.majority
}

// broadcastDecide announces the chosen value to every remote peer and
// drives the local learner through the same codepath so this peer also
// announces consensus.
func (p *Proposer) broadcastDecide(ctx context.Context, value string) {
	p.log.Debugf(clog.Proposer, "DECIDE majority formed; broadcasting DECIDE(%s)", value)
	p.fanout.Broadcast(ctx, message.Decide(p.id, value))
	p.localLearner.HandleDecide(value)
}

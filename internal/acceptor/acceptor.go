// Package acceptor implements the Paxos acceptor state machine: the
// durability/ordering invariants that make the protocol safe. A PREPARE is
// promised only on a strictly higher proposal number; an ACCEPT_REQUEST is
// accepted on any proposal number at or above the highest promised.
package acceptor

import (
	"sync"

	"adelaide/council/internal/clog"
	"adelaide/council/internal/message"
	"adelaide/council/internal/paxosnum"
)

// Acceptor holds the promised/accepted state for one peer. All methods are
// safe for concurrent use; handling is serialized behind a single coarse
// lock.
type Acceptor struct {
	mu sync.Mutex

	promisedN paxosnum.ProposalNum
	acceptedN paxosnum.ProposalNum
	acceptedV string

	id  string
	log *clog.Logger
}

// New constructs an Acceptor for member id, with promisedN and acceptedN
// both initialized to the MIN sentinel.
func New(id string, log *clog.Logger) *Acceptor {
	return &Acceptor{
		id:        id,
		log:       log,
		promisedN: paxosnum.MinProposalNum,
		acceptedN: paxosnum.MinProposalNum,
	}
}

// HandlePrepare implements the PREPARE side of the acceptor contract.
func (a *Acceptor) HandlePrepare(from string, n paxosnum.ProposalNum) message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	if paxosnum.Less(a.promisedN, n) {
		a.promisedN = n
		a.log.Debugf(clog.Acceptor, "PROMISE to %s for n=%s (prev accepted n=%s v=%q)", from, n, a.acceptedN, a.acceptedV)
		return message.Promise(a.id, n, a.acceptedN, a.acceptedV)
	}
	a.log.Debugf(clog.Acceptor, "REJECT PREPARE from %s for n=%s (promised=%s)", from, n, a.promisedN)
	return message.Reject(a.id, n, "promised="+a.promisedN.String())
}

// HandleAcceptRequest implements the ACCEPT_REQUEST side of the acceptor
// contract.
func (a *Acceptor) HandleAcceptRequest(from string, n paxosnum.ProposalNum, v string) message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	if paxosnum.GreaterOrEqual(n, a.promisedN) {
		a.promisedN = n
		a.acceptedN = n
		a.acceptedV = v
		a.log.Debugf(clog.Acceptor, "ACCEPTED n=%s v=%q from %s", n, v, from)
		return message.Accepted(a.id, n, v)
	}
	a.log.Debugf(clog.Acceptor, "REJECT ACCEPT_REQUEST n=%s (promised=%s)", n, a.promisedN)
	return message.Reject(a.id, n, "promised="+a.promisedN.String())
}

// Snapshot returns the current (promisedN, acceptedN, acceptedV) triple.
// Exposed for tests and for pre-seeding an acceptor's state in
// value-carry-forward scenarios.
func (a *Acceptor) Snapshot() (promisedN, acceptedN paxosnum.ProposalNum, acceptedV string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.promisedN, a.acceptedN, a.acceptedV
}

// Seed forcibly sets the acceptor's state, bypassing the normal protocol
// checks. Used only by tests to reproduce a pre-seeded-acceptor scenario.
func (a *Acceptor) Seed(promisedN, acceptedN paxosnum.ProposalNum, acceptedV string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.promisedN = promisedN
	a.acceptedN = acceptedN
	a.acceptedV = acceptedV
}

// Package learner implements the learner role: idempotent decide handling
// and the exactly-once canonical consensus announcement.
package learner

import (
	"sync"

	"adelaide/council/internal/clog"
	"adelaide/council/internal/message"
)

// Learner tracks whether a value has been decided for this peer.
type Learner struct {
	mu sync.Mutex

	decided      bool
	decidedValue string

	id  string
	log *clog.Logger
}

// New constructs a Learner for member id, undecided.
func New(id string, log *clog.Logger) *Learner {
	return &Learner{id: id, log: log}
}

// HandleDecide implements the learner's DECIDE contract: on the first
// DECIDE it records the value and emits the canonical CONSENSUS line exactly
// once;
// every subsequent DECIDE (even with a different value, which cannot happen
// under the safety property but is not re-validated here) is acknowledged
// without re-emitting.
func (l *Learner) HandleDecide(v string) message.Message {
	l.mu.Lock()
	justDecided := false
	if !l.decided {
		l.decided = true
		l.decidedValue = v
		justDecided = true
	}
	l.mu.Unlock()

	if justDecided {
		l.log.Debugf(clog.Learner, "LEARN CONSENSUS: %s has been elected Council President!", v)
		l.log.Announce("CONSENSUS: %s has been elected Council President!", v)
	}
	return message.Ack(l.id)
}

// Decided reports whether this peer has learned a value, and what it is.
func (l *Learner) Decided() (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decided, l.decidedValue
}

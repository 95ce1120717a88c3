// Package message implements the six-field text codec every Paxos role
// speaks on the wire: TYPE|from|n|value|acceptedN|acceptedV, one frame per
// newline-terminated line.
package message

import (
	"errors"
	"fmt"
	"strings"

	"adelaide/council/internal/paxosnum"
)

// Type is the tag of a Message.
type Type int

const (
	PREPARE Type = iota
	PROMISE
	ACCEPT_REQUEST
	ACCEPTED
	DECIDE
	REJECT
	ACK
	ERROR
)

var typeNames = [...]string{
	PREPARE:        "PREPARE",
	PROMISE:        "PROMISE",
	ACCEPT_REQUEST: "ACCEPT_REQUEST",
	ACCEPTED:       "ACCEPTED",
	DECIDE:         "DECIDE",
	REJECT:         "REJECT",
	ACK:            "ACK",
	ERROR:          "ERROR",
}

func (t Type) String() string {
	if int(t) < 0 || int(t) >= len(typeNames) {
		return "UNKNOWN"
	}
	return typeNames[t]
}

func parseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return Type(t), true
		}
	}
	return 0, false
}

// ErrMalformedFrame is returned when a wire line cannot be parsed.
var ErrMalformedFrame = errors.New("message: malformed frame")

// Message is a tagged record carrying the fields relevant to its Type; unused
// fields are left at their zero value, which serializes as an empty field.
type Message struct {
	Type      Type
	From      string
	N         paxosnum.ProposalNum
	HasN      bool
	Value     string
	HasValue  bool
	AcceptedN paxosnum.ProposalNum
	HasAccN   bool
	AcceptedV string
	HasAccV   bool
}

// Prepare builds a PREPARE message.
func Prepare(from string, n paxosnum.ProposalNum) Message {
	return Message{Type: PREPARE, From: from, N: n, HasN: true}
}

// Promise builds a PROMISE message carrying the acceptor's current
// acceptedN (always present, MIN if nothing was ever accepted) and
// acceptedV (present only when acceptedN is not MIN).
func Promise(from string, n paxosnum.ProposalNum, acceptedN paxosnum.ProposalNum, acceptedV string) Message {
	return Message{
		Type: PROMISE, From: from, N: n, HasN: true,
		AcceptedN: acceptedN, HasAccN: true,
		AcceptedV: acceptedV, HasAccV: !acceptedN.IsMin(),
	}
}

// AcceptRequest builds an ACCEPT_REQUEST message.
func AcceptRequest(from string, n paxosnum.ProposalNum, v string) Message {
	return Message{Type: ACCEPT_REQUEST, From: from, N: n, HasN: true, Value: v, HasValue: true}
}

// Accepted builds an ACCEPTED message.
func Accepted(from string, n paxosnum.ProposalNum, v string) Message {
	return Message{Type: ACCEPTED, From: from, N: n, HasN: true, Value: v, HasValue: true}
}

// Decide builds a DECIDE message.
func Decide(from string, v string) Message {
	return Message{Type: DECIDE, From: from, Value: v, HasValue: true}
}

// Reject builds a REJECT message with a human-readable reason in Value.
func Reject(from string, n paxosnum.ProposalNum, reason string) Message {
	return Message{Type: REJECT, From: from, N: n, HasN: true, Value: reason, HasValue: true}
}

// Ack builds a generic ACK message.
func Ack(from string) Message {
	return Message{Type: ACK, From: from}
}

// Err builds an ERROR message with a human-readable reason in Value.
func Err(from string, reason string) Message {
	return Message{Type: ERROR, From: from, Value: reason, HasValue: true}
}

// Serialize renders m as a single wire line, without the trailing newline.
func (m Message) Serialize() string {
	fields := [6]string{
		m.Type.String(),
		m.From,
		optionalProposalNum(m.N, m.HasN),
		optionalString(m.Value, m.HasValue),
		optionalProposalNum(m.AcceptedN, m.HasAccN),
		optionalString(m.AcceptedV, m.HasAccV),
	}
	return strings.Join(fields[:], "|")
}

func optionalProposalNum(n paxosnum.ProposalNum, has bool) string {
	if !has {
		return ""
	}
	return n.String()
}

func optionalString(v string, has bool) string {
	if !has {
		return ""
	}
	return v
}

// Parse parses a single wire line into a Message. It fails with
// ErrMalformedFrame when the field count is not exactly six or the type
// token is unrecognized. Empty fields are treated as absent for n,
// acceptedN, and acceptedV; value and from treat empty and absent the same.
func Parse(line string) (Message, error) {
	fields := strings.Split(line, "|")
	if len(fields) != 6 {
		return Message{}, fmt.Errorf("%w: expected 6 fields, got %d", ErrMalformedFrame, len(fields))
	}
	t, ok := parseType(fields[0])
	if !ok {
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, fields[0])
	}
	m := Message{Type: t, From: fields[1]}

	if fields[2] != "" {
		n, err := paxosnum.ParseProposalNum(fields[2])
		if err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		m.N, m.HasN = n, true
	}
	if fields[3] != "" {
		m.Value, m.HasValue = fields[3], true
	}
	if fields[4] != "" {
		n, err := paxosnum.ParseProposalNum(fields[4])
		if err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		m.AcceptedN, m.HasAccN = n, true
	}
	if fields[5] != "" {
		m.AcceptedV, m.HasAccV = fields[5], true
	}
	return m, nil
}

// Package clog is the council member's logger: a thin, verbosity-gated,
// topic-keyed wrapper. Printf renders "[<memberId>][<HH:MM:SS>] <text>",
// Debugf renders "[<memberId>][<HH:MM:SS>][<topic>] <text>", and Announce
// writes its line with no prefix.
package clog

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Topic loosely categorizes a log line; purely cosmetic.
type Topic string

const (
	Listener Topic = "LSTN"
	Acceptor Topic = "ACEP"
	Learner  Topic = "LEAD"
	Proposer Topic = "PROP"
	Fanout   Topic = "RPC "
	Drop     Topic = "DROP"
	Info     Topic = "INFO"
)

// verbosity is read once from the VERBOSE environment variable; --verbose on
// the CLI raises it to at least 1 via SetVerbose.
var verbosity = envVerbosity()

func envVerbosity() int {
	v := os.Getenv("VERBOSE")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// SetVerbose raises the process-wide verbosity level; called once at
// startup when --verbose is passed.
func SetVerbose() {
	if verbosity < 1 {
		verbosity = 1
	}
}

// Logger renders lines prefixed with one member's id.
type Logger struct {
	memberID string
}

// New returns a Logger for the given member id.
func New(memberID string) *Logger {
	return &Logger{memberID: memberID}
}

// Printf always emits, prefixed with this member's id and the current time.
func (l *Logger) Printf(format string, args ...any) {
	fmt.Printf("[%s][%s] %s\n", l.memberID, time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// Announce always emits, with no prefix at all. Used for the canonical
// CONSENSUS: line, which must appear on stdout verbatim.
func (l *Logger) Announce(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// Debugf emits only when verbosity is enabled.
func (l *Logger) Debugf(topic Topic, format string, args ...any) {
	if verbosity < 1 {
		return
	}
	fmt.Printf("[%s][%s][%s] %s\n", l.memberID, time.Now().Format("15:04:05"), topic, fmt.Sprintf(format, args...))
}

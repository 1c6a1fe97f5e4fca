package executor

import (
	"time"

	"navd/internal/geo"
)

// FollowParams are the fixed execution parameters attached to a
// path-following command. They are configuration constants, not computed.
type FollowParams struct {
	TargetSpeed       float64 // m/s
	PositionTolerance float64 // meters
}

// OutcomeCode describes how a path-following command ended.
type OutcomeCode int

const (
	Succeeded OutcomeCode = iota
	Cancelled
	Aborted
)

func (c OutcomeCode) String() string {
	switch c {
	case Succeeded:
		return "SUCCEEDED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "ABORTED"
	}
}

// Outcome is delivered asynchronously when a command finishes.
type Outcome struct {
	Code OutcomeCode
	Err  error
}

// DoneFunc is the completion continuation registered with SendPath. It is
// invoked exactly once per command, from the client's own goroutine.
type DoneFunc func(Outcome)

// Client drives the downstream path-execution actuator through a remote
// call abstraction.
type Client interface {
	// WaitReady blocks until the endpoint accepts commands, or the timeout
	// elapses. Returns false on timeout.
	WaitReady(timeout time.Duration) bool

	// SendPath submits a path-following command. It is a non-blocking
	// enqueue; the result is observed later via done. A new command
	// supersedes any outstanding one, which completes as Cancelled.
	SendPath(path geo.Path, params FollowParams, done DoneFunc)

	// CancelAll cancels any outstanding command. Safe to call at any time,
	// including when nothing is outstanding.
	CancelAll()
}

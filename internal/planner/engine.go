package planner

import (
	"fmt"

	"navd/internal/costmap"
	"navd/internal/geo"
)

// Engine is the stateful planning collaborator the supervisor drives. It is
// not safe for concurrent invocation: map and goal setters have ordering
// dependencies on the update and query calls, so all calls must come from a
// single goroutine.
type Engine interface {
	// SetGlobalMap installs the long-range occupancy grid. The engine takes
	// ownership of the grid; callers pass a clone, never a shared buffer.
	SetGlobalMap(g *costmap.Grid)

	// SetLocalMap installs a fresh short-range snapshot, same ownership rule.
	SetLocalMap(g *costmap.Grid)

	// SetGoal plans an initial route from start to goal. A reachable goal
	// leaves HasValidPath true and a fresh local segment pending. An
	// unreachable goal is not an error; it leaves HasValidPath false.
	SetGoal(start, goal geo.Pose) error

	// Update refreshes the local segment for the given pose. With force set
	// it recomputes the global route from scratch.
	Update(pose geo.Pose, forceReplan bool) error

	IsGoalReached(pose geo.Pose) bool
	HasValidPath() bool

	// HasNewLocalPath reports whether a local segment is pending that has
	// not been fetched via LocalPath yet.
	HasNewLocalPath() bool

	// LocalPath returns the current local segment and clears the
	// new-segment flag.
	LocalPath() geo.Path

	GlobalPath() []geo.Point
	GlobalWaypoints() []geo.Pose
}

// Error is a planner-internal failure: inconsistent engine state or invalid
// input, as opposed to a merely unreachable goal.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("planner: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(op, format string, args ...any) *Error {
	return &Error{Op: op, Err: fmt.Errorf(format, args...)}
}

package supervisor

import (
	"time"

	"navd/internal/geo"
	"navd/internal/metrics"
)

// MissionState is the supervisor's externally visible state. There is no
// paused or replanning substate.
type MissionState int

const (
	StateIdle MissionState = iota
	StateActive
)

func (s MissionState) String() string {
	if s == StateActive {
		return "ACTIVE"
	}
	return "IDLE"
}

// Mission is the supervisor's record of the goal currently being pursued.
// Owned exclusively by the supervisor loop; mutated only through activation
// and deactivation.
type Mission struct {
	ID        string
	Goal      geo.Pose
	StartedAt time.Time
	Metrics   *metrics.MissionMetrics
}

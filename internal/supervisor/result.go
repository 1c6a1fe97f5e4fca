package supervisor

import "navd/internal/metrics"

// Mission outcomes reported on the result channel.
const (
	OutcomeReached   = "REACHED"
	OutcomeAborted   = "ABORTED"
	OutcomePreempted = "PREEMPTED"
)

// MissionResult is emitted once per mission when it leaves the Active state.
type MissionResult struct {
	MissionID string                  `json:"mission_id"`
	Goal      string                  `json:"goal"`
	Outcome   string                  `json:"outcome"`
	Error     string                  `json:"error,omitempty"`
	Metrics   *metrics.MissionMetrics `json:"metrics,omitempty"`
}

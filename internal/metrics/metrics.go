package metrics

import "time"

// MissionMetrics accumulates per-mission counters while a mission is
// active and is finalized when the mission ends.
type MissionMetrics struct {
	MissionID  string    `json:"mission_id"`
	Goal       string    `json:"goal"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Ticks      int       `json:"ticks"`
	Replans    int       `json:"replans"`
	PathsSent  int       `json:"paths_sent"`
	Outcome    string    `json:"outcome"`
}

// Finalize computes derived fields once the mission has ended.
func (m *MissionMetrics) Finalize(outcome string) {
	m.End = time.Now()
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
	m.Outcome = outcome
}

package display

import (
	"fmt"
	"strings"

	"navd/internal/supervisor"
)

// FormatMissionResult renders a completed mission for the console.
func FormatMissionResult(res supervisor.MissionResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[Mission %s %s] goal %s", res.MissionID, res.Outcome, res.Goal))
	if res.Error != "" {
		sb.WriteString(fmt.Sprintf("\n  reason: %s", res.Error))
	}
	if mm := res.Metrics; mm != nil {
		sb.WriteString(fmt.Sprintf("\n  %d ms, %d ticks, %d replans, %d paths sent",
			mm.DurationMs, mm.Ticks, mm.Replans, mm.PathsSent))
	}
	return sb.String()
}

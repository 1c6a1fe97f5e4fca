package display

import (
	"strings"
	"testing"

	"navd/internal/geo"
	"navd/internal/metrics"
	"navd/internal/supervisor"
)

func TestFormatPath(t *testing.T) {
	p := geo.Path{{X: 0, Y: 0}, {X: 3, Y: 4}}

	out := FormatPath(p, "map")

	if !strings.Contains(out, "frame map") {
		t.Error("output is missing the frame")
	}
	if !strings.Contains(out, "2 poses") {
		t.Error("output is missing the pose count")
	}
	if !strings.Contains(out, "5.00 m") {
		t.Error("output is missing the path length")
	}
}

func TestFormatPathTruncatesLongPaths(t *testing.T) {
	p := make(geo.Path, 30)
	out := FormatPath(p, "map")

	if !strings.Contains(out, "more") {
		t.Error("expected long paths to be truncated with a 'more' marker")
	}
	if strings.Count(out, "[") > maxListedPoses {
		t.Error("expected at most maxListedPoses listed poses")
	}
}

func TestFormatPathEmpty(t *testing.T) {
	out := FormatPath(nil, "map")
	if !strings.Contains(out, "cleared") {
		t.Errorf("empty path output = %q", out)
	}
}

func TestFormatWaypoints(t *testing.T) {
	out := FormatWaypoints([]geo.Pose{{X: 1, Y: 2}, {X: 3, Y: 4}})
	if !strings.Contains(out, "(1.0, 2.0)") || !strings.Contains(out, "(3.0, 4.0)") {
		t.Errorf("waypoint output = %q", out)
	}

	if out := FormatWaypoints(nil); !strings.Contains(out, "No waypoints") {
		t.Errorf("empty waypoint output = %q", out)
	}
}

func TestFormatMissionResult(t *testing.T) {
	res := supervisor.MissionResult{
		MissionID: "ab12cd34",
		Goal:      "(5.00, 5.00, 0.00)",
		Outcome:   supervisor.OutcomeAborted,
		Error:     "no transform available",
		Metrics: &metrics.MissionMetrics{
			DurationMs: 1234,
			Ticks:      12,
			Replans:    2,
			PathsSent:  3,
		},
	}

	out := FormatMissionResult(res)

	for _, want := range []string{"ab12cd34", "ABORTED", "no transform available", "1234 ms", "12 ticks", "2 replans", "3 paths sent"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q is missing %q", out, want)
		}
	}
}

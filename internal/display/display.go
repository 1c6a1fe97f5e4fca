package display

import (
	"fmt"
	"strings"

	"navd/internal/geo"
)

const maxListedPoses = 8

// FormatPath renders a one-line path summary plus its first poses.
func FormatPath(p geo.Path, frame string) string {
	if len(p) == 0 {
		return fmt.Sprintf("Path cleared (frame %s).", frame)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Path in frame %s: %d poses, %.2f m\n", frame, len(p), p.Length()))
	for i, pose := range p {
		if i >= maxListedPoses {
			sb.WriteString(fmt.Sprintf("  ... %d more\n", len(p)-maxListedPoses))
			break
		}
		sb.WriteString(fmt.Sprintf("  [%d] (%.2f, %.2f) @ %.2f rad\n", i, pose.X, pose.Y, pose.Heading))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatWaypoints renders the sparse waypoint list.
func FormatWaypoints(wp []geo.Pose) string {
	if len(wp) == 0 {
		return "No waypoints."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Waypoints (%d):", len(wp)))
	for _, p := range wp {
		sb.WriteString(fmt.Sprintf(" (%.1f, %.1f)", p.X, p.Y))
	}
	return sb.String()
}

package mapsource

import (
	"os"
	"path/filepath"
	"testing"

	"navd/internal/costmap"
	"navd/internal/geo"
)

const demoScenario = `
frame: map
resolution: 0.5
width: 20
height: 20
origin: {x: 0.0, y: 0.0}
thresholds: {lower: 128, upper: 250}
obstacles:
  - {x0: 4.6, y0: 0.0, x1: 5.4, y1: 8.0}
frames:
  odom: {x: 1.0, y: 1.0, heading: 0.0}
start: {x: 1.0, y: 1.0, heading: 0.0}
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing scenario: %v", err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, demoScenario))
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}

	if sc.Frame != "map" {
		t.Errorf("frame = %q, want map", sc.Frame)
	}
	if sc.Width != 20 || sc.Height != 20 {
		t.Errorf("dimensions = %dx%d, want 20x20", sc.Width, sc.Height)
	}
	if sc.Start.X != 1.0 || sc.Start.Y != 1.0 {
		t.Errorf("start = %+v", sc.Start)
	}
	if _, ok := sc.Frames["odom"]; !ok {
		t.Error("expected the odom frame to be present")
	}
}

func TestLoadScenarioRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "missing frame", content: "resolution: 0.5\nwidth: 10\nheight: 10\n"},
		{name: "zero resolution", content: "frame: map\nwidth: 10\nheight: 10\n"},
		{name: "bad dimensions", content: "frame: map\nresolution: 0.5\nwidth: 0\nheight: 10\n"},
		{name: "not yaml", content: "{{{{"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadScenario(writeScenario(t, tc.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestScenarioGridRasterizesObstacles(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, demoScenario))
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}

	g := sc.Grid()
	cx, cy, ok := g.WorldToCell(5.0, 4.0)
	if !ok {
		t.Fatal("obstacle cell out of bounds")
	}
	if g.StateAt(cx, cy) != costmap.Occupied {
		t.Error("expected the obstacle region to be occupied")
	}
	cx, cy, _ = g.WorldToCell(1.0, 1.0)
	if g.StateAt(cx, cy) != costmap.Free {
		t.Error("expected the start region to be free")
	}

	// Each call yields an independent buffer.
	g2 := sc.Grid()
	g2.Set(0, 0, 255)
	if g.At(0, 0) != 0 {
		t.Error("grids returned by Grid() share a buffer")
	}
}

func TestWindowSnapshot(t *testing.T) {
	w := NewWindow(2.0, 0.4)

	if _, err := w.Snapshot(geo.Pose{X: 1, Y: 1}); err == nil {
		t.Error("expected an error before any source grid is set")
	}

	src := costmap.New("map", 20, 20, 0.5, 0, 0)
	src.FillRect(1.5, 1.5, 2.5, 2.5, 254)
	// Obstacle overlapping the robot footprint gets cleared.
	src.FillRect(0.6, 0.6, 1.4, 1.4, 254)
	w.SetSource(src)

	snap, err := w.Snapshot(geo.Pose{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Frame != "map" {
		t.Errorf("snapshot frame = %q, want map", snap.Frame)
	}

	cx, cy, ok := snap.WorldToCell(2.0, 2.0)
	if !ok {
		t.Fatal("expected the obstacle to be inside the window")
	}
	if snap.StateAt(cx, cy) != costmap.Occupied {
		t.Error("expected the nearby obstacle to stay occupied")
	}

	cx, cy, _ = snap.WorldToCell(1.0, 1.0)
	if snap.StateAt(cx, cy) != costmap.Free {
		t.Error("expected the robot footprint to be cleared")
	}

	if _, _, ok := snap.WorldToCell(9.0, 9.0); ok {
		t.Error("expected points outside the window to be excluded")
	}
}

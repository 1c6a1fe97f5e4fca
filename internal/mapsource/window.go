package mapsource

import (
	"fmt"
	"sync"

	"navd/internal/costmap"
	"navd/internal/geo"
)

// Window is a rolling local-map source: each snapshot crops a square window
// around the robot out of the most recent environment grid and clears the
// robot footprint. Safe for concurrent SetSource/Snapshot.
type Window struct {
	mu          sync.Mutex
	src         *costmap.Grid
	halfExtent  float64
	clearRadius float64
}

func NewWindow(halfExtent, clearRadius float64) *Window {
	return &Window{halfExtent: halfExtent, clearRadius: clearRadius}
}

// SetSource swaps in a new environment grid. The window takes ownership.
func (w *Window) SetSource(g *costmap.Grid) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.src = g
}

// Snapshot returns a fresh local grid centered on the given pose.
func (w *Window) Snapshot(center geo.Pose) (*costmap.Grid, error) {
	w.mu.Lock()
	src := w.src
	w.mu.Unlock()
	if src == nil {
		return nil, fmt.Errorf("mapsource: no environment grid yet")
	}
	crop, err := src.Crop(center.X, center.Y, w.halfExtent)
	if err != nil {
		return nil, err
	}
	if w.clearRadius > 0 {
		crop.FillCircle(center.X, center.Y, w.clearRadius, 0)
	}
	return crop, nil
}

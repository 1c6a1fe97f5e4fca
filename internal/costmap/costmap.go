package costmap

import "fmt"

// State classifies a grid cell for planning purposes.
type State int

const (
	Free State = iota
	Occupied
	Unknown
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Occupied:
		return "occupied"
	default:
		return "unknown"
	}
}

// Default classification thresholds for 0..255 cell values.
const (
	DefaultLowerThreshold uint8 = 128
	DefaultUpperThreshold uint8 = 250
)

// Grid is an occupancy snapshot: cell values on a regular grid, an associated
// coordinate frame, and thresholds classifying free/occupied/unknown.
//
// A Grid has exactly one owner at a time. Components that cache grids swap
// them wholesale on refresh and hand out clones instead of sharing a buffer.
type Grid struct {
	Frame      string
	Width      int     // cells
	Height     int     // cells
	Resolution float64 // meters per cell
	OriginX    float64 // world position of the (0,0) cell corner
	OriginY    float64
	Lower      uint8
	Upper      uint8

	cells []uint8
}

func New(frame string, width, height int, resolution, originX, originY float64) *Grid {
	return &Grid{
		Frame:      frame,
		Width:      width,
		Height:     height,
		Resolution: resolution,
		OriginX:    originX,
		OriginY:    originY,
		Lower:      DefaultLowerThreshold,
		Upper:      DefaultUpperThreshold,
		cells:      make([]uint8, width*height),
	}
}

func (g *Grid) SetThresholds(lower, upper uint8) {
	g.Lower = lower
	g.Upper = upper
}

func (g *Grid) InBounds(cx, cy int) bool {
	return cx >= 0 && cy >= 0 && cx < g.Width && cy < g.Height
}

func (g *Grid) At(cx, cy int) uint8 {
	return g.cells[cy*g.Width+cx]
}

func (g *Grid) Set(cx, cy int, v uint8) {
	g.cells[cy*g.Width+cx] = v
}

// Classify maps a raw cell value onto the free/occupied/unknown taxonomy.
func (g *Grid) Classify(v uint8) State {
	switch {
	case v < g.Lower:
		return Free
	case v >= g.Upper:
		return Occupied
	default:
		return Unknown
	}
}

// StateAt classifies the cell at (cx, cy). Out-of-bounds cells are Unknown.
func (g *Grid) StateAt(cx, cy int) State {
	if !g.InBounds(cx, cy) {
		return Unknown
	}
	return g.Classify(g.At(cx, cy))
}

// WorldToCell converts world coordinates to cell indices.
func (g *Grid) WorldToCell(x, y float64) (int, int, bool) {
	cx := int((x - g.OriginX) / g.Resolution)
	cy := int((y - g.OriginY) / g.Resolution)
	return cx, cy, g.InBounds(cx, cy)
}

// CellCenter returns the world coordinates of a cell's center.
func (g *Grid) CellCenter(cx, cy int) (float64, float64) {
	x := g.OriginX + (float64(cx)+0.5)*g.Resolution
	y := g.OriginY + (float64(cy)+0.5)*g.Resolution
	return x, y
}

func (g *Grid) Contains(x, y float64) bool {
	_, _, ok := g.WorldToCell(x, y)
	return ok
}

// Clone returns an independent copy sharing no buffer with the receiver.
func (g *Grid) Clone() *Grid {
	out := *g
	out.cells = make([]uint8, len(g.cells))
	copy(out.cells, g.cells)
	return &out
}

// FillRect sets every cell whose center lies inside the world-coordinate
// rectangle [x0,x1]x[y0,y1] to v. Cells outside the grid are skipped.
func (g *Grid) FillRect(x0, y0, x1, y1 float64, v uint8) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for cy := 0; cy < g.Height; cy++ {
		for cx := 0; cx < g.Width; cx++ {
			x, y := g.CellCenter(cx, cy)
			if x >= x0 && x <= x1 && y >= y0 && y <= y1 {
				g.Set(cx, cy, v)
			}
		}
	}
}

// FillCircle sets every cell whose center lies within radius of (x, y) to v.
func (g *Grid) FillCircle(x, y, radius float64, v uint8) {
	r2 := radius * radius
	for cy := 0; cy < g.Height; cy++ {
		for cx := 0; cx < g.Width; cx++ {
			px, py := g.CellCenter(cx, cy)
			dx, dy := px-x, py-y
			if dx*dx+dy*dy <= r2 {
				g.Set(cx, cy, v)
			}
		}
	}
}

// Crop extracts the square window of the given half extent centered on the
// world point (x, y), clamped to the grid bounds. The result is a new grid
// in the same frame with an adjusted origin.
func (g *Grid) Crop(x, y, halfExtent float64) (*Grid, error) {
	if halfExtent <= 0 {
		return nil, fmt.Errorf("costmap: invalid crop extent %v", halfExtent)
	}
	minX := int((x - halfExtent - g.OriginX) / g.Resolution)
	minY := int((y - halfExtent - g.OriginY) / g.Resolution)
	maxX := int((x + halfExtent - g.OriginX) / g.Resolution)
	maxY := int((y + halfExtent - g.OriginY) / g.Resolution)
	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, g.Width-1)
	maxY = min(maxY, g.Height-1)
	if minX > maxX || minY > maxY {
		return nil, fmt.Errorf("costmap: crop center (%.2f, %.2f) outside grid", x, y)
	}

	out := New(g.Frame, maxX-minX+1, maxY-minY+1, g.Resolution,
		g.OriginX+float64(minX)*g.Resolution,
		g.OriginY+float64(minY)*g.Resolution)
	out.SetThresholds(g.Lower, g.Upper)
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			out.Set(cx-minX, cy-minY, g.At(cx, cy))
		}
	}
	return out, nil
}

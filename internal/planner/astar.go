package planner

import (
	"container/heap"
	"math"

	"navd/internal/costmap"
	"navd/internal/geo"
)

type cell struct {
	x, y int
}

// searchGrid runs A* between two world points on an occupancy grid and
// returns the route as world points (exact start and goal, cell centers in
// between). found is false when no route exists.
func searchGrid(g *costmap.Grid, start, goal geo.Point, allowUnknown bool) (pts []geo.Point, found bool) {
	sx, sy, ok := g.WorldToCell(start.X, start.Y)
	if !ok {
		return nil, false
	}
	gx, gy, ok := g.WorldToCell(goal.X, goal.Y)
	if !ok {
		return nil, false
	}
	sc, gc := cell{sx, sy}, cell{gx, gy}
	if blocked(g, gc, allowUnknown) {
		return nil, false
	}
	if sc == gc {
		return []geo.Point{start, goal}, true
	}

	h := func(c cell) float64 {
		// Octile distance, admissible for 8-connected moves.
		dx := math.Abs(float64(c.x - gc.x))
		dy := math.Abs(float64(c.y - gc.y))
		return (dx + dy + (math.Sqrt2-2)*math.Min(dx, dy)) * g.Resolution
	}

	open := &openSet{}
	heap.Init(open)
	gScore := map[cell]float64{sc: 0}
	cameFrom := map[cell]cell{}
	closed := map[cell]bool{}
	heap.Push(open, &node{c: sc, f: h(sc)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if closed[cur.c] {
			continue
		}
		if cur.c == gc {
			return reconstruct(g, cameFrom, sc, gc, start, goal), true
		}
		closed[cur.c] = true

		for _, d := range neighbors {
			next := cell{cur.c.x + d.dx, cur.c.y + d.dy}
			if !g.InBounds(next.x, next.y) || closed[next] || blocked(g, next, allowUnknown) {
				continue
			}
			// A diagonal move must not cut an occupied corner.
			if d.dx != 0 && d.dy != 0 {
				if blocked(g, cell{cur.c.x + d.dx, cur.c.y}, allowUnknown) ||
					blocked(g, cell{cur.c.x, cur.c.y + d.dy}, allowUnknown) {
					continue
				}
			}
			tentative := gScore[cur.c] + d.cost*g.Resolution
			if old, seen := gScore[next]; seen && tentative >= old {
				continue
			}
			gScore[next] = tentative
			cameFrom[next] = cur.c
			heap.Push(open, &node{c: next, f: tentative + h(next)})
		}
	}
	return nil, false
}

func blocked(g *costmap.Grid, c cell, allowUnknown bool) bool {
	switch g.StateAt(c.x, c.y) {
	case costmap.Occupied:
		return true
	case costmap.Unknown:
		return !allowUnknown
	default:
		return false
	}
}

func reconstruct(g *costmap.Grid, cameFrom map[cell]cell, sc, gc cell, start, goal geo.Point) []geo.Point {
	var cells []cell
	for c := gc; c != sc; c = cameFrom[c] {
		cells = append(cells, c)
	}
	cells = append(cells, sc)

	pts := make([]geo.Point, 0, len(cells)+1)
	pts = append(pts, start)
	for i := len(cells) - 2; i > 0; i-- {
		x, y := g.CellCenter(cells[i].x, cells[i].y)
		pts = append(pts, geo.Point{X: x, Y: y})
	}
	pts = append(pts, goal)
	return flatten(pts)
}

// flatten drops interior points that are collinear with their neighbors.
func flatten(pts []geo.Point) []geo.Point {
	if len(pts) < 3 {
		return pts
	}
	out := []geo.Point{pts[0]}
	for i := 1; i < len(pts)-1; i++ {
		a, b, c := out[len(out)-1], pts[i], pts[i+1]
		cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
		if math.Abs(cross) > 1e-9 {
			out = append(out, b)
		}
	}
	return append(out, pts[len(pts)-1])
}

var neighbors = []struct {
	dx, dy int
	cost   float64
}{
	{1, 0, 1}, {-1, 0, 1}, {0, 1, 1}, {0, -1, 1},
	{1, 1, math.Sqrt2}, {1, -1, math.Sqrt2}, {-1, 1, math.Sqrt2}, {-1, -1, math.Sqrt2},
}

type node struct {
	c cell
	f float64
}

type openSet []*node

func (s openSet) Len() int           { return len(s) }
func (s openSet) Less(i, j int) bool { return s[i].f < s[j].f }
func (s openSet) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x any)        { *s = append(*s, x.(*node)) }
func (s *openSet) Pop() any {
	old := *s
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*s = old[:n-1]
	return item
}

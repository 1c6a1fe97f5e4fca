package planner

import (
	"math"

	"navd/internal/costmap"
	"navd/internal/geo"
)

// Options tune the combined planner. Zero values select the defaults.
type Options struct {
	GoalTolerance   float64 // meters, default 0.25
	WaypointSpacing float64 // meters between global waypoints, default 2.0
	LocalHorizon    float64 // length of the local segment, default 5.0
	AllowUnknown    bool    // treat unknown cells as traversable
}

func (o Options) withDefaults() Options {
	if o.GoalTolerance <= 0 {
		o.GoalTolerance = 0.25
	}
	if o.WaypointSpacing <= 0 {
		o.WaypointSpacing = 2.0
	}
	if o.LocalHorizon <= 0 {
		o.LocalHorizon = 5.0
	}
	return o
}

// Combined is a two-layer planner: a grid search over the global map yields
// a flattened route and sparse waypoints, and every update re-extracts the
// near-term segment of that route, checked against the local map.
//
// Not safe for concurrent use; see Engine.
type Combined struct {
	opts Options

	gmap *costmap.Grid
	lmap *costmap.Grid

	goal     geo.Pose
	goalSet  bool
	valid    bool
	newLocal bool

	globalPath []geo.Point
	waypoints  []geo.Pose
	localPath  geo.Path
}

var _ Engine = (*Combined)(nil)

func NewCombined(opts Options) *Combined {
	return &Combined{opts: opts.withDefaults()}
}

func (c *Combined) SetGlobalMap(g *costmap.Grid) { c.gmap = g }
func (c *Combined) SetLocalMap(g *costmap.Grid)  { c.lmap = g }

func (c *Combined) SetGoal(start, goal geo.Pose) error {
	c.reset()
	if c.gmap == nil {
		return errf("set_goal", "no global map")
	}
	if !c.gmap.Contains(goal.X, goal.Y) {
		return errf("set_goal", "goal (%.2f, %.2f) outside global map", goal.X, goal.Y)
	}
	if !c.gmap.Contains(start.X, start.Y) {
		return errf("set_goal", "start (%.2f, %.2f) outside global map", start.X, start.Y)
	}
	c.goal = goal
	c.goalSet = true
	return c.replan(start)
}

func (c *Combined) Update(pose geo.Pose, forceReplan bool) error {
	if !c.goalSet {
		return errf("update", "no goal set")
	}
	if !c.valid {
		return nil
	}
	if forceReplan || c.segmentBlocked() {
		return c.replan(pose)
	}
	seg := c.extractLocal(pose)
	if !geo.EqualPaths(seg, c.localPath, 1e-6) {
		c.localPath = seg
		c.newLocal = true
	}
	return nil
}

func (c *Combined) IsGoalReached(pose geo.Pose) bool {
	return c.goalSet && pose.DistTo(c.goal) <= c.opts.GoalTolerance
}

func (c *Combined) HasValidPath() bool    { return c.valid }
func (c *Combined) HasNewLocalPath() bool { return c.newLocal }

func (c *Combined) LocalPath() geo.Path {
	c.newLocal = false
	return c.localPath.Clone()
}

func (c *Combined) GlobalPath() []geo.Point {
	out := make([]geo.Point, len(c.globalPath))
	copy(out, c.globalPath)
	return out
}

func (c *Combined) GlobalWaypoints() []geo.Pose {
	out := make([]geo.Pose, len(c.waypoints))
	copy(out, c.waypoints)
	return out
}

func (c *Combined) reset() {
	c.goalSet = false
	c.valid = false
	c.newLocal = false
	c.globalPath = nil
	c.waypoints = nil
	c.localPath = nil
}

// replan recomputes the global route from the given pose. An unreachable
// goal clears the valid flag without raising an error.
func (c *Combined) replan(from geo.Pose) error {
	pts, found := searchGrid(c.gmap, from.Point(), c.goal.Point(), c.opts.AllowUnknown)
	if !found {
		c.valid = false
		c.globalPath = nil
		c.waypoints = nil
		c.localPath = nil
		return nil
	}
	c.globalPath = pts
	c.waypoints = c.extractWaypoints(pts)
	c.valid = true
	c.localPath = c.extractLocal(from)
	c.newLocal = true
	return nil
}

// extractWaypoints thins the global route to poses roughly WaypointSpacing
// apart. The final waypoint carries the goal heading.
func (c *Combined) extractWaypoints(pts []geo.Point) []geo.Pose {
	if len(pts) == 0 {
		return nil
	}
	route := geo.PathFromPoints(pts)
	wps := []geo.Pose{route[0]}
	var since float64
	for i := 1; i < len(route); i++ {
		since += route[i-1].DistTo(route[i])
		if since >= c.opts.WaypointSpacing {
			wps = append(wps, route[i])
			since = 0
		}
	}
	last := route[len(route)-1]
	last.Heading = c.goal.Heading
	if len(wps) == 0 || wps[len(wps)-1].DistTo(last) > 1e-9 {
		wps = append(wps, last)
	} else {
		wps[len(wps)-1] = last
	}
	return wps
}

// extractLocal cuts the near-term segment of the global route: the pose is
// projected onto the route polyline, then the segment runs forward in
// grid-resolution steps until LocalHorizon meters are covered.
func (c *Combined) extractLocal(pose geo.Pose) geo.Path {
	if len(c.globalPath) == 0 {
		return nil
	}
	step := 0.5
	if c.gmap != nil && c.gmap.Resolution > 0 {
		step = c.gmap.Resolution
	}

	i, cur := projectOntoRoute(c.globalPath, pose.Point())
	pts := []geo.Point{pose.Point()}
	covered := geo.Dist(pose.Point(), cur)
	if covered > 1e-9 {
		pts = append(pts, cur)
	}

	for covered < c.opts.LocalHorizon && i < len(c.globalPath)-1 {
		target := c.globalPath[i+1]
		d := geo.Dist(cur, target)
		if d < 1e-9 {
			i++
			continue
		}
		move := math.Min(step, d)
		cur = geo.Point{
			X: cur.X + (target.X-cur.X)*move/d,
			Y: cur.Y + (target.Y-cur.Y)*move/d,
		}
		covered += move
		pts = append(pts, cur)
		if geo.Dist(cur, target) < 1e-9 {
			i++
		}
	}

	seg := geo.PathFromPoints(pts)
	if len(seg) > 0 && i >= len(c.globalPath)-1 {
		// Segment reaches the goal, keep the goal heading on the last pose.
		seg[len(seg)-1].Heading = c.goal.Heading
	}
	return seg
}

// projectOntoRoute finds the closest point on the route polyline and the
// index of the segment it lies on.
func projectOntoRoute(route []geo.Point, p geo.Point) (int, geo.Point) {
	bestI, bestPt := 0, route[0]
	bestD := geo.Dist(p, route[0])
	for i := 0; i < len(route)-1; i++ {
		q := closestOnSegment(route[i], route[i+1], p)
		if d := geo.Dist(p, q); d < bestD {
			bestI, bestPt, bestD = i, q, d
		}
	}
	return bestI, bestPt
}

func closestOnSegment(a, b, p geo.Point) geo.Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return a
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return geo.Point{X: a.X + t*dx, Y: a.Y + t*dy}
}

// segmentBlocked checks the current local segment against the local map.
// Poses outside the local window are not judged.
func (c *Combined) segmentBlocked() bool {
	if c.lmap == nil {
		return false
	}
	for _, p := range c.localPath {
		cx, cy, ok := c.lmap.WorldToCell(p.X, p.Y)
		if ok && c.lmap.StateAt(cx, cy) == costmap.Occupied {
			return true
		}
	}
	return false
}

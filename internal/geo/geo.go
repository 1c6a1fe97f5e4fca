package geo

import "math"

// Pose is a 2D pose: a position in meters plus a heading in radians.
type Pose struct {
	X       float64
	Y       float64
	Heading float64
}

// Point is a 2D position in meters.
type Point struct {
	X float64
	Y float64
}

// Path is an ordered pose sequence. Insertion order is traversal order.
// A path may be empty.
type Path []Pose

func (p Pose) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

// DistTo returns the planar distance between two poses, ignoring heading.
func (p Pose) DistTo(q Pose) float64 {
	return Dist(p.Point(), q.Point())
}

func Dist(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// HeadingBetween returns the heading of the vector from a to b.
func HeadingBetween(a, b Point) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Length returns the total planar length of the path.
func (p Path) Length() float64 {
	var total float64
	for i := 1; i < len(p); i++ {
		total += p[i-1].DistTo(p[i])
	}
	return total
}

func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// PathFromPoints builds a path whose headings point at the next vertex.
// The final pose keeps the heading of the preceding segment.
func PathFromPoints(pts []Point) Path {
	if len(pts) == 0 {
		return nil
	}
	out := make(Path, len(pts))
	for i, pt := range pts {
		heading := 0.0
		switch {
		case i < len(pts)-1:
			heading = HeadingBetween(pt, pts[i+1])
		case i > 0:
			heading = HeadingBetween(pts[i-1], pt)
		}
		out[i] = Pose{X: pt.X, Y: pt.Y, Heading: heading}
	}
	return out
}

// EqualPaths reports whether two paths match pose for pose within eps.
func EqualPaths(a, b Path, eps float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].X-b[i].X) > eps ||
			math.Abs(a[i].Y-b[i].Y) > eps ||
			math.Abs(NormalizeAngle(a[i].Heading-b[i].Heading)) > eps {
			return false
		}
	}
	return true
}

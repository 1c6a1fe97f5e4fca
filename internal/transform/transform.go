package transform

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"navd/internal/geo"
)

// ErrNoTransform is reported when a pose cannot be expressed in the
// requested frame.
var ErrNoTransform = errors.New("no transform available")

// Provider looks up the robot pose and converts poses between frames.
// Lookups are synchronous and bounded-latency.
type Provider interface {
	// CurrentPose returns the robot's current pose expressed in frame.
	CurrentPose(frame string) (geo.Pose, error)

	// Transform re-expresses a pose given in the from frame in the to frame.
	Transform(p geo.Pose, from, to string) (geo.Pose, error)
}

// StaticTree is a flat 2D frame tree: every known frame is registered with
// the pose of its origin in a single root frame. It backs the simulator and
// tests. Safe for concurrent use.
type StaticTree struct {
	mu         sync.RWMutex
	root       string
	robotFrame string
	robotPose  geo.Pose // in root
	frames     map[string]geo.Pose
}

func NewStaticTree(root, robotFrame string) *StaticTree {
	return &StaticTree{
		root:       root,
		robotFrame: robotFrame,
		frames:     map[string]geo.Pose{root: {}},
	}
}

// SetFrame registers (or moves) a frame, given its origin pose in the root.
func (t *StaticTree) SetFrame(name string, originInRoot geo.Pose) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames[name] = originInRoot
}

// SetRobotPose updates the robot pose, expressed in the root frame.
func (t *StaticTree) SetRobotPose(p geo.Pose) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.robotPose = p
}

func (t *StaticTree) RobotPose() geo.Pose {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.robotPose
}

func (t *StaticTree) CurrentPose(frame string) (geo.Pose, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	origin, ok := t.frames[frame]
	if !ok {
		return geo.Pose{}, fmt.Errorf("%w: frame %q (robot %q)", ErrNoTransform, frame, t.robotFrame)
	}
	return fromRoot(origin, t.robotPose), nil
}

func (t *StaticTree) Transform(p geo.Pose, from, to string) (geo.Pose, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	src, ok := t.frames[from]
	if !ok {
		return geo.Pose{}, fmt.Errorf("%w: source frame %q", ErrNoTransform, from)
	}
	dst, ok := t.frames[to]
	if !ok {
		return geo.Pose{}, fmt.Errorf("%w: target frame %q", ErrNoTransform, to)
	}
	return fromRoot(dst, toRoot(src, p)), nil
}

// toRoot expresses a pose given in a frame (whose origin pose in the root is
// origin) in the root frame.
func toRoot(origin, p geo.Pose) geo.Pose {
	sin, cos := math.Sincos(origin.Heading)
	return geo.Pose{
		X:       origin.X + p.X*cos - p.Y*sin,
		Y:       origin.Y + p.X*sin + p.Y*cos,
		Heading: geo.NormalizeAngle(origin.Heading + p.Heading),
	}
}

// fromRoot expresses a root-frame pose in the frame with the given origin.
func fromRoot(origin, p geo.Pose) geo.Pose {
	dx := p.X - origin.X
	dy := p.Y - origin.Y
	sin, cos := math.Sincos(-origin.Heading)
	return geo.Pose{
		X:       dx*cos - dy*sin,
		Y:       dx*sin + dy*cos,
		Heading: geo.NormalizeAngle(p.Heading - origin.Heading),
	}
}

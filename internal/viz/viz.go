package viz

import "navd/internal/geo"

// Kind discriminates rendering updates.
type Kind int

const (
	KindPath Kind = iota
	KindEmptyPath
	KindWaypoints
)

// Update is one rendering notification from the supervisor.
type Update struct {
	Kind      Kind
	Frame     string
	Path      geo.Path
	Waypoints []geo.Pose
}

// Channel adapts the supervisor's notifier contract onto a buffered channel
// consumed by the console. Sends never block: when the consumer lags,
// updates are dropped, since rendering must not stall the control loop.
type Channel struct {
	C chan Update
}

func NewChannel(buf int) *Channel {
	if buf <= 0 {
		buf = 32
	}
	return &Channel{C: make(chan Update, buf)}
}

func (c *Channel) PathPublished(p geo.Path, frame string) {
	c.send(Update{Kind: KindPath, Frame: frame, Path: p})
}

func (c *Channel) EmptyPathPublished(frame string) {
	c.send(Update{Kind: KindEmptyPath, Frame: frame})
}

func (c *Channel) WaypointsReady(wp []geo.Pose) {
	c.send(Update{Kind: KindWaypoints, Waypoints: wp})
}

func (c *Channel) send(u Update) {
	select {
	case c.C <- u:
	default:
	}
}

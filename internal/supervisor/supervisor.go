package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"navd/internal/costmap"
	"navd/internal/executor"
	"navd/internal/geo"
	"navd/internal/logger"
	"navd/internal/metrics"
	"navd/internal/planner"
	"navd/internal/transform"
)

// Notifier receives the supervisor's outbound notifications. Implementations
// must not block: they feed the rendering layer, which is never allowed to
// stall the control loop.
type Notifier interface {
	PathPublished(p geo.Path, frame string)
	EmptyPathPublished(frame string)
	WaypointsReady(wp []geo.Pose)
}

// LocalMapSource yields a fresh short-range occupancy snapshot around a
// pose. The caller takes ownership of the returned grid.
type LocalMapSource interface {
	Snapshot(center geo.Pose) (*costmap.Grid, error)
}

// Config carries the supervisor tunables. None of them are
// correctness-critical invariants.
type Config struct {
	GlobalFrame         string        // frame assumed until the first map update
	TickPeriod          time.Duration // default 100ms
	ForceReplanInterval time.Duration // default 500ms
	ReadyTimeout        time.Duration // default 1s
	Params              executor.FollowParams
}

func (c Config) withDefaults() Config {
	if c.GlobalFrame == "" {
		c.GlobalFrame = "map"
	}
	if c.TickPeriod <= 0 {
		c.TickPeriod = 100 * time.Millisecond
	}
	if c.ForceReplanInterval <= 0 {
		c.ForceReplanInterval = 500 * time.Millisecond
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = time.Second
	}
	if c.Params.TargetSpeed <= 0 {
		c.Params.TargetSpeed = 0.7
	}
	if c.Params.PositionTolerance <= 0 {
		c.Params.PositionTolerance = 0.20
	}
	return c
}

type eventKind int

const (
	evMap eventKind = iota
	evGoal
	evCancel
	evDone
)

type event struct {
	kind    eventKind
	grid    *costmap.Grid
	frame   string
	goal    geo.Pose
	outcome executor.Outcome
}

// Supervisor turns map updates and goal requests into a continuously
// maintained path and drives the path-execution actuator. All mission state
// mutation and every engine call happen on the single Run goroutine; map,
// goal and completion events share one queue with the timer tick.
type Supervisor struct {
	cfg    Config
	tf     transform.Provider
	engine planner.Engine
	act    *ActivationController
	local  LocalMapSource
	notify Notifier

	events  chan event
	results chan MissionResult

	// Loop-owned. The mutex only covers the state/mission pair so Status
	// can be read from other goroutines.
	mu      sync.Mutex
	state   MissionState
	mission *Mission

	gmap      *costmap.Grid
	gmapFrame string
	gotMap    bool
	lastSent  time.Time

	// DoneHandler is the extension point for executor completion
	// notifications. The default only logs; resume-from-failure logic is
	// intentionally not implemented.
	DoneHandler func(executor.Outcome)
}

func New(cfg Config, tf transform.Provider, engine planner.Engine, motion executor.Client, local LocalMapSource, notify Notifier) *Supervisor {
	cfg = cfg.withDefaults()
	s := &Supervisor{
		cfg:       cfg,
		tf:        tf,
		engine:    engine,
		local:     local,
		notify:    notify,
		events:    make(chan event, 64),
		results:   make(chan MissionResult, 16),
		gmapFrame: cfg.GlobalFrame,
	}
	s.act = NewActivationController(motion, notify, cfg.ReadyTimeout)
	return s
}

// Results delivers one MissionResult per mission that leaves Active.
func (s *Supervisor) Results() <-chan MissionResult { return s.results }

// Status returns the current state and a copy of the active mission, if any.
func (s *Supervisor) Status() (MissionState, *Mission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mission == nil {
		return s.state, nil
	}
	m := *s.mission
	return s.state, &m
}

// MapUpdate queues a refreshed environment grid. The supervisor takes
// ownership of the grid.
func (s *Supervisor) MapUpdate(g *costmap.Grid, frame string) {
	s.events <- event{kind: evMap, grid: g, frame: frame}
}

// GoalRequest queues a new goal pose, expressed in the given frame.
func (s *Supervisor) GoalRequest(p geo.Pose, frame string) {
	s.events <- event{kind: evGoal, goal: p, frame: frame}
}

// Cancel queues a deactivation of the current mission, if any.
func (s *Supervisor) Cancel() {
	s.events <- event{kind: evCancel}
}

// Run drives the supervisor until ctx is cancelled. It owns all mission
// state; no other goroutine touches the engine or the caches.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.currentState() == StateActive {
				s.endMission(OutcomePreempted, fmt.Errorf("shutting down"))
			}
			return nil
		case <-ticker.C:
			s.tick()
		case ev := <-s.events:
			s.dispatch(ev)
		}
	}
}

func (s *Supervisor) dispatch(ev event) {
	switch ev.kind {
	case evMap:
		s.handleMap(ev.grid, ev.frame)
	case evGoal:
		s.handleGoal(ev.goal, ev.frame)
	case evCancel:
		if s.currentState() == StateActive {
			logger.Log.Println("[Supervisor] Mission cancelled by request.")
			s.endMission(OutcomePreempted, nil)
		}
	case evDone:
		if s.DoneHandler != nil {
			s.DoneHandler(ev.outcome)
			return
		}
		// Stub: no resume-from-collision handling yet.
		logger.Log.Printf("[Supervisor] Path execution finished: %s", ev.outcome.Code)
	}
}

// handleMap swaps the global-map cache wholesale. The previous grid is
// dropped, never mutated in place.
func (s *Supervisor) handleMap(g *costmap.Grid, frame string) {
	s.gmap = g
	s.gmapFrame = frame
	s.gotMap = true
}

// tick is the fixed-period update while a mission is active.
func (s *Supervisor) tick() {
	if s.currentState() != StateActive {
		return
	}
	s.mission.Metrics.Ticks++

	pose, err := s.tf.CurrentPose(s.gmapFrame)
	if err != nil {
		logger.Log.Printf("[Supervisor] Error getting the robot position: %v", err)
		s.endMission(OutcomeAborted, err)
		return
	}

	// Goal-reached check happens before any replanning cost is spent.
	if s.engine.IsGoalReached(pose) {
		logger.Log.Println("[Supervisor] Goal reached.")
		s.endMission(OutcomeReached, nil)
		return
	}

	if err := s.refreshLocalMap(pose); err != nil {
		logger.Log.Printf("[Supervisor] Error refreshing local map: %v", err)
		s.endMission(OutcomeAborted, err)
		return
	}

	force := time.Since(s.lastSent) > s.cfg.ForceReplanInterval
	if err := s.updateEngine(pose, force); err != nil {
		logger.Log.Printf("[Supervisor] Error planning a path: %v", err)
		s.endMission(OutcomeAborted, err)
		return
	}

	if !s.engine.HasValidPath() {
		logger.Log.Println("[Supervisor] No valid path, aborting mission.")
		s.endMission(OutcomeAborted, fmt.Errorf("goal became infeasible"))
		return
	}

	// The previously issued segment is still current: nothing to push.
	if !s.engine.HasNewLocalPath() {
		return
	}

	lp := s.engine.LocalPath()
	logger.Log.Println("[Supervisor] Publishing new local path.")
	s.act.motion.SendPath(lp, s.cfg.Params, s.onMotionDone)
	s.mission.Metrics.PathsSent++
	s.lastSent = time.Now()
	s.notify.PathPublished(lp, s.gmapFrame)
	s.notify.WaypointsReady(s.engine.GlobalWaypoints())
}

// handleGoal runs the goal-activation sequence. Any precondition failure
// leaves the supervisor Idle with the goal dropped.
func (s *Supervisor) handleGoal(goal geo.Pose, frame string) {
	logger.Log.Printf("[Supervisor] Got a new goal (%.2f, %.2f) in frame %q.", goal.X, goal.Y, frame)

	// Stop motion control first; the no-op cancel is safe when idle.
	s.endMission(OutcomePreempted, nil)

	if !s.gotMap {
		logger.Log.Println("[Supervisor] No global map received yet, dropping goal.")
		return
	}

	g := goal
	if frame != s.gmapFrame {
		var err error
		g, err = s.tf.Transform(goal, frame, s.gmapFrame)
		if err != nil {
			logger.Log.Printf("[Supervisor] Cannot transform goal into map coordinates: %v", err)
			return
		}
	}

	start, err := s.tf.CurrentPose(s.gmapFrame)
	if err != nil {
		logger.Log.Printf("[Supervisor] Error getting the robot position: %v", err)
		return
	}

	s.engine.SetGlobalMap(s.gmap.Clone())
	lm, err := s.local.Snapshot(start)
	if err != nil {
		logger.Log.Printf("[Supervisor] Error refreshing local map: %v", err)
		return
	}
	s.engine.SetLocalMap(lm)

	if err := s.setGoalEngine(start, g); err != nil {
		logger.Log.Printf("[Supervisor] Cannot plan a path: %v", err)
		return
	}
	if !s.engine.HasValidPath() {
		logger.Log.Println("[Supervisor] No path found!")
		return
	}

	lp := s.engine.LocalPath()
	if err := s.act.Activate(lp, s.cfg.Params, s.onMotionDone); err != nil {
		logger.Log.Printf("[Supervisor] Activation failed: %v", err)
		return
	}

	m := &Mission{
		ID:        uuid.New().String()[:8],
		Goal:      g,
		StartedAt: time.Now(),
		Metrics: &metrics.MissionMetrics{
			Goal:      fmt.Sprintf("(%.2f, %.2f, %.2f)", g.X, g.Y, g.Heading),
			Start:     time.Now(),
			PathsSent: 1,
		},
	}
	m.Metrics.MissionID = m.ID
	s.setMission(StateActive, m)
	s.lastSent = time.Now()

	s.notify.PathPublished(geo.PathFromPoints(s.engine.GlobalPath()), s.gmapFrame)
	s.notify.WaypointsReady(s.engine.GlobalWaypoints())
	logger.Log.Printf("[Supervisor] Goal updated, mission %s active.", m.ID)
}

// endMission deactivates and, if a mission was active, finalizes and emits
// its result. Safe to call when idle.
func (s *Supervisor) endMission(outcome string, cause error) {
	s.act.Deactivate(s.gmapFrame)
	if s.currentState() == StateActive && s.mission != nil {
		m := s.mission
		m.Metrics.Finalize(outcome)
		res := MissionResult{
			MissionID: m.ID,
			Goal:      m.Metrics.Goal,
			Outcome:   outcome,
			Metrics:   m.Metrics,
		}
		if cause != nil {
			res.Error = cause.Error()
		}
		s.emitResult(res)
	}
	s.setMission(StateIdle, nil)
}

func (s *Supervisor) refreshLocalMap(pose geo.Pose) error {
	lm, err := s.local.Snapshot(pose)
	if err != nil {
		return err
	}
	s.engine.SetLocalMap(lm)
	return nil
}

// updateEngine guards the engine call: a panic converts to an error so the
// supervisor deactivates instead of crashing the mission loop.
func (s *Supervisor) updateEngine(pose geo.Pose, force bool) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("planner panic: %v", rec)
		}
	}()
	if force {
		s.mission.Metrics.Replans++
	}
	return s.engine.Update(pose, force)
}

func (s *Supervisor) setGoalEngine(start, goal geo.Pose) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("planner panic: %v", rec)
		}
	}()
	return s.engine.SetGoal(start, goal)
}

// onMotionDone routes executor completions back onto the event queue so the
// handler runs serialized with ticks and goal events. Dropped when the
// queue is full rather than blocking the executor's goroutine.
func (s *Supervisor) onMotionDone(out executor.Outcome) {
	select {
	case s.events <- event{kind: evDone, outcome: out}:
	default:
		logger.Log.Printf("[Supervisor] Event queue full, dropping completion %s.", out.Code)
	}
}

func (s *Supervisor) emitResult(res MissionResult) {
	select {
	case s.results <- res:
	default:
		logger.Log.Printf("[Supervisor] Result channel full, dropping result for mission %s.", res.MissionID)
	}
}

func (s *Supervisor) currentState() MissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setMission(state MissionState, m *Mission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.mission = m
}

package supervisor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"navd/internal/costmap"
	"navd/internal/executor"
	"navd/internal/geo"
	"navd/internal/planner"
	"navd/internal/transform"
)

type fakeTransform struct {
	pose           geo.Pose
	poseErr        error
	transformed    geo.Pose
	transformErr   error
	poseCalls      int
	transformCalls int
}

func (f *fakeTransform) CurrentPose(frame string) (geo.Pose, error) {
	f.poseCalls++
	if f.poseErr != nil {
		return geo.Pose{}, f.poseErr
	}
	return f.pose, nil
}

func (f *fakeTransform) Transform(p geo.Pose, from, to string) (geo.Pose, error) {
	f.transformCalls++
	if f.transformErr != nil {
		return geo.Pose{}, f.transformErr
	}
	return f.transformed, nil
}

type fakeEngine struct {
	goalReached   bool
	valid         bool
	newLocal      bool
	setGoalErr    error
	updateErr     error
	panicOnUpdate bool
	local         geo.Path
	waypoints     []geo.Pose
	global        []geo.Point

	setGlobalCalls int
	setLocalCalls  int
	setGoalCalls   int
	updateCalls    int
	lastForce      bool
}

func (f *fakeEngine) SetGlobalMap(g *costmap.Grid) { f.setGlobalCalls++ }
func (f *fakeEngine) SetLocalMap(g *costmap.Grid)  { f.setLocalCalls++ }

func (f *fakeEngine) SetGoal(start, goal geo.Pose) error {
	f.setGoalCalls++
	if f.setGoalErr != nil {
		return f.setGoalErr
	}
	f.newLocal = true
	return nil
}

func (f *fakeEngine) Update(pose geo.Pose, force bool) error {
	f.updateCalls++
	f.lastForce = force
	if f.panicOnUpdate {
		panic("engine exploded")
	}
	return f.updateErr
}

func (f *fakeEngine) IsGoalReached(pose geo.Pose) bool { return f.goalReached }
func (f *fakeEngine) HasValidPath() bool               { return f.valid }
func (f *fakeEngine) HasNewLocalPath() bool            { return f.newLocal }

func (f *fakeEngine) LocalPath() geo.Path {
	f.newLocal = false
	return f.local.Clone()
}

func (f *fakeEngine) GlobalPath() []geo.Point     { return f.global }
func (f *fakeEngine) GlobalWaypoints() []geo.Pose { return f.waypoints }

type fakeMotion struct {
	ready            bool
	sendCalls        int
	cancelCalls      int
	effectiveCancels int
	outstanding      bool
	lastPath         geo.Path
	lastParams       executor.FollowParams
	lastDone         executor.DoneFunc
}

func (f *fakeMotion) WaitReady(timeout time.Duration) bool { return f.ready }

func (f *fakeMotion) SendPath(path geo.Path, params executor.FollowParams, done executor.DoneFunc) {
	f.sendCalls++
	f.outstanding = true
	f.lastPath = path
	f.lastParams = params
	f.lastDone = done
}

func (f *fakeMotion) CancelAll() {
	f.cancelCalls++
	if f.outstanding {
		f.effectiveCancels++
		f.outstanding = false
	}
}

type fakeLocal struct {
	grid  *costmap.Grid
	err   error
	calls int
}

func (f *fakeLocal) Snapshot(center geo.Pose) (*costmap.Grid, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.grid, nil
}

type recorder struct {
	paths     int
	empties   int
	waypoints int
	lastPath  geo.Path
}

func (r *recorder) PathPublished(p geo.Path, frame string) { r.paths++; r.lastPath = p }
func (r *recorder) EmptyPathPublished(frame string)        { r.empties++ }
func (r *recorder) WaypointsReady(wp []geo.Pose)           { r.waypoints++ }

type rig struct {
	sup *Supervisor
	tf  *fakeTransform
	eng *fakeEngine
	mot *fakeMotion
	lm  *fakeLocal
	rec *recorder
}

func newRig() *rig {
	tf := &fakeTransform{pose: geo.Pose{X: 1, Y: 1}, transformed: geo.Pose{X: 5, Y: 5}}
	eng := &fakeEngine{
		valid:     true,
		local:     geo.Path{{X: 1, Y: 1}, {X: 2, Y: 2}},
		waypoints: []geo.Pose{{X: 2, Y: 2}},
		global:    []geo.Point{{X: 1, Y: 1}, {X: 5, Y: 5}},
	}
	mot := &fakeMotion{ready: true}
	lm := &fakeLocal{grid: costmap.New("map", 10, 10, 0.5, 0, 0)}
	rec := &recorder{}
	sup := New(Config{GlobalFrame: "map"}, tf, eng, mot, lm, rec)
	return &rig{sup: sup, tf: tf, eng: eng, mot: mot, lm: lm, rec: rec}
}

func (r *rig) seedMap() {
	r.sup.handleMap(costmap.New("map", 20, 20, 0.5, 0, 0), "map")
}

func (r *rig) activate(t *testing.T) {
	t.Helper()
	r.seedMap()
	r.sup.handleGoal(geo.Pose{X: 5, Y: 5}, "map")
	state, _ := r.sup.Status()
	require.Equal(t, StateActive, state)
	require.Equal(t, 1, r.mot.sendCalls)
}

func takeResult(t *testing.T, s *Supervisor) MissionResult {
	t.Helper()
	select {
	case res := <-s.Results():
		return res
	default:
		t.Fatal("expected a mission result")
		return MissionResult{}
	}
}

func requireNoResult(t *testing.T, s *Supervisor) {
	t.Helper()
	select {
	case res := <-s.Results():
		t.Fatalf("unexpected mission result: %+v", res)
	default:
	}
}

func TestTickWhileIdleIsNoop(t *testing.T) {
	r := newRig()
	r.seedMap()

	for i := 0; i < 3; i++ {
		r.sup.tick()
	}

	require.Zero(t, r.tf.poseCalls)
	require.Zero(t, r.eng.updateCalls)
	require.Zero(t, r.eng.setLocalCalls)
	require.Zero(t, r.mot.sendCalls)
	require.Zero(t, r.mot.cancelCalls)
	require.Zero(t, r.lm.calls)
}

func TestGoalActivationAtomic(t *testing.T) {
	cases := []struct {
		name       string
		setup      func(*rig)
		goalFrame  string
		wantActive bool
	}{
		{
			name:      "transform failure",
			goalFrame: "odom",
			setup:     func(r *rig) { r.tf.transformErr = transform.ErrNoTransform },
		},
		{
			name:  "pose lookup failure",
			setup: func(r *rig) { r.tf.poseErr = transform.ErrNoTransform },
		},
		{
			name:  "local map snapshot failure",
			setup: func(r *rig) { r.lm.err = errors.New("no local costmap") },
		},
		{
			name:  "planning error",
			setup: func(r *rig) { r.eng.setGoalErr = &planner.Error{Op: "set_goal", Err: errors.New("bad state")} },
		},
		{
			name:  "no valid path",
			setup: func(r *rig) { r.eng.valid = false },
		},
		{
			name:  "executor not ready",
			setup: func(r *rig) { r.mot.ready = false },
		},
		{
			name:       "all preconditions hold",
			setup:      func(r *rig) {},
			wantActive: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig()
			r.seedMap()
			tc.setup(r)
			frame := tc.goalFrame
			if frame == "" {
				frame = "map"
			}

			r.sup.handleGoal(geo.Pose{X: 5, Y: 5}, frame)

			state, _ := r.sup.Status()
			if tc.wantActive {
				require.Equal(t, StateActive, state)
				require.Equal(t, 1, r.mot.sendCalls)
				require.True(t, geo.EqualPaths(r.eng.local, r.mot.lastPath, 1e-9))
			} else {
				require.Equal(t, StateIdle, state)
				require.Zero(t, r.mot.sendCalls)
			}
		})
	}
}

func TestGoalInForeignFrameTransformFails(t *testing.T) {
	r := newRig()
	r.seedMap()
	r.tf.transformErr = transform.ErrNoTransform

	r.sup.handleGoal(geo.Pose{X: 3, Y: 3}, "odom")

	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
	require.Zero(t, r.eng.setGlobalCalls)
	require.Zero(t, r.eng.setGoalCalls)
	require.Zero(t, r.eng.updateCalls)
	require.Zero(t, r.mot.sendCalls)
}

func TestGoalBeforeFirstMapIsDropped(t *testing.T) {
	r := newRig()

	r.sup.handleGoal(geo.Pose{X: 5, Y: 5}, "map")

	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
	require.Zero(t, r.eng.setGoalCalls)
	require.Zero(t, r.mot.sendCalls)
}

func TestGoalReachedSkipsReplanning(t *testing.T) {
	r := newRig()
	r.activate(t)
	r.eng.goalReached = true

	r.sup.tick()

	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
	require.Zero(t, r.eng.updateCalls, "update must not run on the goal-reached tick")
	require.Equal(t, 1, r.mot.effectiveCancels)

	res := takeResult(t, r.sup)
	require.Equal(t, OutcomeReached, res.Outcome)
}

func TestTickPoseLookupFailureAborts(t *testing.T) {
	r := newRig()
	r.activate(t)
	r.tf.poseErr = transform.ErrNoTransform

	r.sup.tick()

	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
	require.Equal(t, 1, r.mot.effectiveCancels)
	require.Zero(t, r.eng.updateCalls, "no further engine calls after pose failure")

	res := takeResult(t, r.sup)
	require.Equal(t, OutcomeAborted, res.Outcome)

	// Pose availability on the next tick is not sufficient to resume.
	r.tf.poseErr = nil
	r.sup.tick()
	state, _ = r.sup.Status()
	require.Equal(t, StateIdle, state)
	require.Zero(t, r.eng.updateCalls)
}

func TestTickPlanningErrorAborts(t *testing.T) {
	r := newRig()
	r.activate(t)
	r.eng.updateErr = &planner.Error{Op: "update", Err: errors.New("inconsistent route")}

	r.sup.tick()

	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
	require.Equal(t, 1, r.mot.effectiveCancels)

	res := takeResult(t, r.sup)
	require.Equal(t, OutcomeAborted, res.Outcome)
	require.Contains(t, res.Error, "inconsistent route")
}

func TestTickEnginePanicIsCaught(t *testing.T) {
	r := newRig()
	r.activate(t)
	r.eng.panicOnUpdate = true

	require.NotPanics(t, func() { r.sup.tick() })

	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
	res := takeResult(t, r.sup)
	require.Equal(t, OutcomeAborted, res.Outcome)
}

func TestTickNoValidPathAborts(t *testing.T) {
	r := newRig()
	r.activate(t)
	r.eng.valid = false

	r.sup.tick()

	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
	require.Equal(t, 1, r.mot.effectiveCancels)
	require.Equal(t, 1, r.mot.sendCalls, "no new command after the path became invalid")
}

func TestTickWithoutNewSegmentSendsNothing(t *testing.T) {
	r := newRig()
	r.activate(t)
	require.False(t, r.eng.newLocal, "activation consumes the fresh segment")

	for i := 0; i < 5; i++ {
		r.sup.tick()
	}

	state, _ := r.sup.Status()
	require.Equal(t, StateActive, state)
	require.Equal(t, 1, r.mot.sendCalls, "only the activation command was sent")
	requireNoResult(t, r.sup)
}

func TestTickPushesNewSegment(t *testing.T) {
	r := newRig()
	r.activate(t)
	r.eng.local = geo.Path{{X: 2, Y: 2}, {X: 3, Y: 3}}
	r.eng.newLocal = true
	pathsBefore := r.rec.paths

	r.sup.tick()

	require.Equal(t, 2, r.mot.sendCalls)
	require.True(t, geo.EqualPaths(r.eng.local, r.mot.lastPath, 1e-9))
	require.False(t, r.eng.newLocal, "segment fetch clears the novelty flag")
	require.Equal(t, pathsBefore+1, r.rec.paths)

	state, _ := r.sup.Status()
	require.Equal(t, StateActive, state)
}

func TestDeactivateIsIdempotent(t *testing.T) {
	r := newRig()
	r.activate(t)

	r.sup.endMission(OutcomePreempted, nil)
	r.sup.endMission(OutcomePreempted, nil)

	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
	// One cancel from activation plus one per endMission call.
	require.Equal(t, 3, r.mot.cancelCalls)
	require.Equal(t, 1, r.mot.effectiveCancels, "only the first cancel has an observable effect")

	res := takeResult(t, r.sup)
	require.Equal(t, OutcomePreempted, res.Outcome)
	requireNoResult(t, r.sup)
}

func TestNewGoalPreemptsActiveMission(t *testing.T) {
	r := newRig()
	r.activate(t)
	_, first := r.sup.Status()

	r.sup.handleGoal(geo.Pose{X: 8, Y: 8}, "map")

	state, second := r.sup.Status()
	require.Equal(t, StateActive, state)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 2, r.mot.sendCalls)
	require.Equal(t, 1, r.mot.effectiveCancels)

	res := takeResult(t, r.sup)
	require.Equal(t, OutcomePreempted, res.Outcome)
	require.Equal(t, first.ID, res.MissionID)
}

func TestForceReplanFollowsInterval(t *testing.T) {
	r := newRig()
	r.activate(t)

	r.sup.lastSent = time.Now()
	r.sup.tick()
	require.False(t, r.eng.lastForce)

	r.sup.lastSent = time.Now().Add(-time.Second)
	r.sup.tick()
	require.True(t, r.eng.lastForce)
}

func TestCancelRequestDeactivates(t *testing.T) {
	r := newRig()
	r.activate(t)

	r.sup.dispatch(event{kind: evCancel})

	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
	require.Equal(t, 1, r.mot.effectiveCancels)
	res := takeResult(t, r.sup)
	require.Equal(t, OutcomePreempted, res.Outcome)
}

func TestCompletionHandlerIsPluggable(t *testing.T) {
	r := newRig()
	var got []executor.Outcome
	r.sup.DoneHandler = func(out executor.Outcome) { got = append(got, out) }

	r.sup.dispatch(event{kind: evDone, outcome: executor.Outcome{Code: executor.Succeeded}})

	require.Len(t, got, 1)
	require.Equal(t, executor.Succeeded, got[0].Code)

	// The default handler is a logging stub; it must not touch state.
	r.sup.DoneHandler = nil
	r.sup.dispatch(event{kind: evDone, outcome: executor.Outcome{Code: executor.Aborted}})
	state, _ := r.sup.Status()
	require.Equal(t, StateIdle, state)
}

func TestEmptyPathPublishedOnDeactivate(t *testing.T) {
	r := newRig()
	r.activate(t)
	before := r.rec.empties

	r.sup.endMission(OutcomeAborted, errors.New("test"))

	require.Equal(t, before+1, r.rec.empties)
}

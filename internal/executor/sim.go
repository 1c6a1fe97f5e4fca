package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"navd/internal/geo"
	"navd/internal/logger"
)

// Sim is an in-process path-following actuator. It walks the commanded path
// at the target speed, reporting progress poses to an optional sink, and
// delivers the outcome through the registered continuation.
//
// One command is outstanding at a time: a new SendPath supersedes the
// current command, which completes as Cancelled. Completion callbacks fire
// from the command goroutine, never from inside SendPath or CancelAll, so
// cancellation is race-free with respect to a continuation firing
// concurrently with a new command.
type Sim struct {
	mu        sync.Mutex
	readyOnce sync.Once
	ready     chan struct{}
	cur       *command
	progress  func(geo.Pose)
	step      time.Duration
}

type command struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   DoneFunc
	once   sync.Once
}

func NewSim() *Sim {
	return &Sim{
		ready: make(chan struct{}),
		step:  20 * time.Millisecond,
	}
}

// SetProgressSink registers a callback receiving the simulated robot pose
// as the command advances. Must be set before the first SendPath.
func (s *Sim) SetProgressSink(fn func(geo.Pose)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = fn
}

// MarkReady opens the endpoint. Idempotent.
func (s *Sim) MarkReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Sim) WaitReady(timeout time.Duration) bool {
	select {
	case <-s.ready:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Sim) SendPath(path geo.Path, params FollowParams, done DoneFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := &command{ctx: ctx, cancel: cancel, done: done}

	s.mu.Lock()
	if s.cur != nil {
		s.cur.cancel()
	}
	s.cur = cmd
	sink := s.progress
	step := s.step
	s.mu.Unlock()

	go s.follow(cmd, path.Clone(), params, sink, step)
}

func (s *Sim) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		s.cur.cancel()
		s.cur = nil
	}
}

func (s *Sim) follow(cmd *command, path geo.Path, params FollowParams, sink func(geo.Pose), step time.Duration) {
	if params.TargetSpeed <= 0 {
		s.finish(cmd, Outcome{Code: Aborted, Err: fmt.Errorf("invalid target speed %v", params.TargetSpeed)})
		return
	}
	if len(path) == 0 {
		s.finish(cmd, Outcome{Code: Aborted, Err: fmt.Errorf("empty path")})
		return
	}

	for i := 1; i < len(path); i++ {
		segment := path[i-1].DistTo(path[i])
		wait := time.Duration(float64(time.Second) * segment / params.TargetSpeed)
		for wait > 0 {
			chunk := min(wait, step)
			select {
			case <-cmd.ctx.Done():
				s.finish(cmd, Outcome{Code: Cancelled})
				return
			case <-time.After(chunk):
				wait -= chunk
			}
		}
		if sink != nil {
			sink(path[i])
		}
	}
	logger.Log.Printf("[Executor] Path complete (%d poses, tolerance %.2f m)", len(path), params.PositionTolerance)
	s.finish(cmd, Outcome{Code: Succeeded})
}

func (s *Sim) finish(cmd *command, out Outcome) {
	cmd.once.Do(func() {
		s.mu.Lock()
		if s.cur == cmd {
			s.cur = nil
		}
		s.mu.Unlock()
		cmd.cancel()
		if cmd.done != nil {
			cmd.done(out)
		}
	})
}

package supervisor

import (
	"fmt"
	"time"

	"navd/internal/executor"
	"navd/internal/geo"
	"navd/internal/logger"
)

// ActivationController encapsulates the activate/deactivate sub-protocol
// against the path-execution actuator. Deactivate is idempotent and safe at
// any time; Activate gates the initial command on endpoint readiness.
type ActivationController struct {
	motion       executor.Client
	notify       Notifier
	readyTimeout time.Duration
}

func NewActivationController(motion executor.Client, notify Notifier, readyTimeout time.Duration) *ActivationController {
	return &ActivationController{
		motion:       motion,
		notify:       notify,
		readyTimeout: readyTimeout,
	}
}

// Deactivate cancels any outstanding path-following command and publishes
// an empty path as the visible cleared signal. Calling it with no command
// outstanding is a safe no-op cancel.
func (a *ActivationController) Deactivate(frame string) {
	logger.Log.Println("[Activation] Deactivating path follower.")
	a.motion.CancelAll()
	a.notify.EmptyPathPublished(frame)
}

// Activate waits for the executor endpoint and issues the initial
// path-following command. A readiness timeout fails the activation and the
// goal is dropped; there is no retry. Callers deactivate first, so re-entry
// always cancels the previous command.
func (a *ActivationController) Activate(path geo.Path, params executor.FollowParams, done executor.DoneFunc) error {
	if !a.motion.WaitReady(a.readyTimeout) {
		return fmt.Errorf("executor endpoint not ready within %s", a.readyTimeout)
	}
	a.motion.SendPath(path, params, done)
	return nil
}

// Package supervisor implements the Supervisor worker (§4.1): it waits
// for every named worker to report Running, broadcasts MainState on the
// shared app-state bus, and on SIGINT (or any worker reporting Stopped
// spontaneously) drives the NotifyStop→Stopped shutdown sequence,
// joining every worker goroutine within a bounded grace period (§8
// property 8). Grounded on cmd/autonomyd/main.go's signal-handling and
// shutdown-timeout structure, generalized from one flat main() into a
// reusable type that owns the worker WaitGroup directly instead of
// main() tracking it inline.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// readyTimeout bounds how long Run waits for every named worker to
// report Running before giving up and returning an error.
const readyTimeout = 30 * time.Second

// joinTimeout bounds how long Run waits for every worker goroutine to
// return once NotifyStop has been broadcast (§8 property 8).
const joinTimeout = 5 * time.Second

// Supervisor owns the application-wide MainState bus and the aggregate
// WorkerState inbox every worker reports into.
type Supervisor struct {
	appBus  *pkg.Bus[pkg.MainState]
	stateCh chan pkg.WorkerState
	log     *logx.Logger

	names map[string]struct{}

	wg sync.WaitGroup

	// OnState, if set, is invoked for every WorkerState Run observes
	// (e.g. to forward into the Prometheus exporter or MQTT sink).
	OnState func(pkg.WorkerState)
}

// New creates a Supervisor expecting exactly the workers named in
// names to report Running before MainState::Running is broadcast.
func New(names []string, log *logx.Logger) *Supervisor {
	nameSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		nameSet[n] = struct{}{}
	}
	return &Supervisor{
		appBus:  pkg.NewBus[pkg.MainState](1),
		stateCh: make(chan pkg.WorkerState, 64),
		log:     log,
		names:   nameSet,
	}
}

// AppBus returns the MainState broadcast bus; each worker subscribes
// once at construction time, matching the Bus contract that a
// subscriber never sees values broadcast before it subscribed.
func (s *Supervisor) AppBus() *pkg.Bus[pkg.MainState] { return s.appBus }

// StateCh returns the channel every worker reports its WorkerState on.
func (s *Supervisor) StateCh() chan<- pkg.WorkerState { return s.stateCh }

// Spawn runs fn in a goroutine tracked by the Supervisor's WaitGroup,
// so Run's post-NotifyStop join sees it.
func (s *Supervisor) Spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Run blocks until every named worker has reported Running, broadcasts
// MainState::Running, then waits for either ctx cancellation (SIGINT)
// or any worker spontaneously reporting Stopped before driving the
// shutdown sequence. It returns once every spawned goroutine has
// joined or joinTimeout has elapsed.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}

	s.log.Info("all workers running, broadcasting MainRunning")
	s.appBus.Broadcast(pkg.MainRunning)

	s.awaitStopTrigger(ctx)

	s.log.Info("broadcasting MainNotifyStop")
	s.appBus.Broadcast(pkg.MainNotifyStop)

	joined := s.joinWithTimeout(joinTimeout)

	s.log.Info("broadcasting MainStopped")
	s.appBus.Broadcast(pkg.MainStopped)

	if !joined {
		return fmt.Errorf("supervisor: worker goroutines did not all join within %s", joinTimeout)
	}
	return nil
}

// awaitReady drains stateCh until every named worker has reported
// Running at least once, per §4.1's "Supervisor waits for a Running
// from every named worker before broadcasting MainState::Running".
func (s *Supervisor) awaitReady(ctx context.Context) error {
	pending := make(map[string]struct{}, len(s.names))
	for n := range s.names {
		pending[n] = struct{}{}
	}

	deadline := time.After(readyTimeout)
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("supervisor: context cancelled waiting for workers to start: %w", ctx.Err())
		case <-deadline:
			return fmt.Errorf("supervisor: timed out after %s waiting for %d worker(s) to report Running: %v", readyTimeout, len(pending), pending)
		case ws := <-s.stateCh:
			s.observe(ws)
			if ws.State == pkg.GeneralRunning {
				delete(pending, ws.Name)
			}
		}
	}
	return nil
}

// awaitStopTrigger blocks until ctx is cancelled or any worker reports
// Stopped spontaneously (a worker-fatal condition per §7, which must
// still drive a coordinated global shutdown).
func (s *Supervisor) awaitStopTrigger(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ws := <-s.stateCh:
			s.observe(ws)
			if ws.State == pkg.GeneralStopped {
				return
			}
		}
	}
}

// joinWithTimeout waits for every Spawn-tracked goroutine to return,
// continuing to drain stateCh (so late Stopped reports don't block a
// full buffer) until either the WaitGroup clears or timeout elapses.
// Once the WaitGroup clears, any reports still queued are observed
// before it returns.
func (s *Supervisor) joinWithTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	deadline := time.After(timeout)
	for {
		select {
		case <-done:
			for {
				select {
				case ws := <-s.stateCh:
					s.observe(ws)
				default:
					return true
				}
			}
		case <-deadline:
			return false
		case ws := <-s.stateCh:
			s.observe(ws)
		}
	}
}

func (s *Supervisor) observe(ws pkg.WorkerState) {
	if s.OnState != nil {
		s.OnState(ws)
	}
}

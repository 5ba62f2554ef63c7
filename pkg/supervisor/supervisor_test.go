package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// fakeWorker mimics the shared worker-loop shape (§4.1): report
// Running, wait for a non-Running app state, report Stopped.
func fakeWorker(name string, appCh <-chan pkg.MainState, stateCh chan<- pkg.WorkerState) {
	stateCh <- pkg.WorkerState{Name: name, State: pkg.GeneralRunning}
	for s := range appCh {
		if s != pkg.MainRunning {
			break
		}
	}
	stateCh <- pkg.WorkerState{Name: name, State: pkg.GeneralStopped}
}

func TestRunBroadcastsRunningOnceAllWorkersReady(t *testing.T) {
	log := logx.NewLogger("error", "supervisor_test")
	s := New([]string{"a", "b"}, log)

	appA := s.AppBus().Subscribe()
	appB := s.AppBus().Subscribe()

	s.Spawn(func() { fakeWorker("a", appA, s.StateCh()) })
	s.Spawn(func() { fakeWorker("b", appB, s.StateCh()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunReturnsErrorWhenCancelledBeforeAllWorkersReady(t *testing.T) {
	log := logx.NewLogger("error", "supervisor_test")
	s := New([]string{"a", "missing"}, log)

	appA := s.AppBus().Subscribe()
	s.Spawn(func() { fakeWorker("a", appA, s.StateCh()) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run returned nil error, want context-cancelled error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestOnStateCallbackObservesEveryReport(t *testing.T) {
	log := logx.NewLogger("error", "supervisor_test")
	s := New([]string{"a"}, log)

	var seen []pkg.WorkerState
	s.OnState = func(ws pkg.WorkerState) { seen = append(seen, ws) }

	appA := s.AppBus().Subscribe()
	s.Spawn(func() { fakeWorker("a", appA, s.StateCh()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	if len(seen) < 2 {
		t.Fatalf("OnState observed %d reports, want at least 2 (Running, Stopped)", len(seen))
	}
}

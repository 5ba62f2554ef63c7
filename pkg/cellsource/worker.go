package cellsource

import (
	"context"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// pollInterval is the fixed CellSource poll period (§4.2).
const pollInterval = 5 * time.Second

// Worker polls a Backend on a fixed tick and broadcasts CellInfo only
// when its content changes (§4.2), so subscribers never see a
// duplicate snapshot.
type Worker struct {
	backend Backend
	bus     *pkg.Bus[pkg.CellInfo]
	stateCh chan<- pkg.WorkerState
	appCh   <-chan pkg.MainState
	log     *logx.Logger

	last    pkg.CellInfo
	haveLast bool
}

// NewWorker wires a CellSource worker around backend. stateCh is where
// the worker reports its own WorkerState; appCh carries the supervisor's
// broadcast MainState per the shared worker-loop shape (§4.1).
func NewWorker(backend Backend, bus *pkg.Bus[pkg.CellInfo], stateCh chan<- pkg.WorkerState, appCh <-chan pkg.MainState, log *logx.Logger) *Worker {
	return &Worker{backend: backend, bus: bus, stateCh: stateCh, appCh: appCh, log: log}
}

// Run executes the worker loop until ctx is cancelled or a MainState
// other than Running is observed on appCh, per §4.1's four-step shape:
// poll for app-state, do one unit of work, drain any bus it also
// subscribes to (none here), report WorkerState.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	w.report(pkg.GeneralRunning, "polling")

	for {
		select {
		case <-ctx.Done():
			w.report(pkg.GeneralStopped, "stopped")
			return
		case s := <-w.appCh:
			if s != pkg.MainRunning {
				w.report(pkg.GeneralStopped, "stopped")
				return
			}
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	info, err := w.backend.Fetch(pollCtx)
	if err != nil {
		w.log.Warn("cell poll failed", "backend", w.backend.Name(), "error", err.Error())
		return
	}

	if w.haveLast && w.last.EqualContent(info) {
		return
	}
	w.last = info
	w.haveLast = true

	if full := w.bus.Broadcast(info); full {
		w.log.Warn("cell info bus required blocking delivery", "subscribers", w.bus.SubscriberCount())
	}
	w.log.Debug("cell info changed", "cells", len(info.Cells))
}

func (w *Worker) report(state pkg.GeneralState, phase string) {
	select {
	case w.stateCh <- pkg.WorkerState{Name: "cellsource", Phase: phase, State: state}:
	default:
	}
}

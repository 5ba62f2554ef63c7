package ngcontrol

import (
	"context"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// workerState is NgControl's outer FSM (§4.3).
type workerState int

const (
	stateCheckingCellInfo workerState = iota
	stateStartNgScope
	stateSleep
	stateTriggerListenDci
	stateWaitForTriggerResponse
	stateSuccessfulTriggerResponse
	stateStopNgScope
	stateBackoff
)

const spawnBackoff = 2 * time.Second
const postStartSleep = 5 * time.Second

// Worker supervises the sniffer process and its DCI-fetcher sub-thread.
type Worker struct {
	cfg     SnifferConfig
	cellCh  <-chan pkg.CellInfo
	dciBus  *pkg.Bus[pkg.NgScopeCellDci]
	logBatch chan<- pkg.NgScopeCellDci
	stateCh chan<- pkg.WorkerState
	appCh   <-chan pkg.MainState
	log     *logx.Logger

	sniffer    *sniffer
	fetcher    *fetcher
	state      workerState
	lastCell   pkg.SingleCell
	haveCell   bool
	sleepUntil time.Time
}

// NewWorker wires an NgControl worker. cfg carries the sniffer binary
// path and static addressing; per-poll CellID/FrequencyHz are filled in
// from the cell bus at spawn time.
func NewWorker(cfg SnifferConfig, cellCh <-chan pkg.CellInfo, dciBus *pkg.Bus[pkg.NgScopeCellDci], logBatch chan<- pkg.NgScopeCellDci, stateCh chan<- pkg.WorkerState, appCh <-chan pkg.MainState, log *logx.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		cellCh:   cellCh,
		dciBus:   dciBus,
		logBatch: logBatch,
		stateCh:  stateCh,
		appCh:    appCh,
		log:      log,
		sniffer:  newSniffer(cfg.BinPath, log.WithComponent("sniffer")),
	}
}

// Run executes NgControl's worker loop until cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.report(pkg.GeneralRunning, "checking_cell_info")
	defer w.shutdown()

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-w.appCh:
			if s != pkg.MainRunning {
				return
			}
		case ci := <-w.cellCh:
			w.onCellInfo(ci)
		case <-ticker.C:
			w.step(ctx)
			if w.fetcher != nil {
				w.fetcher.Tick()
			}
		}
	}
}

func (w *Worker) onCellInfo(ci pkg.CellInfo) {
	if len(ci.Cells) == 0 {
		return
	}
	cell := ci.Cells[0]
	if w.haveCell && cell.Frequency == w.lastCell.Frequency && cell.CellID == w.lastCell.CellID {
		return
	}
	w.lastCell = cell
	w.haveCell = true
	w.state = stateStartNgScope
}

func (w *Worker) step(ctx context.Context) {
	switch w.state {
	case stateCheckingCellInfo:
		// Waits on cellCh; handled in onCellInfo.

	case stateStartNgScope:
		w.cfg.CellID = uint32(w.lastCell.CellID)
		w.cfg.FrequencyHz = w.lastCell.Frequency
		if err := w.sniffer.Start(ctx, w.cfg); err != nil {
			w.log.Error("failed to start sniffer", "error", err.Error())
			w.state = stateStopNgScope
			return
		}
		w.sleepUntil = time.Now().Add(postStartSleep)
		w.state = stateSleep

	case stateSleep:
		if time.Now().Before(w.sleepUntil) {
			return
		}
		w.state = stateTriggerListenDci

	case stateTriggerListenDci:
		f, err := newFetcher(w.cfg.LocalAddr, w.cfg.ServerAddr, w.dciBus, w.logBatch, w.log.WithComponent("fetcher"))
		if err != nil {
			w.log.Error("failed to open dci fetcher socket", "error", err.Error())
			w.state = stateStopNgScope
			return
		}
		w.fetcher = f
		w.state = stateWaitForTriggerResponse

	case stateWaitForTriggerResponse:
		if w.fetcher.state == fetcherListenForDci {
			w.state = stateSuccessfulTriggerResponse
		}

	case stateSuccessfulTriggerResponse:
		w.report(pkg.GeneralRunning, "listening_for_dci")
		w.state = stateCheckingCellInfo

	case stateStopNgScope:
		w.sniffer.Stop()
		if w.fetcher != nil {
			w.fetcher.Close()
			w.fetcher = nil
		}
		w.sleepUntil = time.Now().Add(spawnBackoff)
		w.state = stateBackoff

	case stateBackoff:
		if time.Now().Before(w.sleepUntil) {
			return
		}
		w.state = stateCheckingCellInfo
	}
}

func (w *Worker) shutdown() {
	if w.fetcher != nil {
		w.fetcher.Close()
	}
	w.sniffer.Stop()
	w.report(pkg.GeneralStopped, "stopped")
}

func (w *Worker) report(state pkg.GeneralState, phase string) {
	select {
	case w.stateCh <- pkg.WorkerState{Name: "ngcontrol", Phase: phase, State: state}:
	default:
	}
}

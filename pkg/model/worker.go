package model

import (
	"context"
	"sync"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// Worker is ModelHandler (§4.5): it maintains the DCI ring buffer and,
// on every sending interval, computes one MetricA from the current
// smoothing window and broadcasts it, provided a matched RNTI and a
// serving cell are both currently known.
type Worker struct {
	ring      *DciRingBuffer
	window    Schedule
	interval  Schedule
	shareType pkg.RntiShareType

	dciCh   <-chan pkg.NgScopeCellDci
	rntiCh  <-chan pkg.MessageRnti
	cellCh  <-chan pkg.CellInfo
	rttCh   <-chan int64
	bus     *pkg.Bus[pkg.MetricA]
	stateCh chan<- pkg.WorkerState
	appCh   <-chan pkg.MainState
	log     *logx.Logger

	cellID     uint8
	haveRnti   bool
	rnti       uint16
	haveCell   bool
	cell       pkg.SingleCell
	lastRttUs  int64
	nextSendAt time.Time

	trendMu sync.Mutex
	trend   trend
}

// NewWorker wires a ModelHandler around the given DCI/RNTI/cell buses,
// publishing computed metrics on bus.
func NewWorker(cellID uint8, window, interval Schedule, shareType pkg.RntiShareType, dciCh <-chan pkg.NgScopeCellDci, rntiCh <-chan pkg.MessageRnti, cellCh <-chan pkg.CellInfo, rttCh <-chan int64, bus *pkg.Bus[pkg.MetricA], stateCh chan<- pkg.WorkerState, appCh <-chan pkg.MainState, log *logx.Logger) *Worker {
	return &Worker{
		ring:      NewDciRingBuffer(),
		window:    window,
		interval:  interval,
		shareType: shareType,
		dciCh:     dciCh,
		rntiCh:    rntiCh,
		cellCh:    cellCh,
		rttCh:     rttCh,
		bus:       bus,
		stateCh:   stateCh,
		appCh:     appCh,
		log:       log,
		cellID:    cellID,
	}
}

func (w *Worker) Run(ctx context.Context) {
	w.report(pkg.GeneralRunning, "collecting")
	w.nextSendAt = time.Now().Add(w.interval.Interval(w.lastRttUs))

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

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
		case d := <-w.dciCh:
			w.ring.Push(d)
		case m := <-w.rntiCh:
			if rnti, ok := m.CellRnti[w.cellID]; ok {
				w.rnti = rnti
				w.haveRnti = true
			}
		case ci := <-w.cellCh:
			if c, ok := ci.ByFrequency(w.cell.Frequency); ok {
				w.cell = c
				w.haveCell = true
			} else if len(ci.Cells) > 0 {
				w.cell = ci.Cells[0]
				w.haveCell = true
			}
		case rtt := <-w.rttCh:
			w.lastRttUs = rtt
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Worker) tick() {
	if time.Now().Before(w.nextSendAt) {
		return
	}
	w.nextSendAt = time.Now().Add(w.interval.Interval(w.lastRttUs))

	if !w.haveRnti || !w.haveCell {
		return
	}

	n := w.window.WindowSize(w.lastRttUs)
	slice := w.ring.Slice(n)
	if len(slice) == 0 {
		return
	}

	capacity, err := Calculate(slice, w.cell.NofPRB, w.rnti, w.shareType)
	if err != nil {
		w.log.Warn("capacity calculation failed", "error", err.Error())
		return
	}

	w.trendMu.Lock()
	w.trend.push(capacity.TransportRate)
	w.trendMu.Unlock()

	if full := w.bus.Broadcast(capacity.MetricA); full {
		w.log.Warn("metric bus required blocking delivery", "subscribers", w.bus.SubscriberCount())
	}
}

// PredictedRateBps returns a short-horizon linear extrapolation of the
// recently published transport fair-share rates, in bits/ms (the same
// unit as MetricA.FairShareSendRate). ok is false until enough samples
// have accumulated to fit a line.
func (w *Worker) PredictedRateBps() (float64, bool) {
	w.trendMu.Lock()
	defer w.trendMu.Unlock()
	return w.trend.predict()
}

func (w *Worker) report(state pkg.GeneralState, phase string) {
	select {
	case w.stateCh <- pkg.WorkerState{Name: "model", Phase: phase, State: state}:
	default:
	}
}

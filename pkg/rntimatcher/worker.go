package rntimatcher

import (
	"context"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// roundState is the matching-round FSM (§4.4): Idle is entered at
// startup and after publishing; a UeConnectionReset broadcast starts a
// new round.
type roundState int

const (
	roundIdle roundState = iota
	roundCollectDci
	roundProcessDci
	roundSleep
)

const matchBackoff = time.Second
const interRoundSleep = time.Second

// Worker runs the probe generator and the matching-round FSM, and
// publishes MessageRnti on each round's winner.
type Worker struct {
	cellID  uint8
	pattern TrafficPattern
	gen     *generator
	store   *Store

	dciCh     <-chan pkg.NgScopeCellDci
	resetCh   <-chan struct{}
	rntiBus   *pkg.Bus[pkg.MessageRnti]
	stateCh   chan<- pkg.WorkerState
	appCh     <-chan pkg.MainState
	log       *logx.Logger

	state      roundState
	collection *pkg.TrafficCollection
	finishMs   int64
	ring       winnerRing
	sleepUntil time.Time
}

// NewWorker wires an RntiMatcher worker for one cell. metric supplies
// the latest MetricA for the probe generator's idle side channel.
func NewWorker(cellID uint8, pattern TrafficPattern, destAddr string, store *Store, dciCh <-chan pkg.NgScopeCellDci, resetCh <-chan struct{}, rntiBus *pkg.Bus[pkg.MessageRnti], stateCh chan<- pkg.WorkerState, appCh <-chan pkg.MainState, metric func() (pkg.MetricA, bool), log *logx.Logger) (*Worker, error) {
	gen, err := newGenerator(destAddr, metric, log.WithComponent("generator"))
	if err != nil {
		return nil, err
	}
	ring, err := store.Load(cellID)
	if err != nil {
		log.Warn("failed to load persisted winner ring, starting empty", "cell_id", cellID, "error", err.Error())
	}
	return &Worker{
		cellID:  cellID,
		pattern: pattern,
		gen:     gen,
		store:   store,
		dciCh:   dciCh,
		resetCh: resetCh,
		rntiBus: rntiBus,
		stateCh: stateCh,
		appCh:   appCh,
		log:     log,
		state:   roundIdle,
		ring:    ring,
	}, nil
}

func (w *Worker) Run(ctx context.Context) {
	w.report(pkg.GeneralRunning, "idle")
	defer w.shutdown()

	genStop := make(chan struct{})
	go w.gen.Idle(genStop, 2*time.Second)
	defer close(genStop)

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
		case <-w.resetCh:
			w.startRound()
		case d := <-w.dciCh:
			w.onDci(d)
		case <-ticker.C:
			w.step()
		}
	}
}

func (w *Worker) startRound() {
	startMs := time.Now().UnixMilli()
	w.finishMs = startMs + int64(1.1*float64(w.pattern.TotalTimeMs))
	w.collection = pkg.NewTrafficCollection(startMs, w.finishMs, w.pattern.Features)
	w.state = roundCollectDci
	w.report(pkg.GeneralRunning, "collecting_dci")

	genStop := make(chan struct{})
	go func() {
		w.gen.Run(genStop, w.pattern)
	}()
}

func (w *Worker) onDci(d pkg.NgScopeCellDci) {
	if w.state != roundCollectDci || w.collection == nil {
		return
	}
	if int64(d.TimeStampUs) < w.collection.StartMs*1000 {
		return
	}
	w.collection.Add(w.cellID, &d)
}

func (w *Worker) step() {
	switch w.state {
	case roundIdle:
		// Waits for resetCh.

	case roundCollectDci:
		if time.Now().UnixMilli() >= w.finishMs {
			w.state = roundProcessDci
		}

	case roundProcessDci:
		w.process()

	case roundSleep:
		if time.Now().Before(w.sleepUntil) {
			return
		}
		w.state = roundIdle
	}
}

func (w *Worker) process() {
	traffic, ok := w.collection.Cells[w.cellID]
	if !ok || len(traffic) == 0 {
		w.log.Warn("matching round failed", "cell_id", w.cellID, "error", ExceededDciTimestampDelta.Error())
		w.sleepUntil = time.Now().Add(matchBackoff)
		w.state = roundSleep
		return
	}

	best, err := findBestMatch(traffic, w.pattern)
	if err != nil {
		w.log.Warn("matching round failed", "cell_id", w.cellID, "error", err.Error())
		w.sleepUntil = time.Now().Add(matchBackoff)
		w.state = roundSleep
		return
	}

	w.ring.push(best)
	if err := w.store.Save(w.cellID, w.ring); err != nil {
		w.log.Warn("failed to persist winner ring", "cell_id", w.cellID, "error", err.Error())
	}

	winner, ok := w.ring.mode()
	if ok {
		w.rntiBus.Broadcast(pkg.MessageRnti{CellRnti: map[uint8]uint16{w.cellID: winner}})
		w.log.Info("published matched rnti", "cell_id", w.cellID, "rnti", winner)
	}

	w.sleepUntil = time.Now().Add(interRoundSleep)
	w.state = roundSleep
}

func (w *Worker) shutdown() {
	w.gen.Close()
	w.report(pkg.GeneralStopped, "stopped")
}

func (w *Worker) report(state pkg.GeneralState, phase string) {
	select {
	case w.stateCh <- pkg.WorkerState{Name: "rntimatcher", Phase: phase, State: state}:
	default:
	}
}

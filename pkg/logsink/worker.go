package logsink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// queueCapacity and numSenders implement the bounded-queue/sender-pool
// shape described in §4.7: one shared queue, five goroutines racing to
// pick up the next message (Go's channel receive already arbitrates
// "first non-contended" across them), each writing to whichever
// per-kind file the message belongs to.
const queueCapacity = 1000
const numSenders = 5
const drainGrace = 5 * time.Second

// Worker is the Logger (§4.7): producers call Enqueue from any worker
// goroutine; a pool of senders drains the shared queue into per-run,
// per-kind files.
type Worker struct {
	queue chan Message
	dir   runDir
	log   *logx.Logger

	index   *RunIndex
	runID   int64
	started time.Time

	mu          sync.Mutex
	stdout      *bufio.Writer
	stdoutFile  *os.File
	dciFile     *os.File
	dciWriter   *bufio.Writer
	dciCount    int64
	rntiFile    *os.File
	rntiWriter  *bufio.Writer
	metricFile  *os.File
	metricWriter *bufio.Writer
	metricCount int64
	downloadFile *os.File
	downloadWriter *bufio.Writer

	wg     sync.WaitGroup
	closed chan struct{}
}

// NewWorker opens a fresh run directory under baseDir and wires every
// per-kind writer. index may be nil to disable the sqlite run catalogue.
func NewWorker(baseDir string, index *RunIndex, log *logx.Logger) (*Worker, error) {
	started := time.Now()
	dir, err := newRunDir(baseDir, started)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		queue:   make(chan Message, queueCapacity),
		dir:     dir,
		log:     log,
		index:   index,
		started: started,
		closed:  make(chan struct{}),
	}

	if w.stdoutFile, err = os.Create(dir.path("stdout", "stdout.log")); err != nil {
		return nil, err
	}
	w.stdout = bufio.NewWriter(w.stdoutFile)

	if w.dciFile, err = os.Create(dir.path("dci", "dci.bin")); err != nil {
		return nil, err
	}
	w.dciWriter = bufio.NewWriter(w.dciFile)

	if w.rntiFile, err = os.Create(dir.path("rnti_matching", "rnti_matching.jsonl")); err != nil {
		return nil, err
	}
	w.rntiWriter = bufio.NewWriter(w.rntiFile)

	if w.metricFile, err = os.Create(dir.path("metric", "metric.jsonl")); err != nil {
		return nil, err
	}
	w.metricWriter = bufio.NewWriter(w.metricFile)

	if w.downloadFile, err = os.Create(dir.path("download", "download.jsonl")); err != nil {
		return nil, err
	}
	w.downloadWriter = bufio.NewWriter(w.downloadFile)

	if index != nil {
		if w.runID, err = index.BeginRun(dir.Root, started); err != nil {
			log.Warn("failed to register run in index", "error", err.Error())
		}
	}

	return w, nil
}

// Enqueue offers msg to the shared queue without blocking; a full
// queue drops the message and is logged, matching the "never let a
// slow sink stall a worker" posture used throughout the pipeline (§5).
func (w *Worker) Enqueue(msg Message) {
	select {
	case w.queue <- msg:
	default:
		w.log.Warn("log queue full, dropping message", "kind", int(msg.Kind))
	}
}

func (w *Worker) Run(ctx context.Context, stateCh chan<- pkg.WorkerState, appCh <-chan pkg.MainState) {
	for i := 0; i < numSenders; i++ {
		w.wg.Add(1)
		go w.sendLoop()
	}

	w.report(stateCh, pkg.GeneralRunning, "draining")

waitForStop:
	for {
		select {
		case <-ctx.Done():
			break waitForStop
		case s := <-appCh:
			if s != pkg.MainRunning {
				break waitForStop
			}
		}
	}
	w.report(stateCh, pkg.GeneralStopped, "draining_grace")
	w.drainWithGrace()
	w.report(stateCh, pkg.GeneralStopped, "stopped")
}

func (w *Worker) sendLoop() {
	defer w.wg.Done()
	for {
		select {
		case msg, ok := <-w.queue:
			if !ok {
				return
			}
			w.dispatch(msg)
		case <-w.closed:
			return
		}
	}
}

// drainWithGrace lets the already-running sender goroutines keep
// draining the queue for up to drainGrace, then stops them and flushes
// every writer regardless of whether the queue fully emptied.
func (w *Worker) drainWithGrace() {
	deadline := time.Now().Add(drainGrace)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for len(w.queue) > 0 && time.Now().Before(deadline) {
		<-ticker.C
	}

	close(w.closed)
	w.wg.Wait()
	w.flushAndClose()
}

func (w *Worker) dispatch(msg Message) {
	switch msg.Kind {
	case KindInfo:
		w.mu.Lock()
		w.stdout.WriteString(msg.At.Format(time.RFC3339Nano) + " " + msg.InfoText + "\n")
		w.mu.Unlock()

	case KindDci:
		w.mu.Lock()
		for _, d := range msg.DciBatch {
			if err := writeDciRecord(w.dciWriter, d); err != nil {
				w.log.Warn("dci write failed", "error", err.Error())
				break
			}
			w.dciCount++
		}
		if err := w.dciWriter.Flush(); err != nil {
			w.log.Warn("dci flush failed", "error", err.Error())
		}
		w.mu.Unlock()

	case KindRntiMatching:
		w.writeJSONLine(w.rntiWriter, msg.RntiRecord)

	case KindMetric:
		w.writeJSONLine(w.metricWriter, msg.MetricA)
		w.mu.Lock()
		w.metricCount++
		w.mu.Unlock()

	case KindDownload:
		w.writeJSONLine(w.downloadWriter, msg.Download)
	}
}

func (w *Worker) writeJSONLine(dst *bufio.Writer, v interface{}) {
	line, err := json.Marshal(v)
	if err != nil {
		w.log.Warn("json marshal failed", "error", err.Error())
		return
	}
	w.mu.Lock()
	dst.Write(line)
	dst.WriteByte('\n')
	w.mu.Unlock()
}

func (w *Worker) flushAndClose() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stdout.Flush()
	w.dciWriter.Flush()
	w.rntiWriter.Flush()
	w.metricWriter.Flush()
	w.downloadWriter.Flush()
	w.stdoutFile.Close()
	w.dciFile.Close()
	w.rntiFile.Close()
	w.metricFile.Close()
	w.downloadFile.Close()

	if w.index != nil {
		if err := w.index.EndRun(w.runID, time.Now(), w.dciCount, w.metricCount); err != nil {
			w.log.Warn("failed to finalize run index entry", "error", err.Error())
		}
	}
}

func (w *Worker) report(stateCh chan<- pkg.WorkerState, state pkg.GeneralState, phase string) {
	select {
	case stateCh <- pkg.WorkerState{Name: "logsink", Phase: phase, State: state}:
	default:
	}
}

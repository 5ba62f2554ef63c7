package downloader

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// downloadState is the Downloader FSM (§4.6).
type downloadState int

const (
	stateReady downloadState = iota
	stateSleepBeforeStart
	stateStartDownload
	stateDownloading
	statePostDownload
	stateSleepBeforeNext
)

const (
	interDownloadSleep = 20 * time.Second
	postDownloadWindow = 2 * time.Second
	noDataTimeout      = 2 * time.Second
	retrySleep         = time.Second
	readChunkSize      = 100 * 1024
	readPollInterval   = 5 * time.Millisecond
)

// DownloadResult is the DownloadFinishParameters record emitted at the
// end of one measurement pass.
type DownloadResult struct {
	URL           string
	StartUs       int64
	FinishUs      int64
	RntiShareType pkg.RntiShareType
	Bytes         int64
	LastRttUs     int64
	Err           error
}

// Worker implements the measurement-only Downloader (§4.6): it cycles
// plain-HTTP GET downloads against a round-robin path list, extracts
// an embedded RTT marker from the tail of each read, and emits one
// DownloadResult per pass.
type Worker struct {
	baseAddr string
	paths    []string
	nextPath int

	rttBus    *pkg.Bus[RttUpdate]
	resultBus *pkg.Bus[DownloadResult]
	stateCh   chan<- pkg.WorkerState
	appCh     <-chan pkg.MainState
	log       *logx.Logger

	state      downloadState
	sleepUntil time.Time

	conn          net.Conn
	reader        *bufio.Reader
	target        string
	shareType     pkg.RntiShareType
	startUs       int64
	lastByteAt    time.Time
	totalBytes    int64
	lastRttUs     int64
	postDeadline  time.Time
	startErr      error
}

// RttUpdate is broadcast whenever a fresh RTT marker is decoded, so
// ModelHandler can feed it into its rtt-derived schedules.
type RttUpdate struct {
	RttUs         int64
	RntiShareType pkg.RntiShareType
}

func NewWorker(baseAddr string, paths []string, rttBus *pkg.Bus[RttUpdate], resultBus *pkg.Bus[DownloadResult], stateCh chan<- pkg.WorkerState, appCh <-chan pkg.MainState, log *logx.Logger) *Worker {
	return &Worker{
		baseAddr:  baseAddr,
		paths:     paths,
		rttBus:    rttBus,
		resultBus: resultBus,
		stateCh:   stateCh,
		appCh:     appCh,
		log:       log,
		state:     stateReady,
	}
}

func (w *Worker) Run(ctx context.Context) {
	w.report(pkg.GeneralRunning, "ready")
	defer w.report(pkg.GeneralStopped, "stopped")

	ticker := time.NewTicker(readPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.closeConn()
			return
		case s := <-w.appCh:
			if s != pkg.MainRunning {
				w.closeConn()
				return
			}
		case <-ticker.C:
			w.step()
		}
	}
}

func (w *Worker) step() {
	switch w.state {
	case stateReady:
		w.sleepUntil = time.Now().Add(interDownloadSleep)
		w.state = stateSleepBeforeStart

	case stateSleepBeforeStart:
		if time.Now().Before(w.sleepUntil) {
			return
		}
		w.state = stateStartDownload

	case stateStartDownload:
		w.startDownload()

	case stateDownloading:
		w.readChunk()

	case statePostDownload:
		if time.Now().Before(w.postDeadline) {
			return
		}
		w.finish(nil)

	case stateSleepBeforeNext:
		if time.Now().Before(w.sleepUntil) {
			return
		}
		w.state = stateReady
	}
}

func (w *Worker) startDownload() {
	path := w.paths[w.nextPath]
	w.nextPath = (w.nextPath + 1) % len(w.paths)
	w.target = path
	w.shareType = shareTypeFromPath(path)

	u, err := url.Parse(w.baseAddr)
	if err != nil {
		w.errorStarting(fmt.Errorf("parsing base address: %w", err))
		return
	}

	conn, err := net.DialTimeout("tcp", u.Host, 5*time.Second)
	if err != nil {
		w.errorStarting(fmt.Errorf("dialing %s: %w", u.Host, err))
		return
	}
	req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", path, u.Host)
	if _, err := conn.Write([]byte(req)); err != nil {
		conn.Close()
		w.errorStarting(fmt.Errorf("writing request: %w", err))
		return
	}

	w.conn = conn
	w.reader = bufio.NewReaderSize(conn, readChunkSize)
	w.startUs = time.Now().UnixMicro()
	w.lastByteAt = time.Now()
	w.totalBytes = 0
	w.state = stateDownloading
	w.report(pkg.GeneralRunning, "downloading")
}

func (w *Worker) readChunk() {
	w.conn.SetReadDeadline(time.Now().Add(readPollInterval))
	buf := make([]byte, readChunkSize)
	n, err := w.reader.Read(buf)
	if n > 0 {
		w.totalBytes += int64(n)
		w.lastByteAt = time.Now()
		if rtt, ok := extractRttUs(buf[:n]); ok {
			w.lastRttUs = int64(rtt)
			w.rttBus.Broadcast(RttUpdate{RttUs: w.lastRttUs, RntiShareType: w.shareType})
		}
	}

	if err == nil {
		return
	}
	if ne, isNet := err.(net.Error); isNet && ne.Timeout() {
		if time.Since(w.lastByteAt) > noDataTimeout {
			w.errorStarting(fmt.Errorf("no data received within %s", noDataTimeout))
		}
		return
	}

	// EOF or connection reset: either way the transfer is over.
	w.postDeadline = time.Now().Add(postDownloadWindow)
	w.state = statePostDownload
	w.report(pkg.GeneralRunning, "post_download")
}

func (w *Worker) errorStarting(err error) {
	w.closeConn()
	w.log.Warn("download failed to start", "target", w.target, "error", err.Error())
	w.startErr = err
	w.finish(err)
}

func (w *Worker) finish(startErr error) {
	result := DownloadResult{
		URL:           w.target,
		StartUs:       w.startUs,
		FinishUs:      time.Now().UnixMicro(),
		RntiShareType: w.shareType,
		Bytes:         w.totalBytes,
		LastRttUs:     w.lastRttUs,
		Err:           startErr,
	}
	w.closeConn()
	w.resultBus.Broadcast(result)

	w.sleepUntil = time.Now().Add(retrySleep)
	w.state = stateSleepBeforeNext
	w.report(pkg.GeneralRunning, "sleeping")
}

func (w *Worker) closeConn() {
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

func (w *Worker) report(state pkg.GeneralState, phase string) {
	select {
	case w.stateCh <- pkg.WorkerState{Name: "downloader", Phase: phase, State: state}:
	default:
	}
}

package ngcontrol

import (
	"net"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
	"github.com/nectard/nectard/pkg/ngwire"
)

// fetcherState is the DCI-fetcher sub-thread's own FSM (§4.3):
// SendInitial -> WaitAuth(n) -> SuccessfulAuth -> ListenForDci.
type fetcherState int

const (
	fetcherSendInitial fetcherState = iota
	fetcherWaitAuth
	fetcherSuccessfulAuth
	fetcherListenForDci
)

// authThreshold is the number of valid frames (of any type, repeats
// included) required to
// confirm liveness and transition out of WaitAuth (§4.3: "accepts the
// authentication after receiving any two valid message types").
const authThreshold = 2

// dciBatchDefault is the default DCI batch size handed to the Logger.
const dciBatchDefault = 60000

// fetcher owns a non-blocking UDP socket, runs the handshake FSM, and
// broadcasts decoded CellDci frames onto the DCI bus with try-then-
// blocking delivery (§4.3).
type fetcher struct {
	conn       *net.UDPConn
	serverAddr *net.UDPAddr
	bus        *pkg.Bus[pkg.NgScopeCellDci]
	logBatch   chan<- pkg.NgScopeCellDci
	log        *logx.Logger

	state     fetcherState
	authSeen  int
	batchSize int
	batch     []pkg.NgScopeCellDci
}

// newFetcher dials a non-blocking UDP socket to serverAddr. logBatch, if
// non-nil, receives every decoded CellDci for batched handoff to the
// Logger worker (§4.3 "optionally batched").
func newFetcher(localAddr, serverAddr string, bus *pkg.Bus[pkg.NgScopeCellDci], logBatch chan<- pkg.NgScopeCellDci, log *logx.Logger) (*fetcher, error) {
	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, err
	}
	saddr, err := net.ResolveUDPAddr("udp", serverAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	// Non-blocking reads: a short deadline is re-armed every poll so a
	// missing datagram never stalls the worker loop (§5 suspension
	// points: "non-blocking reads on the DCI UDP socket").
	return &fetcher{
		conn:       conn,
		serverAddr: saddr,
		bus:        bus,
		logBatch:   logBatch,
		log:        log,
		state:      fetcherSendInitial,
		batchSize:  dciBatchDefault,
	}, nil
}

func (f *fetcher) Close() error {
	return f.conn.Close()
}

// Tick advances the fetcher FSM by at most one non-blocking read.
func (f *fetcher) Tick() {
	switch f.state {
	case fetcherSendInitial:
		if _, err := f.conn.WriteToUDP(ngwire.EncodeStart(), f.serverAddr); err != nil {
			f.log.Warn("dci fetcher handshake send failed", "error", err.Error())
			return
		}
		f.authSeen = 0
		f.state = fetcherWaitAuth

	case fetcherWaitAuth:
		frame, ok := f.readFrame()
		if !ok {
			return
		}
		f.authSeen++
		f.log.Debug("dci fetcher handshake frame", "type", frame.Type.String(), "seen", f.authSeen)
		if f.authSeen >= authThreshold {
			f.state = fetcherSuccessfulAuth
		}

	case fetcherSuccessfulAuth:
		f.state = fetcherListenForDci

	case fetcherListenForDci:
		f.listen()
	}
}

func (f *fetcher) readFrame() (ngwire.Frame, bool) {
	f.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	buf := make([]byte, ngwire.MaxFrameSize)
	n, err := f.conn.Read(buf)
	if err != nil {
		return ngwire.Frame{}, false
	}
	frame, err := ngwire.Decode(buf[:n])
	if err != nil {
		f.log.Warn("dci fetcher discarding malformed frame", "error", err.Error())
		return ngwire.Frame{}, false
	}
	return frame, true
}

func (f *fetcher) listen() {
	for {
		frame, ok := f.readFrame()
		if !ok {
			return
		}
		switch frame.Type {
		case ngwire.TypeCellDci:
			d, err := ngwire.DecodeCellDci(frame.Payload)
			if err != nil {
				f.log.Warn("dci fetcher discarding malformed cell_dci", "error", err.Error())
				continue
			}
			f.deliver(d)
		case ngwire.TypeDci:
			d, err := ngwire.DecodeDci(frame.Payload)
			if err != nil {
				f.log.Warn("dci fetcher discarding malformed dci", "error", err.Error())
				continue
			}
			f.deliver(d)
		case ngwire.TypeExit:
			f.log.Info("sniffer reported exit")
			return
		}
	}
}

func (f *fetcher) deliver(d pkg.NgScopeCellDci) {
	if full := f.bus.Broadcast(d); full {
		f.log.Warn("dci bus full, falling back to blocking broadcast")
	}
	if f.logBatch == nil {
		return
	}
	f.batch = append(f.batch, d)
	if len(f.batch) >= f.batchSize {
		for _, rec := range f.batch {
			select {
			case f.logBatch <- rec:
			default:
			}
		}
		f.batch = f.batch[:0]
	}
}

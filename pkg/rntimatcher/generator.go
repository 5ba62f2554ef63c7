package rntimatcher

import (
	"encoding/binary"
	"math"
	"net"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// metricMagic prefixes a probe payload that embeds the latest MetricA
// (§6 "metric side-channel in probe packets").
var metricMagic = [4]byte{0x11, 0x21, 0x12, 0x22}

const metricSideChannelVersion byte = 0x01

// generator is the probe-traffic sub-thread (§4.4): it replays a
// TrafficPattern's schedule against a fixed destination, embedding the
// latest MetricA in every packet it sends (pattern and keepalive alike)
// so the peer learns the locally observed capacity without a second
// socket.
type generator struct {
	conn   *net.UDPConn
	dest   *net.UDPAddr
	log    *logx.Logger
	metric func() (pkg.MetricA, bool)

	lastSentUs int64
}

func newGenerator(destAddr string, metric func() (pkg.MetricA, bool), log *logx.Logger) (*generator, error) {
	addr, err := net.ResolveUDPAddr("udp", destAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	return &generator{conn: conn, dest: addr, log: log, metric: metric}, nil
}

func (g *generator) Close() error { return g.conn.Close() }

// Run replays pattern once, honoring drift-free timing discipline: if
// the actual send time overran the scheduled sleep, the next sleep is
// shortened by the excess instead of accumulating drift (§4.4).
func (g *generator) Run(stop <-chan struct{}, pattern TrafficPattern) {
	g.lastSentUs = nowUs()
	for _, step := range pattern.Steps {
		scheduled := time.Duration(step.SleepMs) * time.Millisecond
		overrun := time.Duration(nowUs()-g.lastSentUs) * time.Microsecond
		sleep := scheduled - overrun
		if sleep > 0 {
			select {
			case <-time.After(sleep):
			case <-stop:
				return
			}
		}
		select {
		case <-stop:
			return
		default:
		}
		g.send(step.PayloadBytes)
		g.lastSentUs = nowUs()
	}
}

// Idle sends periodic small keepalive packets carrying the latest
// MetricA until stop is closed; the worker runs it for its whole
// lifetime, during matching rounds as well as between them.
func (g *generator) Idle(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.send(0)
		}
	}
}

func (g *generator) send(payloadBytes int) {
	buf := make([]byte, 0, 12+payloadBytes)
	if m, ok := g.metric(); ok {
		buf = append(buf, metricMagic[:]...)
		buf = append(buf, metricSideChannelVersion)
		buf = appendMetricA(buf, m)
	}
	if payloadBytes > len(buf) {
		buf = append(buf, make([]byte, payloadBytes-len(buf))...)
	}
	if _, err := g.conn.WriteToUDP(buf, g.dest); err != nil {
		g.log.Warn("probe send failed", "error", err.Error())
	}
}

// appendMetricA serialises the raw MetricA struct bytes (§6), in the
// struct's declared field order, little-endian.
func appendMetricA(buf []byte, m pkg.MetricA) []byte {
	var tmp [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}
	putF64 := func(v float64) {
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
		buf = append(buf, tmp[:]...)
	}

	putU64(m.TimestampUs)
	putF64(m.FairShareSendRate)
	putU64(m.LatestDciTimestampUs)
	putU64(m.OldestDciTimestampUs)
	putU64(uint64(m.NofDci))
	putF64(m.NoTbsPrbRatio)
	buf = append(buf, m.FlagPhyRateAllRnti)
	putF64(m.PhyRate)
	return buf
}

func nowUs() int64 {
	return time.Now().UnixMicro()
}

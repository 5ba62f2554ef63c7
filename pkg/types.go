// Package pkg holds the data model shared by every nectard worker:
// cell information, DCI records, traffic-matching accumulators, and the
// capacity metric. These are plain structs; their only methods are
// small helpers (cell equality and lookup, the valid RNTI prefix, and
// the TrafficCollection.Add accumulator).
package pkg

// CellType distinguishes the radio access technology of a SingleCell.
type CellType int

const (
	CellTypeLTE CellType = iota
	CellTypeNR
)

func (t CellType) String() string {
	if t == CellTypeNR {
		return "NR"
	}
	return "LTE"
}

// SingleCell is one observed serving cell and its radio parameters.
type SingleCell struct {
	CellID    uint64
	CellType  CellType
	NofPRB    uint16
	Frequency uint64 // Hz
	RSSI      float64
	RSRP      float64
	RSRQ      float64
	DLBandwidthMbps float64
	ULBandwidthMbps float64
}

// CellInfo is the set of currently observed cells from one poll.
type CellInfo struct {
	Cells []SingleCell
}

// cellKey identifies a cell by (frequency, cell_type) for equality checks.
type cellKey struct {
	Frequency uint64
	CellType  CellType
}

// EqualContent reports whether ci and other map 1-to-1 on
// (frequency, cell_type), per the CellInfo invariant in §3.
func (ci CellInfo) EqualContent(other CellInfo) bool {
	if len(ci.Cells) != len(other.Cells) {
		return false
	}
	a := make(map[cellKey]int, len(ci.Cells))
	for _, c := range ci.Cells {
		a[cellKey{c.Frequency, c.CellType}]++
	}
	b := make(map[cellKey]int, len(other.Cells))
	for _, c := range other.Cells {
		b[cellKey{c.Frequency, c.CellType}]++
	}
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// ByFrequency finds the SingleCell with the given frequency, if any.
func (ci CellInfo) ByFrequency(freq uint64) (SingleCell, bool) {
	for _, c := range ci.Cells {
		if c.Frequency == freq {
			return c, true
		}
	}
	return SingleCell{}, false
}

// MaxRntiPerDci is the fixed capacity of the rnti_list array in one
// NgScopeCellDci record (§3, §6).
const MaxRntiPerDci = 20

// RntiDci carries one RNTI's per-subframe scheduling counters.
type RntiDci struct {
	Rnti       uint16
	DlTbsBit   uint32
	DlPrb      uint16
	DlNoTbsPrb uint16
	UlTbsBit   uint32
	UlPrb      uint16
	UlNoTbsPrb uint16
}

// NgScopeCellDci is one DCI record for one subframe on one cell (§3).
type NgScopeCellDci struct {
	CellID            uint8
	TimeStampUs       uint64
	TTI               uint16
	TotalDlTbsBit      uint64
	TotalUlTbsBit      uint64
	TotalDlPrb         uint32
	TotalUlPrb         uint32
	TotalDlNoTbsPrb    uint32
	TotalUlNoTbsPrb    uint32
	NofRnti            uint8
	RntiList           [MaxRntiPerDci]RntiDci
}

// Rntis returns the valid prefix of RntiList.
func (d *NgScopeCellDci) Rntis() []RntiDci {
	n := int(d.NofRnti)
	if n > MaxRntiPerDci {
		n = MaxRntiPerDci
	}
	return d.RntiList[:n]
}

// MetricA is the emitted capacity record (§3, §4.5).
type MetricA struct {
	TimestampUs          uint64  `json:"timestamp_us"`
	FairShareSendRate     float64 `json:"fair_share_send_rate"`
	LatestDciTimestampUs  uint64  `json:"latest_dci_timestamp_us"`
	OldestDciTimestampUs  uint64  `json:"oldest_dci_timestamp_us"`
	NofDci                int     `json:"nof_dci"`
	NoTbsPrbRatio         float64 `json:"no_tbs_prb_ratio"`
	FlagPhyRateAllRnti    uint8   `json:"flag_phy_rate_all_rnti"`
	PhyRate               float64 `json:"phy_rate"`
}

// MessageRnti is the currently believed UE RNTI per cell.
type MessageRnti struct {
	CellRnti map[uint8]uint16
}

// TimestampedBytes is one traffic-collection sample: bytes observed at
// a timestamp, split by direction.
type TimestampedBytes struct {
	TimestampMs int64
	DlBytes     uint64
	UlBytes     uint64
}

// TrafficPatternFeatures carries the standardization parameters and the
// standardized target feature vector of a probe pattern (§4.4).
type TrafficPatternFeatures struct {
	Means   [8]float64
	Stddevs [8]float64
	Target  [8]float64
}

// RntiTraffic accumulates per-RNTI uplink/downlink samples for one cell
// during a single matching round.
type RntiTraffic struct {
	Rnti       uint16
	Samples    []TimestampedBytes
	TotalDl    uint64
	TotalUl    uint64
}

// TrafficCollection is the per-matching-round accumulator (§3).
type TrafficCollection struct {
	StartMs  int64
	FinishMs int64
	Features TrafficPatternFeatures
	// Cells maps cell_id -> rnti -> accumulated traffic.
	Cells map[uint8]map[uint16]*RntiTraffic
}

// NewTrafficCollection creates an empty accumulator for [startMs, finishMs].
func NewTrafficCollection(startMs, finishMs int64, features TrafficPatternFeatures) *TrafficCollection {
	return &TrafficCollection{
		StartMs:  startMs,
		FinishMs: finishMs,
		Features: features,
		Cells:    make(map[uint8]map[uint16]*RntiTraffic),
	}
}

// Add indexes one DCI record's per-RNTI uplink and downlink bytes into
// the collection under cellID; every RNTI entry of d is filed there, and
// d.CellID is not checked.
func (tc *TrafficCollection) Add(cellID uint8, d *NgScopeCellDci) {
	ridx, ok := tc.Cells[cellID]
	if !ok {
		ridx = make(map[uint16]*RntiTraffic)
		tc.Cells[cellID] = ridx
	}
	tsMs := int64(d.TimeStampUs / 1000)
	for _, r := range d.Rntis() {
		rt, ok := ridx[r.Rnti]
		if !ok {
			rt = &RntiTraffic{Rnti: r.Rnti}
			ridx[r.Rnti] = rt
		}
		ulBytes := uint64(r.UlTbsBit / 8)
		dlBytes := uint64(r.DlTbsBit / 8)
		rt.Samples = append(rt.Samples, TimestampedBytes{
			TimestampMs: tsMs,
			DlBytes:     dlBytes,
			UlBytes:     ulBytes,
		})
		rt.TotalDl += dlBytes
		rt.TotalUl += ulBytes
	}
}

// TcpLogStats is one per-timestamp download sample (§3).
type TcpLogStats struct {
	TimestampUs int64
	Bytes       int64
	RttUs       int64
}

// RntiShareType selects how ModelHandler divides idle PRBs across
// concurrently scheduled RNTIs (§4.5).
type RntiShareType int

const (
	RntiShareAll RntiShareType = iota
	RntiShareDlOccurrences
	RntiShareGreedy
)

// DownloadStreamState is the per-active-download accumulator (§3).
type DownloadStreamState struct {
	URL             string
	StartUs         int64
	FinishUs        int64
	RntiShareType   RntiShareType
	Samples         []TcpLogStats
	TotalDlTbsBit   uint64
	TotalDlPrb      uint64
	ThisRntiTbsBit  uint64
	ThisRntiPrb     uint64
}

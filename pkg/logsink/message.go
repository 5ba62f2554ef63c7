package logsink

import (
	"time"

	"github.com/nectard/nectard/pkg"
)

// MessageKind selects which per-run file a queued message is routed to
// (§4.7).
type MessageKind int

const (
	KindInfo MessageKind = iota
	KindDci
	KindRntiMatching
	KindMetric
	KindDownload
)

// Message is one tagged entry accepted onto the Logger's bounded queue.
// Exactly one of the payload fields is populated, matching Kind.
type Message struct {
	Kind MessageKind
	At   time.Time

	InfoText    string
	DciBatch    []pkg.NgScopeCellDci
	RntiRecord  map[string]interface{}
	MetricA     pkg.MetricA
	Download    map[string]interface{}
}

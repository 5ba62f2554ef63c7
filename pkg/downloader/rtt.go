package downloader

import (
	"bytes"
	"encoding/binary"
)

// rttMarkerPrefix and rttMarkerSuffix bound the embedded RTT marker
// searched for at the tail of each non-empty read (§4.6).
var rttMarkerPrefix = []byte{0xAA, 0xAB, 0xAC}
var rttMarkerSuffix = []byte{0xBA, 0xBB, 0xBC}

// rttMarkerSearchWindow is how many trailing bytes of the buffer are
// searched for the marker on each read (§4.6 "trailing 40 bytes").
const rttMarkerSearchWindow = 40

// extractRttUs searches buf's tail for the pattern
// `AA AB AC [4-byte big-endian rtt_us] BA BB BC` and returns the
// decoded RTT if found (§8 property 6).
func extractRttUs(buf []byte) (rttUs uint32, ok bool) {
	tail := buf
	if len(tail) > rttMarkerSearchWindow {
		tail = tail[len(tail)-rttMarkerSearchWindow:]
	}

	markerLen := len(rttMarkerPrefix) + 4 + len(rttMarkerSuffix)
	for start := len(tail) - markerLen; start >= 0; start-- {
		candidate := tail[start : start+markerLen]
		if !bytes.Equal(candidate[:3], rttMarkerPrefix) {
			continue
		}
		if !bytes.Equal(candidate[7:10], rttMarkerSuffix) {
			continue
		}
		return binary.BigEndian.Uint32(candidate[3:7]), true
	}
	return 0, false
}

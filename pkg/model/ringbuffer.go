// Package model implements the ModelHandler worker (§4.5): the DCI
// ring buffer and the PBE-CC capacity-estimation algorithm.
package model

import (
	"sync"

	"github.com/nectard/nectard/pkg"
)

// ringCapacity is the DCI ring buffer's fixed capacity (§3).
const ringCapacity = 10000

// compactTo is the number of most-recent records retained when the
// buffer fills and is compacted (§3).
const compactTo = 1000

// DciRingBuffer holds up to ringCapacity DCI records in insertion
// order, owned exclusively by one ModelHandler (§5 "Shared resources").
// Once full, it discards all but the most recent compactTo records
// rather than evicting one-for-one, grounded on the teacher's
// RingBuffer (pkg/telem/store.go) head/tail/size bookkeeping, adapted
// here to a full-then-compact policy instead of generic time eviction.
type DciRingBuffer struct {
	mu   sync.RWMutex
	data []pkg.NgScopeCellDci
}

func NewDciRingBuffer() *DciRingBuffer {
	return &DciRingBuffer{data: make([]pkg.NgScopeCellDci, 0, ringCapacity)}
}

// Push appends one DCI record, compacting to the most recent compactTo
// records if the buffer was at capacity.
func (rb *DciRingBuffer) Push(d pkg.NgScopeCellDci) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(rb.data) >= ringCapacity {
		keep := rb.data[len(rb.data)-compactTo:]
		rb.data = append(rb.data[:0], keep...)
	}
	rb.data = append(rb.data, d)
}

// Slice returns the last min(n, len) records in insertion order (§8
// property 4). The returned slice is a copy, safe to read without
// holding the buffer's lock.
func (rb *DciRingBuffer) Slice(n int) []pkg.NgScopeCellDci {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n > len(rb.data) {
		n = len(rb.data)
	}
	out := make([]pkg.NgScopeCellDci, n)
	copy(out, rb.data[len(rb.data)-n:])
	return out
}

// Len reports the current number of retained records.
func (rb *DciRingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return len(rb.data)
}

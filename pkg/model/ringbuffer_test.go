package model

import (
	"testing"

	"github.com/nectard/nectard/pkg"
)

func dciAt(tsUs uint64) pkg.NgScopeCellDci {
	return pkg.NgScopeCellDci{TimeStampUs: tsUs}
}

func TestRingBufferSliceReturnsLastNInOrder(t *testing.T) {
	rb := NewDciRingBuffer()
	for i := uint64(0); i < 20; i++ {
		rb.Push(dciAt(i))
	}

	got := rb.Slice(5)
	if len(got) != 5 {
		t.Fatalf("Slice(5) len = %d, want 5", len(got))
	}
	for i, rec := range got {
		want := uint64(15 + i)
		if rec.TimeStampUs != want {
			t.Errorf("Slice(5)[%d].TimeStampUs = %d, want %d", i, rec.TimeStampUs, want)
		}
	}

	if got := rb.Slice(100); len(got) != 20 {
		t.Errorf("Slice(100) on a 20-item buffer = %d items, want 20", len(got))
	}
}

func TestRingBufferCompactsAfterCapacity(t *testing.T) {
	rb := NewDciRingBuffer()
	for i := uint64(0); i < ringCapacity+50; i++ {
		rb.Push(dciAt(i))
	}

	if rb.Len() > ringCapacity {
		t.Fatalf("Len() = %d, want <= %d after exceeding capacity", rb.Len(), ringCapacity)
	}

	got := rb.Slice(10)
	if len(got) != 10 {
		t.Fatalf("Slice(10) len = %d, want 10", len(got))
	}
	last := uint64(ringCapacity + 49)
	for i, rec := range got {
		want := last - uint64(9-i)
		if rec.TimeStampUs != want {
			t.Errorf("Slice(10)[%d].TimeStampUs = %d, want %d", i, rec.TimeStampUs, want)
		}
	}
}

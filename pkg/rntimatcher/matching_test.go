package rntimatcher

import (
	"testing"

	"github.com/nectard/nectard/pkg"
)

func TestFindBestMatchPicksExactFeatureMatch(t *testing.T) {
	pattern := constantRate('T', 50, 20, 128)

	// Build a candidate whose raw feature vector equals pattern.Features.Means
	// exactly, so its standardized vector is the zero vector (distance 0 to
	// Target, which is also zero by construction).
	exact := samplesForRawFeatures(t, pattern.Features.Means)

	other := []pkg.TimestampedBytes{
		{TimestampMs: 0, UlBytes: 10},
		{TimestampMs: 25, UlBytes: 500},
		{TimestampMs: 55, UlBytes: 5},
	}

	traffic := map[uint16]*pkg.RntiTraffic{
		100: {Rnti: 100, Samples: exact, TotalUl: sumUl(exact)},
		200: {Rnti: 200, Samples: other, TotalUl: sumUl(other)},
		50:  {Rnti: 50, Samples: other, TotalUl: sumUl(other)},
	}

	got, err := findBestMatch(traffic, pattern)
	if err != nil {
		t.Fatalf("findBestMatch: unexpected error: %v", err)
	}
	if got != 100 {
		t.Errorf("findBestMatch = %d, want 100 (exact feature match)", got)
	}
}

func TestBasicFilterRejectsOutliers(t *testing.T) {
	pattern := constantRate('T', 100, 20, 100) // TotalUlBytes = 10000, NofPackets=100

	tooMuch := candidate{rnti: 1, occurrences: 100, totalUlBytes: 5_000_000, maxSingleUl: 10}
	if passesBasicFilter(tooMuch, pattern) {
		t.Error("expected rejection: total_ul_bytes > 200x pattern total")
	}

	tooLittle := candidate{rnti: 2, occurrences: 100, totalUlBytes: 1, maxSingleUl: 1}
	if passesBasicFilter(tooLittle, pattern) {
		t.Error("expected rejection: total_ul_bytes < 0.005x pattern total")
	}

	tooFewOccurrences := candidate{rnti: 3, occurrences: 1, totalUlBytes: 10000, maxSingleUl: 10}
	if passesBasicFilter(tooFewOccurrences, pattern) {
		t.Error("expected rejection: occurrence count < 0.05x pattern.nof_packets")
	}

	hugeSingleUl := candidate{rnti: 4, occurrences: 100, totalUlBytes: 10000, maxSingleUl: 6_000_000}
	if passesBasicFilter(hugeSingleUl, pattern) {
		t.Error("expected rejection: single dci ul > 5,000,000 bytes")
	}

	fine := candidate{rnti: 5, occurrences: 100, totalUlBytes: 10000, maxSingleUl: 100}
	if !passesBasicFilter(fine, pattern) {
		t.Error("expected candidate within all thresholds to pass")
	}
}

func TestWinnerRingMode(t *testing.T) {
	var r winnerRing
	for _, v := range []uint16{10, 20, 10, 30, 10} {
		r.push(v)
	}
	got, ok := r.mode()
	if !ok || got != 10 {
		t.Errorf("mode = (%d, %v), want (10, true)", got, ok)
	}
}

func TestWinnerRingModeTieBreaksLowestRnti(t *testing.T) {
	var r winnerRing
	for _, v := range []uint16{20, 10, 20, 10, 99} {
		r.push(v)
	}
	got, ok := r.mode()
	if !ok || got != 10 {
		t.Errorf("mode = (%d, %v), want (10, true) by lowest-rnti tie-break", got, ok)
	}
}

// samplesForRawFeatures constructs a synthetic sample series whose
// rawFeatures() output equals target as closely as exact arithmetic
// allows, by directly emitting dci_count and total_ul_bytes as their
// simplest realization: a uniform series.
func samplesForRawFeatures(t *testing.T, target [8]float64) []pkg.TimestampedBytes {
	t.Helper()
	n := int(target[0])
	if n <= 0 {
		n = 1
	}
	totalUl := uint64(target[1])
	perSample := totalUl / uint64(n)
	remainder := totalUl % uint64(n)

	samples := make([]pkg.TimestampedBytes, n)
	var tsMs int64
	for i := 0; i < n; i++ {
		ul := perSample
		if i == 0 {
			ul += remainder
		}
		samples[i] = pkg.TimestampedBytes{TimestampMs: tsMs, UlBytes: ul}
		tsMs += 20
	}
	return samples
}

func sumUl(samples []pkg.TimestampedBytes) uint64 {
	var sum uint64
	for _, s := range samples {
		sum += s.UlBytes
	}
	return sum
}

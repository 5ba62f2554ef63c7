package rntimatcher

import (
	"math"
	"sort"

	"github.com/nectard/nectard/pkg"
)

// featureWeights is the fixed weighting vector for the weighted
// Euclidean distance between a candidate RNTI's standardized feature
// vector and the pattern's standardized target vector (§4.4).
var featureWeights = [8]float64{0.5, 0.3, 0.1, 0.02, 0.02, 0.02, 0.02, 0.02}

// rawFeatures computes the eight order-sensitive statistics of one
// RNTI's uplink traffic over a matching round: dci_count, total_ul_bytes,
// ul_median, ul_mean, ul_variance, tx_delta_median, tx_delta_mean,
// tx_delta_variance (§4.4).
func rawFeatures(samples []pkg.TimestampedBytes) [8]float64 {
	n := len(samples)
	if n == 0 {
		return [8]float64{}
	}

	ulBytes := make([]float64, n)
	var totalUl float64
	for i, s := range samples {
		ulBytes[i] = float64(s.UlBytes)
		totalUl += ulBytes[i]
	}

	deltas := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		deltas = append(deltas, float64(samples[i].TimestampMs-samples[i-1].TimestampMs))
	}

	ulMedian, ulMean, ulVar := medianMeanVariance(ulBytes)
	tdMedian, tdMean, tdVar := medianMeanVariance(deltas)

	return [8]float64{
		float64(n),
		totalUl,
		ulMedian,
		ulMean,
		ulVar,
		tdMedian,
		tdMean,
		tdVar,
	}
}

func medianMeanVariance(xs []float64) (median, mean, variance float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	variance = sq / float64(len(xs))

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}
	return median, mean, variance
}

// standardize applies (x - mean) / stddev component-wise, treating a
// zero stddev as an exact match (distance contribution 0 regardless of
// x), which keeps a degenerate all-zero reference pattern well-defined.
func standardize(raw [8]float64, means, stddevs [8]float64) [8]float64 {
	var out [8]float64
	for i := range raw {
		if stddevs[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = (raw[i] - means[i]) / stddevs[i]
	}
	return out
}

// weightedDistance computes the weighted Euclidean distance between two
// standardized feature vectors using featureWeights (§4.4).
func weightedDistance(a, b [8]float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += featureWeights[i] * d * d
	}
	return math.Sqrt(sum)
}

// rawFeaturesOfSteps computes a pattern's own raw feature vector by
// replaying its step schedule as a sample series (cumulative send
// timestamp, payload size as UL bytes) through rawFeatures — the same
// calculation original_source/src/logic/traffic_patterns.rs's
// generate_standardized_feature_vec applies to a TrafficPattern's own
// messages.
func rawFeaturesOfSteps(steps []ProbeStep) [8]float64 {
	samples := make([]pkg.TimestampedBytes, len(steps))
	var tMs int64
	for i, s := range steps {
		tMs += int64(s.SleepMs)
		samples[i] = pkg.TimestampedBytes{TimestampMs: tMs, UlBytes: uint64(s.PayloadBytes)}
	}
	return rawFeatures(samples)
}

// calibratedTarget builds the (means, stddevs, target) triple for a
// pattern with real measured calibration data: means/stddevs come
// straight from the ported std_vec pair (calib[i][0], calib[i][1]), and
// target is the pattern's own idealized schedule standardized against
// that same calibration — generally not zero, since the calibration was
// measured from real captured traffic rather than derived from the
// schedule itself.
func calibratedTarget(steps []ProbeStep, calib [8][2]float64) pkg.TrafficPatternFeatures {
	var means, stddevs [8]float64
	for i, pair := range calib {
		means[i] = pair[0]
		stddevs[i] = pair[1]
	}
	raw := rawFeaturesOfSteps(steps)
	return pkg.TrafficPatternFeatures{
		Means:   means,
		Stddevs: stddevs,
		Target:  standardize(raw, means, stddevs),
	}
}

// selfDerivedTarget builds a fallback (means, stddevs, target) triple
// for a pattern the original implementation also left uncalibrated
// (patterns O-Z: "to be determined", built via ..Default::default() with
// an empty std_vec). With no measured calibration to fall back to, means
// is the pattern's own expected raw feature vector and stddevs is a
// fixed fraction of each mean (floored to avoid division by zero), which
// makes target the all-zero vector: a perfectly matching candidate is
// one whose standardized feature vector lands near zero.
func selfDerivedTarget(steps []ProbeStep) pkg.TrafficPatternFeatures {
	raw := rawFeaturesOfSteps(steps)

	var stddevs [8]float64
	for i, m := range raw {
		sd := math.Abs(m) * 0.2
		if sd < 1e-6 {
			sd = 1e-6
		}
		stddevs[i] = sd
	}

	return pkg.TrafficPatternFeatures{
		Means:   raw,
		Stddevs: stddevs,
		Target:  [8]float64{},
	}
}

// roundPacketSize evaluates amplitude*sin(angularFreqFactor*pi*t) +
// verticalShift and rounds to the nearest byte count, as pattern_g does
// for its sinusoidal payload schedule.
func roundPacketSize(amplitude, angularFreqFactor, t, verticalShift float64) int {
	return int(math.Round(amplitude*math.Sin(angularFreqFactor*math.Pi*t) + verticalShift))
}

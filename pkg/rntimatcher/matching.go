package rntimatcher

import (
	"sort"

	"github.com/nectard/nectard/pkg"
)

// MatchingError enumerates the failure modes of a matching round
// (§4.4), each logged and followed by a 1-second backoff.
type MatchingError string

const (
	ErrorGeneratingPatternFeatures MatchingError = "ErrorGeneratingPatternFeatures"
	ErrorFindingBestMatchingRnti   MatchingError = "ErrorFindingBestMatchingRnti"
	ExceededDciTimestampDelta      MatchingError = "ExceededDciTimestampDelta"
)

func (e MatchingError) Error() string { return string(e) }

// candidate is one RNTI's per-round accumulator plus its derived stats,
// carried alongside the RNTI for the basic filter and distance scoring.
type candidate struct {
	rnti        uint16
	occurrences int
	totalUlBytes uint64
	maxSingleUl  uint64
}

func candidatesFrom(traffic map[uint16]*pkg.RntiTraffic) []candidate {
	out := make([]candidate, 0, len(traffic))
	for rnti, rt := range traffic {
		var maxUl uint64
		for _, s := range rt.Samples {
			if s.UlBytes > maxUl {
				maxUl = s.UlBytes
			}
		}
		out = append(out, candidate{
			rnti:         rnti,
			occurrences:  len(rt.Samples),
			totalUlBytes: rt.TotalUl,
			maxSingleUl:  maxUl,
		})
	}
	return out
}

// passesBasicFilter applies the four discard rules (§4.4).
func passesBasicFilter(c candidate, p TrafficPattern) bool {
	if p.TotalUlBytes > 0 {
		if float64(c.totalUlBytes) > 200*float64(p.TotalUlBytes) {
			return false
		}
		if float64(c.totalUlBytes) < 0.005*float64(p.TotalUlBytes) {
			return false
		}
	}
	if c.maxSingleUl > 5_000_000 {
		return false
	}
	if float64(c.occurrences) < 0.05*float64(p.NofPackets) {
		return false
	}
	return true
}

// findBestMatch runs the basic filter, scores every surviving RNTI's
// standardized feature vector against the pattern's target by weighted
// Euclidean distance, and returns the lowest-distance RNTI with a
// stable lowest-RNTI tie-break (§4.4, §8 property 7).
func findBestMatch(traffic map[uint16]*pkg.RntiTraffic, p TrafficPattern) (uint16, error) {
	all := candidatesFrom(traffic)
	survivors := make([]candidate, 0, len(all))
	for _, c := range all {
		if passesBasicFilter(c, p) {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		return 0, ErrorFindingBestMatchingRnti
	}

	type scored struct {
		rnti     uint16
		distance float64
	}
	results := make([]scored, 0, len(survivors))
	for _, c := range survivors {
		raw := rawFeatures(traffic[c.rnti].Samples)
		std := standardize(raw, p.Features.Means, p.Features.Stddevs)
		results = append(results, scored{rnti: c.rnti, distance: weightedDistance(std, p.Features.Target)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].distance != results[j].distance {
			return results[i].distance < results[j].distance
		}
		return results[i].rnti < results[j].rnti
	})
	return results[0].rnti, nil
}

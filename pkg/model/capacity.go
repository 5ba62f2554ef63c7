package model

import (
	"fmt"
	"math"

	"github.com/nectard/nectard/pkg"
)

// historicalFallbackRate is the constant per-PRB rate (bits/PRB) used
// when no allocation data is available at all (§4.5).
const historicalFallbackRate = 500

// transportDiscount is the fixed discount applied when converting the
// physical fair-share rate to the transport fair-share rate (§4.5).
const transportDiscount = 0.068

// Capacity is one computed PBE-CC metric, carrying both the published
// MetricA fields and the intermediate values useful for logging/tests.
type Capacity struct {
	pkg.MetricA
	PAlloc        uint64
	PAllocNoTbs   uint64
	PAllocTotal   uint64
	PCell         uint64
	PIdle         uint64
	NofRntiShared int
	PhysicalRate  float64
	TransportRate float64
}

// Calculate implements the PBE-CC algorithm (§4.5) over slice D for the
// target rnti, with nofPrb cells-per-subframe resource blocks and the
// given share type for idle-PRB redistribution.
func Calculate(d []pkg.NgScopeCellDci, nofPrb uint16, rnti uint16, shareType pkg.RntiShareType) (Capacity, error) {
	nofDci := len(d)
	pCell := uint64(2) * uint64(nofPrb) * uint64(nofDci)

	var pAlloc, pAllocNoTbs, tbsAllocBit uint64
	for _, rec := range d {
		pAlloc += uint64(rec.TotalDlPrb)
		pAllocNoTbs += uint64(rec.TotalDlNoTbsPrb)
		tbsAllocBit += rec.TotalDlTbsBit
	}
	pAllocTotal := pAlloc + pAllocNoTbs
	if pAllocTotal > pCell {
		return Capacity{}, fmt.Errorf("model: p_alloc_total (%d) exceeds p_cell (%d)", pAllocTotal, pCell)
	}

	distinct := make(map[uint16]struct{})
	var pAllocRnti uint64
	var tbsAllocRntiBit uint64
	occurrenceByRnti := make(map[uint16]int)
	for _, rec := range d {
		for _, r := range rec.Rntis() {
			if r.DlPrb > 0 {
				distinct[r.Rnti] = struct{}{}
			}
			occurrenceByRnti[r.Rnti]++
			if r.Rnti == rnti {
				pAllocRnti += uint64(r.DlPrb)
				tbsAllocRntiBit += uint64(r.DlTbsBit)
			}
		}
	}
	nofRnti := len(distinct)

	var rW float64
	var coarse uint8
	switch {
	case pAllocRnti > 0:
		rW = float64(tbsAllocRntiBit) / float64(pAllocRnti)
		coarse = 0
	case pAlloc > 0:
		rW = float64(tbsAllocBit) / float64(pAlloc)
		coarse = 1
	default:
		rW = historicalFallbackRate
		coarse = 1
	}

	pIdle := pCell - pAllocTotal

	nofRntiShared := shareDivisor(shareType, occurrenceByRnti, nofDci, nofRnti)

	pAllocRntiSuggested := pAllocRnti + uint64(math.Ceil(float64(pIdle)/float64(nofRntiShared)))

	cP := rW * float64(pAllocRnti+pAllocRntiSuggested) / float64(nofDci)
	cT := math.Round(cP * (1 - transportDiscount))

	var noTbsRatio float64
	if pAllocTotal > 0 {
		noTbsRatio = float64(pAllocNoTbs) / float64(pAllocTotal)
	}

	var latest, oldest uint64
	if nofDci > 0 {
		latest = d[nofDci-1].TimeStampUs
		oldest = d[0].TimeStampUs
	}

	return Capacity{
		MetricA: pkg.MetricA{
			TimestampUs:          latest,
			FairShareSendRate:    cT,
			LatestDciTimestampUs: latest,
			OldestDciTimestampUs: oldest,
			NofDci:               nofDci,
			NoTbsPrbRatio:        noTbsRatio,
			FlagPhyRateAllRnti:   coarse,
			PhyRate:              rW,
		},
		PAlloc:        pAlloc,
		PAllocNoTbs:   pAllocNoTbs,
		PAllocTotal:   pAllocTotal,
		PCell:         pCell,
		PIdle:         pIdle,
		NofRntiShared: nofRntiShared,
		PhysicalRate:  cP,
		TransportRate: cT,
	}, nil
}

// shareDivisor implements nof_rnti_shared by rnti_share_type (§4.5).
func shareDivisor(shareType pkg.RntiShareType, occurrenceByRnti map[uint16]int, nofDci, nofRnti int) int {
	switch shareType {
	case pkg.RntiShareDlOccurrences:
		threshold := float64(nofDci) / 10
		n := 0
		for _, count := range occurrenceByRnti {
			if float64(count) >= threshold {
				n++
			}
		}
		if n < 1 {
			n = 1
		}
		return n
	case pkg.RntiShareGreedy:
		return 1
	default: // RntiShareAll
		if nofRnti < 1 {
			return 1
		}
		return nofRnti
	}
}

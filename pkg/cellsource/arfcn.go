package cellsource

import "fmt"

// lteBand describes one 3GPP LTE downlink ARFCN range and its
// piecewise-linear frequency map (§4.2). Ranges are checked in table
// order; where two bands' ranges overlap, the first match wins (§9,
// open question (b)).
type lteBand struct {
	name    string
	loARFCN uint64
	hiARFCN uint64
	// freq(arfcn) = baseHz + stepHz*(arfcn-offsetARFCN)
	baseHz     int64
	stepHz     int64
	offsetARFCN uint64
}

// lteBands is not exhaustive of all 3GPP bands; it covers the bands the
// source table names explicitly (§4.2, §8 property 1) plus the common
// additional bands needed to keep the first-match-wins policy
// meaningful across the full EARFCN space.
var lteBands = []lteBand{
	{name: "1", loARFCN: 0, hiARFCN: 599, baseHz: 2_110_000_000, stepHz: 100_000, offsetARFCN: 0},
	{name: "2", loARFCN: 600, hiARFCN: 1199, baseHz: 1_930_000_000, stepHz: 100_000, offsetARFCN: 600},
	{name: "3", loARFCN: 1200, hiARFCN: 1949, baseHz: 1_805_000_000, stepHz: 100_000, offsetARFCN: 1200},
	{name: "4", loARFCN: 1950, hiARFCN: 2399, baseHz: 2_110_000_000, stepHz: 100_000, offsetARFCN: 1950},
	{name: "5", loARFCN: 2400, hiARFCN: 2649, baseHz: 869_000_000, stepHz: 100_000, offsetARFCN: 2400},
	{name: "7", loARFCN: 2750, hiARFCN: 3449, baseHz: 2_620_000_000, stepHz: 100_000, offsetARFCN: 2750},
	{name: "8", loARFCN: 3450, hiARFCN: 3799, baseHz: 925_000_000, stepHz: 100_000, offsetARFCN: 3450},
	{name: "12", loARFCN: 5010, hiARFCN: 5179, baseHz: 729_000_000, stepHz: 100_000, offsetARFCN: 5010},
	{name: "13", loARFCN: 5180, hiARFCN: 5279, baseHz: 746_000_000, stepHz: 100_000, offsetARFCN: 5180},
	{name: "20", loARFCN: 6150, hiARFCN: 6449, baseHz: 791_000_000, stepHz: 100_000, offsetARFCN: 6150},
	{name: "28", loARFCN: 9210, hiARFCN: 9659, baseHz: 758_000_000, stepHz: 100_000, offsetARFCN: 9210},
	{name: "31", loARFCN: 9870, hiARFCN: 9919, baseHz: 462_500_000, stepHz: 100_000, offsetARFCN: 9870},
	{name: "38", loARFCN: 37750, hiARFCN: 38249, baseHz: 2_570_000_000, stepHz: 100_000, offsetARFCN: 37750},
	{name: "40", loARFCN: 38650, hiARFCN: 39649, baseHz: 2_300_000_000, stepHz: 100_000, offsetARFCN: 38650},
	{name: "41", loARFCN: 39650, hiARFCN: 41589, baseHz: 2_496_000_000, stepHz: 100_000, offsetARFCN: 39650},
}

// LTEFrequencyHz converts an LTE downlink EARFCN to a carrier frequency
// in Hz using the first band range (in table order) that contains it.
// An out-of-range ARFCN is a fatal configuration error for the call
// (§4.2, §7).
func LTEFrequencyHz(arfcn uint64) (uint64, error) {
	for _, b := range lteBands {
		if arfcn >= b.loARFCN && arfcn <= b.hiARFCN {
			freq := b.baseHz + b.stepHz*int64(arfcn-b.offsetARFCN)
			if freq < 0 {
				return 0, fmt.Errorf("cellsource: computed negative frequency for arfcn %d band %s", arfcn, b.name)
			}
			return uint64(freq), nil
		}
	}
	return 0, fmt.Errorf("cellsource: arfcn %d out of range for all known LTE bands", arfcn)
}

// nrRange is one of the three ARFCN ranges the NR ΔF_global/F_ref_offs/
// N_ref_offs triple is selected from (§4.2).
type nrRange struct {
	lo, hi      uint64
	deltaFGlobalKHz int64
	fRefOffsKHz int64
	nRefOffs    uint64
}

var nrRanges = []nrRange{
	{lo: 0, hi: 599_999, deltaFGlobalKHz: 5, fRefOffsKHz: 0, nRefOffs: 0},
	{lo: 600_000, hi: 2_016_666, deltaFGlobalKHz: 15, fRefOffsKHz: 3_000_000, nRefOffs: 600_000},
	{lo: 2_016_667, hi: ^uint64(0), deltaFGlobalKHz: 60, fRefOffsKHz: 24_250_080, nRefOffs: 2_016_667},
}

// NRFrequencyHz converts an NR-ARFCN on the global frequency raster to a
// carrier frequency in Hz (§4.2):
//
//	freq = (F_ref_offs + ΔF_global·(arfcn − N_ref_offs)) · 1000
func NRFrequencyHz(arfcn uint64) (uint64, error) {
	for _, r := range nrRanges {
		if arfcn >= r.lo && arfcn <= r.hi {
			deltaArfcn := int64(arfcn) - int64(r.nRefOffs)
			khz := r.fRefOffsKHz + r.deltaFGlobalKHz*deltaArfcn
			if khz < 0 {
				return 0, fmt.Errorf("cellsource: computed negative frequency for nr arfcn %d", arfcn)
			}
			return uint64(khz) * 1000, nil
		}
	}
	return 0, fmt.Errorf("cellsource: nr arfcn %d out of range", arfcn)
}

// prbOverrides lists the handful of carrier-specific cell IDs whose
// resource-block count is known to deviate from the 100-PRB (20 MHz)
// default (§4.2). Grounded on
// original_source/src/cell_info.rs's prb_from_cell_id table.
var prbOverrides = map[uint64]uint16{
	21: 50,  // O2
	41: 100, // O2
	51: 100, // O2
	61: 100, // O2
	63: 100, // O2
	6:  50,  // Telekom
	7:  100, // Telekom
	8:  100, // Telekom
}

// PRBFromCellID resolves the number of resource blocks per subframe for
// a serving cell from its cell ID. Neither the Milesight /cgi reply nor
// the device-publisher feed reports PRB count directly, so this mirrors
// the lookup table the field source used in place of a real radio-layer
// read: default to 100 PRB (20 MHz), with the known carrier-specific
// exceptions above.
func PRBFromCellID(cellID uint64) uint16 {
	if prb, ok := prbOverrides[cellID]; ok {
		return prb
	}
	return 100
}

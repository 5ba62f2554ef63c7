// Package rntimatcher implements the RntiMatcher worker (§4.4): a probe
// generator sub-thread that emits UDP traffic according to a labeled
// TrafficPattern, and a matching-round FSM that correlates that probe
// traffic against the sniffer's uplink DCI time series to recover the
// local UE's RNTI per cell.
package rntimatcher

import "github.com/nectard/nectard/pkg"

// ProbeStep is one scheduled send in a TrafficPattern: sleep for
// SleepMs, then send PayloadBytes.
type ProbeStep struct {
	SleepMs      int
	PayloadBytes int
}

// TrafficPattern is a finite, labeled probe schedule plus the
// precomputed standardization parameters of its feature vector (§4.4).
//
// Grounded on original_source/src/logic/traffic_patterns.rs's
// RntiMatchingTrafficPatternType (A..Z). Patterns A-N carry real
// (mean, scale) calibration pairs measured against captured traffic
// (ported verbatim from pattern_a..pattern_n's std_vec literals); O-Z
// were left without calibration in the original too ("to be determined",
// built via `..Default::default()`), so those fall back to a
// self-derived standardization against the pattern's own schedule, same
// as the reference implementation would produce for an uncalibrated
// pattern today.
type TrafficPattern struct {
	Label        byte
	Steps        []ProbeStep
	TotalTimeMs  int64
	TotalUlBytes int64
	NofPackets   int
	Features     pkg.TrafficPatternFeatures
}

// incrementalPattern ports generate_incremental_pattern: payload doubles
// every step up to 2^maxPow bytes, one send every intervalMs, for
// totalMs/intervalMs steps, followed by one trailing send of pauseMs at
// the capped payload size.
func incrementalPattern(intervalMs, maxPow, totalMs, pauseMs int) []ProbeStep {
	maxIncrement := 1 << uint(maxPow)
	n := totalMs / intervalMs
	steps := make([]ProbeStep, 0, n+1)
	for i := 0; i < n; i++ {
		increment := maxIncrement
		if i < maxPow {
			increment = 1 << uint(i)
		}
		steps = append(steps, ProbeStep{SleepMs: intervalMs, PayloadBytes: increment})
	}
	steps = append(steps, ProbeStep{SleepMs: pauseMs, PayloadBytes: maxIncrement})
	return steps
}

func single(sleepMs, payloadBytes int) ProbeStep {
	return ProbeStep{SleepMs: sleepMs, PayloadBytes: payloadBytes}
}

func repeat(n, sleepMs, payloadBytes int) []ProbeStep {
	steps := make([]ProbeStep, n)
	for i := range steps {
		steps[i] = ProbeStep{SleepMs: sleepMs, PayloadBytes: payloadBytes}
	}
	return steps
}

// constantRate builds an uncalibrated pattern of n steps each sleeping
// sleepMs and sending payloadBytes. Not one of the 26 presets (none of
// A-Z is a flat constant rate) — kept as a minimal, reproducible
// fixture for matching-logic tests.
func constantRate(label byte, n, sleepMs, payloadBytes int) TrafficPattern {
	return uncalibrated(label, repeat(n, sleepMs, payloadBytes))
}

func calibrated(label byte, steps []ProbeStep, calib [8][2]float64) TrafficPattern {
	return finalize(label, steps, calibratedTarget(steps, calib))
}

func uncalibrated(label byte, steps []ProbeStep) TrafficPattern {
	return finalize(label, steps, selfDerivedTarget(steps))
}

func finalize(label byte, steps []ProbeStep, features pkg.TrafficPatternFeatures) TrafficPattern {
	p := TrafficPattern{Label: label, Steps: steps, NofPackets: len(steps), Features: features}
	for _, s := range steps {
		p.TotalTimeMs += int64(s.SleepMs)
		p.TotalUlBytes += int64(s.PayloadBytes)
	}
	return p
}

// Patterns is the fixed set of 26 labeled presets (§4.4), A through Z,
// ported from traffic_patterns.rs's pattern_a..pattern_z.
var Patterns = buildPatterns()

func buildPatterns() map[byte]TrafficPattern {
	m := make(map[byte]TrafficPattern, 26)

	m['A'] = calibrated('A', incrementalPattern(1, 7, 10000, 1), calibA)
	m['B'] = calibrated('B', incrementalPattern(5, 7, 10000, 1), calibB)
	m['C'] = calibrated('C', incrementalPattern(10, 7, 10000, 1), calibC)
	m['D'] = calibrated('D', incrementalPattern(15, 7, 10000, 1), calibD)
	m['E'] = calibrated('E', incrementalPattern(20, 7, 10000, 1), calibE)
	m['F'] = calibrated('F', incrementalPattern(40, 7, 10000, 1), calibF)
	m['G'] = calibrated('G', sinusoidalSteps(5, 10000, 128.0, 256.0, 1.5), calibG)
	m['H'] = calibrated('H', incrementalPattern(1, 8, 10000, 1), calibH)
	m['I'] = calibrated('I', incrementalPattern(5, 8, 10000, 1), calibI)
	m['J'] = calibrated('J', incrementalPattern(10, 8, 10000, 1), calibJ)
	m['K'] = calibrated('K', incrementalPattern(15, 8, 10000, 1), calibK)
	m['L'] = calibrated('L', incrementalPattern(20, 8, 10000, 1), calibL)
	m['M'] = calibrated('M', incrementalPattern(40, 8, 10000, 1), calibM)
	m['N'] = calibrated('N', incrementalPattern(40, 8, 5000, 5000), calibN)

	m['O'] = uncalibrated('O', patternO())
	m['P'] = uncalibrated('P', patternP())
	m['Q'] = uncalibrated('Q', []ProbeStep{single(100, 16000), single(10000, 16000)})
	m['R'] = uncalibrated('R', append(repeat(5000, 1, 16), single(5000, 16000)))
	m['S'] = uncalibrated('S', append(repeat(500, 10, 16000), repeat(500, 10, 32000)...))
	m['T'] = uncalibrated('T', append(repeat(8000, 1, 1024), single(2000, 64000)))
	m['U'] = uncalibrated('U', append(repeat(10000, 2, 16384), single(1000, 16384)))
	m['V'] = uncalibrated('V', patternV(m['I'].Steps))
	m['W'] = uncalibrated('W', patternW(m['I'].Steps))
	m['X'] = uncalibrated('X', append(repeat(20000, 1, 64000), single(1000, 64000)))
	m['Y'] = uncalibrated('Y', patternY())
	m['Z'] = uncalibrated('Z', patternZ())

	return m
}

// sinusoidalSteps ports pattern_g: a discretized sine wave around
// verticalShift with the given amplitude and angularFreqFactor*pi
// angular frequency, one send every intervalMs for totalMs.
func sinusoidalSteps(intervalMs, totalMs int, amplitude, verticalShift, angularFreqFactor float64) []ProbeStep {
	n := totalMs / intervalMs
	steps := make([]ProbeStep, n)
	for i := 0; i < n; i++ {
		t := float64(i) * float64(intervalMs) / 1000.0
		size := roundPacketSize(amplitude, angularFreqFactor, t, verticalShift)
		steps[i] = ProbeStep{SleepMs: intervalMs, PayloadBytes: size}
	}
	return steps
}

// patternO ports pattern_o: three identical cycles of a 32B/1ms burst,
// a 64B/1ms burst, then a 512B/20ms burst.
func patternO() []ProbeStep {
	var steps []ProbeStep
	for i := 0; i < 3; i++ {
		steps = append(steps, repeat(500, 1, 32)...)
		steps = append(steps, repeat(500, 1, 64)...)
		steps = append(steps, repeat(50, 20, 512)...)
	}
	return steps
}

// patternP ports pattern_p: five 1000-send/1ms "small" legs at 8/16/32/32/32
// bytes, followed by five 10-send/100ms "big" legs at 16000 bytes.
func patternP() []ProbeStep {
	var steps []ProbeStep
	for _, sz := range []int{8, 16, 32, 32, 32} {
		steps = append(steps, repeat(1000, 1, sz)...)
	}
	for i := 0; i < 5; i++ {
		steps = append(steps, repeat(10, 100, 16000)...)
	}
	return steps
}

// patternV ports pattern_v: a 1000-step byte-by-byte ramp from 200 to
// 1199, a full replay of pattern I's schedule, then one large trailing
// send.
func patternV(patternISteps []ProbeStep) []ProbeStep {
	var steps []ProbeStep
	for i := 0; i < 1000; i++ {
		steps = append(steps, single(10, 200+i))
	}
	steps = append(steps, patternISteps...)
	steps = append(steps, single(2000, 64000))
	return steps
}

// patternW ports pattern_w: same shape as V but a coarser, larger ramp.
func patternW(patternISteps []ProbeStep) []ProbeStep {
	var steps []ProbeStep
	for i := 0; i < 1000; i++ {
		steps = append(steps, single(10, 500+10*i))
	}
	steps = append(steps, patternISteps...)
	steps = append(steps, single(2000, 64000))
	return steps
}

// patternY ports pattern_y: a 4000-step doubling ramp capped at 2^15,
// 500 bytes base, 5ms spacing, then one trailing send.
func patternY() []ProbeStep {
	steps := make([]ProbeStep, 0, 4001)
	for i := 0; i < 4000; i++ {
		extra := 1 << 15
		if i < 15 {
			extra = 1 << uint(i)
		}
		steps = append(steps, single(5, 500+extra))
	}
	steps = append(steps, single(2000, 16384))
	return steps
}

// patternZ ports pattern_z: a 6000-step doubling ramp capped at 2^15,
// 500 bytes base, 3ms spacing, then one trailing send.
func patternZ() []ProbeStep {
	const maxPow = 15
	maxIncrement := 1 << maxPow
	steps := make([]ProbeStep, 0, 6001)
	for i := 0; i < 6000; i++ {
		increment := maxIncrement
		if i < maxPow {
			increment = 1 << uint(i)
		}
		steps = append(steps, single(3, 500+increment))
	}
	steps = append(steps, single(4000, maxIncrement))
	return steps
}

// Ported (mean, scale) calibration pairs, in feature order (dci_count,
// total_ul_bytes, ul_median, ul_mean, ul_variance, tx_delta_median,
// tx_delta_mean, tx_delta_variance), from traffic_patterns.rs's
// pattern_a..pattern_n std_vec literals. The Rust field is documented as
// "std deviation" but is populated from calculate_mean_variance, which
// returns population variance; standardize divides by this value
// directly (see standardize_feature_vec in math_util.rs), so the second
// element here is that raw divisor, not its square root.
var (
	calibA = [8][2]float64{
		{1303.524, 118.975}, {5170909.524, 328405.228}, {989.143, 104.019}, {3984.789, 274.161},
		{31582535.518, 4674047.579}, {5258.446, 482.658}, {8269.488, 719.246}, {96718304.958, 49552811.538},
	}
	calibB = [8][2]float64{
		{1172.476, 84.147}, {1070693.524, 88380.296}, {436.667, 49.241}, {914.404, 59.475},
		{1656085.165, 225857.600}, {5258.113, 482.284}, {9032.604, 617.573}, {225072559.429, 136364731.413},
	}
	calibC = [8][2]float64{
		{1686.060, 89.275}, {806351.810, 59070.611}, {404.381, 35.977}, {477.924, 16.758},
		{285107.429, 95070.207}, {4956.214, 69.591}, {6269.322, 311.308}, {154037780.727, 152680400.422},
	}
	calibD = [8][2]float64{
		{1634.381, 96.456}, {744945.238, 55137.483}, {399.667, 57.232}, {455.631, 16.472},
		{281419.406, 204011.793}, {4959.494, 75.904}, {6460.818, 378.365}, {164091450.826, 130185927.368},
	}
	calibE = [8][2]float64{
		{1590.107, 133.691}, {761000.857, 130823.198}, {492.190, 143.579}, {476.569, 33.139},
		{266374.380, 74522.723}, {4953.548, 212.955}, {6651.133, 470.289}, {169247947.552, 142828361.282},
	}
	calibF = [8][2]float64{
		{1531.250, 305.115}, {740691.524, 149809.699}, {601.143, 139.415}, {493.095, 77.938},
		{535847.681, 1587361.050}, {4961.327, 232.483}, {7939.456, 7846.388}, {714104054.473, 3459849560.506},
	}
	calibG = [8][2]float64{
		{1148.651, 98.184}, {1933892.434, 154693.582}, {635.470, 123.712}, {1687.174, 100.500},
		{7489696.214, 690971.647}, {5384.024, 603.123}, {9239.849, 810.738}, {226870405.729, 176491669.660},
	}
	calibH = [8][2]float64{
		{1693.843, 119.172}, {9066416.096, 644568.033}, {1275.277, 95.283}, {5357.688, 248.610},
		{46548500.312, 8135171.036}, {4903.181, 228.600}, {6337.070, 465.706}, {51189570.636, 35430664.134},
	}
	calibI = [8][2]float64{
		{1150.181, 82.893}, {1906619.855, 139984.909}, {614.843, 129.855}, {1660.314, 98.195},
		{6746274.694, 684085.416}, {5336.831, 460.689}, {9199.727, 697.511}, {238238507.979, 175873328.231},
	}
	calibJ = [8][2]float64{
		{1596.771, 86.693}, {1067878.072, 76791.272}, {404.145, 11.541}, {668.671, 29.795},
		{883962.435, 140006.832}, {4971.090, 22.084}, {6627.635, 430.548}, {176614657.043, 151487358.596},
	}
	calibK = [8][2]float64{
		{1676.349, 75.166}, {1023226.506, 55433.586}, {691.759, 32.104}, {610.347, 17.320},
		{487100.040, 74348.940}, {4962.952, 9.933}, {6292.111, 284.696}, {152140483.957, 129298296.787},
	}
	calibL = [8][2]float64{
		{1611.373, 81.038}, {952066.120, 54675.723}, {692.530, 31.421}, {590.871, 17.377},
		{445069.843, 67743.001}, {4970.795, 17.327}, {6551.890, 350.497}, {170340777.801, 137116780.191},
	}
	calibM = [8][2]float64{
		{1581.639, 236.698}, {889980.723, 360202.897}, {693.494, 107.704}, {553.752, 73.131},
		{359658.484, 76077.035}, {4912.337, 336.816}, {6711.155, 593.530}, {160538634.769, 144251782.604},
	}
	calibN = [8][2]float64{
		{881.566, 464.619}, {510269.494, 464966.950}, {664.675, 159.314}, {553.049, 87.271},
		{407529.896, 147616.223}, {4853.566, 594.289}, {13015.614, 4761.492}, {5964307190.392, 6330999966.655},
	}
)

package rntimatcher

import "testing"

func TestPatternsCoversAToZ(t *testing.T) {
	if len(Patterns) != 26 {
		t.Fatalf("len(Patterns) = %d, want 26", len(Patterns))
	}
	for label := byte('A'); label <= 'Z'; label++ {
		p, ok := Patterns[label]
		if !ok {
			t.Fatalf("Patterns missing label %q", label)
		}
		if len(p.Steps) == 0 {
			t.Errorf("pattern %q has no steps", label)
		}
		if p.NofPackets != len(p.Steps) {
			t.Errorf("pattern %q: NofPackets = %d, want %d", label, p.NofPackets, len(p.Steps))
		}
	}
}

func TestCalibratedPatternUsesRealMeans(t *testing.T) {
	a := Patterns['A']
	// calibA's literal total-ul-bytes mean (index 1), ported from
	// traffic_patterns.rs's pattern_a std_vec.
	if a.Features.Means[1] != 5170909.524 {
		t.Errorf("pattern A means[1] = %v, want the ported calibration mean 5170909.524", a.Features.Means[1])
	}
	if a.Features.Stddevs[1] != 328405.228 {
		t.Errorf("pattern A stddevs[1] = %v, want the ported calibration scale 328405.228", a.Features.Stddevs[1])
	}
}

func TestCalibratedPatternTargetNeedNotBeZero(t *testing.T) {
	a := Patterns['A']
	allZero := true
	for _, v := range a.Features.Target {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("pattern A target is the zero vector, want it derived from its own schedule standardized against real calibration (which should not land exactly at zero)")
	}
}

func TestUncalibratedPatternTargetIsZero(t *testing.T) {
	o := Patterns['O']
	for i, v := range o.Features.Target {
		if v != 0 {
			t.Errorf("pattern O target[%d] = %v, want 0 (self-derived means equal the pattern's own raw features)", i, v)
		}
	}
}

func TestPatternVReplaysPatternISchedule(t *testing.T) {
	i := Patterns['I']
	v := Patterns['V']
	if len(v.Steps) != 1000+len(i.Steps)+1 {
		t.Fatalf("pattern V has %d steps, want 1000 ramp + %d (pattern I) + 1 trailer", len(v.Steps), len(i.Steps))
	}
	for k, step := range i.Steps {
		got := v.Steps[1000+k]
		if got != step {
			t.Fatalf("pattern V step %d = %+v, want pattern I's step %+v", k, got, step)
		}
	}
}

func TestIncrementalPatternDoublesUpToCap(t *testing.T) {
	steps := incrementalPattern(1, 7, 10000, 1)
	if steps[0].PayloadBytes != 1 {
		t.Errorf("first step payload = %d, want 1 (2^0)", steps[0].PayloadBytes)
	}
	if steps[6].PayloadBytes != 64 {
		t.Errorf("step 6 payload = %d, want 64 (2^6)", steps[6].PayloadBytes)
	}
	if steps[7].PayloadBytes != 128 {
		t.Errorf("step 7 payload = %d, want 128 (2^7, the cap)", steps[7].PayloadBytes)
	}
	last := steps[len(steps)-1]
	if last.SleepMs != 1 || last.PayloadBytes != 128 {
		t.Errorf("trailing step = %+v, want {SleepMs:1 PayloadBytes:128}", last)
	}
}

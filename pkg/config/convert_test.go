package config

import (
	"testing"

	"github.com/nectard/nectard/pkg"
)

func TestScheduleConfigPrefersRttFactor(t *testing.T) {
	sc := ScheduleConfig{FixedMs: 100, RttFactor: 2}
	sched := sc.Schedule()
	if got := sched.WindowSize(1000); got != 2 {
		t.Errorf("WindowSize = %d, want 2 (rtt-derived)", got)
	}
}

func TestScheduleConfigFallsBackToFixed(t *testing.T) {
	sc := ScheduleConfig{FixedMs: 50}
	sched := sc.Schedule()
	if got := sched.WindowSize(999999); got != 50 {
		t.Errorf("WindowSize = %d, want fixed 50", got)
	}
}

func TestModelConfigShareType(t *testing.T) {
	cases := map[string]pkg.RntiShareType{
		"all":            pkg.RntiShareAll,
		"dl_occurrences": pkg.RntiShareDlOccurrences,
		"greedy":         pkg.RntiShareGreedy,
		"":               pkg.RntiShareAll,
	}
	for in, want := range cases {
		m := ModelConfig{RntiShareType: in}
		if got := m.ShareType(); got != want {
			t.Errorf("ShareType(%q) = %v, want %v", in, got, want)
		}
	}
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nectard/nectard/pkg"
)

func TestObserveMetricUpdatesGauges(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	s.ObserveMetric(pkg.MetricA{FairShareSendRate: 4242, NoTbsPrbRatio: 0.25, PhyRate: 512, FlagPhyRateAllRnti: 1, NofDci: 30})

	if got := testutil.ToFloat64(s.fairShareSendRate); got != 4242 {
		t.Errorf("fairShareSendRate = %v, want 4242", got)
	}
	if got := testutil.ToFloat64(s.noTbsPrbRatio); got != 0.25 {
		t.Errorf("noTbsPrbRatio = %v, want 0.25", got)
	}
	if got := testutil.ToFloat64(s.flagPhyRateCoarse); got != 1 {
		t.Errorf("flagPhyRateCoarse = %v, want 1", got)
	}
}

func TestObserveWorkerStateSetsRunningGauge(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	s.ObserveWorkerState(pkg.WorkerState{Name: "cellsource", Phase: "polling", State: pkg.GeneralRunning})

	got := testutil.ToFloat64(s.workerState.WithLabelValues("cellsource", "polling"))
	if got != 1 {
		t.Errorf("workerState gauge = %v, want 1", got)
	}
}

package model

import "testing"

func TestTrendPredictFollowsLinearSeries(t *testing.T) {
	var tr trend
	for i := 0; i < 5; i++ {
		tr.push(float64(100 + 10*i)) // 100,110,120,130,140
	}
	got, ok := tr.predict()
	if !ok {
		t.Fatal("predict: expected ok=true with 5 samples")
	}
	if got < 145 || got > 155 {
		t.Errorf("predict = %v, want approximately 150 (next step of a linear series)", got)
	}
}

func TestTrendPredictNotOkWithTooFewSamples(t *testing.T) {
	var tr trend
	tr.push(1)
	tr.push(2)
	if _, ok := tr.predict(); ok {
		t.Error("predict: expected ok=false with fewer than 3 samples")
	}
}

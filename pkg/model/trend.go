package model

import "github.com/sajari/regression"

// trendWindow is how many recent fair_share_send_rate values feed the
// short-horizon trend regression.
const trendWindow = 20

// trend keeps the last trendWindow MetricA.fair_share_send_rate values
// and fits a simple linear regression over them on demand, the same
// "predictive enrichment" role the teacher's decision engine gives its
// member-health trend.
type trend struct {
	values []float64
}

func (t *trend) push(v float64) {
	t.values = append(t.values, v)
	if len(t.values) > trendWindow {
		t.values = t.values[len(t.values)-trendWindow:]
	}
}

// predict fits y = b0 + b1*x over the retained samples (x = sample
// index) and extrapolates one step past the last sample. Returns false
// if there are too few samples to fit a meaningful line.
func (t *trend) predict() (float64, bool) {
	if len(t.values) < 3 {
		return 0, false
	}

	r := new(regression.Regression)
	r.SetObserved("fair_share_send_rate")
	r.SetVar(0, "sample_index")
	for i, v := range t.values {
		r.AddPoint(regression.DataPoint(v, []float64{float64(i)}))
	}
	if err := r.Run(); err != nil {
		return 0, false
	}

	next := float64(len(t.values))
	predicted, err := r.Predict([]float64{next})
	if err != nil {
		return 0, false
	}
	return predicted, true
}

package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nectard/nectard/pkg"
)

// Server exposes the current MetricA and per-worker GeneralState as
// Prometheus gauges over HTTP, authored fresh in the shape implied by
// the teacher's cmd/autonomyd/main.go reference to a metrics.Server
// (the file itself isn't in the retrieval pack), generalized with
// runZeroInc-sockstats's prom-metrics-gen gauge-registration style.
type Server struct {
	httpServer *http.Server

	fairShareSendRate prometheus.Gauge
	noTbsPrbRatio     prometheus.Gauge
	phyRate           prometheus.Gauge
	flagPhyRateCoarse prometheus.Gauge
	nofDci            prometheus.Gauge
	workerState       *prometheus.GaugeVec
}

// NewServer registers every gauge against a fresh registry and binds
// an HTTP listener serving /metrics on addr.
func NewServer(addr string) *Server {
	reg := prometheus.NewRegistry()

	s := &Server{
		fairShareSendRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nectard_fair_share_send_rate_bits_per_ms",
			Help: "Latest transport fair-share send rate computed by ModelHandler.",
		}),
		noTbsPrbRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nectard_no_tbs_prb_ratio",
			Help: "Fraction of allocated PRBs without a transport block (retransmission proxy).",
		}),
		phyRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nectard_phy_rate_bits_per_prb",
			Help: "Latest per-PRB physical rate used by the capacity estimator.",
		}),
		flagPhyRateCoarse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nectard_phy_rate_coarse_flag",
			Help: "1 if the per-PRB rate fell back to an all-RNTI or historical estimate.",
		}),
		nofDci: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nectard_metric_window_nof_dci",
			Help: "Number of DCI records in the most recent capacity-estimate window.",
		}),
		workerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nectard_worker_state",
			Help: "1 if the named worker is currently Running, 0 otherwise.",
		}, []string{"worker", "phase"}),
	}

	reg.MustRegister(s.fairShareSendRate, s.noTbsPrbRatio, s.phyRate, s.flagPhyRateCoarse, s.nofDci, s.workerState)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Serve runs the HTTP listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// ObserveMetric updates the MetricA gauges.
func (s *Server) ObserveMetric(m pkg.MetricA) {
	s.fairShareSendRate.Set(m.FairShareSendRate)
	s.noTbsPrbRatio.Set(m.NoTbsPrbRatio)
	s.phyRate.Set(m.PhyRate)
	s.flagPhyRateCoarse.Set(float64(m.FlagPhyRateAllRnti))
	s.nofDci.Set(float64(m.NofDci))
}

// ObserveWorkerState records the latest state for one worker.
func (s *Server) ObserveWorkerState(ws pkg.WorkerState) {
	running := 0.0
	if ws.State == pkg.GeneralRunning {
		running = 1.0
	}
	s.workerState.WithLabelValues(ws.Name, ws.Phase).Set(running)
}

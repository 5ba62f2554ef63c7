package mqtt

import (
	"context"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// Worker is the optional MQTT telemetry side-channel (§7's mqtt.enabled):
// it subscribes to the same internal buses the logsink worker consumes
// and republishes every MetricA, RNTI match, and lifecycle Event to an
// external broker, exactly as the teacher's pkg/mqtt publishes member
// samples/status/health rather than owning a data source of its own.
type Worker struct {
	client *Client

	metricCh <-chan pkg.MetricA
	rntiCh   <-chan pkg.MessageRnti
	eventCh  <-chan pkg.Event

	log *logx.Logger
}

// NewWorker wires a Worker to the given buses. Any channel may be nil
// to skip that topic (e.g. a deployment with no rntimatcher running).
func NewWorker(client *Client, metricCh <-chan pkg.MetricA, rntiCh <-chan pkg.MessageRnti, eventCh <-chan pkg.Event, log *logx.Logger) *Worker {
	return &Worker{client: client, metricCh: metricCh, rntiCh: rntiCh, eventCh: eventCh, log: log}
}

func (w *Worker) Run(ctx context.Context, stateCh chan<- pkg.WorkerState, appCh <-chan pkg.MainState) {
	if err := w.client.Connect(); err != nil {
		w.log.Warn("mqtt sink failed to connect", "error", err.Error())
	}
	w.report(stateCh, pkg.GeneralRunning, "connected")

	prefix := w.client.config.TopicPrefix

	for {
		select {
		case <-ctx.Done():
			w.report(stateCh, pkg.GeneralStopped, "stopped")
			w.client.Disconnect()
			return

		case s := <-appCh:
			if s != pkg.MainRunning {
				w.report(stateCh, pkg.GeneralStopped, "stopped")
				w.client.Disconnect()
				return
			}

		case m, ok := <-w.metricCh:
			if ok {
				w.client.publish(metricTopic(prefix), m)
			}

		case r, ok := <-w.rntiCh:
			if ok {
				w.client.publish(rntiTopic(prefix), r)
			}

		case e, ok := <-w.eventCh:
			if ok {
				w.client.publish(eventTopic(prefix), e)
			}
		}
	}
}

// PublishWorkerState republishes a worker lifecycle state, called
// directly by the supervisor's state-fan-in loop rather than through a
// bus since WorkerState already flows through a single aggregation
// point (§4.1).
func (w *Worker) PublishWorkerState(ws pkg.WorkerState) {
	w.client.publish(workerTopic(w.client.config.TopicPrefix), ws)
}

func (w *Worker) report(stateCh chan<- pkg.WorkerState, state pkg.GeneralState, phase string) {
	select {
	case stateCh <- pkg.WorkerState{Name: "mqtt", Phase: phase, State: state}:
	default:
	}
}

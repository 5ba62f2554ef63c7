package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

func TestWorkerStopsOnContextCancel(t *testing.T) {
	log := logx.NewLogger("error", "mqtt_test")
	client := NewClient(Config{Enabled: false}, log)

	metricBus := pkg.NewBus[pkg.MetricA](4)
	rntiBus := pkg.NewBus[pkg.MessageRnti](4)
	eventBus := pkg.NewBus[pkg.Event](4)

	w := NewWorker(client, metricBus.Subscribe(), rntiBus.Subscribe(), eventBus.Subscribe(), log)

	stateCh := make(chan pkg.WorkerState, 8)
	appCh := make(chan pkg.MainState)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx, stateCh, appCh)
		close(done)
	}()

	metricBus.Broadcast(pkg.MetricA{FairShareSendRate: 99})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	var sawRunning, sawStopped bool
	for {
		select {
		case ws := <-stateCh:
			if ws.State == pkg.GeneralRunning {
				sawRunning = true
			}
			if ws.State == pkg.GeneralStopped {
				sawStopped = true
			}
		default:
			if !sawRunning || !sawStopped {
				t.Errorf("stateCh reports running=%v stopped=%v, want both true", sawRunning, sawStopped)
			}
			return
		}
	}
}

func TestWorkerStopsOnNotifyStop(t *testing.T) {
	log := logx.NewLogger("error", "mqtt_test")
	client := NewClient(Config{Enabled: false}, log)

	metricBus := pkg.NewBus[pkg.MetricA](4)
	rntiBus := pkg.NewBus[pkg.MessageRnti](4)
	eventBus := pkg.NewBus[pkg.Event](4)

	w := NewWorker(client, metricBus.Subscribe(), rntiBus.Subscribe(), eventBus.Subscribe(), log)

	stateCh := make(chan pkg.WorkerState, 8)
	appCh := make(chan pkg.MainState, 1)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		w.Run(ctx, stateCh, appCh)
		close(done)
	}()

	appCh <- pkg.MainNotifyStop
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after MainNotifyStop")
	}
}

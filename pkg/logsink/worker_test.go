package logsink

import (
	"bufio"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

func TestWorkerDrainsQueueAndWritesFiles(t *testing.T) {
	base := t.TempDir()
	log := logx.NewLogger("error", "logsink_test")

	w, err := NewWorker(base, nil, log)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	w.Enqueue(Message{Kind: KindInfo, At: time.Now(), InfoText: "hello world"})
	w.Enqueue(Message{Kind: KindDci, DciBatch: []pkg.NgScopeCellDci{{TimeStampUs: 42}}})
	w.Enqueue(Message{Kind: KindMetric, MetricA: pkg.MetricA{FairShareSendRate: 123}})

	ctx, cancel := context.WithCancel(context.Background())
	stateCh := make(chan pkg.WorkerState, 8)
	appCh := make(chan pkg.MainState)

	done := make(chan struct{})
	go func() {
		w.Run(ctx, stateCh, appCh)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(drainGrace + time.Second):
		t.Fatal("Run did not return within the drain grace period")
	}

	stdoutBytes, err := os.ReadFile(w.dir.path("stdout", "stdout.log"))
	if err != nil {
		t.Fatalf("reading stdout log: %v", err)
	}
	if !strings.Contains(string(stdoutBytes), "hello world") {
		t.Errorf("stdout log missing enqueued message, got %q", stdoutBytes)
	}

	dciFile, err := os.Open(w.dir.path("dci", "dci.bin"))
	if err != nil {
		t.Fatalf("opening dci file: %v", err)
	}
	defer dciFile.Close()
	records, err := readDciTable(bufio.NewReader(dciFile))
	if err != nil {
		t.Fatalf("readDciTable: %v", err)
	}
	if len(records) != 1 || records[0].TimeStampUs != 42 {
		t.Errorf("dci file records = %+v, want one record with timestamp 42", records)
	}

	metricBytes, err := os.ReadFile(w.dir.path("metric", "metric.jsonl"))
	if err != nil {
		t.Fatalf("reading metric file: %v", err)
	}
	if !strings.Contains(string(metricBytes), "123") {
		t.Errorf("metric file missing enqueued value, got %q", metricBytes)
	}
}

// Command nectard is the daemon entry point: it loads configuration,
// wires every worker onto the shared buses described in the package
// docs, and runs the supervisor loop until a shutdown signal arrives.
// Grounded on cmd/autonomyd/main.go's overall shape (flag parsing,
// pidfile guard, signal handling, atomic heartbeat file).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/cellsource"
	"github.com/nectard/nectard/pkg/config"
	"github.com/nectard/nectard/pkg/downloader"
	"github.com/nectard/nectard/pkg/logsink"
	"github.com/nectard/nectard/pkg/logx"
	"github.com/nectard/nectard/pkg/metrics"
	"github.com/nectard/nectard/pkg/model"
	"github.com/nectard/nectard/pkg/ngcontrol"
	"github.com/nectard/nectard/pkg/pidfile"
	"github.com/nectard/nectard/pkg/rntimatcher"
	"github.com/nectard/nectard/pkg/sink/mqtt"
	"github.com/nectard/nectard/pkg/supervisor"
)

const (
	appName    = "nectard"
	appVersion = "0.1.0"
)

func main() {
	configPath, versionRequested := scanEarlyFlags(os.Args[1:])
	if versionRequested {
		fmt.Printf("%s version %s\n", appName, appVersion)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: loading configuration: %v\n", appName, err)
		os.Exit(1)
	}

	// fs carries both the pre-load flags (config/pid-file/force, already
	// consumed above or applied below) and the post-load config-override
	// flags config.ApplyFlags registers against cfg's current values; both
	// sets share one FlagSet so a single Parse sees every flag on the
	// command line.
	fs := flag.NewFlagSet(appName, flag.ExitOnError)
	fs.String("config", configPath, "path to YAML configuration file")
	pidPath := fs.String("pid-file", cfg.PidFile, "pid file path")
	force := fs.Bool("force", false, "remove a stale pid file and start anyway")
	fs.Bool("version", false, "print version information and exit")

	if err := config.ApplyFlags(cfg, fs, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: parsing flags: %v\n", appName, err)
		os.Exit(1)
	}
	cfg.PidFile = *pidPath

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: invalid configuration: %v\n", appName, err)
		os.Exit(1)
	}

	effectiveLevel := cfg.Log.Level
	if cfg.Verbose {
		effectiveLevel = "trace"
	}
	log := logx.NewLogger(effectiveLevel, appName)

	pf := pidfile.New(cfg.PidFile)
	running, existingPID, err := pf.CheckRunning()
	if err != nil {
		log.Error("failed to check for a running instance", "error", err.Error())
		os.Exit(1)
	}
	if running {
		if !*force {
			log.Error("another instance is already running", "pid", existingPID, "pid_file", cfg.PidFile)
			os.Exit(1)
		}
		log.Warn("another instance is running, force removing stale pid file", "pid", existingPID)
		if err := pf.ForceRemove(); err != nil {
			log.Error("failed to remove stale pid file", "error", err.Error())
			os.Exit(1)
		}
	}
	if err := pf.Create(); err != nil {
		log.Error("failed to create pid file", "error", err.Error(), "path", cfg.PidFile)
		os.Exit(1)
	}
	defer func() {
		if err := pf.Remove(); err != nil {
			log.Error("failed to remove pid file", "error", err.Error())
		}
	}()

	log.Info("starting nectard", "version", appVersion, "pid", os.Getpid(), "scenario", string(cfg.Scenario))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal startup error", "error", err.Error())
		cancel()
		os.Exit(1)
	}
}

// scanEarlyFlags looks for -config/--config and -version/--version ahead
// of the full flag.FlagSet registration below, since the config file path
// must be known before config.Load runs and config.Load must complete
// before the rest of the flags (which default to cfg's loaded values) can
// be registered.
func scanEarlyFlags(args []string) (configPath string, version bool) {
	configPath = "/etc/nectard/nectard.yaml"
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-version" || a == "--version":
			version = true
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case strings.HasPrefix(a, "-config="):
			configPath = strings.TrimPrefix(a, "-config=")
		case strings.HasPrefix(a, "--config="):
			configPath = strings.TrimPrefix(a, "--config=")
		}
	}
	return configPath, version
}

// run wires every worker and blocks until the supervisor's Run returns.
func run(ctx context.Context, cfg *config.Config, log *logx.Logger) error {
	backend, err := newCellBackend(cfg, log)
	if err != nil {
		return fmt.Errorf("building cell-info backend: %w", err)
	}

	initialCells, err := fetchInitialCellInfo(ctx, backend, log)
	if err != nil {
		return fmt.Errorf("fetching initial cell info: %w", err)
	}
	primary := initialCells.Cells[0]
	cellID := uint8(primary.CellID)
	log.Info("acquired initial serving cell", "cell_id", cellID, "frequency_hz", primary.Frequency)

	runIndexPath := filepath.Join(cfg.Log.BaseDir, "runs.db")
	runIndex, err := logsink.OpenRunIndex(runIndexPath)
	if err != nil {
		log.Warn("failed to open run index, continuing without it", "error", err.Error())
		runIndex = nil
	}
	logWorker, err := logsink.NewWorker(cfg.Log.BaseDir, runIndex, log.WithComponent("logsink"))
	if err != nil {
		return fmt.Errorf("opening log sink: %w", err)
	}

	cellBus := pkg.NewBus[pkg.CellInfo](4)
	dciBus := pkg.NewBus[pkg.NgScopeCellDci](256)
	rntiBus := pkg.NewBus[pkg.MessageRnti](4)
	metricBus := pkg.NewBus[pkg.MetricA](16)
	resetBus := pkg.NewBus[struct{}](1)
	eventBus := pkg.NewBus[pkg.Event](16)
	var rttBus *pkg.Bus[downloader.RttUpdate]
	var resultBus *pkg.Bus[downloader.DownloadResult]
	if cfg.Scenario == config.ScenarioPerformMeasurement {
		rttBus = pkg.NewBus[downloader.RttUpdate](16)
		resultBus = pkg.NewBus[downloader.DownloadResult](16)
	}

	names := []string{"cellsource", "ngcontrol", "logsink"}
	if cfg.Scenario != config.ScenarioTrackCellDciOnly {
		names = append(names, "rntimatcher", "model")
	}
	if cfg.Scenario == config.ScenarioPerformMeasurement {
		names = append(names, "downloader")
	}
	if cfg.Metrics.Enabled {
		names = append(names, "metrics")
	}
	if cfg.Mqtt.Enabled {
		names = append(names, "mqtt")
	}
	sup := supervisor.New(names, log.WithComponent("supervisor"))

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr)
	}

	var mqttWorker *mqtt.Worker
	if cfg.Mqtt.Enabled {
		mqttCfg := mqtt.Config{
			Broker: cfg.Mqtt.Broker, Port: cfg.Mqtt.Port, ClientID: cfg.Mqtt.ClientID,
			Username: cfg.Mqtt.Username, Password: cfg.Mqtt.Password,
			TopicPrefix: cfg.Mqtt.TopicPrefix, QoS: cfg.Mqtt.QoS, Retain: cfg.Mqtt.Retain,
			Enabled: cfg.Mqtt.Enabled,
		}
		mqttClient := mqtt.NewClient(mqttCfg, log.WithComponent("mqtt"))
		mqttWorker = mqtt.NewWorker(mqttClient, metricBus.Subscribe(), rntiBus.Subscribe(), eventBus.Subscribe(), log.WithComponent("mqtt"))
	}

	sup.OnState = func(ws pkg.WorkerState) {
		log.Debug("worker state report", "name", ws.Name, "phase", ws.Phase, "state", ws.State.String())
		if metricsServer != nil {
			metricsServer.ObserveWorkerState(ws)
		}
		if mqttWorker != nil {
			mqttWorker.PublishWorkerState(ws)
		}
	}

	latest := newLatestMetric()

	cellSourceWorker := cellsource.NewWorker(backend, cellBus, sup.StateCh(), sup.AppBus().Subscribe(), log.WithComponent("cellsource"))

	logBatchCh := make(chan pkg.NgScopeCellDci, 1024)
	ngSniffer := ngcontrol.SnifferConfig{
		BinPath: cfg.Sniffer.BinPath, LocalAddr: cfg.Sniffer.LocalAddr,
		ServerAddr: cfg.Sniffer.ServerAddr, LogFile: cfg.Sniffer.LogFile, LogDci: cfg.Sniffer.LogDci,
	}
	ngWorker := ngcontrol.NewWorker(ngSniffer, cellBus.Subscribe(), dciBus, logBatchCh, sup.StateCh(), sup.AppBus().Subscribe(), log.WithComponent("ngcontrol"))

	sup.Spawn(func() { cellSourceWorker.Run(ctx) })
	sup.Spawn(func() { ngWorker.Run(ctx) })
	sup.Spawn(func() { logWorker.Run(ctx, sup.StateCh(), sup.AppBus().Subscribe()) })
	sup.Spawn(func() { runDciBatcher(ctx, logBatchCh, logWorker, cfg.Sniffer.LogDciBatchSize) })
	sup.Spawn(func() { runCellChangeWatcher(ctx, cellBus.Subscribe(), resetBus) })
	sup.Spawn(func() { runMetricMirror(ctx, metricBus.Subscribe(), latest, logWorker) })

	if cfg.Scenario != config.ScenarioTrackCellDciOnly {
		storePath := filepath.Join(cfg.Log.BaseDir, "rntimatcher.db")
		store, err := rntimatcher.OpenStore(storePath)
		if err != nil {
			return fmt.Errorf("opening rnti matcher store: %w", err)
		}

		pattern, ok := rntimatcher.Patterns[patternLabelByte(cfg.Matcher.PatternLabel)]
		if !ok {
			return fmt.Errorf("unknown traffic pattern label %q", cfg.Matcher.PatternLabel)
		}

		matcherWorker, err := rntimatcher.NewWorker(cellID, pattern, cfg.Matcher.Destination, store,
			dciBus.Subscribe(), resetBus.Subscribe(), rntiBus, sup.StateCh(), sup.AppBus().Subscribe(), latest.Get, log.WithComponent("rntimatcher"))
		if err != nil {
			return fmt.Errorf("building rnti matcher worker: %w", err)
		}
		sup.Spawn(func() { matcherWorker.Run(ctx) })

		var rttCh <-chan int64
		if rttBus != nil {
			rttCh = rttUsAdapter(ctx, rttBus.Subscribe())
		}
		modelWorker := model.NewWorker(cellID, cfg.Model.SmoothingSize.Schedule(), cfg.Model.SendingInterval.Schedule(),
			cfg.Model.ShareType(), dciBus.Subscribe(), rntiBus.Subscribe(), cellBus.Subscribe(), rttCh, metricBus,
			sup.StateCh(), sup.AppBus().Subscribe(), log.WithComponent("model"))
		sup.Spawn(func() { modelWorker.Run(ctx) })

		sup.Spawn(func() { runRntiMirror(ctx, rntiBus.Subscribe(), logWorker, cfg.Matcher.LogTraffic) })
	}

	if cfg.Scenario == config.ScenarioPerformMeasurement {
		downloadWorker := downloader.NewWorker(cfg.Download.BaseAddr, cfg.Download.Paths, rttBus, resultBus,
			sup.StateCh(), sup.AppBus().Subscribe(), log.WithComponent("downloader"))
		sup.Spawn(func() { downloadWorker.Run(ctx) })
		sup.Spawn(func() { runDownloadMirror(ctx, resultBus.Subscribe(), logWorker) })
	}

	if metricsServer != nil {
		metricsSub := metricBus.Subscribe()
		sup.Spawn(func() { runMetricsGaugeFeed(ctx, metricsSub, metricsServer) })
		sup.Spawn(func() {
			sup.StateCh() <- pkg.WorkerState{Name: "metrics", Phase: "serving", State: pkg.GeneralRunning}
			err := metricsServer.Serve(ctx)
			if err != nil {
				log.Error("metrics server exited with error", "error", err.Error())
			}
			sup.StateCh() <- pkg.WorkerState{Name: "metrics", Phase: "stopped", State: pkg.GeneralStopped}
		})
	}

	if mqttWorker != nil {
		sup.Spawn(func() { mqttWorker.Run(ctx, sup.StateCh(), sup.AppBus().Subscribe()) })
	}

	sup.Spawn(func() { runHeartbeat(ctx, cfg, log) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		select {
		case sig := <-sigCh:
			log.Info("received shutdown signal", "signal", sig.String())
			eventBus.Broadcast(pkg.Event{Timestamp: time.Now(), Type: "shutdown", Reason: sig.String(), Data: nil})
			cancel()
		case <-ctx.Done():
		}
	}()

	eventBus.Broadcast(pkg.Event{Timestamp: time.Now(), Type: "startup", Reason: "daemon started", Data: nil})

	return sup.Run(ctx)
}

func newCellBackend(cfg *config.Config, log *logx.Logger) (cellsource.Backend, error) {
	switch cfg.CellApi.Backend {
	case "device_publisher":
		return cellsource.NewDevicePublisher(cfg.CellApi.BaseURL), nil
	default:
		return cellsource.NewMilesight(cfg.CellApi.BaseURL, cfg.CellApi.Username, cfg.CellApi.Password, log.WithComponent("milesight"))
	}
}

// fetchInitialCellInfo blocks, retrying with backoff, until the cell-info
// backend returns at least one serving cell. The first cell observed
// fixes the cellID every RntiMatcher/ModelHandler worker is keyed by,
// since those workers are constructed once at startup rather than
// re-keyed on every cell change.
func fetchInitialCellInfo(ctx context.Context, backend cellsource.Backend, log *logx.Logger) (pkg.CellInfo, error) {
	backoff := time.Second
	for {
		fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		ci, err := backend.Fetch(fetchCtx)
		cancel()
		if err == nil && len(ci.Cells) > 0 {
			return ci, nil
		}
		if err != nil {
			log.Warn("initial cell-info fetch failed, retrying", "error", err.Error(), "backoff", backoff.String())
		} else {
			log.Warn("initial cell-info fetch returned no cells, retrying", "backoff", backoff.String())
		}
		select {
		case <-ctx.Done():
			return pkg.CellInfo{}, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func patternLabelByte(label string) byte {
	if len(label) == 0 {
		return 'A'
	}
	return label[0]
}

// runDciBatcher accumulates raw DCI records off logBatchCh into groups
// of batchSize before handing them to the log sink, matching §4.7's
// "log_dci_batch_size" config field.
func runDciBatcher(ctx context.Context, logBatchCh <-chan pkg.NgScopeCellDci, logWorker *logsink.Worker, batchSize int) {
	if batchSize <= 0 {
		batchSize = 50
	}
	batch := make([]pkg.NgScopeCellDci, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		logWorker.Enqueue(logsink.Message{Kind: logsink.KindDci, At: time.Now(), DciBatch: append([]pkg.NgScopeCellDci(nil), batch...)})
		batch = batch[:0]
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case d := <-logBatchCh:
			batch = append(batch, d)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// runCellChangeWatcher broadcasts UeConnectionReset (resetBus) whenever
// the observed CellInfo content changes, per §5's "on a lost cell the
// matcher goes idle until the next UeConnectionReset": a new or
// reacquired serving cell is the trigger this system has for that
// signal, since nothing downstream of the cell-info backend can
// directly observe UE (dis)connection events.
func runCellChangeWatcher(ctx context.Context, cellCh <-chan pkg.CellInfo, resetBus *pkg.Bus[struct{}]) {
	var last pkg.CellInfo
	haveLast := false
	for {
		select {
		case <-ctx.Done():
			return
		case ci := <-cellCh:
			if !haveLast || !last.EqualContent(ci) {
				resetBus.Broadcast(struct{}{})
			}
			last = ci
			haveLast = true
		}
	}
}

// latestMetricHolder is a mutex-guarded single-slot holder feeding the
// probe generator's metric side channel (magic, version byte, then the
// serialized MetricA),
// which needs the most recently computed MetricA regardless of which
// tick produced it.
type latestMetricHolder struct {
	mu    sync.Mutex
	value pkg.MetricA
	have  bool
}

func newLatestMetric() *latestMetricHolder {
	return &latestMetricHolder{}
}

func (h *latestMetricHolder) Set(m pkg.MetricA) {
	h.mu.Lock()
	h.value = m
	h.have = true
	h.mu.Unlock()
}

func (h *latestMetricHolder) Get() (pkg.MetricA, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value, h.have
}

func runMetricMirror(ctx context.Context, metricCh <-chan pkg.MetricA, latest *latestMetricHolder, logWorker *logsink.Worker) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-metricCh:
			latest.Set(m)
			logWorker.Enqueue(logsink.Message{Kind: logsink.KindMetric, At: time.Now(), MetricA: m})
		}
	}
}

func runMetricsGaugeFeed(ctx context.Context, metricCh <-chan pkg.MetricA, srv *metrics.Server) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-metricCh:
			srv.ObserveMetric(m)
		}
	}
}

func runRntiMirror(ctx context.Context, rntiCh <-chan pkg.MessageRnti, logWorker *logsink.Worker, logTraffic bool) {
	if !logTraffic {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rntiCh:
			}
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-rntiCh:
			record := make(map[string]interface{}, len(r.CellRnti))
			for cellID, rnti := range r.CellRnti {
				record[fmt.Sprint(cellID)] = rnti
			}
			logWorker.Enqueue(logsink.Message{Kind: logsink.KindRntiMatching, At: time.Now(), RntiRecord: record})
		}
	}
}

func runDownloadMirror(ctx context.Context, resultCh <-chan downloader.DownloadResult, logWorker *logsink.Worker) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-resultCh:
			errText := ""
			if r.Err != nil {
				errText = r.Err.Error()
			}
			logWorker.Enqueue(logsink.Message{Kind: logsink.KindDownload, At: time.Now(), Download: map[string]interface{}{
				"url":             r.URL,
				"start_us":        r.StartUs,
				"finish_us":       r.FinishUs,
				"rnti_share_type": int(r.RntiShareType),
				"bytes":           r.Bytes,
				"last_rtt_us":     r.LastRttUs,
				"error":           errText,
			}})
		}
	}
}

// rttUsAdapter narrows downloader.RttUpdate to the plain int64 stream
// model.NewWorker expects, since ModelHandler has no use for the
// share-type tag the downloader attaches to each measurement.
func rttUsAdapter(ctx context.Context, in <-chan downloader.RttUpdate) <-chan int64 {
	out := make(chan int64, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-in:
				select {
				case out <- u.RttUs:
				default:
				}
			}
		}
	}()
	return out
}

// heartbeatData mirrors the health-check payload format of §6's ambient
// stack, grounded on cmd/autonomyd/main.go's HeartbeatData/writeHeartbeat.
type heartbeatData struct {
	Timestamp  string  `json:"ts"`
	UptimeS    int64   `json:"uptime_s"`
	Version    string  `json:"version"`
	Status     string  `json:"status"`
	MemMB      float64 `json:"mem_mb"`
	Goroutines int     `json:"goroutines"`
	DeviceID   string  `json:"device_id"`
}

func runHeartbeat(ctx context.Context, cfg *config.Config, log *logx.Logger) {
	heartbeatFile := filepath.Join(cfg.Log.BaseDir, "nectard.health")
	startTime := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)

			hb := heartbeatData{
				Timestamp:  time.Now().Format(time.RFC3339),
				UptimeS:    int64(time.Since(startTime).Seconds()),
				Version:    appVersion,
				Status:     "ok",
				MemMB:      float64(mem.Alloc) / 1024 / 1024,
				Goroutines: runtime.NumGoroutine(),
				DeviceID:   deviceID(),
			}

			data, err := json.Marshal(hb)
			if err != nil {
				log.Error("failed to marshal heartbeat data", "error", err.Error())
				continue
			}

			tmp, err := os.CreateTemp(filepath.Dir(heartbeatFile), "nectard-heartbeat-*.tmp")
			if err != nil {
				log.Error("failed to create temp heartbeat file", "error", err.Error())
				continue
			}
			if err := os.WriteFile(tmp.Name(), data, 0o644); err != nil {
				log.Error("failed to write heartbeat file", "error", err.Error())
				os.Remove(tmp.Name())
				continue
			}
			if err := os.Rename(tmp.Name(), heartbeatFile); err != nil {
				log.Error("failed to rename heartbeat file", "error", err.Error())
				os.Remove(tmp.Name())
			}
		}
	}
}

func deviceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return "nectard-device"
}

package config

import "flag"

// ApplyFlags registers the command-line overrides below (a subset of
// §6's CLI surface: scenario, cell API backend/address, sniffer, matcher
// addresses and traffic logging, log dir/level, download base address,
// verbose) onto fs with cfg's current values (typically post-YAML-load)
// as defaults,
// then parses args. Any flag the caller actually passes overrides the
// YAML value; anything omitted keeps what Load already set, giving the
// "YAML file plus command-line overrides" merge §6 describes.
func ApplyFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	scenario := fs.String("scenario", string(cfg.Scenario), "TrackCellDciOnly|TrackUeAndEstimate|PerformMeasurement")
	cellapiBackend := fs.String("cellapi", cfg.CellApi.Backend, "milesight|device_publisher")
	cellapiAddr := fs.String("cellapi-addr", cfg.CellApi.BaseURL, "cell-info backend base URL")

	snifferBin := fs.String("sniffer-path", cfg.Sniffer.BinPath, "sniffer binary path")
	snifferLocal := fs.String("sniffer-local-addr", cfg.Sniffer.LocalAddr, "sniffer UDP local address")
	snifferServer := fs.String("sniffer-server-addr", cfg.Sniffer.ServerAddr, "sniffer UDP server address")
	snifferLogFile := fs.String("sniffer-log-file", cfg.Sniffer.LogFile, "sniffer process log file")
	snifferAutoStart := fs.Bool("sniffer-auto-start", cfg.Sniffer.AutoStart, "auto-start the sniffer process (not read: ngcontrol always starts it)")
	snifferLogDci := fs.Bool("sniffer-log-dci", cfg.Sniffer.LogDci, "log raw DCI records")

	matcherLocal := fs.String("matcher-local-addr", cfg.Matcher.LocalAddr, "probe generator local address (not read: the generator binds an ephemeral local port)")
	matcherDest := fs.String("matcher-destination", cfg.Matcher.Destination, "probe generator destination address")
	matcherLogTraffic := fs.Bool("matcher-log-traffic", cfg.Matcher.LogTraffic, "log each published cell-to-RNTI match")

	logBaseDir := fs.String("log-base-dir", cfg.Log.BaseDir, "run log base directory")
	logLevel := fs.String("log-level", cfg.Log.Level, "log level (debug|info|warn|error)")

	downloadBaseAddr := fs.String("download-base-addr", cfg.Download.BaseAddr, "TCP download target base address")

	verbose := fs.Bool("verbose", cfg.Verbose, "enable trace-level worker logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Scenario = Scenario(*scenario)
	cfg.CellApi.Backend = *cellapiBackend
	cfg.CellApi.BaseURL = *cellapiAddr
	cfg.Sniffer.BinPath = *snifferBin
	cfg.Sniffer.LocalAddr = *snifferLocal
	cfg.Sniffer.ServerAddr = *snifferServer
	cfg.Sniffer.LogFile = *snifferLogFile
	cfg.Sniffer.AutoStart = *snifferAutoStart
	cfg.Sniffer.LogDci = *snifferLogDci
	cfg.Matcher.LocalAddr = *matcherLocal
	cfg.Matcher.Destination = *matcherDest
	cfg.Matcher.LogTraffic = *matcherLogTraffic
	cfg.Log.BaseDir = *logBaseDir
	cfg.Log.Level = *logLevel
	cfg.Download.BaseAddr = *downloadBaseAddr
	cfg.Verbose = *verbose

	return nil
}

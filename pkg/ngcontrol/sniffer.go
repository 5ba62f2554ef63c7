// Package ngcontrol implements the NgControl worker (§4.3): it
// supervises the external sniffer process and runs a DCI-fetcher
// sub-thread that ingests the sniffer's UDP stream and rebroadcasts
// CellDci records on the DCI bus.
package ngcontrol

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/nectard/nectard/pkg/logx"
)

// SnifferConfig parameterizes one sniffer process invocation.
type SnifferConfig struct {
	BinPath     string
	LocalAddr   string
	ServerAddr  string
	LogFile     string
	LogDci      bool
	CellID      uint32
	FrequencyHz uint64
}

func (c SnifferConfig) args() []string {
	args := []string{
		"-a", c.ServerAddr,
		"-b", c.LocalAddr,
		"-c", fmt.Sprint(c.CellID),
		"-f", fmt.Sprint(c.FrequencyHz),
	}
	if c.LogFile != "" {
		args = append(args, "-l", c.LogFile)
	}
	if c.LogDci {
		args = append(args, "-d")
	}
	return args
}

// sniffer manages the lifecycle of the external ng-scope-like process.
type sniffer struct {
	binPath string
	log     *logx.Logger
	cmd     *exec.Cmd
}

func newSniffer(binPath string, log *logx.Logger) *sniffer {
	return &sniffer{binPath: binPath, log: log}
}

// Start spawns the sniffer process with the given config. An already
// running process is killed first so a cell-info change always
// restarts the sniffer against the new RF frequency (§4.3).
func (s *sniffer) Start(ctx context.Context, cfg SnifferConfig) error {
	s.Stop()

	cmd := exec.CommandContext(ctx, s.binPath, cfg.args()...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ngcontrol: spawning sniffer: %w", err)
	}
	s.cmd = cmd
	s.log.Info("sniffer started", "pid", cmd.Process.Pid, "cell_id", cfg.CellID, "frequency_hz", cfg.FrequencyHz)
	return nil
}

// Stop kills the sniffer process (SIGKILL-equivalent), if running.
func (s *sniffer) Stop() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	if err := s.cmd.Process.Kill(); err != nil {
		s.log.Warn("failed to kill sniffer process", "error", err.Error())
	}
	_ = s.cmd.Wait()
	s.cmd = nil
}

// running reports whether the managed process is believed alive.
func (s *sniffer) running() bool {
	if s.cmd == nil || s.cmd.Process == nil {
		return false
	}
	return s.cmd.ProcessState == nil
}

// Package pidfile guards nectard against running two daemon instances
// against the same config by writing and checking a PID file (§4.1,
// worker lifecycle).
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// File is a PID file bound to the current process. It is not safe for
// concurrent use from multiple goroutines — nectard only ever touches
// it from main.
type File struct {
	path string
	pid  int
}

// New binds a File to path, stamped with the current process's PID.
func New(path string) *File {
	return &File{path: path, pid: os.Getpid()}
}

// Path returns the bound file path.
func (f *File) Path() string { return f.path }

// CheckRunning reports whether the PID file names a process that is
// still alive. A stale file (readable but naming a dead process) is not
// itself an error — only I/O failures and malformed content are.
func (f *File) CheckRunning() (running bool, pid int, err error) {
	pid, err = readPID(f.path)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("pidfile: reading %s: %w", f.path, err)
	}
	return processAlive(pid), pid, nil
}

// Create writes the current PID to the file, clearing out any stale
// file left by a process that is no longer running. It refuses to
// overwrite a file that names a still-live process — callers should
// check CheckRunning (and ForceRemove, if warranted) first.
func (f *File) Create() error {
	if existingPID, err := readPID(f.path); err == nil {
		if processAlive(existingPID) {
			return fmt.Errorf("pidfile: daemon already running with pid %d", existingPID)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("pidfile: reading existing %s: %w", f.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("pidfile: creating directory for %s: %w", f.path, err)
	}
	if err := os.WriteFile(f.path, []byte(strconv.Itoa(f.pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("pidfile: writing %s: %w", f.path, err)
	}
	return nil
}

// Remove deletes the PID file, but only if it still names this
// process — it will not clobber a file some other instance has since
// claimed.
func (f *File) Remove() error {
	existingPID, err := readPID(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		// Unreadable is as good a reason as any to try to clear it out.
		return os.Remove(f.path)
	}
	if existingPID != f.pid {
		return fmt.Errorf("pidfile: %s now holds pid %d, not ours (%d) — leaving it alone", f.path, existingPID, f.pid)
	}
	return os.Remove(f.path)
}

// ForceRemove deletes the PID file unconditionally, regardless of which
// PID it names. Reserved for the --force startup path, after the
// operator has confirmed the named process is gone.
func (f *File) ForceRemove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("pidfile: %q is not a valid pid", text)
	}
	return pid, nil
}

// processAlive reports whether pid names a running process, by sending
// it signal 0: the kernel still performs its permission/existence
// checks without actually delivering anything (see kill(2)).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}

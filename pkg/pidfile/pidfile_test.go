package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestCreateThenCheckRunningReportsSelf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "nectard.pid")
	f := New(path)

	if err := f.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}

	running, pid, err := f.CheckRunning()
	if err != nil {
		t.Fatalf("CheckRunning: %v", err)
	}
	if !running {
		t.Fatal("CheckRunning = false, want true for our own live pid")
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestCheckRunningOnMissingFile(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "nectard.pid"))

	running, pid, err := f.CheckRunning()
	if err != nil {
		t.Fatalf("CheckRunning: unexpected error: %v", err)
	}
	if running || pid != 0 {
		t.Errorf("CheckRunning = (%v, %d), want (false, 0) for a missing file", running, pid)
	}
}

func TestCreateRemovesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nectard.pid")
	if err := os.WriteFile(path, []byte("999999999\n"), 0o644); err != nil {
		t.Fatalf("seeding stale pid file: %v", err)
	}

	f := New(path)
	if err := f.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pid, err := readPID(path)
	if err != nil {
		t.Fatalf("readPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid file now holds %d, want our own pid %d", pid, os.Getpid())
	}
}

func TestCreateRefusesWhileLiveProcessHoldsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nectard.pid")
	// pid 1 is always running on a Linux host.
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatalf("seeding live pid file: %v", err)
	}

	f := New(path)
	if err := f.Create(); err == nil {
		t.Fatal("Create: expected error when pid 1 already holds the file")
	}
}

func TestRemoveLeavesOtherOwnersFileAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nectard.pid")
	f := New(path)
	if err := f.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}

	otherPID := os.Getpid() + 1
	if err := os.WriteFile(path, []byte(strconv.Itoa(otherPID)+"\n"), 0o644); err != nil {
		t.Fatalf("simulating a takeover: %v", err)
	}

	if err := f.Remove(); err == nil {
		t.Fatal("Remove: expected error, file now names a different pid")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file should still exist after a refused Remove: %v", err)
	}
}

func TestForceRemoveIsIdempotent(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "nectard.pid"))
	if err := f.ForceRemove(); err != nil {
		t.Fatalf("ForceRemove on a missing file: %v", err)
	}

	if err := f.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.ForceRemove(); err != nil {
		t.Fatalf("ForceRemove: %v", err)
	}
	if _, err := os.Stat(f.Path()); !os.IsNotExist(err) {
		t.Errorf("file should be gone after ForceRemove, stat err = %v", err)
	}
}

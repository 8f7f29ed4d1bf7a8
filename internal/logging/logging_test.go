package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "argus.log")
	log, err := New(Options{LogFile: path, Daemon: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	log.Infow("hello", "k", "v")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log file to contain output")
	}
}

func TestNewWithoutLogFileStillSucceeds(t *testing.T) {
	if _, err := New(Options{}); err != nil {
		t.Fatalf("new: %v", err)
	}
}

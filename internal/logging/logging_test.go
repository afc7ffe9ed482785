package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storewatch.log")
	logger, err := New("info", path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hello from test")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("log file missing entry: %q", data)
	}
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storewatch.log")
	logger, err := New("chatty", path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Debug("should be filtered")
	logger.Info("should appear")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "should be filtered") {
		t.Fatalf("debug leaked at info level")
	}
	if !strings.Contains(string(data), "should appear") {
		t.Fatalf("info entry missing")
	}
}

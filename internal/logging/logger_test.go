package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_CreatesComponentFile(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, "monitor", "")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	// lumberjack writes synchronously, so the file exists after one entry.
	log.Info("test_message_from_logging_test")

	data, err := os.ReadFile(filepath.Join(dir, "monitor.log"))
	if err != nil {
		t.Fatalf("component log file missing: %v", err)
	}
	if !strings.Contains(string(data), `"component":"monitor"`) {
		t.Fatalf("entries must carry the component field: %s", data)
	}
}

func TestNewLogger_LevelFiltersDebug(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, "monitor", "warn")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("filtered_out")
	log.Warn("kept")

	data, _ := os.ReadFile(filepath.Join(dir, "monitor.log"))
	if strings.Contains(string(data), "filtered_out") {
		t.Fatal("info entry should be below the configured level")
	}
	if !strings.Contains(string(data), "kept") {
		t.Fatalf("warn entry missing: %s", data)
	}
}

func TestNewLogger_RejectsBadLevel(t *testing.T) {
	if _, err := NewLogger(t.TempDir(), "monitor", "loud"); err == nil {
		t.Fatal("unknown level must be rejected")
	}
}

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetup_WritesBothSinks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer

	file, err := Setup(Options{Verbose: true, Dir: dir, Console: &console})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer file.Close()

	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %s", zerolog.GlobalLevel())
	}

	log.Info().Str("scope", "rolling").Msg("Diagnostics rebuilt")

	if !strings.Contains(console.String(), "Diagnostics rebuilt") {
		t.Errorf("Expected console output, got %q", console.String())
	}
	if strings.Contains(console.String(), "\x1b[") {
		t.Error("Expected no color codes for a non-terminal writer")
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("Expected log file: %v", err)
	}
	if !strings.Contains(string(data), `"scope":"rolling"`) {
		t.Errorf("Expected JSON line in log file, got %q", string(data))
	}
}

func TestSetup_InfoLevelByDefault(t *testing.T) {
	var console bytes.Buffer
	file, err := Setup(Options{Dir: t.TempDir(), Console: &console})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer file.Close()

	log.Debug().Msg("hidden")
	if strings.Contains(console.String(), "hidden") {
		t.Error("Expected debug output to be suppressed")
	}
}

func TestResolveDir_PrefersLogsFolder(t *testing.T) {
	t.Setenv("LOGS_FOLDER", "/var/log/routedash")
	t.Setenv("DATA_PATH", "/srv/routedash")
	if got := resolveDir(); got != "/var/log/routedash" {
		t.Errorf("Expected LOGS_FOLDER, got %s", got)
	}

	t.Setenv("LOGS_FOLDER", "")
	if got := resolveDir(); got != filepath.Join("/srv/routedash", "logs") {
		t.Errorf("Expected DATA_PATH/logs, got %s", got)
	}
}

package app

import (
	"testing"

	"github.com/rs/zerolog"

	"cumulative-transcribe-service/internal/config"
)

func TestNew_SetsStartupFields(t *testing.T) {
	cfg := config.Load()
	a := New(cfg)

	if a.Cfg != cfg {
		t.Error("New() did not retain the provided config")
	}
}

func TestStart_RecordsStartupTime(t *testing.T) {
	a := New(config.Load())
	if err := a.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	if a.StartupTime.IsZero() {
		t.Error("Start() did not set StartupTime")
	}
}

func TestShutdown_DoesNotPanic(t *testing.T) {
	a := New(config.Load())
	a.Shutdown() // must not panic
}

func TestNew_RespectsConfiguredLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	cfg := config.Load()
	cfg.Observability.LogLevel = "warn"
	New(cfg)

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
}

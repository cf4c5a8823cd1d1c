package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

var allKeys = []string{
	"SERVICE_PRINCIPAL", "HTTP_ADDR", "OBSERVABILITY_ADDR", "LOG_LEVEL",
	"STT_PROVIDER", "WHISPER_MODEL_SIZE", "WHISPER_BEAM_SIZE", "STT_LANGUAGE_CODE",
	"TRANSCRIBE_CONCURRENCY", "CUMULATIVE_MAX_AUDIO_SECONDS",
	"CUMULATIVE_TRANSCRIPTION_INTERVAL", "CUMULATIVE_MIN_AUDIO_SECONDS",
	"CUMULATIVE_OVERLAP_SECONDS", "SESSION_IDLE_TTL_SECONDS",
	"END_FINALIZATION_TIMEOUT_SECONDS", "PROMPT_MAX_CHARS", "TRANSLATE_RETRY_MAX",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_UPDATES", "KAFKA_TOPIC_FINAL",
	"KAFKA_PRINCIPAL",
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, allKeys...)

	cfg := Load()

	if cfg.Service.Principal != "svc-cumulative-transcribe" {
		t.Errorf("expected default principal, got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPAddr != ":8080" {
		t.Errorf("expected default HTTP addr ':8080', got %s", cfg.Service.HTTPAddr)
	}
	if cfg.Service.ObservabilityAddr != ":9090" {
		t.Errorf("expected default observability addr ':9090', got %s", cfg.Service.ObservabilityAddr)
	}

	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.BeamSize != 3 {
		t.Errorf("expected default beam size 3, got %d", cfg.STT.BeamSize)
	}
	if cfg.STT.LanguageCode != "ja" {
		t.Errorf("expected default language 'ja', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.ConcurrencyLimit != 1 {
		t.Errorf("expected default transcribe concurrency 1, got %d", cfg.STT.ConcurrencyLimit)
	}

	if cfg.CumulativeBuffer.MaxAudioSeconds != 30 {
		t.Errorf("expected default max audio seconds 30, got %v", cfg.CumulativeBuffer.MaxAudioSeconds)
	}
	if cfg.CumulativeBuffer.TranscriptionInterval != 1 {
		t.Errorf("expected default transcription interval 1, got %d", cfg.CumulativeBuffer.TranscriptionInterval)
	}
	if cfg.CumulativeBuffer.MinAudioSeconds != 1.0 {
		t.Errorf("expected default min audio seconds 1.0, got %v", cfg.CumulativeBuffer.MinAudioSeconds)
	}
	if cfg.CumulativeBuffer.OverlapSeconds != 5.0 {
		t.Errorf("expected default overlap seconds 5.0, got %v", cfg.CumulativeBuffer.OverlapSeconds)
	}

	if cfg.Session.IdleTTLSeconds != 1800 {
		t.Errorf("expected default idle TTL 1800, got %d", cfg.Session.IdleTTLSeconds)
	}
	if cfg.Finalization.TimeoutSeconds != 20 {
		t.Errorf("expected default finalization timeout 20, got %d", cfg.Finalization.TimeoutSeconds)
	}
	if cfg.Prompt.MaxChars != 224 {
		t.Errorf("expected default prompt max chars 224, got %d", cfg.Prompt.MaxChars)
	}
	if cfg.Translate.RetryMax != 2 {
		t.Errorf("expected default translate retry max 2, got %d", cfg.Translate.RetryMax)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t, allKeys...)

	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_ADDR", ":9999")
	os.Setenv("STT_PROVIDER", "google")
	os.Setenv("WHISPER_BEAM_SIZE", "5")
	os.Setenv("CUMULATIVE_MAX_AUDIO_SECONDS", "45")
	os.Setenv("CUMULATIVE_OVERLAP_SECONDS", "8")
	os.Setenv("SESSION_IDLE_TTL_SECONDS", "900")
	os.Setenv("END_FINALIZATION_TIMEOUT_SECONDS", "30")
	os.Setenv("PROMPT_MAX_CHARS", "100")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPAddr != ":9999" {
		t.Errorf("expected HTTP addr ':9999', got %s", cfg.Service.HTTPAddr)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if cfg.STT.BeamSize != 5 {
		t.Errorf("expected beam size 5, got %d", cfg.STT.BeamSize)
	}
	if cfg.CumulativeBuffer.MaxAudioSeconds != 45 {
		t.Errorf("expected max audio seconds 45, got %v", cfg.CumulativeBuffer.MaxAudioSeconds)
	}
	if cfg.CumulativeBuffer.OverlapSeconds != 8 {
		t.Errorf("expected overlap seconds 8, got %v", cfg.CumulativeBuffer.OverlapSeconds)
	}
	if cfg.Session.IdleTTLSeconds != 900 {
		t.Errorf("expected idle TTL 900, got %d", cfg.Session.IdleTTLSeconds)
	}
	if cfg.Finalization.TimeoutSeconds != 30 {
		t.Errorf("expected finalization timeout 30, got %d", cfg.Finalization.TimeoutSeconds)
	}
	if cfg.Prompt.MaxChars != 100 {
		t.Errorf("expected prompt max chars 100, got %d", cfg.Prompt.MaxChars)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker-1:9092" || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t, allKeys...)

	os.Setenv("WHISPER_BEAM_SIZE", "not-a-number")
	os.Setenv("CUMULATIVE_MAX_AUDIO_SECONDS", "not-a-float")
	os.Setenv("KAFKA_ENABLED", "not-a-bool")

	cfg := Load()

	if cfg.STT.BeamSize != 3 {
		t.Errorf("expected default beam size on invalid input, got %d", cfg.STT.BeamSize)
	}
	if cfg.CumulativeBuffer.MaxAudioSeconds != 30 {
		t.Errorf("expected default max audio seconds on invalid input, got %v", cfg.CumulativeBuffer.MaxAudioSeconds)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected default (disabled) Kafka on invalid input")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv(t, allKeys...)

	os.Setenv("SERVICE_PRINCIPAL", "my-service")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

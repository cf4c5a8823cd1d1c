// Package config loads process configuration from the environment, the
// style used throughout the corpus: no config library, just env vars with
// named defaults and tolerant parsing (an invalid value falls back to its
// default rather than failing startup).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully resolved process configuration.
type Config struct {
	Service          ServiceConfig
	STT              STTConfig
	CumulativeBuffer CumulativeBufferConfig
	Session          SessionConfig
	Finalization     FinalizationConfig
	Prompt           PromptConfig
	Translate        TranslateConfig
	Observability    ObservabilityConfig
	Kafka            KafkaConfig
}

// ServiceConfig holds process identity and listen addresses.
type ServiceConfig struct {
	Principal         string
	HTTPAddr          string
	ObservabilityAddr string
}

// STTConfig controls the Transcriber adapter.
type STTConfig struct {
	Provider         string // "mock" | "google"
	WhisperModelSize string // external Transcriber init hint, not core logic
	BeamSize         int
	LanguageCode     string
	ConcurrencyLimit int
}

// CumulativeBufferConfig controls the rolling PCM window.
type CumulativeBufferConfig struct {
	MaxAudioSeconds       float64
	TranscriptionInterval int
	MinAudioSeconds       float64
	OverlapSeconds        float64
}

// SessionConfig controls session lifecycle.
type SessionConfig struct {
	IdleTTLSeconds int
}

// FinalizationConfig controls end-of-stream behavior.
type FinalizationConfig struct {
	TimeoutSeconds int
}

// PromptConfig controls initial-prompt sizing.
type PromptConfig struct {
	MaxChars int
}

// TranslateConfig controls the retry decorator.
type TranslateConfig struct {
	RetryMax int
}

// ObservabilityConfig controls logging verbosity.
type ObservabilityConfig struct {
	LogLevel string
}

// KafkaConfig controls the events.Publisher.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicUpdates string
	TopicFinal   string
	Principal    string
}

// Load reads Config from the environment, falling back to named defaults for
// any unset or unparsable value.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-cumulative-transcribe")

	return &Config{
		Service: ServiceConfig{
			Principal:         principal,
			HTTPAddr:          envOrDefault("HTTP_ADDR", ":8080"),
			ObservabilityAddr: envOrDefault("OBSERVABILITY_ADDR", ":9090"),
		},
		STT: STTConfig{
			Provider:         envOrDefault("STT_PROVIDER", "mock"),
			WhisperModelSize: envOrDefault("WHISPER_MODEL_SIZE", "base"),
			BeamSize:         envOrDefaultInt("WHISPER_BEAM_SIZE", 3),
			LanguageCode:     envOrDefault("STT_LANGUAGE_CODE", "ja"),
			ConcurrencyLimit: envOrDefaultInt("TRANSCRIBE_CONCURRENCY", 1),
		},
		CumulativeBuffer: CumulativeBufferConfig{
			MaxAudioSeconds:       envOrDefaultFloat("CUMULATIVE_MAX_AUDIO_SECONDS", 30),
			TranscriptionInterval: envOrDefaultInt("CUMULATIVE_TRANSCRIPTION_INTERVAL", 1),
			MinAudioSeconds:       envOrDefaultFloat("CUMULATIVE_MIN_AUDIO_SECONDS", 1.0),
			OverlapSeconds:        envOrDefaultFloat("CUMULATIVE_OVERLAP_SECONDS", 5.0),
		},
		Session: SessionConfig{
			IdleTTLSeconds: envOrDefaultInt("SESSION_IDLE_TTL_SECONDS", 1800),
		},
		Finalization: FinalizationConfig{
			TimeoutSeconds: envOrDefaultInt("END_FINALIZATION_TIMEOUT_SECONDS", 20),
		},
		Prompt: PromptConfig{
			MaxChars: envOrDefaultInt("PROMPT_MAX_CHARS", 224),
		},
		Translate: TranslateConfig{
			RetryMax: envOrDefaultInt("TRANSLATE_RETRY_MAX", 2),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultStrs("KAFKA_BROKERS", nil),
			TopicUpdates: envOrDefault("KAFKA_TOPIC_UPDATES", "transcript.updates"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "transcript.final"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
	}
}

// IdleTTL returns Session.IdleTTLSeconds as a time.Duration.
func (c *Config) IdleTTL() time.Duration {
	return time.Duration(c.Session.IdleTTLSeconds) * time.Second
}

// FinalizationTimeout returns Finalization.TimeoutSeconds as a time.Duration.
func (c *Config) FinalizationTimeout() time.Duration {
	return time.Duration(c.Finalization.TimeoutSeconds) * time.Second
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultStrs(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

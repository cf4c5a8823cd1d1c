package events

import (
	"context"
	"testing"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerUpdates != nil {
				t.Error("expected nil updates writer when disabled")
			}
			if p.writerFinal != nil {
				t.Error("expected nil final writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:      false,
		Brokers:      []string{"localhost:9092"},
		TopicUpdates: "test.updates",
		TopicFinal:   "test.final",
		Principal:    "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicUpdates != "test.updates" {
		t.Errorf("expected topic updates 'test.updates', got %s", p.topicUpdates)
	}
	if p.topicFinal != "test.final" {
		t.Errorf("expected topic final 'test.final', got %s", p.topicFinal)
	}
}

func TestPublisher_PublishHistoryGrowth_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	entry := map[string]string{"text": "こんにちは"}
	err := p.PublishHistoryGrowth(context.Background(), "session-1", entry)

	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishFinal_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	result := map[string]string{"text": "final result"}
	err := p.PublishFinal(context.Background(), "session-1", result)

	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishHistoryGrowth_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	// Channels cannot be marshaled to JSON.
	entry := make(chan int)
	err := p.PublishHistoryGrowth(context.Background(), "session-1", entry)

	if err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

func TestPublisher_PublishFinal_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	result := make(chan int)
	err := p.PublishFinal(context.Background(), "session-1", result)

	if err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.Close()
	if err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilPublisher(t *testing.T) {
	p := &Publisher{
		writerUpdates: nil,
		writerFinal:   nil,
	}

	err := p.Close()
	if err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}

type testHistoryEntry struct {
	TimestampSec float64 `json:"timestampSec"`
	Text         string  `json:"text"`
}

func TestPublisher_PublishHistoryGrowth_ValidEvent(t *testing.T) {
	p := New(&Config{
		Enabled:      false,
		TopicUpdates: "test.updates",
		Principal:    "test-svc",
	})

	entry := testHistoryEntry{TimestampSec: 1.5, Text: "こんにちは"}

	err := p.PublishHistoryGrowth(context.Background(), "session-1", entry)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestPublisher_PublishFinal_ValidEvent(t *testing.T) {
	p := New(&Config{
		Enabled:    false,
		TopicFinal: "test.final",
		Principal:  "test-svc",
	})

	entry := testHistoryEntry{TimestampSec: 3.0, Text: "こんにちは。さようなら"}

	err := p.PublishFinal(context.Background(), "session-1", entry)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

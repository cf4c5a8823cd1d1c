// Package mock provides a deterministic Transcriber stub for tests and for
// running the service without a real acoustic model. It is grounded in the
// teacher's stt/mock adapter: a fingerprint of the input drives canned
// output instead of a real model call.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"cumulative-transcribe-service/internal/transcribe"
)

// Fingerprint returns a stable hex digest of a PCM buffer, used both by
// tests (to register expected output for a given cumulative buffer state)
// and by Stub itself to look up that output.
func Fingerprint(pcm []byte) string {
	sum := sha256.Sum256(pcm)
	return hex.EncodeToString(sum[:])
}

// Stub is a Transcriber whose output is keyed by the fingerprint of the
// cumulative PCM it's handed, so tests can script exact end-to-end
// scenarios ("buffer fingerprint A+B -> this text") without a real model.
type Stub struct {
	mu       sync.Mutex
	byFP     map[string]string
	fallback string
	calls    int
}

// NewStub builds a Stub from a fingerprint->text table. Unregistered
// fingerprints return fallback (default: empty text).
func NewStub(byFingerprint map[string]string) *Stub {
	table := make(map[string]string, len(byFingerprint))
	for k, v := range byFingerprint {
		table[k] = v
	}
	return &Stub{byFP: table}
}

// SetFallback sets the text returned for unregistered fingerprints.
func (s *Stub) SetFallback(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = text
}

// Register adds or overwrites the expected text for a given PCM buffer.
func (s *Stub) Register(pcm []byte, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byFP[Fingerprint(pcm)] = text
}

// Calls returns how many times Transcribe has been invoked, for
// single-flight assertions in tests.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Transcribe implements transcribe.Transcriber.
func (s *Stub) Transcribe(ctx context.Context, pcm []byte, initialPrompt, language string, beamSize int) (string, []transcribe.Segment, string, error) {
	select {
	case <-ctx.Done():
		return "", nil, "", ctx.Err()
	default:
	}

	s.mu.Lock()
	s.calls++
	text, ok := s.byFP[Fingerprint(pcm)]
	fallback := s.fallback
	s.mu.Unlock()

	if !ok {
		text = fallback
	}
	if text == "" {
		return "", nil, "ja", nil
	}
	seg := transcribe.Segment{StartSec: 0, EndSec: float64(len(pcm)) / (16000 * 2), Text: text}
	return text, []transcribe.Segment{seg}, "ja", nil
}

// SleepingStub wraps another Transcriber and blocks in its Sleep func before
// delegating, used to exercise the finalization-timeout scenario. An error
// from Sleep is returned instead of delegating.
type SleepingStub struct {
	Inner transcribe.Transcriber
	Sleep func(ctx context.Context) error
}

// Transcribe implements transcribe.Transcriber.
func (s *SleepingStub) Transcribe(ctx context.Context, pcm []byte, initialPrompt, language string, beamSize int) (string, []transcribe.Segment, string, error) {
	if s.Sleep != nil {
		if err := s.Sleep(ctx); err != nil {
			return "", nil, "", fmt.Errorf("sleeping stub: %w", err)
		}
	}
	return s.Inner.Transcribe(ctx, pcm, initialPrompt, language, beamSize)
}

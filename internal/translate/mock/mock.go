// Package mock provides a deterministic Translator stub for tests, mirroring
// the fingerprint-keyed design of transcribe/mock so end-to-end scenarios can
// script exact translation output without a real MT model.
package mock

import (
	"context"
	"fmt"
	"sync"
)

// Stub is a Translator whose output is keyed by the exact input text it's
// handed. Unregistered input returns fallback (default: echo with a marker).
type Stub struct {
	mu        sync.Mutex
	byText    map[string]string
	fallback  string
	failNext  int
	failErr   error
	calls     int
}

// NewStub builds a Stub from a text->translation table.
func NewStub(byText map[string]string) *Stub {
	table := make(map[string]string, len(byText))
	for k, v := range byText {
		table[k] = v
	}
	return &Stub{byText: table}
}

// SetFallback sets the translation returned for unregistered input.
func (s *Stub) SetFallback(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = text
}

// FailNext makes the next n calls return err, used to exercise
// translate.WithRetry.
func (s *Stub) FailNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failErr = err
}

// Calls returns how many times TranslateJaEn has been invoked.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// TranslateJaEn implements translate.Translator.
func (s *Stub) TranslateJaEn(ctx context.Context, text string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	s.mu.Lock()
	s.calls++
	if s.failNext > 0 {
		s.failNext--
		err := s.failErr
		s.mu.Unlock()
		return "", err
	}
	out, ok := s.byText[text]
	fallback := s.fallback
	s.mu.Unlock()

	if ok {
		return out, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return fmt.Sprintf("[en] %s", text), nil
}

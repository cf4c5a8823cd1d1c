// Package translate defines the JA->EN translation contract and a retry
// decorator. The MT model itself is an external collaborator; the decorator
// is the one piece of real logic this repo owns.
package translate

import (
	"context"
	"time"
)

// Translator translates Japanese text to English.
type Translator interface {
	TranslateJaEn(ctx context.Context, text string) (string, error)
}

// retrying wraps a Translator with bounded retry: at most maxRetries
// retries, with the given per-attempt delays, before surfacing the last
// error to the caller (who treats a returned error as "translation absent"
// rather than failing the session).
type retrying struct {
	inner   Translator
	delays  []time.Duration
	maxTry  int
	sleeper func(context.Context, time.Duration) error
}

// WithRetry wraps inner so that transient failures are retried up to
// maxRetries times using delays (cycled if shorter than maxRetries) before
// the final error is returned. The default delays are 100ms, 500ms.
func WithRetry(inner Translator, maxRetries int, delays ...time.Duration) Translator {
	if len(delays) == 0 {
		delays = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond}
	}
	return &retrying{inner: inner, delays: delays, maxTry: maxRetries, sleeper: sleepCtx}
}

func (r *retrying) TranslateJaEn(ctx context.Context, text string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxTry; attempt++ {
		out, err := r.inner.TranslateJaEn(ctx, text)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == r.maxTry {
			break
		}
		delay := r.delays[attempt%len(r.delays)]
		if sleepErr := r.sleeper(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

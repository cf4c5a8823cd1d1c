// Package pipeline decides when to re-transcribe a session's cumulative
// buffer and coordinates the post-processing (normalization, translation)
// that follows a confirmed-text growth, without stalling audio ingest.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"cumulative-transcribe-service/internal/models"
	"cumulative-transcribe-service/internal/normalize"
	"cumulative-transcribe-service/internal/observability/metrics"
	"cumulative-transcribe-service/internal/session"
	"cumulative-transcribe-service/internal/transcribe"
	"cumulative-transcribe-service/internal/translate"
)

// Config controls scheduling and pipeline behavior; see internal/config for
// the env vars these are sourced from.
type Config struct {
	TranscriptionInterval int // chunks between eligible transcription passes
	MinAudioSeconds       float64
	FinalizationTimeout   time.Duration
	BeamSize              int
	Language              string
}

// Emitter is how the scheduler hands finished results back to the
// transport. Implemented by internal/ws; kept as an interface here so
// pipeline has no import-time dependency on gorilla/websocket.
type Emitter interface {
	EmitUpdate(models.TranscriptionUpdate)
	EmitProgress(step models.ProgressStep, message string)
	EmitError(code models.ErrorCode, message string)
	EmitHistoryGrowth(entry models.HistoryEntry)
}

// Scheduler is the PipelineScheduler for one session: it decides when to
// invoke the Transcriber and fans out post-processing for each confirmed
// growth, single-flighted per stage.
type Scheduler struct {
	cfg         Config
	sess        *session.State
	transcriber transcribe.Transcriber
	normalizer  normalize.Normalizer
	translator  translate.Translator
	sem         *semaphore.Weighted
	emit        Emitter
	metrics     *metrics.Metrics

	mu                sync.Mutex
	chunksSinceLastTx int
	inFlight          bool
	pendingFollowUp   bool

	normGen  int64
	transGen int64
}

// New constructs a Scheduler for one session. normalizer and translator may
// be nil, meaning those post-processing stages are never run even if the
// client requests them.
func New(cfg Config, sess *session.State, transcriber transcribe.Transcriber, normalizer normalize.Normalizer, translator translate.Translator, sem *semaphore.Weighted, emit Emitter, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		sess:        sess,
		transcriber: transcriber,
		normalizer:  normalizer,
		translator:  translator,
		sem:         sem,
		emit:        emit,
		metrics:     m,
	}
}

// ChunksUntilNextTranscription reports how many more appended chunks are
// needed before the interval trigger fires, read just ahead of the chunk
// about to be counted by OnAudioAppended. Never negative. The countdown
// resets when OnAudioAppended starts a pass, and chunks that arrive while
// that pass is in flight keep counting down.
func (s *Scheduler) ChunksUntilNextTranscription() int {
	interval := max(s.cfg.TranscriptionInterval, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := interval - s.chunksSinceLastTx
	if remaining < 0 {
		return 0
	}
	return remaining
}

// OnAudioAppended applies the trigger rule after a chunk has been appended
// to the session's buffer: schedules a transcription pass off the ingest
// path if the interval/duration/in-flight conditions all hold, or coalesces
// the arrival into a single follow-up if a pass is already running.
func (s *Scheduler) OnAudioAppended(ctx context.Context) {
	s.mu.Lock()
	s.chunksSinceLastTx++

	durationSec := s.sess.Buffer.DurationSec()
	readyByInterval := s.chunksSinceLastTx >= max(s.cfg.TranscriptionInterval, 1)
	readyByDuration := durationSec >= s.cfg.MinAudioSeconds

	if s.inFlight {
		s.pendingFollowUp = true
		s.mu.Unlock()
		return
	}
	if !readyByInterval || !readyByDuration {
		s.mu.Unlock()
		return
	}

	s.chunksSinceLastTx = 0
	s.inFlight = true
	s.mu.Unlock()

	go s.runPass(ctx)
}

// runPass performs one transcription pass and its incremental
// post-processing, then re-triggers itself once if audio coalesced in
// while it ran.
func (s *Scheduler) runPass(ctx context.Context) {
	s.transcribeAndDiff(ctx)

	s.mu.Lock()
	s.inFlight = false
	followUp := s.pendingFollowUp
	s.pendingFollowUp = false
	s.mu.Unlock()

	if followUp {
		s.metrics.TranscriptionCoalesced.Inc()
		s.mu.Lock()
		s.inFlight = true
		s.mu.Unlock()
		go s.runPass(ctx)
	}
}

// transcribeAndDiff runs one Transcriber call against the current buffer
// snapshot, folds the result through the differ, emits the primary
// transcription_update, and dispatches incremental post-processing for any
// newly confirmed text. Returns the confirmed/tentative split for callers
// (Finalize) that need the result synchronously.
func (s *Scheduler) transcribeAndDiff(ctx context.Context) (confirmed, tentative string, ok bool) {
	pcm := s.sess.Buffer.Snapshot()
	if len(pcm) == 0 {
		return "", "", false
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", "", false
	}
	defer s.sem.Release(1)

	prevConfirmed := s.sess.Differ.Confirmed()
	prompt := s.sess.Buffer.PromptFrom(prevConfirmed)

	s.emit.EmitProgress(models.StepTranscribing, "transcribing cumulative buffer")

	start := time.Now()
	text, _, _, err := s.transcriber.Transcribe(ctx, pcm, prompt, s.cfg.Language, s.cfg.BeamSize)
	s.metrics.RecordSTTCall("configured", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordSTTError("configured", "transient")
		s.emit.EmitError(models.ErrCodeModelTransient, err.Error())
		return "", "", false
	}

	confirmed, tentative = s.sess.Differ.Update(text)
	sequence := s.sess.NextSequence()

	s.emit.EmitUpdate(models.TranscriptionUpdate{
		Type:          "transcription_update",
		Sequence:      sequence,
		IsFinal:       false,
		Transcription: models.TextSpan{Confirmed: confirmed, Tentative: tentative},
		Performance: models.Performance{
			TranscriptionMs: float64(time.Since(start).Milliseconds()),
			TotalMs:         float64(time.Since(start).Milliseconds()),
			AudioSec:        s.sess.Buffer.DurationSec(),
		},
	})

	if growth := strAfter(confirmed, prevConfirmed); growth != "" {
		sentences := 0
		for _, r := range growth {
			if r == '。' || r == '！' || r == '？' {
				sentences++
			}
		}
		s.metrics.SentencesConfirmed.Add(float64(sentences))
		idx, entry := s.sess.AppendHistory(s.sess.Buffer.SessionElapsedSec(), growth)
		s.emit.EmitHistoryGrowth(entry)
		s.dispatchIncrementalPostProcessing(ctx, idx, growth, confirmed, tentative)
	}

	return confirmed, tentative, true
}

// dispatchIncrementalPostProcessing runs normalization and translation for
// one growth concurrently with each other, each independently
// single-flighted: a later growth's post-processing invalidates an
// in-flight one for the same stage, whose result is then discarded.
func (s *Scheduler) dispatchIncrementalPostProcessing(ctx context.Context, historyIdx int, growth, confirmed, tentative string) {
	opts := s.sess.Options()

	if opts.EnableHiragana && s.normalizer != nil {
		gen := atomic.AddInt64(&s.normGen, 1)
		go func() {
			start := time.Now()
			s.emit.EmitProgress(models.StepNormalizing, "folding confirmed growth to hiragana")
			hira := s.normalizer.ToHiragana(growth)
			s.metrics.NormalizationLatency.Observe(time.Since(start).Seconds())

			if atomic.LoadInt64(&s.normGen) != gen {
				return // superseded by a later growth; discard
			}
			total := s.sess.GrowHiragana(hira)
			s.sess.SetHistoryHiragana(historyIdx, hira)

			sequence := s.sess.NextSequence()
			s.emit.EmitUpdate(models.TranscriptionUpdate{
				Type:          "transcription_update",
				Sequence:      sequence,
				IsFinal:       false,
				Transcription: models.TextSpan{Confirmed: confirmed, Tentative: tentative},
				Hiragana:      &models.TextSpan{Confirmed: total, Tentative: s.normalizer.ToHiragana(tentative)},
				Performance: models.Performance{
					NormalizationMs: float64(time.Since(start).Milliseconds()),
					TotalMs:         float64(time.Since(start).Milliseconds()),
					AudioSec:        s.sess.Buffer.DurationSec(),
				},
			})
		}()
	}

	if opts.EnableTranslation && s.translator != nil {
		gen := atomic.AddInt64(&s.transGen, 1)
		go func() {
			start := time.Now()
			s.emit.EmitProgress(models.StepTranslating, "translating confirmed growth")
			translated, err := s.translator.TranslateJaEn(ctx, growth)
			s.metrics.TranslationLatency.Observe(time.Since(start).Seconds())
			if err != nil {
				s.metrics.TranslationFailures.Inc()
				s.emit.EmitError(models.ErrCodeModelTransient, "translation failed: "+err.Error())
				return
			}

			if atomic.LoadInt64(&s.transGen) != gen {
				return // superseded by a later growth; discard
			}
			total := s.sess.GrowTranslation(translated)
			s.sess.SetHistoryTranslation(historyIdx, translated)

			sequence := s.sess.NextSequence()
			s.emit.EmitUpdate(models.TranscriptionUpdate{
				Type:          "transcription_update",
				Sequence:      sequence,
				IsFinal:       false,
				Transcription: models.TextSpan{Confirmed: confirmed, Tentative: tentative},
				Translation:   &models.TextSpan{Confirmed: total, Tentative: ""},
				Performance: models.Performance{
					TranslationMs: float64(time.Since(start).Milliseconds()),
					TotalMs:       float64(time.Since(start).Milliseconds()),
					AudioSec:      s.sess.Buffer.DurationSec(),
				},
			})
		}()
	}
}

// Finalize runs the end-of-stream protocol: one final transcription pass
// whenever the buffer holds any audio (it does not check whether an earlier
// pass already covered that audio), promotes all tentative text to confirmed, runs
// full-text (not incremental) normalization and translation concurrently,
// and returns the session_end message. The whole operation is bounded by
// cfg.FinalizationTimeout; on timeout the current tentative is promoted to
// confirmed and finalizationTimedOut is set on the result.
func (s *Scheduler) Finalize(ctx context.Context) models.SessionEnd {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FinalizationTimeout)
	defer cancel()

	done := make(chan models.SessionEnd, 1)
	go func() { done <- s.finalizeBody(ctx) }()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		s.metrics.RecordFinalizationTimeout()
		confirmed := s.sess.Differ.Finalize()
		sequence := s.sess.NextSequence()
		return models.SessionEnd{
			Type:          "session_end",
			Sequence:      sequence,
			IsFinal:       true,
			Transcription: models.TextSpan{Confirmed: confirmed, Tentative: ""},
			Performance: models.Performance{
				AudioSec:             s.sess.Buffer.DurationSec(),
				FinalizationTimedOut: true,
			},
		}
	}
}

func (s *Scheduler) finalizeBody(ctx context.Context) models.SessionEnd {
	if s.sess.Buffer.DurationSec() > 0 {
		s.transcribeAndDiff(ctx)
	}

	confirmed := s.sess.Differ.Finalize()
	opts := s.sess.Options()

	var hiragana, translation string
	var normMs, transMs float64

	g, gctx := errgroup.WithContext(ctx)
	if opts.EnableHiragana && s.normalizer != nil {
		g.Go(func() error {
			start := time.Now()
			hiragana = s.normalizer.ToHiragana(confirmed)
			normMs = float64(time.Since(start).Milliseconds())
			return nil
		})
	}
	if opts.EnableTranslation && s.translator != nil {
		g.Go(func() error {
			start := time.Now()
			out, err := s.translator.TranslateJaEn(gctx, confirmed)
			transMs = float64(time.Since(start).Milliseconds())
			if err != nil {
				// A failed final translation is an absent field, not a
				// failed finalization.
				return nil
			}
			translation = out
			return nil
		})
	}
	_ = g.Wait()

	sequence := s.sess.NextSequence()
	result := models.SessionEnd{
		Type:          "session_end",
		Sequence:      sequence,
		IsFinal:       true,
		Transcription: models.TextSpan{Confirmed: confirmed, Tentative: ""},
		Performance: models.Performance{
			NormalizationMs: normMs,
			TranslationMs:   transMs,
			AudioSec:        s.sess.Buffer.DurationSec(),
		},
	}
	if opts.EnableHiragana && s.normalizer != nil {
		result.Hiragana = &models.TextSpan{Confirmed: hiragana}
	}
	if opts.EnableTranslation && s.translator != nil {
		result.Translation = &models.TextSpan{Confirmed: translation}
	}
	return result
}

// strAfter returns the suffix of s that follows prefix, or "" if s does not
// start with prefix (which Differ's monotonicity guard makes impossible in
// practice, but cheaply defending against it here avoids a panic on a
// slice bound if that invariant is ever violated upstream).
func strAfter(s, prefix string) string {
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return ""
	}
	return s[len(prefix):]
}

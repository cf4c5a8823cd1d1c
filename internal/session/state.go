// Package session owns the per-connection state machine: the cumulative
// buffer, the differ, processing options, and the append-only transcript
// growth history, plus the process-wide registry that looks sessions up by
// id and evicts idle ones.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"cumulative-transcribe-service/internal/buffer"
	"cumulative-transcribe-service/internal/models"
	"cumulative-transcribe-service/internal/textdiff"
)

// Options are the client-settable processing flags, applied idempotently:
// a later options message overrides only the fields it sets.
type Options struct {
	EnableHiragana    bool
	EnableTranslation bool
	EnableSummary     bool
	RawPCM            bool
}

// State is one session's exclusively-owned mutable state: its buffer, its
// differ, its processing options, and its transcript growth history.
// SessionRegistry shares the *State pointer for the connection's lifetime;
// no other component mutates its fields directly.
type State struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Buffer    *buffer.Buffer
	Differ    *textdiff.Differ

	mu                   sync.Mutex
	lastActivity         time.Time
	options              Options
	confirmedHiragana    string
	confirmedTranslation string
	history              []models.HistoryEntry
	sequence             uint64
	ended                bool
}

// New constructs a fresh session with a random id.
func New(bufCfg buffer.Config) *State {
	now := time.Now()
	return &State{
		ID:           uuid.New(),
		CreatedAt:    now,
		Buffer:       buffer.New(bufCfg),
		Differ:       textdiff.New(),
		lastActivity: now,
	}
}

// Touch records ingest activity, resetting the idle-eviction clock.
func (s *State) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// LastActivity returns the timestamp of the most recent Touch.
func (s *State) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Options returns a copy of the current processing options.
func (s *State) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// ApplyOptions merges non-nil fields of an incoming options message into
// the session's current options. Idempotent: the same message applied
// twice yields the same result. Unknown JSON keys were already dropped by
// the decoder; this only ever sees the fields the wire type defines.
func (s *State) ApplyOptions(msg models.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.EnableHiragana != nil {
		s.options.EnableHiragana = *msg.EnableHiragana
	}
	if msg.EnableTranslation != nil {
		s.options.EnableTranslation = *msg.EnableTranslation
	}
	if msg.EnableSummary != nil {
		s.options.EnableSummary = *msg.EnableSummary
	}
	if msg.RawPCM != nil {
		s.options.RawPCM = *msg.RawPCM
	}
}

// NextSequence increments and returns the session's outbound message
// sequence counter. Callers must call this exactly once per emitted
// transcription_update/session_end, in emission order.
func (s *State) NextSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence++
	return s.sequence
}

// ConfirmedHiragana returns the confirmed hiragana text accumulated so far.
func (s *State) ConfirmedHiragana() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmedHiragana
}

// GrowHiragana appends a newly-folded substring to the confirmed hiragana
// text and returns the new total.
func (s *State) GrowHiragana(growth string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmedHiragana += growth
	return s.confirmedHiragana
}

// ConfirmedTranslation returns the confirmed translation accumulated so far.
func (s *State) ConfirmedTranslation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmedTranslation
}

// GrowTranslation appends a newly-translated substring to the confirmed
// translation and returns the new total.
func (s *State) GrowTranslation(growth string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmedTranslation += growth
	return s.confirmedTranslation
}

// AppendHistory records a new history entry for a confirmed-text growth and
// returns its index, so post-processing stages that complete later can
// patch in the hiragana/translation fields via SetHistoryHiragana/
// SetHistoryTranslation.
func (s *State) AppendHistory(elapsedSec float64, text string) (int, models.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := models.HistoryEntry{TimestampSec: elapsedSec, Text: text}
	s.history = append(s.history, entry)
	return len(s.history) - 1, entry
}

// SetHistoryHiragana patches the hiragana field of a previously appended
// history entry, once normalization for its growth completes.
func (s *State) SetHistoryHiragana(idx int, hiragana string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.history) {
		return
	}
	s.history[idx].Hiragana = hiragana
}

// SetHistoryTranslation patches the translation field of a previously
// appended history entry, once translation for its growth completes.
func (s *State) SetHistoryTranslation(idx int, translation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.history) {
		return
	}
	s.history[idx].Translation = translation
}

// History returns a copy of the full history slice, for session-end export.
func (s *State) History() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// MarkEnded marks the session as having started finalization. Returns
// false if it was already ended (the end message is not idempotent at the
// protocol level, but the handler must not run finalization twice).
func (s *State) MarkEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	s.ended = true
	return true
}

// Ended reports whether finalization has already started.
func (s *State) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

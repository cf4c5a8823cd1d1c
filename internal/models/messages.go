// Package models defines the wire message shapes exchanged over the
// streaming endpoint and the history entries recorded per session.
package models

// Options carries the client-settable processing flags. Later options
// messages override earlier ones field-by-field; unset JSON fields leave the
// current value unchanged (see session.State.ApplyOptions).
type Options struct {
	Type              string `json:"type"`
	EnableHiragana    *bool  `json:"enableHiragana,omitempty"`
	EnableTranslation *bool  `json:"enableTranslation,omitempty"`
	EnableSummary     *bool  `json:"enableSummary,omitempty"`
	RawPCM            *bool  `json:"rawPcm,omitempty"`
}

// EndMessage is the client's end-of-stream request.
type EndMessage struct {
	Type string `json:"type"`
}

// Connected is the first message sent on a new session.
type Connected struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// ProgressStep names one stage of a recognition/post-processing pass.
type ProgressStep string

const (
	StepDecoding     ProgressStep = "decoding"
	StepTranscribing ProgressStep = "transcribing"
	StepNormalizing  ProgressStep = "normalizing"
	StepTranslating  ProgressStep = "translating"
)

// Progress reports pipeline activity that doesn't itself carry a transcript.
type Progress struct {
	Type    string       `json:"type"`
	Step    ProgressStep `json:"step"`
	Message string       `json:"message"`
}

// Accumulating is emitted once per ingested audio frame.
type Accumulating struct {
	Type                         string  `json:"type"`
	ChunkID                      int     `json:"chunkId"`
	DurationSec                  float64 `json:"durationSec"`
	SessionElapsedSec            float64 `json:"sessionElapsedSec"`
	ChunksUntilNextTranscription int     `json:"chunksUntilNextTranscription"`
}

// TextSpan is a confirmed/tentative pair, reused for transcription,
// hiragana, and translation fields.
type TextSpan struct {
	Confirmed string `json:"confirmed"`
	Tentative string `json:"tentative"`
}

// Performance reports timing for one emitted update.
type Performance struct {
	TranscriptionMs      float64 `json:"transcriptionMs"`
	NormalizationMs      float64 `json:"normalizationMs,omitempty"`
	TranslationMs        float64 `json:"translationMs,omitempty"`
	TotalMs              float64 `json:"totalMs"`
	AudioSec             float64 `json:"audioSec"`
	FinalizationTimedOut bool    `json:"finalizationTimedOut,omitempty"`
}

// TranscriptionUpdate is the primary streaming result message, emitted once
// per completed transcription pass and again for each post-processing stage
// that completes afterward (see internal/pipeline).
type TranscriptionUpdate struct {
	Type          string      `json:"type"`
	Sequence      uint64      `json:"sequence"`
	IsFinal       bool        `json:"isFinal"`
	Transcription TextSpan    `json:"transcription"`
	Hiragana      *TextSpan   `json:"hiragana,omitempty"`
	Translation   *TextSpan   `json:"translation,omitempty"`
	Performance   Performance `json:"performance"`
}

// ErrorCode enumerates the error kinds the service can emit.
type ErrorCode string

const (
	ErrCodeDecode          ErrorCode = "decode"
	ErrCodeModelTransient  ErrorCode = "model_transient"
	ErrCodeModelFatal      ErrorCode = "model_fatal"
	ErrCodeProtocol        ErrorCode = "protocol"
	ErrCodeSessionNotFound ErrorCode = "session_not_found"
	ErrCodeTimeout         ErrorCode = "timeout"
)

// ErrorMessage is an informational or fatal error notification.
type ErrorMessage struct {
	Type    string    `json:"type"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SessionEnd is the final, fully-confirmed result emitted on stream
// termination. Tentative is always empty by construction.
type SessionEnd struct {
	Type          string      `json:"type"`
	Sequence      uint64      `json:"sequence"`
	IsFinal       bool        `json:"isFinal"`
	Transcription TextSpan    `json:"transcription"`
	Hiragana      *TextSpan   `json:"hiragana,omitempty"`
	Translation   *TextSpan   `json:"translation,omitempty"`
	Performance   Performance `json:"performance"`
}

// HistoryEntry records one growth of the confirmed transcript, in order.
type HistoryEntry struct {
	TimestampSec float64 `json:"timestampSec"`
	Text         string  `json:"text"`
	Hiragana     string  `json:"hiragana,omitempty"`
	Translation  string  `json:"translation,omitempty"`
}

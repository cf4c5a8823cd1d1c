// Package buffer implements the cumulative PCM buffer: the per-session
// rolling audio window that is fed whole to each recognition pass, with
// bounded retention and overlap-preserving trim.
package buffer

import (
	"errors"
	"sync"
	"time"
	"unicode/utf8"
)

// ErrUnalignedFrame is returned by Append when a chunk is not 16-bit aligned.
var ErrUnalignedFrame = errors.New("buffer: chunk is not 16-bit aligned")

// Config controls buffer sizing; NewConfig returns the service defaults.
// New uses the values as given: a zero MaxAudioSeconds disables trimming
// and a zero PromptMaxChars disables the prompt cap, while SampleRate,
// Channels and SampleWidthBytes must be set.
type Config struct {
	SampleRate       int     // samples/sec, default 16000
	Channels         int     // default 1
	SampleWidthBytes int     // default 2 (16-bit)
	MaxAudioSeconds  float64 // default 30
	OverlapSeconds   float64 // default 5
	PromptMaxChars   int     // default 224
}

// NewConfig returns Config populated with the service's default sizing.
func NewConfig() Config {
	return Config{
		SampleRate:       16000,
		Channels:         1,
		SampleWidthBytes: 2,
		MaxAudioSeconds:  30,
		OverlapSeconds:   5,
		PromptMaxChars:   224,
	}
}

func (c Config) bytesPerSecond() float64 {
	return float64(c.SampleRate * c.Channels * c.SampleWidthBytes)
}

func (c Config) maxAudioBytes() int {
	return int(c.MaxAudioSeconds * c.bytesPerSecond())
}

func (c Config) overlapBytes() int {
	return int(c.OverlapSeconds * c.bytesPerSecond())
}

// Buffer is the cumulative, trim-on-write PCM window for one session.
type Buffer struct {
	mu         sync.Mutex
	cfg        Config
	chunks     [][]byte
	totalBytes int
	chunkCount int
	createdAt  time.Time
}

// New constructs an empty Buffer with its append clock starting now.
func New(cfg Config) *Buffer {
	return &Buffer{cfg: cfg, createdAt: time.Now()}
}

// Append records a PCM chunk, trimming the head of the buffer if the
// addition pushed it over the configured cap. Returns ErrUnalignedFrame for
// odd-byte-length chunks; the caller must drop such frames.
func (b *Buffer) Append(chunk []byte) error {
	if len(chunk)%b.cfg.SampleWidthBytes != 0 {
		return ErrUnalignedFrame
	}
	if len(chunk) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	maxBytes := b.cfg.maxAudioBytes()
	b.chunkCount++

	if maxBytes > 0 && len(chunk) > maxBytes {
		// A single chunk alone exceeds the cap: reset to its own tail.
		tail := make([]byte, maxBytes)
		copy(tail, chunk[len(chunk)-maxBytes:])
		b.chunks = [][]byte{tail}
		b.totalBytes = maxBytes
		return nil
	}

	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	b.chunks = append(b.chunks, buf)
	b.totalBytes += len(buf)

	b.trim()
	return nil
}

// trim evicts whole chunks from the head while the buffer exceeds its cap,
// but never if doing so would drop the retained tail below overlapBytes.
// Must be called with mu held.
func (b *Buffer) trim() {
	maxBytes := b.cfg.maxAudioBytes()
	if maxBytes <= 0 {
		return
	}
	overlap := b.cfg.overlapBytes()

	for b.totalBytes > maxBytes && len(b.chunks) > 0 {
		head := b.chunks[0]
		if b.totalBytes-len(head) < overlap {
			break
		}
		b.chunks = b.chunks[1:]
		b.totalBytes -= len(head)
	}
}

// Snapshot returns the current buffer contents as a single contiguous slice.
func (b *Buffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, b.totalBytes)
	pos := 0
	for _, c := range b.chunks {
		copy(out[pos:], c)
		pos += len(c)
	}
	return out
}

// DurationSec returns the current buffered audio length in seconds.
func (b *Buffer) DurationSec() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.totalBytes) / b.cfg.bytesPerSecond()
}

// SessionElapsedSec returns wall-clock seconds since the buffer was
// constructed, independent of retained buffer length.
func (b *Buffer) SessionElapsedSec() float64 {
	return time.Since(b.createdAt).Seconds()
}

// ChunkCount returns the total number of chunks ever appended.
func (b *Buffer) ChunkCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chunkCount
}

// TailDurationSec reports how much of the most recent audio remains
// buffered, for overlap-preservation assertions.
func (b *Buffer) TailDurationSec() float64 {
	return b.DurationSec()
}

// PromptFrom derives the initial-prompt text biasing the next recognition
// pass from the session's confirmed text: the last few sentences, capped at
// PromptMaxChars code points, taken from the tail.
func (b *Buffer) PromptFrom(confirmed string) string {
	if confirmed == "" {
		return ""
	}
	sentences := splitSentences(confirmed)
	const maxSentences = 10
	if len(sentences) > maxSentences {
		sentences = sentences[len(sentences)-maxSentences:]
	}
	prompt := joinNonEmpty(sentences)

	max := b.cfg.PromptMaxChars
	if max <= 0 {
		return prompt
	}
	runes := []rune(prompt)
	if len(runes) <= max {
		return prompt
	}
	return string(runes[len(runes)-max:])
}

var sentenceTerminators = map[rune]bool{'。': true, '！': true, '？': true}

// splitSentences splits text into sentences, keeping the terminator attached
// to the sentence it closes. A trailing fragment with no terminator is kept
// as its own entry.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if sentenceTerminators[r] {
			end := i + utf8.RuneLen(r)
			out = append(out, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, p := range parts {
		if p != "" {
			out += p
		}
	}
	return out
}

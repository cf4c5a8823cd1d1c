// Package transcribe defines the acoustic-model contract used by the
// pipeline scheduler. The model itself (Whisper-class or a cloud ASR
// service) is an external collaborator; this package only fixes the
// interface and a couple of concrete adapters.
package transcribe

import "context"

// Segment is one timed span of recognized speech within a single
// transcription call. Segments are non-overlapping and ascending in
// StartSec within one call.
type Segment struct {
	StartSec float64
	EndSec   float64
	Text     string
}

// Transcriber turns a PCM buffer into text. Implementations may or may not
// be intrinsically safe for concurrent use; the pipeline scheduler gates
// calls with a shared semaphore regardless, per the configured concurrency.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, initialPrompt, language string, beamSize int) (text string, segments []Segment, languageDetected string, err error)
}

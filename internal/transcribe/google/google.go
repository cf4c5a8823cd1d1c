// Package google adapts cloud.google.com/go/speech to the transcribe.Transcriber
// contract. The pipeline scheduler invokes Transcribe once per recognition
// pass against a growing buffer snapshot rather than holding one long-lived
// stream per session, so a plain (non-streaming) Recognize call is the
// natural fit.
package google

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"cumulative-transcribe-service/internal/transcribe"
)

// Adapter implements transcribe.Transcriber using Google Cloud Speech-to-Text.
type Adapter struct {
	client     *speech.Client
	sampleRate int32
}

// New creates a Google Speech-backed Transcriber. Requires
// GOOGLE_APPLICATION_CREDENTIALS to be set in the environment.
func New(ctx context.Context, sampleRate int32) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google speech client: %w", err)
	}
	return &Adapter{client: c, sampleRate: sampleRate}, nil
}

// Close releases the underlying gRPC client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Transcribe implements transcribe.Transcriber.
func (a *Adapter) Transcribe(ctx context.Context, pcm []byte, initialPrompt, language string, beamSize int) (string, []transcribe.Segment, string, error) {
	cfg := &speechpb.RecognitionConfig{
		Encoding:        speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz: a.sampleRate,
		LanguageCode:    language,
		MaxAlternatives: 1,
	}
	if initialPrompt != "" {
		cfg.SpeechContexts = []*speechpb.SpeechContext{{Phrases: []string{initialPrompt}}}
	}

	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm}},
	})
	if err != nil {
		return "", nil, "", fmt.Errorf("google speech recognize: %w", err)
	}

	var text string
	var segments []transcribe.Segment
	var clock float64
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		text += alt.Transcript
		dur := estimateDuration(alt)
		segments = append(segments, transcribe.Segment{StartSec: clock, EndSec: clock + dur, Text: alt.Transcript})
		clock += dur
	}
	return text, segments, language, nil
}

// estimateDuration derives a segment duration from word-level timing when
// present, else falls back to zero-width (the caller only needs ascending,
// non-overlapping bounds, not wall-clock precision).
func estimateDuration(alt *speechpb.SpeechRecognitionAlternative) float64 {
	if len(alt.Words) == 0 {
		return 0
	}
	last := alt.Words[len(alt.Words)-1]
	if last.EndTime == nil {
		return 0
	}
	return float64(last.EndTime.Seconds) + float64(last.EndTime.Nanos)/1e9
}

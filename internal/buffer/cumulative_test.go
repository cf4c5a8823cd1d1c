package buffer

import (
	"bytes"
	"testing"
)

func frame(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestAppend_RejectsUnalignedFrame(t *testing.T) {
	b := New(NewConfig())
	if err := b.Append(make([]byte, 3)); err != ErrUnalignedFrame {
		t.Fatalf("got %v, want ErrUnalignedFrame", err)
	}
}

func TestAppend_AccumulatesWithinCap(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxAudioSeconds = 10
	cfg.OverlapSeconds = 2
	b := New(cfg)

	chunkBytes := int(1 * cfg.bytesPerSecond())
	if err := b.Append(frame(chunkBytes, 0x01)); err != nil {
		t.Fatal(err)
	}
	if err := b.Append(frame(chunkBytes, 0x02)); err != nil {
		t.Fatal(err)
	}

	if got, want := b.DurationSec(), 2.0; got != want {
		t.Errorf("DurationSec() = %v, want %v", got, want)
	}
	if got := len(b.Snapshot()); got != 2*chunkBytes {
		t.Errorf("Snapshot length = %d, want %d", got, 2*chunkBytes)
	}
}

func TestAppend_TrimsHeadButPreservesOverlap(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxAudioSeconds = 3
	cfg.OverlapSeconds = 1
	b := New(cfg)

	chunkBytes := int(1 * cfg.bytesPerSecond())
	for i := 0; i < 6; i++ {
		if err := b.Append(frame(chunkBytes, byte(i))); err != nil {
			t.Fatal(err)
		}
	}

	if got := b.DurationSec(); got > cfg.MaxAudioSeconds {
		t.Errorf("DurationSec() = %v, exceeds cap %v", got, cfg.MaxAudioSeconds)
	}
	if got := b.DurationSec(); got < cfg.OverlapSeconds {
		t.Errorf("DurationSec() = %v, dropped below overlap %v", got, cfg.OverlapSeconds)
	}

	snap := b.Snapshot()
	lastChunk := frame(chunkBytes, byte(5))
	if !bytes.Equal(snap[len(snap)-chunkBytes:], lastChunk) {
		t.Error("trim evicted the most recent chunk instead of the oldest")
	}
}

func TestAppend_SingleChunkLargerThanCap(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxAudioSeconds = 1
	cfg.OverlapSeconds = 0.5
	b := New(cfg)

	big := frame(int(5*cfg.bytesPerSecond()), 0xAA)
	if err := b.Append(big); err != nil {
		t.Fatal(err)
	}

	if got, want := b.DurationSec(), cfg.MaxAudioSeconds; got != want {
		t.Errorf("DurationSec() = %v, want %v", got, want)
	}
	snap := b.Snapshot()
	want := big[len(big)-int(cfg.MaxAudioSeconds*cfg.bytesPerSecond()):]
	if !bytes.Equal(snap, want) {
		t.Error("oversized single chunk did not retain its own tail")
	}
}

func TestAppend_EmptyChunkIsNoop(t *testing.T) {
	b := New(NewConfig())
	if err := b.Append(nil); err != nil {
		t.Fatal(err)
	}
	if got := b.DurationSec(); got != 0 {
		t.Errorf("DurationSec() = %v, want 0", got)
	}
}

func TestChunkCount_CountsEveryAcceptedAppend(t *testing.T) {
	b := New(NewConfig())
	_ = b.Append(frame(320, 0x01))
	_ = b.Append(frame(320, 0x02))
	if got := b.ChunkCount(); got != 2 {
		t.Errorf("ChunkCount() = %d, want 2", got)
	}
}

func TestPromptFrom_EmptyConfirmedYieldsEmptyPrompt(t *testing.T) {
	b := New(NewConfig())
	if got := b.PromptFrom(""); got != "" {
		t.Errorf("PromptFrom(\"\") = %q, want empty", got)
	}
}

func TestPromptFrom_TakesTrailingSentencesWithinCharCap(t *testing.T) {
	cfg := NewConfig()
	cfg.PromptMaxChars = 5
	b := New(cfg)

	prompt := b.PromptFrom("こんにちは。さようなら。")
	if got := len([]rune(prompt)); got > cfg.PromptMaxChars {
		t.Errorf("PromptFrom result has %d runes, want <= %d", got, cfg.PromptMaxChars)
	}
}

func TestPromptFrom_NoCapReturnsFullSentenceJoin(t *testing.T) {
	cfg := NewConfig()
	cfg.PromptMaxChars = 0
	b := New(cfg)

	got := b.PromptFrom("こんにちは。さようなら。")
	want := "こんにちは。さようなら。"
	if got != want {
		t.Errorf("PromptFrom() = %q, want %q", got, want)
	}
}

package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildWAV(sampleRate uint32, channels, bitsPerSample uint16, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	byteRate := sampleRate * uint32(channels) * uint32(bitsPerSample) / 8
	binary.Write(&buf, binary.LittleEndian, byteRate)
	blockAlign := channels * bitsPerSample / 8
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, bitsPerSample)

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}

func TestDecode_RawPCM_PassesThroughAligned(t *testing.T) {
	d := NewDecoder(true)
	pcm := make([]byte, 320)
	out, err := d.Decode(pcm)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(pcm) {
		t.Errorf("len = %d, want %d", len(out), len(pcm))
	}
}

func TestDecode_RawPCM_RejectsUnaligned(t *testing.T) {
	d := NewDecoder(true)
	if _, err := d.Decode(make([]byte, 3)); err != ErrUnalignedFrame {
		t.Fatalf("got %v, want ErrUnalignedFrame", err)
	}
}

func TestDecode_WAV_ExtractsMatchingFormat(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	wav := buildWAV(TargetSampleRate, TargetChannels, TargetBitDepth, data)

	d := NewDecoder(false)
	out, err := d.Decode(wav)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("Decode() = %v, want %v", out, data)
	}
}

func TestDecode_WAV_RejectsMismatchedFormat(t *testing.T) {
	wav := buildWAV(8000, 1, 16, []byte{0x01, 0x02})
	d := NewDecoder(false)
	_, err := d.Decode(wav)
	if err == nil {
		t.Fatal("expected an error for mismatched sample rate")
	}
}

func TestDecode_WAV_RejectsMalformedContainer(t *testing.T) {
	d := NewDecoder(false)
	if _, err := d.Decode([]byte("not a riff file")); err != ErrMalformedContainer {
		t.Fatalf("got %v, want ErrMalformedContainer", err)
	}
}

func TestDecode_WAV_RejectsTooShortHeader(t *testing.T) {
	d := NewDecoder(false)
	if _, err := d.Decode([]byte("RI")); err != ErrMalformedContainer {
		t.Fatalf("got %v, want ErrMalformedContainer", err)
	}
}

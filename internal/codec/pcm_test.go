package codec

import (
	"encoding/base64"
	"math"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	samples := []float64{0, 0.25, -0.25, 0.5, -0.5, 0.999, -0.999, 1, -1}
	blob := Encode(samples)

	if blob.MIMEType != CaptureMIMEType {
		t.Fatalf("unexpected mime type: %q", blob.MIMEType)
	}

	raw, err := DecodeBase64(blob.Base64Data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	chunk := DecodeToChunk(raw, 16000, 1)
	if len(chunk.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(chunk.Samples))
	}

	for i, want := range samples {
		got := chunk.Samples[i]
		if math.Abs(got-want) > 1.0/32767 {
			t.Fatalf("sample %d out of quantization error: want %f got %f", i, want, got)
		}
	}
}

func TestEncodeClampsOutOfRangeSamples(t *testing.T) {
	t.Parallel()

	blob := Encode([]float64{4.2, -7.9})
	raw, err := DecodeBase64(blob.Base64Data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	chunk := DecodeToChunk(raw, 16000, 1)
	if math.Abs(chunk.Samples[0]-1) > 1.0/32767 {
		t.Fatalf("expected positive clamp to 1, got %f", chunk.Samples[0])
	}
	if math.Abs(chunk.Samples[1]+1) > 1.0/32767 {
		t.Fatalf("expected negative clamp to -1, got %f", chunk.Samples[1])
	}
}

func TestDecodeToChunkTruncatesOddByteCount(t *testing.T) {
	t.Parallel()

	chunk := DecodeToChunk([]byte{0x00, 0x40, 0x7f}, 24000, 1)
	if len(chunk.Samples) != 1 {
		t.Fatalf("expected trailing byte dropped, got %d samples", len(chunk.Samples))
	}
	if len(chunk.Raw) != 2 {
		t.Fatalf("expected raw truncated to 2 bytes, got %d", len(chunk.Raw))
	}
}

func TestDecodeToChunkDuration(t *testing.T) {
	t.Parallel()

	raw := make([]byte, 24000*2) // one second of 24 kHz mono s16le
	chunk := DecodeToChunk(raw, 24000, 1)
	if chunk.Duration != time.Second {
		t.Fatalf("expected 1s duration, got %s", chunk.Duration)
	}

	half := DecodeToChunk(raw[:24000], 24000, 1)
	if half.Duration != 500*time.Millisecond {
		t.Fatalf("expected 500ms duration, got %s", half.Duration)
	}
}

func TestDecodeToChunkDefaults(t *testing.T) {
	t.Parallel()

	chunk := DecodeToChunk([]byte{0x01, 0x02}, 0, 0)
	if chunk.SampleRate != 24000 || chunk.Channels != 1 {
		t.Fatalf("unexpected defaults: rate=%d channels=%d", chunk.SampleRate, chunk.Channels)
	}
}

func TestDecodeBase64Invalid(t *testing.T) {
	t.Parallel()

	if _, err := DecodeBase64("not-base64!!!"); err == nil {
		t.Fatalf("expected base64 error")
	}
}

func TestDecodeBase64IsExactInverse(t *testing.T) {
	t.Parallel()

	raw := []byte{0x10, 0x20, 0x30, 0x40}
	got, err := DecodeBase64(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(got) != string(raw) {
		t.Fatalf("round trip mismatch: %v != %v", got, raw)
	}
}

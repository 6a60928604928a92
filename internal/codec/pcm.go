package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"holovox/internal/domain"
)

// CaptureMIMEType tags outbound frames as 16 kHz mono PCM.
const CaptureMIMEType = "audio/pcm;rate=16000"

// Chunk is decoded playable audio reconstructed from raw PCM bytes.
type Chunk struct {
	Samples    []float64
	SampleRate int
	Channels   int
	Raw        []byte // whole-sample prefix of the input bytes
	Duration   time.Duration
}

// Encode converts normalized float samples into the wire blob: each
// sample is clamped to [-1, 1], scaled by 32767 into a 16-bit signed
// little-endian integer, and the byte stream is base64-encoded.
func Encode(samples []float64) domain.PCMBlob {
	return domain.PCMBlob{
		MIMEType:   CaptureMIMEType,
		Base64Data: base64.StdEncoding.EncodeToString(SamplesToBytes(samples)),
	}
}

// DecodeBase64 is the exact inverse of the blob's base64 encoding.
func DecodeBase64(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio payload: %w", err)
	}
	return raw, nil
}

// DecodeToChunk reinterprets raw bytes as 16-bit little-endian signed
// integers rescaled to floats in [-1, 1]. An odd byte count is
// truncated to the largest whole-sample prefix.
func DecodeToChunk(raw []byte, sampleRate int, channels int) Chunk {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	if channels <= 0 {
		channels = 1
	}
	usable := len(raw) - len(raw)%2
	raw = raw[:usable]

	samples := BytesToSamples(raw)
	frames := len(samples) / channels
	duration := time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))

	return Chunk{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
		Raw:        raw,
		Duration:   duration,
	}
}

// SamplesToBytes packs normalized floats into 16-bit LE PCM.
func SamplesToBytes(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		v := int16(math.Round(sample * 32767))
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// BytesToSamples unpacks 16-bit LE PCM into normalized floats. A
// trailing odd byte is ignored.
func BytesToSamples(raw []byte) []float64 {
	count := len(raw) / 2
	samples := make([]float64, count)
	for i := 0; i < count; i++ {
		v := int16(uint16(raw[i*2]) | uint16(raw[i*2+1])<<8)
		samples[i] = float64(v) / 32767
	}
	return samples
}

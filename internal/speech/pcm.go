package speech

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// SampleRate is the rate of remote synthesis audio: mono PCM16 at 24 kHz.
const SampleRate = 24000

// Buffer is decoded mono audio ready for playback.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// DecodePCM16 reinterprets raw as signed 16-bit little-endian samples and
// scales them into [-1, 1]. A trailing odd byte is dropped.
func DecodePCM16(raw []byte) []float32 {
	n := len(raw) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(v) / 32768
	}
	return samples
}

// EncodePCM16 is the inverse of DecodePCM16, clamping out-of-range samples.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// DecodeBase64 decodes a standard base64 audio payload.
func DecodeBase64(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return raw, nil
}

// DecodeBase64PCM16 decodes a base64 PCM16 payload into samples.
func DecodeBase64PCM16(payload string) ([]float32, error) {
	raw, err := DecodeBase64(payload)
	if err != nil {
		return nil, err
	}
	return DecodePCM16(raw), nil
}

package wire

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

// DefaultMaxBytes bounds the encoded payload (two minutes of 16kHz mono PCM fits comfortably).
const DefaultMaxBytes = 8 << 20

// Encoder wraps a recording in a WAV container and base64-encodes it.
type Encoder struct {
	MaxBytes int
}

// Encode returns the base64 text for unit. unit is not modified.
func (e Encoder) Encode(unit practice.AudioUnit) (string, error) {
	if len(unit.PCM) == 0 {
		return "", fmt.Errorf("%w: empty recording", practice.ErrEncoding)
	}
	format := unit.Format
	if format.SampleRate <= 0 {
		format = practice.DefaultAudioFormat
	}

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(unit.PCM))
	if err := WriteWAV(&buf, unit.PCM, format); err != nil {
		return "", fmt.Errorf("%w: %w", practice.ErrEncoding, err)
	}

	limit := e.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if size := base64.StdEncoding.EncodedLen(buf.Len()); size > limit {
		return "", fmt.Errorf("%w: encoded size %d exceeds limit %d", practice.ErrEncoding, size, limit)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Extension returns the container file extension used by Encode.
func (Encoder) Extension() string {
	return "wav"
}

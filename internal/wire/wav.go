// Package wire converts captured audio into transport-safe payloads.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

const wavHeaderSize = 44

var errNotWAV = errors.New("not a PCM16 WAV container")

// WriteWAV writes raw little-endian PCM16 bytes with a minimal WAV header.
func WriteWAV(w io.Writer, pcm []byte, format practice.AudioFormat) error {
	channels := format.Channels
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := format.SampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}

// DecodeWAV extracts PCM16 samples and format from a RIFF/WAVE container.
// Chunks other than "fmt " and "data" are skipped.
func DecodeWAV(data []byte) ([]byte, practice.AudioFormat, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, practice.AudioFormat{}, errNotWAV
	}

	var (
		format    practice.AudioFormat
		haveFmt   bool
		offset    = 12
		sampleFmt uint16
		bits      uint16
	)
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if size < 0 || body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, practice.AudioFormat{}, fmt.Errorf("%w: short fmt chunk", errNotWAV)
			}
			sampleFmt = binary.LittleEndian.Uint16(data[body : body+2])
			format.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, practice.AudioFormat{}, fmt.Errorf("%w: data before fmt", errNotWAV)
			}
			if sampleFmt != 1 || bits != 16 {
				return nil, practice.AudioFormat{}, fmt.Errorf("%w: format=%d bits=%d", errNotWAV, sampleFmt, bits)
			}
			pcm := make([]byte, size)
			copy(pcm, data[body:body+size])
			return pcm, format, nil
		}

		offset = body + size + size%2
	}
	return nil, practice.AudioFormat{}, fmt.Errorf("%w: missing data chunk", errNotWAV)
}

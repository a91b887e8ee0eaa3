package practice

import "time"

// AudioFormat describes raw little-endian signed 16-bit PCM.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// DefaultAudioFormat is the capture format used by the microphone adapter.
var DefaultAudioFormat = AudioFormat{SampleRate: 16000, Channels: 1}

// BytesPerSecond returns the PCM data rate for the format.
func (f AudioFormat) BytesPerSecond() int {
	channels := f.Channels
	if channels <= 0 {
		channels = 1
	}
	return f.SampleRate * channels * 2
}

// AudioUnit is one finalized recording.
type AudioUnit struct {
	PCM       []byte
	Format    AudioFormat
	StartedAt time.Time
	StoppedAt time.Time
}

// Duration returns the wall-clock recording length.
func (u AudioUnit) Duration() time.Duration {
	if u.StoppedAt.Before(u.StartedAt) {
		return 0
	}
	return u.StoppedAt.Sub(u.StartedAt)
}

// Clip is reference audio for an item prompt, either remote (URL) or inline (Data).
type Clip struct {
	URL  string
	Data []byte
	MIME string
}

// Empty reports whether the clip carries no playable reference.
func (c Clip) Empty() bool {
	return c.URL == "" && len(c.Data) == 0
}
